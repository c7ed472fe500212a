package tasks_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blurifier/internal/tasks"
	"blurifier/internal/tasks/status"
	id "blurifier/pkg/domain"
)

// countingProcessor tracks total and peak concurrent calls per hash.
type countingProcessor struct {
	mu      sync.Mutex
	calls   map[id.ContentHash]int
	active  map[id.ContentHash]int
	overlap atomic.Bool
	delay   time.Duration
}

func newCountingProcessor(delay time.Duration) *countingProcessor {
	return &countingProcessor{
		calls:  map[id.ContentHash]int{},
		active: map[id.ContentHash]int{},
		delay:  delay,
	}
}

func (p *countingProcessor) Process(_ context.Context, hash id.ContentHash) (string, error) {
	p.mu.Lock()
	p.calls[hash]++
	p.active[hash]++
	if p.active[hash] > 1 {
		p.overlap.Store(true)
	}
	p.mu.Unlock()

	time.Sleep(p.delay)

	p.mu.Lock()
	p.active[hash]--
	p.mu.Unlock()
	return "done", nil
}

func (p *countingProcessor) count(hash id.ContentHash) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[hash]
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryQueueDeduplicatesQueuedKeys(t *testing.T) {
	q := tasks.NewMemoryQueue(10, 1, discard())
	h := id.HashContent("x")

	require.NoError(t, q.Publish(context.Background(), tasks.Task{Hash: h}))
	require.NoError(t, q.Publish(context.Background(), tasks.Task{Hash: h}))
	assert.Equal(t, 1, q.Pending())
}

func TestMemoryQueueRejectsWhenFull(t *testing.T) {
	q := tasks.NewMemoryQueue(1, 1, discard())
	require.NoError(t, q.Publish(context.Background(), tasks.Task{Hash: id.HashContent("a")}))
	err := q.Publish(context.Background(), tasks.Task{Hash: id.HashContent("b")})
	assert.ErrorIs(t, err, tasks.ErrQueueFull)
}

// Justification: end-to-end check that dispatcher + queue + runner never run
// one hash twice at once, even under a burst of duplicate enqueues.
func TestDispatchThroughMemoryQueueRunsEachHashOnce(t *testing.T) {
	statuses := status.NewMemory(time.Hour)
	q := tasks.NewMemoryQueue(100, 4, discard())
	proc := newCountingProcessor(5 * time.Millisecond)
	runner := tasks.NewRunner(proc, statuses, tasks.RunnerConfig{MaxAttempts: 1}, tasks.WithRunnerLogger(discard()))
	dispatcher := tasks.NewDispatcher(q, statuses, tasks.WithDispatcherLogger(discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, runner) }()

	hashes := []id.ContentHash{id.HashContent("a"), id.HashContent("b"), id.HashContent("c")}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = dispatcher.Enqueue(ctx, hashes[i%len(hashes)])
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return q.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, h := range hashes {
		assert.Equal(t, 1, proc.count(h), "hash %s processed once", h)
		st, err := dispatcher.Status(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, "SUCCESS", string(st.State()))
	}
	assert.False(t, proc.overlap.Load())
}
