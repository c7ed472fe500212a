package indexing_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"blurifier/internal/indexing"
	"blurifier/internal/search/index"
	"blurifier/internal/submission/store"
	id "blurifier/pkg/domain"
	dErrors "blurifier/pkg/domain-errors"
)

// flakyIndex fails Upsert for selected hashes and delegates the rest.
type flakyIndex struct {
	*index.BleveIndex
	mu        sync.Mutex
	failFor   map[id.ContentHash]bool
	ensureErr error
	upserts   int
}

func (f *flakyIndex) EnsureIndex(ctx context.Context) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	return f.BleveIndex.EnsureIndex(ctx)
}

func (f *flakyIndex) Upsert(ctx context.Context, doc index.Document) error {
	f.mu.Lock()
	f.upserts++
	fail := f.failFor[doc.ContentHash]
	f.mu.Unlock()
	if fail {
		return errors.New("backend rejected document")
	}
	return f.BleveIndex.Upsert(ctx, doc)
}

// resetStore fails ResetIndexed while resetErr is set.
type resetStore struct {
	*store.InMemoryStore
	resetErr error
	resets   int
}

func (r *resetStore) ResetIndexed(ctx context.Context) (int64, error) {
	r.resets++
	if r.resetErr != nil {
		return 0, r.resetErr
	}
	return r.InMemoryStore.ResetIndexed(ctx)
}

type SweeperSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	index   *flakyIndex
	metrics *indexing.Metrics
	sweeper *indexing.Sweeper
	t0      time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = store.NewInMemory()
	s.index = &flakyIndex{BleveIndex: index.NewBleve(""), failFor: map[id.ContentHash]bool{}}
	s.T().Cleanup(func() { _ = s.index.Close() })
	s.metrics = indexing.NewMetrics(prometheus.NewRegistry())
	s.sweeper = indexing.New(s.store, s.index, time.Hour, 100,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		indexing.WithMetrics(s.metrics),
	)
}

// processed stores content and marks it redacted.
func (s *SweeperSuite) processed(content, redacted string) id.ContentHash {
	sub, _, err := s.store.GetOrCreate(s.ctx, content, s.t0)
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveProcessed(s.ctx, sub.Hash, redacted, s.t0.Add(time.Second)))
	return sub.Hash
}

// =============================================================================
// Coverage
// =============================================================================

func (s *SweeperSuite) TestIndexesEveryProcessedRow() {
	a := s.processed("well damn", "well ****")
	b := s.processed("oh hell", "oh ****")
	pending, _, err := s.store.GetOrCreate(s.ctx, "not yet", s.t0)
	s.Require().NoError(err)

	res, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Total)
	s.Equal(2, res.Indexed)
	s.Zero(res.Failed)

	for _, h := range []id.ContentHash{a, b} {
		sub, err := s.store.FindByHash(s.ctx, h)
		s.Require().NoError(err)
		s.NotNil(sub.IndexedAt, "hash %s", h)
	}
	sub, err := s.store.FindByHash(s.ctx, pending.Hash)
	s.Require().NoError(err)
	s.Nil(sub.IndexedAt)

	count, err := s.index.Count(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, count)

	docs, err := s.index.Search(s.ctx, "hell", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(b, docs[0].ContentHash)
	s.Require().NotNil(docs[0].ProcessedText)
	s.Equal("oh ****", *docs[0].ProcessedText)
}

func (s *SweeperSuite) TestEmptyPassTouchesNothing() {
	res, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(indexing.Result{Duration: res.Duration}, res)
	s.Zero(s.index.upserts)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Passes))
}

// Justification: an indexed row must not be picked again, so its watermark cannot move.
func (s *SweeperSuite) TestSecondPassLeavesWatermarkAlone() {
	h := s.processed("darn it", "**** it")

	_, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	first, err := s.store.FindByHash(s.ctx, h)
	s.Require().NoError(err)
	s.Require().NotNil(first.IndexedAt)

	res, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total)

	second, err := s.store.FindByHash(s.ctx, h)
	s.Require().NoError(err)
	s.Equal(*first.IndexedAt, *second.IndexedAt)
	s.Equal(1, s.index.upserts)
}

// =============================================================================
// Partial failure
// =============================================================================

func (s *SweeperSuite) TestOneFailingDocumentDoesNotBlockTheRest() {
	var hashes []id.ContentHash
	for i := range 5 {
		hashes = append(hashes, s.processed(fmt.Sprintf("doc %d", i), fmt.Sprintf("doc %d", i)))
	}
	bad := hashes[2]
	s.index.failFor[bad] = true

	res, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, res.Total)
	s.Equal(4, res.Indexed)
	s.Equal(1, res.Failed)

	for _, h := range hashes {
		sub, err := s.store.FindByHash(s.ctx, h)
		s.Require().NoError(err)
		if h == bad {
			s.Nil(sub.IndexedAt)
		} else {
			s.NotNil(sub.IndexedAt)
		}
	}
	s.Equal(4.0, promtest.ToFloat64(s.metrics.Indexed))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Failed))

	delete(s.index.failFor, bad)
	res, err = s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Total)
	s.Equal(1, res.Indexed)
}

func (s *SweeperSuite) TestUnavailableIndexFailsThePass() {
	h := s.processed("x", "x")
	s.index.ensureErr = errors.New("disk full")

	res, err := s.sweeper.Sweep(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeIndex))
	s.Zero(res.Indexed)
	s.Zero(s.index.upserts)

	sub, err := s.store.FindByHash(s.ctx, h)
	s.Require().NoError(err)
	s.Nil(sub.IndexedAt)
}

// =============================================================================
// Index rebuild
// =============================================================================

// Justification: watermarks live in the durable store while the index may be
// recreated empty; rows indexed into the old index must be indexed again.
func (s *SweeperSuite) TestFreshIndexReindexesEveryProcessedRow() {
	a := s.processed("well damn", "well ****")
	b := s.processed("oh hell", "oh ****")

	res, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Indexed)

	fresh := &flakyIndex{BleveIndex: index.NewBleve(""), failFor: map[id.ContentHash]bool{}}
	s.T().Cleanup(func() { _ = fresh.Close() })
	restarted := indexing.New(s.store, fresh, time.Hour, 100,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	res, err = restarted.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Total)
	s.Equal(2, res.Indexed)

	for _, h := range []id.ContentHash{a, b} {
		sub, err := s.store.FindByHash(s.ctx, h)
		s.Require().NoError(err)
		s.NotNil(sub.IndexedAt, "hash %s", h)
	}
	docs, err := fresh.Search(s.ctx, "hell", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(b, docs[0].ContentHash)

	res, err = restarted.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total, "reset happens once per created index")
}

func (s *SweeperSuite) TestFreshIndexDrainsOverSeveralPasses() {
	for i := range 5 {
		s.processed(fmt.Sprintf("doc %d", i), fmt.Sprintf("doc %d", i))
	}
	_, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)

	fresh := &flakyIndex{BleveIndex: index.NewBleve(""), failFor: map[id.ContentHash]bool{}}
	s.T().Cleanup(func() { _ = fresh.Close() })
	restarted := indexing.New(s.store, fresh, time.Hour, 2,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	indexed := 0
	for range 3 {
		res, err := restarted.Sweep(s.ctx)
		s.Require().NoError(err)
		indexed += res.Indexed
	}
	s.Equal(5, indexed)
	count, err := fresh.Count(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(5, count)
}

func (s *SweeperSuite) TestFailedResetIsRetried() {
	h := s.processed("darn it", "**** it")
	_, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)

	st := &resetStore{InMemoryStore: s.store, resetErr: errors.New("connection reset")}
	fresh := &flakyIndex{BleveIndex: index.NewBleve(""), failFor: map[id.ContentHash]bool{}}
	s.T().Cleanup(func() { _ = fresh.Close() })
	restarted := indexing.New(st, fresh, time.Hour, 100,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err = restarted.Sweep(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
	s.Zero(fresh.upserts)

	st.resetErr = nil
	res, err := restarted.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Indexed)
	s.Equal(2, st.resets)

	sub, err := s.store.FindByHash(s.ctx, h)
	s.Require().NoError(err)
	s.NotNil(sub.IndexedAt)
}

func (s *SweeperSuite) TestReopenedIndexKeepsWatermarks() {
	path := filepath.Join(s.T().TempDir(), "blurifier.bleve")
	s.processed("kept", "kept")

	first := index.NewBleve(path)
	sweeper := indexing.New(s.store, first, time.Hour, 100,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	res, err := sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Indexed)
	s.Require().NoError(first.Close())

	st := &resetStore{InMemoryStore: s.store}
	reopened := index.NewBleve(path)
	s.T().Cleanup(func() { _ = reopened.Close() })
	res, err = indexing.New(st, reopened, time.Hour, 100,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Total)
	s.Zero(st.resets)
}

// =============================================================================
// Loop
// =============================================================================

func (s *SweeperSuite) TestRunSweepsUntilStopped() {
	h := s.processed("looped", "looped")
	sweeper := indexing.New(s.store, s.index, 5*time.Millisecond, 10,
		indexing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(s.ctx) }()

	s.Eventually(func() bool {
		sub, err := s.store.FindByHash(s.ctx, h)
		return err == nil && sub.IndexedAt != nil
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}
