package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type step int

const (
	fail step = iota
	succeed
)

func apply(b *Breaker, steps ...step) {
	for _, s := range steps {
		if s == fail {
			b.RecordFailure()
		} else {
			b.RecordSuccess()
		}
	}
}

func TestNewBreakerStartsClosed(t *testing.T) {
	b := New("redis-cache")
	assert.Equal(t, "redis-cache", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		recovery int
		steps    []step
		wantOpen bool
	}{
		{"below failure threshold", 3, 2, []step{fail, fail}, false},
		{"reaches failure threshold", 3, 2, []step{fail, fail, fail}, true},
		{"success clears failure streak", 3, 2, []step{fail, fail, succeed, fail, fail}, false},
		{"one success is not enough to close", 1, 2, []step{fail, succeed}, true},
		{"success threshold closes", 1, 2, []step{fail, succeed, succeed}, false},
		{"failure while open clears success streak", 1, 3, []step{fail, succeed, succeed, fail, succeed, succeed}, true},
		{"full recovery after interrupted streak", 1, 3, []step{fail, succeed, succeed, fail, succeed, succeed, succeed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("redis-cache", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.recovery))
			apply(b, tt.steps...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestRecordFailureReportsOpeningOnce(t *testing.T) {
	b := New("redis-cache", WithFailureThreshold(2))

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.False(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback, "stays on fallback while open")
	assert.False(t, change.Opened, "no second transition")
}

func TestRecordSuccessReportsClosing(t *testing.T) {
	b := New("redis-cache", WithFailureThreshold(1), WithSuccessThreshold(1))
	b.RecordFailure()

	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.False(t, change.Closed)
}

func TestResetClosesCircuit(t *testing.T) {
	b := New("redis-cache", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestAllowProbesOncePerCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("redis-cache",
		WithFailureThreshold(1),
		WithCooldown(time.Second),
		WithClock(func() time.Time { return now }),
	)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow(), "open circuit blocks until cooldown")

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next cooldown")

	b.RecordSuccess()
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
