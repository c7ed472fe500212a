package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blurifier/pkg/platform/circuit"
)

func TestGuardedShortCircuitsAfterFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := newFakeTier()
	remote.getErr = errors.New("i/o timeout")
	breaker := circuit.New("redis",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Second),
		circuit.WithClock(func() time.Time { return now }),
	)
	g := NewGuarded(remote, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := successResult("damn", "****")
	ctx := context.Background()

	for range 2 {
		_, _, err := g.Get(ctx, r.Hash)
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())

	_, _, err := g.Get(ctx, r.Hash)
	assert.ErrorIs(t, err, ErrTierUnavailable)
	assert.ErrorIs(t, g.Set(ctx, r), ErrTierUnavailable)
	assert.Equal(t, 2, remote.gets, "open circuit does not touch the tier")

	remote.getErr = nil
	remote.entries[r.Hash] = r
	now = now.Add(time.Second)
	got, ok, err := g.Get(ctx, r.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r.Hash, got.Hash)
	assert.False(t, breaker.IsOpen(), "successful probe closes the circuit")
}

// Justification: the read path tolerates cache errors, so a guarded remote
// behind Tiered must still let local hits through while open.
func TestTieredWithOpenRemoteServesLocal(t *testing.T) {
	local := newFakeTier()
	remote := newFakeTier()
	breaker := circuit.New("redis", circuit.WithFailureThreshold(1))
	breaker.RecordFailure()
	tiered := NewTiered(local, NewGuarded(remote, breaker, slog.New(slog.NewTextHandler(io.Discard, nil))))

	r := successResult("hell", "****")
	local.entries[r.Hash] = r

	got, ok, err := tiered.Get(context.Background(), r.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r.Hash, got.Hash)
	assert.Zero(t, remote.gets)
}
