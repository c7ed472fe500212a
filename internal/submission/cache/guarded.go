package cache

import (
	"context"
	"errors"
	"log/slog"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
	"blurifier/pkg/platform/circuit"
)

// ErrTierUnavailable is returned while the breaker holds a tier open.
var ErrTierUnavailable = errors.New("cache tier unavailable")

// Guarded puts a circuit breaker in front of a tier so an outage costs one
// fast error per call instead of a network timeout.
type Guarded struct {
	tier    Tier
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(tier Tier, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{tier: tier, breaker: breaker, logger: logger}
}

func (g *Guarded) Get(ctx context.Context, hash id.ContentHash) (*models.Result, bool, error) {
	if !g.breaker.Allow() {
		return nil, false, ErrTierUnavailable
	}
	r, ok, err := g.tier.Get(ctx, hash)
	g.record(ctx, err)
	return r, ok, err
}

func (g *Guarded) Set(ctx context.Context, r *models.Result) error {
	if !g.breaker.Allow() {
		return ErrTierUnavailable
	}
	err := g.tier.Set(ctx, r)
	g.record(ctx, err)
	return err
}

func (g *Guarded) record(ctx context.Context, err error) {
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "cache circuit opened", "tier", g.breaker.Name(), "error", err)
		}
		return
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "cache circuit closed", "tier", g.breaker.Name())
	}
}
