package cache

import (
	"context"
	"errors"

	"blurifier/internal/submission/models"
	id "blurifier/pkg/domain"
)

// Tier is one level of a Tiered cache.
type Tier interface {
	Get(ctx context.Context, hash id.ContentHash) (*models.Result, bool, error)
	Set(ctx context.Context, r *models.Result) error
}

// Tiered reads through a fast local tier before a shared remote tier and
// back-fills the local tier on a remote hit.
type Tiered struct {
	local  Tier
	remote Tier
}

func NewTiered(local, remote Tier) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (t *Tiered) Get(ctx context.Context, hash id.ContentHash) (*models.Result, bool, error) {
	if r, ok, err := t.local.Get(ctx, hash); err == nil && ok {
		return r, true, nil
	}
	r, ok, err := t.remote.Get(ctx, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.local.Set(ctx, r)
	return r, true, nil
}

// Set writes both tiers; errors from either are joined.
func (t *Tiered) Set(ctx context.Context, r *models.Result) error {
	return errors.Join(t.local.Set(ctx, r), t.remote.Set(ctx, r))
}
