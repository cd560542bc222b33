package whatsappwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bairdservice/baird-backend/pkg/redis"
)

// IdempotencyGuard remembers webhook item ids so redeliveries are skipped.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports true when id was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("item id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}
