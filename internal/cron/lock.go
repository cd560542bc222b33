package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/pkg/instance"
)

const defaultLockTTL = 15 * time.Minute

// Lock keeps two cron workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock is a SETNX lease whose value names the holder, so only the
// holder can release it and an expired lease frees itself.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire takes the lease for one TTL. It reports false when another worker holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := instance.GetID() + "/" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release drops the lease if this lock still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
