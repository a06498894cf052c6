// Package lock provides advisory per-resource locks on top of the key/value store.
package lock

import (
	"context"
	"errors"
	"time"

	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errHeld = errors.New("lock held")

type Locker struct {
	store   store.Store
	ttl     time.Duration
	maxWait time.Duration
}

// NewLocker returns a Locker whose locks expire after ttl and whose callers give up after maxWait.
func NewLocker(s store.Store, ttl, maxWait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &Locker{store: s, ttl: ttl, maxWait: maxWait}
}

// WithLock runs fn while holding key. A nil Locker runs fn unguarded.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}

	token, err := l.acquire(ctx, "lock:"+key)
	if err != nil {
		return err
	}
	defer l.release("lock:"+key, token)

	return fn(ctx)
}

func (l *Locker) acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (bool, error) {
		ok, err := l.store.SetNX(ctx, key, []byte(token), l.ttl)
		if err != nil {
			return false, backoff.Permanent(err)
		}
		if !ok {
			return false, errHeld
		}
		return true, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(l.maxWait))
	if err != nil {
		if errors.Is(err, errHeld) || errors.Is(err, context.DeadlineExceeded) {
			return "", appErr.ErrSessionBusy
		}
		return "", err
	}
	return token, nil
}

func (l *Locker) release(key, token string) {
	// Release must survive a cancelled request context.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	current, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Log.Warn("lock release lookup failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	if string(current) != token {
		return
	}
	if err := l.store.Delete(ctx, key); err != nil {
		logger.Log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}
