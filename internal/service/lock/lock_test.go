package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ignite-service/internal/service/lock"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return store.NewRedisStore(rdb)
}

func TestWithLockReleases(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := lock.NewLocker(s, time.Second, 100*time.Millisecond)

	ran := 0
	for i := 0; i < 2; i++ {
		if err := l.WithLock(ctx, "session:a", func(context.Context) error {
			ran++
			return nil
		}); err != nil {
			t.Fatalf("expected lock to be acquired, got %v", err)
		}
	}
	if ran != 2 {
		t.Fatalf("expected fn to run twice, ran %d", ran)
	}
	if _, err := s.Get(ctx, "lock:session:a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected lock key to be released, got %v", err)
	}
}

func TestWithLockBusy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := lock.NewLocker(s, 5*time.Second, 50*time.Millisecond)

	if _, err := s.SetNX(ctx, "lock:session:b", []byte("other"), 5*time.Second); err != nil {
		t.Fatalf("failed to seed lock: %v", err)
	}

	called := false
	err := l.WithLock(ctx, "session:b", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, appErr.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run without the lock")
	}

	held, _ := s.Get(ctx, "lock:session:b")
	if string(held) != "other" {
		t.Fatalf("foreign lock must be left untouched, got %q", held)
	}
}

func TestWithLockPropagatesError(t *testing.T) {
	l := lock.NewLocker(newStore(t), time.Second, time.Second)
	want := errors.New("boom")
	if err := l.WithLock(context.Background(), "k", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
}

func TestNilLockerRunsFn(t *testing.T) {
	var l *lock.Locker
	called := false
	if err := l.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	}); err != nil || !called {
		t.Fatalf("nil locker should run fn, err=%v called=%v", err, called)
	}
}
