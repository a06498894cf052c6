package idempotency_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ignite-service/internal/service/idempotency"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuard(t *testing.T) (*miniredis.Miniredis, store.Store, *idempotency.Guard) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := store.NewRedisStore(rdb)
	return mr, s, idempotency.NewGuard(s, time.Hour)
}

func TestExecuteRequiresKey(t *testing.T) {
	_, _, g := newGuard(t)
	_, err := g.Execute(context.Background(), "", func(context.Context) (any, error) {
		t.Fatalf("operation must not run")
		return nil, nil
	})
	if !errors.Is(err, appErr.ErrMissingDedupeKey) {
		t.Fatalf("expected ErrMissingDedupeKey, got %v", err)
	}
}

func TestExecuteReplaysCompleted(t *testing.T) {
	ctx := context.Background()
	_, _, g := newGuard(t)

	calls := 0
	op := func(context.Context) (any, error) {
		calls++
		return map[string]any{"pool": "1.00", "call": calls}, nil
	}

	first, err := g.Execute(ctx, "join-1", op)
	if err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	second, err := g.Execute(ctx, "join-1", op)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected operation to run once, ran %d times", calls)
	}
	if string(first) != string(second) {
		t.Fatalf("replay must be byte-identical: %s vs %s", first, second)
	}

	record, err := g.Lookup(ctx, "join-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if record.Status != idempotency.StatusCompleted {
		t.Fatalf("expected completed record, got %s", record.Status)
	}
}

func TestExecuteInFlight(t *testing.T) {
	ctx := context.Background()
	_, s, g := newGuard(t)

	seed, _ := json.Marshal(idempotency.Record{Key: "busy", Status: idempotency.StatusProcessing})
	if err := s.Set(ctx, "idem:busy", seed, time.Minute); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := g.Execute(ctx, "busy", func(context.Context) (any, error) {
		t.Fatalf("operation must not run while in flight")
		return nil, nil
	})
	if !errors.Is(err, appErr.ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}
}

func TestExecuteFailureStaysProcessing(t *testing.T) {
	ctx := context.Background()
	mr, _, g := newGuard(t)

	boom := errors.New("store unreachable")
	if _, err := g.Execute(ctx, "fail", func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected operation error, got %v", err)
	}

	_, err := g.Execute(ctx, "fail", func(context.Context) (any, error) { return "ok", nil })
	if !errors.Is(err, appErr.ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight after failure, got %v", err)
	}

	mr.FastForward(2 * time.Hour)
	payload, err := g.Execute(ctx, "fail", func(context.Context) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("expected fresh attempt after expiry, got %v", err)
	}
	if string(payload) != `"ok"` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

// racingStore reports a lost conditional create as if another request claimed the key first.
type racingStore struct {
	store.Store
}

func (racingStore) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, nil
}

func TestExecuteConcurrentRequest(t *testing.T) {
	_, s, _ := newGuard(t)
	g := idempotency.NewGuard(racingStore{Store: s}, time.Hour)

	_, err := g.Execute(context.Background(), "race", func(context.Context) (any, error) {
		t.Fatalf("operation must not run after losing the claim")
		return nil, nil
	})
	if !errors.Is(err, appErr.ErrConcurrentRequest) {
		t.Fatalf("expected ErrConcurrentRequest, got %v", err)
	}
}
