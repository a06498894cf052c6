// Package idempotency deduplicates mutating requests by caller-supplied key.
//
// The first request for a key claims a "processing" record, runs the operation and stores the
// serialized response as "completed". Later requests with the same key get the stored bytes back
// without re-running the operation. A failed operation leaves its record in "processing" until the
// TTL expires, so a retry of a failed request reports REQUEST_IN_FLIGHT rather than running twice.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ignite-service/internal/metrics"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"

	"go.uber.org/zap"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

const keyPrefix = "idem:"

type Record struct {
	Key       string          `json:"key"`
	Status    Status          `json:"status"`
	Response  json.RawMessage `json:"response,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type Operation func(ctx context.Context) (any, error)

type Guard struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewGuard(s store.Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{store: s, ttl: ttl, now: time.Now}
}

// Execute runs op at most once per key and returns its JSON-encoded result.
func (g *Guard) Execute(ctx context.Context, key string, op Operation) (json.RawMessage, error) {
	if key == "" {
		return nil, appErr.ErrMissingDedupeKey
	}
	storeKey := keyPrefix + key

	var existing Record
	err := store.GetJSON(ctx, g.store, storeKey, &existing)
	switch {
	case err == nil:
		if existing.Status == StatusCompleted {
			metrics.IdempotencyOutcomes.WithLabelValues("replayed").Inc()
			return existing.Response, nil
		}
		metrics.IdempotencyOutcomes.WithLabelValues("in_flight").Inc()
		return nil, appErr.ErrRequestInFlight
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}

	now := g.now()
	record := Record{
		Key:       key,
		Status:    StatusProcessing,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	claimed, err := store.SetNXJSON(ctx, g.store, storeKey, record, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency record: %w", err)
	}
	if !claimed {
		metrics.IdempotencyOutcomes.WithLabelValues("conflict").Inc()
		return nil, appErr.ErrConcurrentRequest
	}

	result, err := op(ctx)
	if err != nil {
		metrics.IdempotencyOutcomes.WithLabelValues("failed").Inc()
		logger.Log.Info("idempotent operation failed; key stays processing until expiry",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode idempotent response: %w", err)
	}

	remaining := record.ExpiresAt.Sub(g.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	record.Status = StatusCompleted
	record.Response = payload
	if err := store.SetJSON(ctx, g.store, storeKey, record, remaining); err != nil {
		// The operation already happened; the caller still gets its result.
		logger.Log.Error("failed to persist idempotent response",
			zap.String("key", key), zap.Error(err))
	}
	metrics.IdempotencyOutcomes.WithLabelValues("executed").Inc()
	return payload, nil
}

// Lookup returns the stored record for key.
func (g *Guard) Lookup(ctx context.Context, key string) (*Record, error) {
	var record Record
	if err := store.GetJSON(ctx, g.store, keyPrefix+key, &record); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}
