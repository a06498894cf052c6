package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ignite-service/internal/metrics"
	"ignite-service/internal/store"
	"ignite-service/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Purger drops expired key/value rows; store.DBStore implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	index     *Index
	store     store.Store
	sink      Sink
	retention time.Duration
	batchSize int
	now       func() time.Time
}

func NewSweeper(index *Index, s store.Store, sink Sink, retention time.Duration, batchSize int) *Sweeper {
	if sink == nil {
		sink = LogSink{}
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		index:     index,
		store:     s,
		sink:      sink,
		retention: retention,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Sweep archives one batch of sessions past retention and reports how many it moved.
func (w *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.index.Due(ctx, now.Add(-w.retention), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load due sessions: %w", err)
	}

	archived := 0
	for _, record := range due {
		key := ""
		doc, err := w.store.Get(ctx, record.DocumentKey)
		switch {
		case errors.Is(err, store.ErrNotFound):
			logger.Log.Warn("session document already gone; marking archived",
				zap.String("sessionID", record.ID))
		case err != nil:
			return archived, fmt.Errorf("load session %s: %w", record.ID, err)
		default:
			key = ObjectKey(record.ID, *record.ResolvedAt)
			if err := w.sink.Put(ctx, key, doc); err != nil {
				return archived, err
			}
			if err := w.store.Delete(ctx, record.DocumentKey); err != nil {
				return archived, fmt.Errorf("delete session %s: %w", record.ID, err)
			}
		}
		if err := w.index.MarkArchived(ctx, record.ID, key, now); err != nil {
			return archived, err
		}
		archived++
		metrics.SessionsArchived.Inc()
	}
	if archived > 0 {
		logger.Log.Info("archive sweep finished", zap.Int("archived", archived))
	}
	return archived, nil
}

// ObjectKey is the sink key for a session resolved at resolvedAt.
func ObjectKey(sessionID string, resolvedAt time.Time) string {
	return fmt.Sprintf("sessions/%s/%s.json", resolvedAt.UTC().Format("2006/01/02"), sessionID)
}

// Schedule starts a scheduler running the sweep and, when purger is set, the expired-row purge
// every interval. Either may be nil. Callers own Shutdown.
func Schedule(interval time.Duration, sweeper *Sweeper, purger Purger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if sweeper != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if _, err := sweeper.Sweep(context.Background()); err != nil {
					logger.Log.Error("archive sweep failed", zap.Error(err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = sched.Shutdown()
			return nil, err
		}
	}

	if purger != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				removed, err := purger.PurgeExpired(context.Background())
				if err != nil {
					logger.Log.Error("expired key purge failed", zap.Error(err))
					return
				}
				if removed > 0 {
					logger.Log.Info("expired keys purged", zap.Int64("removed", removed))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = sched.Shutdown()
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
