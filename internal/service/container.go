package service

import (
	"context"
	"fmt"

	"ignite-service/internal/config"
	"ignite-service/internal/service/archive"
	"ignite-service/internal/service/balance"
	"ignite-service/internal/service/game"
	"ignite-service/internal/service/idempotency"
	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/lock"
	"ignite-service/internal/service/operator"
	"ignite-service/internal/store"
	"ignite-service/pkg/logger"
	"ignite-service/pkg/utils/random"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	Config   *config.Config
	Store    store.Store
	Guard    *idempotency.Guard
	Ledger   *ledger.Service
	Journal  *ledger.DBJournal
	Balance  balance.Provider
	Game     *game.Service
	Operator *operator.Service
	Sessions *archive.Index
	Sweeper  *archive.Sweeper

	purger archive.Purger
}

// NewContainer assembles every service from explicit handles; nothing is looked up globally here.
func NewContainer(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Container, error) {
	var (
		kv     store.Store
		purger archive.Purger
	)
	switch cfg.Store.Driver {
	case "db":
		dbStore := store.NewDBStore(db)
		kv, purger = dbStore, dbStore
	default:
		if rdb == nil {
			return nil, fmt.Errorf("store.driver %q needs a redis client", cfg.Store.Driver)
		}
		kv = store.NewRedisStore(rdb)
	}

	provider, err := balance.New(cfg.External, db)
	if err != nil {
		return nil, err
	}

	var locker *lock.Locker
	if cfg.Game.SessionLock {
		locker = lock.NewLocker(kv, cfg.Game.LockTTL, cfg.Game.LockWait)
	}

	journal := ledger.NewDBJournal(db)
	ledgerSvc := ledger.NewService(kv, provider, locker, journal)
	sessions := archive.NewIndex(db)

	var sink archive.Sink = archive.LogSink{}
	if cfg.Archive.Bucket != "" {
		s3Sink, err := archive.NewS3Sink(ctx, cfg.Archive)
		if err != nil {
			return nil, err
		}
		sink = s3Sink
	}

	return &Container{
		Config:  cfg,
		Store:   kv,
		Guard:   idempotency.NewGuard(kv, cfg.Idempotency.TTL),
		Ledger:  ledgerSvc,
		Journal: journal,
		Balance: provider,
		Game: game.NewService(game.Deps{
			Store:    kv,
			Ledger:   ledgerSvc,
			Locker:   locker,
			Recorder: sessions,
			Rand:     random.New(),
		}, cfg.Game),
		Operator: operator.NewService(db),
		Sessions: sessions,
		Sweeper:  archive.NewSweeper(sessions, kv, sink, cfg.Archive.Retention, cfg.Archive.BatchSize),
		purger:   purger,
	}, nil
}

func (c *Container) Start(ctx context.Context) error {
	return c.Operator.EnsureDefaultOperator(ctx)
}

// StartScheduler runs the archive sweep when archival is enabled and the expired-key purge when
// the store is database backed. It returns nil when there is nothing to schedule.
func (c *Container) StartScheduler() (gocron.Scheduler, error) {
	var sweeper *archive.Sweeper
	if c.Config.Archive.Enabled {
		sweeper = c.Sweeper
	}
	if sweeper == nil && c.purger == nil {
		return nil, nil
	}
	logger.Log.Info("background jobs scheduled",
		zap.Bool("archive", sweeper != nil),
		zap.Bool("purge", c.purger != nil),
		zap.Duration("interval", c.Config.Archive.Interval))
	return archive.Schedule(c.Config.Archive.Interval, sweeper, c.purger)
}
