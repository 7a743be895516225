package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/config"
	"github.com/xavierca1/salespilot/internal/infra/database"
	"github.com/xavierca1/salespilot/internal/infra/worker"
)

// runRemind performs one sweep for an external scheduler. The lease still
// applies, so it is safe to run alongside serve.
func runRemind(ctx context.Context, configPath string) error {
	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(closeCtx)
	}()

	if a.db == nil {
		a.log.Warn("reminder sweep against the in-memory store has nothing to do")
	}

	started := time.Now()
	ran := worker.NewReminderWorker(a.reminders(), a.locker, a.cfg.ReminderInterval, a.log).RunOnce(ctx)
	a.log.Info("reminder command finished", zap.Bool("ran", ran), zap.Duration("took", time.Since(started)))
	return nil
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, nothing to migrate")
		return nil
	}
	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL, 1)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.RunMigrations(ctx, db, logger)
}
