package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/infra/cache"
)

const (
	DefaultReminderInterval = 24 * time.Hour
	reminderLeaseName       = "reminder-sweep"
	reminderLeaseTTL        = 10 * time.Minute
)

// ReminderSweeper runs one reminder pass and reports how many leads it reached.
type ReminderSweeper interface {
	Execute(ctx context.Context) (int, error)
}

// Locker serializes sweeps across overlapping runs and processes.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (cache.Release, bool, error)
}

type ReminderWorker struct {
	sweeper      ReminderSweeper
	locker       Locker
	logger       *zap.Logger
	tickInterval time.Duration
}

func NewReminderWorker(sweeper ReminderSweeper, locker Locker, interval time.Duration, logger *zap.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderWorker{
		sweeper:      sweeper,
		locker:       locker,
		logger:       logger,
		tickInterval: interval,
	}
}

// Start sweeps once immediately, then on every tick until ctx is done.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info("reminder worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a sweep under the lease. It returns false when the sweep
// was skipped because another run holds the lease.
func (w *ReminderWorker) RunOnce(ctx context.Context) bool {
	release, ok, err := w.locker.TryLock(ctx, reminderLeaseName, reminderLeaseTTL)
	if err != nil {
		w.logger.Error("reminder lease unavailable", zap.Error(err))
		return false
	}
	if !ok {
		w.logger.Info("reminder sweep skipped, another run holds the lease")
		return false
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			w.logger.Warn("reminder lease release failed", zap.Error(err))
		}
	}()

	sent, err := w.sweeper.Execute(ctx)
	if err != nil {
		w.logger.Error("reminder sweep failed", zap.Int("sent", sent), zap.Error(err))
		return true
	}
	if sent > 0 {
		w.logger.Info("reminders sent", zap.Int("count", sent))
	}
	return true
}
