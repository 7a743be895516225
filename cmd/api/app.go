package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xavierca1/salespilot/internal/config"
	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/cache"
	"github.com/xavierca1/salespilot/internal/infra/database"
	"github.com/xavierca1/salespilot/internal/infra/mail"
	"github.com/xavierca1/salespilot/internal/infra/queue"
	"github.com/xavierca1/salespilot/internal/infra/worker"
	"github.com/xavierca1/salespilot/internal/usecase"
)

// app holds the infrastructure shared by every command.
type app struct {
	cfg config.Config
	log *zap.Logger

	db       *sql.DB
	leads    entity.LeadRepositoryInterface
	bookings entity.BookingRepositoryInterface
	users    entity.UserRepositoryInterface

	mailer     *mail.EmailSender
	notifier   usecase.Notifier
	rabbit     *queue.RabbitMQ
	dispatcher *queue.Dispatcher
	redis      *redis.Client
	locker     worker.Locker
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger}

	if err := a.openStorage(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := a.openNotifications(); err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := a.openLocker(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		a.log.Warn("DATABASE_URL not set, using the in-memory store")
		store := database.NewMemoryStore()
		a.leads, a.bookings, a.users = store.Leads(), store.Bookings(), store.Users()
		return nil
	}

	db, err := database.NewDBConnection(ctx, a.cfg.DatabaseURL, a.cfg.MaxDBConns)
	if err != nil {
		return err
	}
	a.db = db
	a.leads = database.NewLeadRepository(db)
	a.bookings = database.NewBookingRepository(db)
	a.users = database.NewUserRepository(db)
	a.log.Info("postgres connected")
	return nil
}

// openNotifications picks RabbitMQ when configured and the in-process
// dispatcher otherwise. Either way the SMTP sender does the delivery.
func (a *app) openNotifications() error {
	mailer, err := mail.NewEmailSender(
		a.cfg.MailHost, a.cfg.MailPort, a.cfg.MailUser, a.cfg.MailPassword, a.cfg.MailFrom, a.log,
	)
	if err != nil {
		return err
	}
	mailer.Team = a.cfg.CompanyName + " Team"
	a.mailer = mailer

	if a.cfg.RabbitMQURL == "" {
		a.dispatcher = queue.NewDispatcher(mailer, a.cfg.DispatchWorkers, a.cfg.DispatchBuffer, a.cfg.DeliveryTimeout, a.log)
		a.notifier = a.dispatcher
		return nil
	}

	rmq, err := queue.NewRabbitMQ(a.cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	a.rabbit = rmq
	a.notifier = queue.NewProducer(rmq.Ch)
	a.log.Info("rabbitmq connected", zap.String("queue", queue.QueueName))
	return nil
}

func (a *app) openLocker(ctx context.Context) error {
	if a.cfg.RedisURL == "" {
		a.locker = cache.NewLocalLocker()
		return nil
	}
	client, err := cache.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		return err
	}
	a.redis = client
	a.locker = cache.NewRedisLocker(client)
	return nil
}

func (a *app) reminders() *usecase.SendRemindersUseCase {
	uc := usecase.NewSendRemindersUseCase(a.leads, a.notifier, a.cfg.BookingBaseURL, a.log)
	uc.MinAge = a.cfg.ReminderAge
	return uc
}

// close drains queued notifications before dropping connections.
func (a *app) close(ctx context.Context) {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close(ctx))
	}
	if a.rabbit != nil {
		errs = append(errs, a.rabbit.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("shutdown", zap.Error(err))
	}
	_ = a.log.Sync()
}
