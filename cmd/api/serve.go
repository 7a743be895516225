package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/salespilot/internal/infra/database"
	"github.com/xavierca1/salespilot/internal/infra/http/handlers"
	"github.com/xavierca1/salespilot/internal/infra/http/middleware"
	"github.com/xavierca1/salespilot/internal/infra/pdf"
	"github.com/xavierca1/salespilot/internal/infra/queue"
	"github.com/xavierca1/salespilot/internal/infra/security"
	"github.com/xavierca1/salespilot/internal/infra/worker"
	"github.com/xavierca1/salespilot/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func runServe(ctx context.Context, configPath string) error {
	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(closeCtx)
	}()

	if a.db != nil {
		if err := database.RunMigrations(ctx, a.db, a.log); err != nil {
			return err
		}
	}

	router, limiter, err := a.router()
	if err != nil {
		return err
	}
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		worker.NewReminderWorker(a.reminders(), a.locker, a.cfg.ReminderInterval, a.log).Start(gctx)
		return nil
	})

	if a.rabbit != nil {
		ch, err := a.rabbit.Conn.Channel()
		if err != nil {
			return fmt.Errorf("open consumer channel: %w", err)
		}
		g.Go(func() error {
			defer ch.Close()
			return queue.NewWorker(ch, a.mailer, a.log).Start(gctx, queue.QueueName)
		})
	}

	err = g.Wait()
	a.log.Info("server stopped")
	return err
}

func (a *app) router() (http.Handler, *middleware.RateLimiter, error) {
	hasher := security.NewBcryptHasher(a.cfg.BcryptCost)
	tokens, err := security.NewJWTIssuer(a.cfg.JWTSecret, a.cfg.TokenTTL)
	if err != nil {
		return nil, nil, err
	}

	rules := usecase.TriageRules{RejectBelow: a.cfg.RejectBelow, QualifyAbove: a.cfg.QualifyAbove}
	proposals := usecase.NewGenerateProposalUseCase(a.leads, pdf.NewProposalRenderer(a.cfg.CompanyName))

	gql, err := handlers.NewGraphQLHandler(&handlers.Resolver{
		SubmitLeadUC:     usecase.NewSubmitLeadUseCase(a.leads, a.notifier, rules, a.cfg.BookingBaseURL, a.log),
		UpdateStatusUC:   usecase.NewUpdateLeadStatusUseCase(a.leads, a.log),
		ListLeadsUC:      usecase.NewListLeadsUseCase(a.leads),
		CreateBookingUC:  usecase.NewCreateBookingUseCase(a.bookings, a.leads, a.notifier, a.cfg.MeetingBaseURL, a.log),
		AvailableSlotsUC: usecase.NewAvailableSlotsUseCase(a.bookings),
		SendProposalUC:   usecase.NewSendProposalUseCase(proposals, a.notifier, a.log),
		SignupUC:         usecase.NewSignupUseCase(a.users, hasher, a.cfg.AllowSignup, a.log),
		LoginUC:          usecase.NewLoginUseCase(a.users, hasher, tokens, a.log),
		Logger:           a.log,
	})
	if err != nil {
		return nil, nil, err
	}

	checks := map[string]handlers.HealthCheck{"database": nil, "rabbitmq": nil, "redis": nil}
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	if a.rabbit != nil {
		checks["rabbitmq"] = func(context.Context) error { return a.rabbit.Ping() }
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	health := handlers.NewHealthHandler(version, checks)
	proposalHandler := handlers.NewProposalHandler(proposals, a.log)

	limiter := middleware.NewRateLimiter(a.cfg.RateLimitPerMinute, time.Minute)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.Authenticate(tokens, a.log))

	r.With(limiter.Middleware).Post("/graphql", gql.ServeHTTP)
	r.Get("/health", health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.With(middleware.RequireAuth).Get("/leads/{id}/proposal.pdf", proposalHandler.Download)

	return r, limiter, nil
}
