package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/internal/assignments"
	assignmentsvc "leaddesk_backend/internal/assignments/service"
	"leaddesk_backend/internal/auth"
	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/config"
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/http/router"
	"leaddesk_backend/internal/notification"
	"leaddesk_backend/internal/params"
	"leaddesk_backend/internal/prospects"
	"leaddesk_backend/internal/scheduler"
	"leaddesk_backend/internal/scoring"
	"leaddesk_backend/platform/db"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	deadlineScheduler, closeScheduler := initDeadlineScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	publisher := initPublisher(cfg, log)
	if publisher != nil {
		defer func() { _ = publisher.Close() }()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, log)
	paramsModule := params.NewModule(pool)
	selector := brokers.New(pool)

	assignmentsModule := assignments.NewModule(pool, selector, paramsModule.Source(), eventBus, deadlineScheduler, log)
	scoringModule := scoring.NewModule(pool, eventBus, log)

	engine := assignmentsModule.Engine()
	prospectsModule := prospects.NewModule(pool, func(ctx context.Context, prospectID uuid.UUID) error {
		_, err := engine.CreateInitialAssignments(ctx, prospectID)
		return err
	}, eventBus, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.NewModule(pool, eventBus, cfg, publisher, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			prospectsModule,
			assignmentsModule,
			scoringModule,
			paramsModule,
		},
	}

	ginEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- ginEngine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDeadlineScheduler(cfg *config.Config, log *logger.Logger) (assignmentsvc.DeadlineScheduler, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; at-deadline expiration tasks disabled, sweeper covers SLA enforcement")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize deadline scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initPublisher(cfg *config.Config, log *logger.Logger) pubsub.Publisher {
	if cfg.AMQPURL == "" {
		log.Warn("AMQP_URL not configured; integration events disabled")
		return nil
	}

	publisher, err := pubsub.New(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Error("failed to initialize integration event publisher", "error", err)
		return nil
	}
	return publisher
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
