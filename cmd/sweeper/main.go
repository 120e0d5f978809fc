// The sweeper binary enforces SLA deadlines outside the API process. It runs
// the periodic expiration sweep and, when Redis is configured, the asynq
// worker that handles at-deadline expiration tasks. Both paths share one
// assignment engine, so escalations, scoring and notifications behave the
// same regardless of which one catches an overdue row.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	assignmentrepo "leaddesk_backend/internal/assignments/repository"
	assignmentsvc "leaddesk_backend/internal/assignments/service"
	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/config"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/notification"
	"leaddesk_backend/internal/params"
	"leaddesk_backend/internal/scheduler"
	"leaddesk_backend/internal/scoring"
	"leaddesk_backend/internal/sweeper"
	"leaddesk_backend/platform/db"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting sweeper", "env", cfg.Env, "spec", cfg.SweepSpec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var publisher pubsub.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = pubsub.New(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Error("failed to initialize integration event publisher", "error", err)
		} else {
			defer func() { _ = publisher.Close() }()
		}
	}

	// Expirations triggered here must drive scoring and notifications the
	// same way API-side accepts do, so both modules subscribe in this
	// process as well.
	scoring.NewModule(pool, eventBus, log)
	notification.NewModule(pool, eventBus, cfg, publisher, log)

	var deadlineScheduler assignmentsvc.DeadlineScheduler
	if cfg.RedisURL != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize deadline scheduler client", "error", err)
		} else {
			deadlineScheduler = client
			defer func() { _ = client.Close() }()
		}
	}

	repo := assignmentrepo.New(pool)
	paramsRepo := params.New(pool)
	engine := assignmentsvc.New(repo, repo, brokers.New(pool), paramsRepo, eventBus, deadlineScheduler, log)
	sw := sweeper.New(repo, engine, cfg.SweepBatchSize, log)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sw.Run(groupCtx, cfg.SweepSpec)
	})

	if cfg.RedisURL != "" {
		worker, err := scheduler.NewWorker(cfg, engine, log)
		if err != nil {
			log.Error("failed to initialize deadline worker", "error", err)
			panic("failed to initialize deadline worker: " + err.Error())
		}
		group.Go(func() error {
			worker.Run(groupCtx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; running periodic sweep only")
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweeper stopped", "error", err)
		panic("sweeper stopped: " + err.Error())
	}
	log.Info("sweeper shut down")
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
