// Package sweeper periodically expires overdue assignments. It is the safety
// net behind the per-assignment deadline tasks: any row the task queue missed
// is picked up here, and both paths converge on the same idempotent
// transition.
package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/internal/metrics"
	"leaddesk_backend/platform/logger"
)

// Engine is the expiration entry point of the assignment engine.
type Engine interface {
	ExpireAndEscalate(ctx context.Context, assignmentID uuid.UUID) error
}

// OverdueLister returns assigned rows past their deadline.
type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]repository.Assignment, error)
}

type Sweeper struct {
	store     OverdueLister
	engine    Engine
	batchSize int
	log       *logger.Logger
	now       func() time.Time
}

func New(store OverdueLister, engine Engine, batchSize int, log *logger.Logger) *Sweeper {
	if batchSize < 1 {
		batchSize = 50
	}
	return &Sweeper{
		store:     store,
		engine:    engine,
		batchSize: batchSize,
		log:       log,
		now:       time.Now,
	}
}

// SweepOnce processes one batch of overdue rows, oldest deadline first.
// Failures are isolated per row: one bad row is logged and skipped, the rest
// of the batch still runs. Returns the number of rows handled successfully.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	start := s.now()
	overdue, err := s.store.ListOverdue(ctx, start.UTC(), s.batchSize)
	if err != nil {
		return 0, err
	}
	metrics.SweepBatchSize.Observe(float64(len(overdue)))

	processed := 0
	for _, a := range overdue {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := s.engine.ExpireAndEscalate(ctx, a.ID); err != nil {
			s.log.SweepError(a.ID.String(), err)
			continue
		}
		processed++
	}

	metrics.SweepDuration.Observe(s.now().Sub(start).Seconds())
	return processed, nil
}

// Run sweeps on the given cron spec (e.g. "@every 30s") until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.SweepOnce(ctx)
		if err != nil {
			s.log.Error("sweep pass failed", "error", err.Error())
			return
		}
		if n > 0 {
			s.log.Info("sweep pass complete", "expired", n)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
