package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"leaddesk_backend/internal/config"
	"leaddesk_backend/platform/logger"
)

// Engine is the expiration entry point of the assignment engine.
type Engine interface {
	ExpireAndEscalate(ctx context.Context, assignmentID uuid.UUID) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine Engine
	log    *logger.Logger
}

func NewWorker(cfg *config.Config, engine Engine, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.AsynqConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskAssignmentDeadline, w.handleAssignmentDeadline)

	return w, nil
}

// handleAssignmentDeadline expires the assignment if it is still assigned.
// A row that was accepted or already swept is a no-op, so redelivery and
// sweeper overlap are both safe.
func (w *Worker) handleAssignmentDeadline(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAssignmentDeadlinePayload(task)
	if err != nil {
		return err
	}

	assignmentID, err := uuid.Parse(payload.AssignmentID)
	if err != nil {
		return err
	}

	return w.engine.ExpireAndEscalate(ctx, assignmentID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("deadline worker stopped", "error", err)
	}
}
