package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/platform/logger"
)

type fakeLister struct {
	rows []repository.Assignment
}

func (f *fakeLister) ListOverdue(_ context.Context, _ time.Time, limit int) ([]repository.Assignment, error) {
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

type fakeEngine struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	failIDs map[uuid.UUID]bool
}

func (f *fakeEngine) ExpireAndEscalate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.failIDs[id] {
		return errors.New("storage unavailable")
	}
	return nil
}

func overdueRow() repository.Assignment {
	deadline := time.Now().Add(-time.Minute)
	return repository.Assignment{
		ID:         uuid.New(),
		ProspectID: uuid.New(),
		BrokerID:   uuid.New(),
		Status:     repository.StatusAssigned,
		Deadline:   &deadline,
	}
}

func TestSweepOnceProcessesBatch(t *testing.T) {
	rows := []repository.Assignment{overdueRow(), overdueRow(), overdueRow()}
	engine := &fakeEngine{}
	s := New(&fakeLister{rows: rows}, engine, 50, logger.New("test"))

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 3 {
		t.Fatalf("processed = %d, want 3", n)
	}
	if len(engine.calls) != 3 {
		t.Fatalf("engine calls = %d, want 3", len(engine.calls))
	}
}

func TestSweepOnceIsolatesRowFailures(t *testing.T) {
	rows := []repository.Assignment{overdueRow(), overdueRow(), overdueRow()}
	engine := &fakeEngine{failIDs: map[uuid.UUID]bool{rows[1].ID: true}}
	s := New(&fakeLister{rows: rows}, engine, 50, logger.New("test"))

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce must not fail on a single bad row: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed = %d, want 2", n)
	}
	// The failing row was attempted, and the rows after it still ran.
	if len(engine.calls) != 3 {
		t.Fatalf("engine calls = %d, want 3", len(engine.calls))
	}
}

func TestSweepOnceHonorsBatchSize(t *testing.T) {
	rows := make([]repository.Assignment, 5)
	for i := range rows {
		rows[i] = overdueRow()
	}
	engine := &fakeEngine{}
	s := New(&fakeLister{rows: rows}, engine, 2, logger.New("test"))

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed = %d, want 2", n)
	}
}

func TestSweepOnceStopsOnCancelledContext(t *testing.T) {
	rows := []repository.Assignment{overdueRow(), overdueRow()}
	engine := &fakeEngine{}
	s := New(&fakeLister{rows: rows}, engine, 50, logger.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SweepOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine calls = %d, want 0 after cancel", len(engine.calls))
	}
}
