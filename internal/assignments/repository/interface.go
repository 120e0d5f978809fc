package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the assignment ledger as seen by the engine and the sweeper.
// Implementations must make Accept and Expire atomic conditional transitions:
// the status check and the write happen in the same statement, so that a
// broker accepting a row and a sweeper expiring it can never both succeed.
// The service layer depends on this interface so tests can substitute an
// in-memory ledger.
type Store interface {
	// CreateBatch inserts all rows in a single transaction.
	CreateBatch(ctx context.Context, assignments []*Assignment) error

	// Accept transitions the row to accepted iff it is still assigned, owned
	// by brokerID, and its deadline has not passed. All sibling rows for the
	// same prospect that are still assigned are withdrawn in the same
	// transaction. Returns apperr KindConflict when the row is not claimable.
	Accept(ctx context.Context, id, brokerID uuid.UUID, now time.Time) (*Assignment, []Assignment, error)

	// Expire transitions the row to expired iff it is still assigned.
	// Returns (nil, nil) when another actor resolved the row first; that is
	// the expected no-op outcome, not an error.
	Expire(ctx context.Context, id uuid.UUID, now time.Time) (*Assignment, error)

	// ListOverdue returns assigned rows whose deadline has passed, oldest
	// deadline first, skipping rows locked by a concurrent sweep.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]Assignment, error)

	// CountAssigned returns how many of the prospect's rows are still
	// assigned. Escalation refills only the slots below fanout_count.
	CountAssigned(ctx context.Context, prospectID uuid.UUID) (int, error)

	// GetByID returns a single row.
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
}
