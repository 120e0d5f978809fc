// Package brokers provides the broker pool and the candidate selection
// strategy used when a prospect needs to be offered to someone. Ranking is
// deliberately kept behind an interface: the assignment engine only consumes
// an ordered list and never encodes proximity or workload policy itself.
package brokers

import (
	"context"

	"github.com/google/uuid"
)

// Broker is an active agent eligible to receive leads.
type Broker struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
	Phone string    `db:"phone"`
}

// Selector returns the next eligible brokers for a prospect, best candidate
// first, excluding brokers who already received an assignment for it.
// Implementations decide the ranking policy.
type Selector interface {
	NextEligible(ctx context.Context, prospectID uuid.UUID, limit int) ([]Broker, error)
}
