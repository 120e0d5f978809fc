package repository

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusWithdrawn Status = "withdrawn"
)

type ReasonType string

const (
	ReasonInitial    ReasonType = "initial"
	ReasonEscalation ReasonType = "escalation"
)

// Reason records why the row exists and, once expired, when the deadline was
// observed. It is persisted as jsonb.
type Reason struct {
	Type      ReasonType `json:"type"`
	From      *uuid.UUID `json:"from,omitempty"`
	ExpiredAt *time.Time `json:"expiredAt,omitempty"`
}

// Assignment is one routing offer of a prospect to a broker. Deadline is set
// while the row is assigned and cleared on every terminal transition.
type Assignment struct {
	ID         uuid.UUID  `json:"id"`
	ProspectID uuid.UUID  `json:"prospectId"`
	BrokerID   uuid.UUID  `json:"brokerId"`
	Status     Status     `json:"status"`
	Reason     Reason     `json:"reason"`
	CreatedAt  time.Time  `json:"createdAt"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// TimeToAccept returns the accept latency in whole seconds, or 0 when the row
// was never accepted.
func (a *Assignment) TimeToAccept() int64 {
	if a.AcceptedAt == nil {
		return 0
	}
	return int64(a.AcceptedAt.Sub(a.CreatedAt).Seconds())
}
