// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leaddesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Prospect Domain Events
// =============================================================================

// ProspectCreated is published when a client registers interest in a property.
type ProspectCreated struct {
	BaseEvent
	ProspectID uuid.UUID `json:"prospectId"`
	PropertyID uuid.UUID `json:"propertyId"`
	ClientID   uuid.UUID `json:"clientId"`
}

func (e ProspectCreated) EventName() string { return "prospects.created" }

// =============================================================================
// Assignment Domain Events
// =============================================================================

// LeadReceived is published once per assignment row created, whether on
// initial fan-out or on escalation.
type LeadReceived struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	ProspectID   uuid.UUID `json:"prospectId"`
	BrokerID     uuid.UUID `json:"brokerId"`
	Escalation   bool      `json:"escalation"`
	Deadline     time.Time `json:"deadline"`
}

func (e LeadReceived) EventName() string { return "assignments.lead.received" }

// LeadAccepted is published when a broker claims an assignment before its
// deadline. TimeToAcceptSeconds is accepted_at minus created_at.
type LeadAccepted struct {
	BaseEvent
	AssignmentID        uuid.UUID `json:"assignmentId"`
	ProspectID          uuid.UUID `json:"prospectId"`
	BrokerID            uuid.UUID `json:"brokerId"`
	TimeToAcceptSeconds int64     `json:"timeToAcceptSeconds"`
}

func (e LeadAccepted) EventName() string { return "assignments.lead.accepted" }

// LeadExpired is published when the sweeper transitions an overdue row to
// expired.
type LeadExpired struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	ProspectID   uuid.UUID `json:"prospectId"`
	BrokerID     uuid.UUID `json:"brokerId"`
}

func (e LeadExpired) EventName() string { return "assignments.lead.expired" }

// LeadEscalated is published after an expired assignment's prospect has been
// re-offered to the next eligible brokers.
type LeadEscalated struct {
	BaseEvent
	ProspectID       uuid.UUID   `json:"prospectId"`
	FromAssignmentID uuid.UUID   `json:"fromAssignmentId"`
	NewBrokerIDs     []uuid.UUID `json:"newBrokerIds"`
}

func (e LeadEscalated) EventName() string { return "assignments.lead.escalated" }

// EscalationExhausted is published when an assignment expires and no eligible
// broker remains for the prospect. The prospect has zero live assignments and
// needs human routing.
type EscalationExhausted struct {
	BaseEvent
	ProspectID       uuid.UUID `json:"prospectId"`
	FromAssignmentID uuid.UUID `json:"fromAssignmentId"`
}

func (e EscalationExhausted) EventName() string { return "assignments.escalation.exhausted" }

// =============================================================================
// Scoring Domain Events
// =============================================================================

// VisitScheduled is published when a broker records a property visit for a
// claimed prospect.
type VisitScheduled struct {
	BaseEvent
	BrokerID   uuid.UUID `json:"brokerId"`
	ProspectID uuid.UUID `json:"prospectId"`
}

func (e VisitScheduled) EventName() string { return "scoring.visit.scheduled" }

// SaleCompleted is published when a broker closes a deal for a claimed
// prospect.
type SaleCompleted struct {
	BaseEvent
	BrokerID   uuid.UUID `json:"brokerId"`
	ProspectID uuid.UUID `json:"prospectId"`
}

func (e SaleCompleted) EventName() string { return "scoring.sale.completed" }
