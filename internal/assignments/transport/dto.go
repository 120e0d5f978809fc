// Package transport defines the HTTP request and response types for the
// assignments module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
)

// AcceptResponse is returned on a successful claim.
type AcceptResponse struct {
	Assignment repository.Assignment `json:"assignment"`
}

// ListQuery narrows the broker's assignment views.
type ListQuery struct {
	Status  string `form:"status" validate:"omitempty,oneof=assigned accepted expired withdrawn"`
	Search  string `form:"search" validate:"omitempty,max=120"`
	Page    int    `form:"page" validate:"omitempty,min=1"`
	PerPage int    `form:"perPage" validate:"omitempty,min=1,max=100"`
}

// AssignmentView is the broker-facing projection of an assignment with its
// prospect context and the remaining claim window.
type AssignmentView struct {
	ID               uuid.UUID                  `json:"id"`
	Status           repository.Status          `json:"status"`
	Reason           repository.ReasonType      `json:"reason"`
	CreatedAt        time.Time                  `json:"createdAt"`
	Deadline         *time.Time                 `json:"deadline,omitempty"`
	AcceptedAt       *time.Time                 `json:"acceptedAt,omitempty"`
	SecondsRemaining *int64                     `json:"secondsRemaining,omitempty"`
	Prospect         repository.ProspectSummary `json:"prospect"`
}

// HistoryResponse is a paginated assignment history page.
type HistoryResponse struct {
	Items   []AssignmentView `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"perPage"`
}

// AdminAssignmentView is the audit projection: an assignment with both its
// prospect context and the broker it was offered to.
type AdminAssignmentView struct {
	AssignmentView
	Broker repository.BrokerSummary `json:"broker"`
}

// AdminHistoryResponse is a paginated page of the cross-broker audit.
type AdminHistoryResponse struct {
	Items   []AdminAssignmentView `json:"items"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"perPage"`
}

// NewAssignmentView projects a repository detail row, computing the remaining
// claim window against now for live rows.
func NewAssignmentView(d repository.AssignmentDetail, now time.Time) AssignmentView {
	v := AssignmentView{
		ID:         d.ID,
		Status:     d.Status,
		Reason:     d.Reason.Type,
		CreatedAt:  d.CreatedAt,
		Deadline:   d.Deadline,
		AcceptedAt: d.AcceptedAt,
		Prospect:   d.Prospect,
	}
	if d.Status == repository.StatusAssigned && d.Deadline != nil {
		remaining := int64(d.Deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		v.SecondsRemaining = &remaining
	}
	return v
}

// NewAssignmentViews projects a slice of detail rows.
func NewAssignmentViews(details []repository.AssignmentDetail, now time.Time) []AssignmentView {
	views := make([]AssignmentView, len(details))
	for i, d := range details {
		views[i] = NewAssignmentView(d, now)
	}
	return views
}

// NewAdminAssignmentViews projects audit rows, attaching the assignee to the
// regular assignment view.
func NewAdminAssignmentViews(details []repository.AdminAssignmentDetail, now time.Time) []AdminAssignmentView {
	views := make([]AdminAssignmentView, len(details))
	for i, d := range details {
		views[i] = AdminAssignmentView{
			AssignmentView: NewAssignmentView(d.AssignmentDetail, now),
			Broker:         d.Broker,
		}
	}
	return views
}
