package transport

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
)

func TestNewAssignmentView_RemainingWindowOnLiveRow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(3 * time.Minute)

	view := NewAssignmentView(repository.AssignmentDetail{
		Assignment: repository.Assignment{
			ID:        uuid.New(),
			Status:    repository.StatusAssigned,
			Reason:    repository.Reason{Type: repository.ReasonInitial},
			CreatedAt: now.Add(-2 * time.Minute),
			Deadline:  &deadline,
		},
	}, now)

	if view.SecondsRemaining == nil {
		t.Fatal("expected remaining window on assigned row")
	}
	if *view.SecondsRemaining != 180 {
		t.Fatalf("expected 180 seconds remaining, got %d", *view.SecondsRemaining)
	}
}

func TestNewAssignmentView_OverdueRowClampsToZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-30 * time.Second)

	view := NewAssignmentView(repository.AssignmentDetail{
		Assignment: repository.Assignment{
			ID:       uuid.New(),
			Status:   repository.StatusAssigned,
			Deadline: &deadline,
		},
	}, now)

	if view.SecondsRemaining == nil || *view.SecondsRemaining != 0 {
		t.Fatalf("expected zero remaining on overdue row, got %v", view.SecondsRemaining)
	}
}

func TestNewAdminAssignmentViews_CarriesBroker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	brokerID := uuid.New()

	views := NewAdminAssignmentViews([]repository.AdminAssignmentDetail{
		{
			AssignmentDetail: repository.AssignmentDetail{
				Assignment: repository.Assignment{
					ID:       uuid.New(),
					BrokerID: brokerID,
					Status:   repository.StatusExpired,
				},
			},
			Broker: repository.BrokerSummary{ID: brokerID, Name: "Ana Souza", Email: "ana@imobiliaria.com.br"},
		},
	}, now)

	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}
	v := views[0]
	if v.Broker.ID != brokerID || v.Broker.Name != "Ana Souza" || v.Broker.Email != "ana@imobiliaria.com.br" {
		t.Fatalf("audit view must carry the assignee, got %+v", v.Broker)
	}
	if v.Status != repository.StatusExpired {
		t.Fatalf("expected the underlying assignment status, got %s", v.Status)
	}
}

func TestNewAssignmentView_NoWindowOnResolvedRow(t *testing.T) {
	now := time.Now().UTC()
	acceptedAt := now.Add(-time.Minute)

	view := NewAssignmentView(repository.AssignmentDetail{
		Assignment: repository.Assignment{
			ID:         uuid.New(),
			Status:     repository.StatusAccepted,
			AcceptedAt: &acceptedAt,
		},
	}, now)

	if view.SecondsRemaining != nil {
		t.Fatalf("expected no remaining window on accepted row, got %d", *view.SecondsRemaining)
	}
}
