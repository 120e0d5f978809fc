// Package service handles prospect intake: a client registers interest in a
// property and the prospect is routed to brokers immediately.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/prospects/repository"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/phone"
)

type CreateInput struct {
	PropertyID        uuid.UUID
	ClientName        string
	ClientEmail       string
	ClientPhone       string
	ContactPreference string
	Message           string
}

type Service struct {
	repo   *repository.Repository
	router RouterFunc
	bus    events.Bus
	log    *logger.Logger
}

// RouterFunc adapts the assignment engine's fan-out without importing its
// package, keeping the dependency one-directional.
type RouterFunc func(ctx context.Context, prospectID uuid.UUID) error

func New(repo *repository.Repository, router RouterFunc, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, router: router, bus: bus, log: log}
}

// Create registers the prospect and routes it. An empty broker pool does not
// fail the intake: the prospect is stored unrouted and flagged for manual
// follow-up.
func (s *Service) Create(ctx context.Context, in CreateInput) (*repository.Prospect, error) {
	exists, err := s.repo.PropertyExists(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("property not found")
	}

	clientID, err := s.repo.UpsertClient(ctx, in.ClientName, in.ClientEmail, phone.NormalizeE164(in.ClientPhone))
	if err != nil {
		return nil, err
	}

	prospect := &repository.Prospect{
		ID:                uuid.New(),
		PropertyID:        in.PropertyID,
		ClientID:          clientID,
		ContactPreference: in.ContactPreference,
		Message:           in.Message,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, prospect); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ProspectCreated{
		BaseEvent:  events.NewBaseEvent(),
		ProspectID: prospect.ID,
		PropertyID: prospect.PropertyID,
		ClientID:   prospect.ClientID,
	})

	if err := s.router(ctx, prospect.ID); err != nil {
		if apperr.Is(err, apperr.KindUnprocessable) {
			s.log.Warn("prospect stored without routing", "prospect_id", prospect.ID.String(), "reason", err.Error())
			return prospect, nil
		}
		return nil, err
	}
	return prospect, nil
}

// Get returns a single prospect.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Prospect, error) {
	return s.repo.GetByID(ctx, id)
}
