package service

import (
	"context"

	"github.com/google/uuid"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/scoring/repository"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
)

// Store is the score persistence surface consumed by the service.
type Store interface {
	AddReceived(ctx context.Context, brokerID uuid.UUID) error
	AddAccepted(ctx context.Context, brokerID uuid.UUID, xpAward int, timeToAcceptSeconds int64) error
	AddExpired(ctx context.Context, brokerID uuid.UUID, penalty int) error
	AddVisit(ctx context.Context, brokerID uuid.UUID, xpAward int) error
	AddSale(ctx context.Context, brokerID uuid.UUID, xpAward int) error
	Get(ctx context.Context, brokerID uuid.UUID) (*repository.Score, error)
	Leaderboard(ctx context.Context, filter repository.LeaderboardFilter) ([]repository.LeaderboardEntry, int, error)
	HasAcceptedAssignment(ctx context.Context, brokerID, prospectID uuid.UUID) (bool, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Subscribe wires the service to the assignment lifecycle events that drive
// XP and counters.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadReceived)
		if !ok {
			return nil
		}
		return s.store.AddReceived(ctx, e.BrokerID)
	}))

	bus.Subscribe(events.LeadAccepted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadAccepted)
		if !ok {
			return nil
		}
		return s.store.AddAccepted(ctx, e.BrokerID, AcceptAward(e.TimeToAcceptSeconds), e.TimeToAcceptSeconds)
	}))

	bus.Subscribe(events.LeadExpired{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadExpired)
		if !ok {
			return nil
		}
		return s.store.AddExpired(ctx, e.BrokerID, XPExpirePenalty)
	}))
}

// RecordVisit awards visit XP. The broker must hold an accepted assignment
// for the prospect.
func (s *Service) RecordVisit(ctx context.Context, brokerID, prospectID uuid.UUID) error {
	if err := s.requireAccepted(ctx, brokerID, prospectID); err != nil {
		return err
	}
	if err := s.store.AddVisit(ctx, brokerID, XPVisit); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.VisitScheduled{
		BaseEvent:  events.NewBaseEvent(),
		BrokerID:   brokerID,
		ProspectID: prospectID,
	})
	return nil
}

// RecordSale awards sale XP. The broker must hold an accepted assignment for
// the prospect.
func (s *Service) RecordSale(ctx context.Context, brokerID, prospectID uuid.UUID) error {
	if err := s.requireAccepted(ctx, brokerID, prospectID); err != nil {
		return err
	}
	if err := s.store.AddSale(ctx, brokerID, XPSale); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.SaleCompleted{
		BaseEvent:  events.NewBaseEvent(),
		BrokerID:   brokerID,
		ProspectID: prospectID,
	})
	return nil
}

func (s *Service) requireAccepted(ctx context.Context, brokerID, prospectID uuid.UUID) error {
	ok, err := s.store.HasAcceptedAssignment(ctx, brokerID, prospectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("prospect is not claimed by this broker")
	}
	return nil
}

// MyScore returns the broker's own score row.
func (s *Service) MyScore(ctx context.Context, brokerID uuid.UUID) (*repository.Score, error) {
	return s.store.Get(ctx, brokerID)
}

// Leaderboard ranks active brokers by XP.
func (s *Service) Leaderboard(ctx context.Context, filter repository.LeaderboardFilter) ([]repository.LeaderboardEntry, int, error) {
	return s.store.Leaderboard(ctx, filter)
}
