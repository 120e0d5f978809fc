// Package service implements the assignment engine: fan-out of new prospects
// to brokers, accept with sibling withdrawal, and expiration with escalation
// to the next eligible brokers.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/metrics"
	"leaddesk_backend/internal/params"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
)

// DeadlineScheduler enqueues a deferred expiration check for an assignment at
// its deadline. The sweeper remains the safety net when scheduling is
// unavailable, so a nil scheduler is valid.
type DeadlineScheduler interface {
	ScheduleExpireCheck(ctx context.Context, assignmentID uuid.UUID, runAt time.Time) error
}

// DetailStore exposes the read-side queries of the Postgres repository.
// It is separate from Store so the engine's fakes stay small.
type DetailStore interface {
	ListByBroker(ctx context.Context, brokerID uuid.UUID, status *repository.Status) ([]repository.AssignmentDetail, error)
	History(ctx context.Context, brokerID uuid.UUID, filter repository.HistoryFilter) ([]repository.AssignmentDetail, int, error)
	AdminHistory(ctx context.Context, filter repository.HistoryFilter) ([]repository.AdminAssignmentDetail, int, error)
}

type Service struct {
	store     repository.Store
	details   DetailStore
	selector  brokers.Selector
	params    params.Source
	bus       events.Bus
	scheduler DeadlineScheduler
	log       *logger.Logger
	now       func() time.Time
}

func New(store repository.Store, details DetailStore, selector brokers.Selector, paramSource params.Source, bus events.Bus, scheduler DeadlineScheduler, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		details:   details,
		selector:  selector,
		params:    paramSource,
		bus:       bus,
		scheduler: scheduler,
		log:       log,
		now:       time.Now,
	}
}

// CreateInitialAssignments fans a fresh prospect out to the top-ranked
// eligible brokers, one assignment row each, sharing a single deadline window.
func (s *Service) CreateInitialAssignments(ctx context.Context, prospectID uuid.UUID) ([]repository.Assignment, error) {
	p, err := s.params.Current(ctx)
	if err != nil {
		return nil, err
	}
	if p.FanoutCount < 1 {
		return nil, apperr.Unprocessable("lead routing is disabled (fanout is zero)")
	}
	return s.fanOut(ctx, prospectID, repository.Reason{Type: repository.ReasonInitial}, p, p.FanoutCount)
}

// Escalate re-offers the prospect of an expired assignment to the next
// eligible brokers. Surviving siblings keep their offers, so only the slots
// below fanout_count are refilled; the live count never exceeds it. An empty
// candidate pool is not an error here: when the prospect has no live offer
// left either, the engine publishes EscalationExhausted and leaves it
// unrouted.
func (s *Service) Escalate(ctx context.Context, expired *repository.Assignment) ([]repository.Assignment, error) {
	p, err := s.params.Current(ctx)
	if err != nil {
		return nil, err
	}
	live, err := s.store.CountAssigned(ctx, expired.ProspectID)
	if err != nil {
		return nil, err
	}

	slots := p.FanoutCount - live
	if slots < 1 {
		if live == 0 {
			// Routing is paused and nobody holds the lead.
			s.markExhausted(ctx, expired)
		}
		return nil, nil
	}

	from := expired.ID
	created, err := s.fanOut(ctx, expired.ProspectID, repository.Reason{Type: repository.ReasonEscalation, From: &from}, p, slots)
	if err != nil {
		if apperr.Is(err, apperr.KindUnprocessable) {
			if live == 0 {
				s.markExhausted(ctx, expired)
			}
			return nil, nil
		}
		return nil, err
	}

	newBrokers := make([]uuid.UUID, len(created))
	for i, a := range created {
		newBrokers[i] = a.BrokerID
	}
	s.bus.Publish(ctx, events.LeadEscalated{
		BaseEvent:        events.NewBaseEvent(),
		ProspectID:       expired.ProspectID,
		FromAssignmentID: expired.ID,
		NewBrokerIDs:     newBrokers,
	})
	return created, nil
}

func (s *Service) markExhausted(ctx context.Context, expired *repository.Assignment) {
	metrics.EscalationsExhausted.Inc()
	s.bus.Publish(ctx, events.EscalationExhausted{
		BaseEvent:        events.NewBaseEvent(),
		ProspectID:       expired.ProspectID,
		FromAssignmentID: expired.ID,
	})
}

func (s *Service) fanOut(ctx context.Context, prospectID uuid.UUID, reason repository.Reason, p params.SLAParameters, limit int) ([]repository.Assignment, error) {
	candidates, err := s.selector.NextEligible(ctx, prospectID, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.Unprocessable("no eligible brokers for prospect")
	}

	now := s.now().UTC()
	deadline := now.Add(p.SLA())
	rows := make([]*repository.Assignment, len(candidates))
	for i, b := range candidates {
		d := deadline
		rows[i] = &repository.Assignment{
			ID:         uuid.New(),
			ProspectID: prospectID,
			BrokerID:   b.ID,
			Status:     repository.StatusAssigned,
			Reason:     reason,
			CreatedAt:  now,
			Deadline:   &d,
		}
	}
	if err := s.store.CreateBatch(ctx, rows); err != nil {
		return nil, err
	}

	created := make([]repository.Assignment, len(rows))
	for i, a := range rows {
		created[i] = *a
		metrics.AssignmentsCreated.WithLabelValues(string(reason.Type)).Inc()
		s.log.AssignmentTransition("assigned", a.ID.String(), a.BrokerID.String())
		s.bus.Publish(ctx, events.LeadReceived{
			BaseEvent:    events.NewBaseEvent(),
			AssignmentID: a.ID,
			ProspectID:   a.ProspectID,
			BrokerID:     a.BrokerID,
			Escalation:   reason.Type == repository.ReasonEscalation,
			Deadline:     deadline,
		})
		if s.scheduler != nil {
			if err := s.scheduler.ScheduleExpireCheck(ctx, a.ID, deadline); err != nil {
				// The periodic sweep still catches this row.
				s.log.WithContext(ctx).Warn("schedule deadline check failed",
					"assignment_id", a.ID.String(), "error", err.Error())
			}
		}
	}
	return created, nil
}

// Accept claims an assignment for a broker. The conditional update, sibling
// withdrawal and timestamps are one atomic store operation; losing the race
// against the sweeper or a sibling accept surfaces as KindConflict.
func (s *Service) Accept(ctx context.Context, assignmentID, brokerID uuid.UUID) (*repository.Assignment, error) {
	accepted, withdrawn, err := s.store.Accept(ctx, assignmentID, brokerID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.AssignmentsResolved.WithLabelValues(string(repository.StatusAccepted)).Inc()
	metrics.TimeToAccept.Observe(float64(accepted.TimeToAccept()))
	s.log.AssignmentTransition("accepted", accepted.ID.String(), accepted.BrokerID.String())
	for _, w := range withdrawn {
		metrics.AssignmentsResolved.WithLabelValues(string(repository.StatusWithdrawn)).Inc()
		s.log.AssignmentTransition("withdrawn", w.ID.String(), w.BrokerID.String())
	}

	s.bus.Publish(ctx, events.LeadAccepted{
		BaseEvent:           events.NewBaseEvent(),
		AssignmentID:        accepted.ID,
		ProspectID:          accepted.ProspectID,
		BrokerID:            accepted.BrokerID,
		TimeToAcceptSeconds: accepted.TimeToAccept(),
	})
	return accepted, nil
}

// ExpireAndEscalate is invoked per overdue row, by the sweeper and by the
// deadline worker. It is idempotent: a row that already left the assigned
// state is a silent no-op, so the two paths can overlap safely.
func (s *Service) ExpireAndEscalate(ctx context.Context, assignmentID uuid.UUID) error {
	expired, err := s.store.Expire(ctx, assignmentID, s.now().UTC())
	if err != nil {
		return err
	}
	if expired == nil {
		return nil
	}

	metrics.AssignmentsResolved.WithLabelValues(string(repository.StatusExpired)).Inc()
	s.log.AssignmentTransition("expired", expired.ID.String(), expired.BrokerID.String())
	s.bus.Publish(ctx, events.LeadExpired{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: expired.ID,
		ProspectID:   expired.ProspectID,
		BrokerID:     expired.BrokerID,
	})

	_, err = s.Escalate(ctx, expired)
	return err
}

// ListMine returns the broker's live queue, optionally narrowed to one status.
func (s *Service) ListMine(ctx context.Context, brokerID uuid.UUID, status *repository.Status) ([]repository.AssignmentDetail, error) {
	return s.details.ListByBroker(ctx, brokerID, status)
}

// History returns the broker's paginated assignment history, newest first.
func (s *Service) History(ctx context.Context, brokerID uuid.UUID, filter repository.HistoryFilter) ([]repository.AssignmentDetail, int, error) {
	return s.details.History(ctx, brokerID, filter)
}

// AdminHistory returns the cross-broker assignment audit, newest first.
func (s *Service) AdminHistory(ctx context.Context, filter repository.HistoryFilter) ([]repository.AdminAssignmentDetail, int, error) {
	return s.details.AdminHistory(ctx, filter)
}
