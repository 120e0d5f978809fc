// Package notification fans assignment lifecycle events out to brokers and
// admins (email) and to external systems (AMQP integration events).
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/email"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/pubsub"
)

// Routing keys for integration events on the topic exchange.
const (
	KeyLeadAssigned = "lead.assigned"
	KeyLeadAccepted = "lead.accepted"
	KeyLeadExpired  = "lead.expired"
	KeyLeadUnrouted = "lead.unrouted"
)

// BrokerDirectory resolves broker contact details.
type BrokerDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*brokers.Broker, error)
}

// ContextSource resolves the prospect detail behind an assignment.
type ContextSource interface {
	ProspectContext(ctx context.Context, prospectID uuid.UUID) (*ProspectContext, error)
}

type Service struct {
	repo       ContextSource
	directory  BrokerDirectory
	sender     email.Sender
	publisher  pubsub.Publisher
	appBaseURL string
	adminEmail string
	log        *logger.Logger
}

func NewService(repo ContextSource, directory BrokerDirectory, sender email.Sender, publisher pubsub.Publisher, appBaseURL, adminEmail string, log *logger.Logger) *Service {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Service{
		repo:       repo,
		directory:  directory,
		sender:     sender,
		publisher:  publisher,
		appBaseURL: appBaseURL,
		adminEmail: adminEmail,
		log:        log,
	}
}

func (s *Service) handleLeadReceived(ctx context.Context, e events.LeadReceived) error {
	s.publish(ctx, KeyLeadAssigned, map[string]any{
		"assignmentId": e.AssignmentID,
		"prospectId":   e.ProspectID,
		"brokerId":     e.BrokerID,
		"escalation":   e.Escalation,
		"deadline":     e.Deadline,
	})

	broker, err := s.directory.GetByID(ctx, e.BrokerID)
	if err != nil {
		return err
	}
	pc, err := s.repo.ProspectContext(ctx, e.ProspectID)
	if err != nil {
		return err
	}

	claimURL := fmt.Sprintf("%s/leads/%s", s.appBaseURL, e.AssignmentID)
	return s.sender.SendLeadOfferedEmail(ctx, broker.Email, broker.Name,
		pc.PropertyTitle, pc.ClientName, e.Deadline.Format(time.RFC822), claimURL)
}

func (s *Service) handleLeadAccepted(ctx context.Context, e events.LeadAccepted) error {
	s.publish(ctx, KeyLeadAccepted, map[string]any{
		"assignmentId":        e.AssignmentID,
		"prospectId":          e.ProspectID,
		"brokerId":            e.BrokerID,
		"timeToAcceptSeconds": e.TimeToAcceptSeconds,
	})

	broker, err := s.directory.GetByID(ctx, e.BrokerID)
	if err != nil {
		return err
	}
	pc, err := s.repo.ProspectContext(ctx, e.ProspectID)
	if err != nil {
		return err
	}

	return s.sender.SendLeadClaimedEmail(ctx, broker.Email, broker.Name,
		pc.PropertyTitle, pc.ClientName, pc.ClientPhone)
}

func (s *Service) handleLeadExpired(ctx context.Context, e events.LeadExpired) error {
	s.publish(ctx, KeyLeadExpired, map[string]any{
		"assignmentId": e.AssignmentID,
		"prospectId":   e.ProspectID,
		"brokerId":     e.BrokerID,
	})
	return nil
}

func (s *Service) handleEscalationExhausted(ctx context.Context, e events.EscalationExhausted) error {
	s.publish(ctx, KeyLeadUnrouted, map[string]any{
		"prospectId":       e.ProspectID,
		"fromAssignmentId": e.FromAssignmentID,
	})

	if s.adminEmail == "" {
		return nil
	}
	pc, err := s.repo.ProspectContext(ctx, e.ProspectID)
	if err != nil {
		return err
	}
	return s.sender.SendRoutingExhaustedEmail(ctx, s.adminEmail, pc.PropertyTitle, pc.ClientName)
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.Warn("integration event publish failed", "key", key, "error", err.Error())
	}
}
