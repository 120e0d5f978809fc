package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/config"
	"leaddesk_backend/internal/email"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/pubsub"
)

// Module wires the notification service to the event bus. It has no HTTP
// surface; everything is event driven.
type Module struct {
	svc *Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg *config.Config, publisher pubsub.Publisher, log *logger.Logger) *Module {
	var sender email.Sender = email.NoopSender{}
	if cfg.EmailEnabled() {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername,
			cfg.SMTPPassword, cfg.EmailFromAddress, cfg.EmailFromName)
	}

	svc := NewService(NewRepository(pool), brokers.New(pool), sender,
		publisher, cfg.AppBaseURL, cfg.AdminEmail, log)
	m := &Module{svc: svc}
	m.subscribe(eventBus)
	return m
}

func (m *Module) subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadReceived)
		if !ok {
			return nil
		}
		return m.svc.handleLeadReceived(ctx, e)
	}))

	bus.Subscribe(events.LeadAccepted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadAccepted)
		if !ok {
			return nil
		}
		return m.svc.handleLeadAccepted(ctx, e)
	}))

	bus.Subscribe(events.LeadExpired{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadExpired)
		if !ok {
			return nil
		}
		return m.svc.handleLeadExpired(ctx, e)
	}))

	bus.Subscribe(events.EscalationExhausted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.EscalationExhausted)
		if !ok {
			return nil
		}
		return m.svc.handleEscalationExhausted(ctx, e)
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}
