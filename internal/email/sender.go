// Package email delivers broker and admin notifications over SMTP.
package email

import "context"

type Sender interface {
	// SendLeadOfferedEmail notifies a broker of a fresh assignment and the
	// window they have to claim it.
	SendLeadOfferedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, deadline, claimURL string) error
	// SendLeadClaimedEmail confirms a successful claim to the broker.
	SendLeadClaimedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, clientPhone string) error
	// SendRoutingExhaustedEmail alerts an admin that a prospect ran out of
	// eligible brokers and needs manual routing.
	SendRoutingExhaustedEmail(ctx context.Context, toEmail, propertyTitle, clientName string) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadOfferedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, deadline, claimURL string) error {
	return nil
}

func (NoopSender) SendLeadClaimedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, clientPhone string) error {
	return nil
}

func (NoopSender) SendRoutingExhaustedEmail(ctx context.Context, toEmail, propertyTitle, clientName string) error {
	return nil
}
