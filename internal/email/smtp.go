package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadOfferedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, deadline, claimURL string) error {
	content, err := renderEmailTemplate("lead_offered.html", leadOfferedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Novo lead para você",
			Heading:  "Novo lead para você",
			CTALabel: "Atender lead",
			CTAURL:   claimURL,
		},
		BrokerName:    brokerName,
		PropertyTitle: propertyTitle,
		ClientName:    clientName,
		Deadline:      deadline,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadOffered, content)
}

func (s *SMTPSender) SendLeadClaimedEmail(ctx context.Context, toEmail, brokerName, propertyTitle, clientName, clientPhone string) error {
	content, err := renderEmailTemplate("lead_claimed.html", leadClaimedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead atribuído a você",
			Heading: "Lead atribuído a você",
		},
		BrokerName:    brokerName,
		PropertyTitle: propertyTitle,
		ClientName:    clientName,
		ClientPhone:   clientPhone,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadClaimed, content)
}

func (s *SMTPSender) SendRoutingExhaustedEmail(ctx context.Context, toEmail, propertyTitle, clientName string) error {
	content, err := renderEmailTemplate("routing_exhausted.html", routingExhaustedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead sem corretor disponível",
			Heading: "Lead sem corretor disponível",
		},
		PropertyTitle: propertyTitle,
		ClientName:    clientName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectRoutingExhausted, content)
}

var _ Sender = (*SMTPSender)(nil)
