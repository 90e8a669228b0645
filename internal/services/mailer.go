package services

import (
	"context"
	"log"

	"github.com/caldana20/referral-sys/internal/models"
)

// Mailer delivers a single email. Transport lives outside this system; the
// implementation gets a recipient list, subject, HTML body and sender identity
// and reports success or failure without panicking.
type Mailer interface {
	Send(ctx context.Context, msg *models.EmailMessage) error
}

type logMailer struct{}

// NewLogMailer returns a Mailer that only logs. Used in development and as the
// default when no delivery provider is configured.
func NewLogMailer() Mailer {
	return &logMailer{}
}

func (m *logMailer) Send(_ context.Context, msg *models.EmailMessage) error {
	log.Printf("[EMAIL] Tenant=%s Event=%s To=%v From=%s Subject=%q", msg.TenantID, msg.EventType, msg.To, msg.From, msg.Subject)
	return nil
}
