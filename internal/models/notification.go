package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types raised by the referral lifecycle.
const (
	EventReferralCreated = "referral.created"
	EventReferralClosed  = "referral.closed"
	EventEstimateCreated = "estimate.created"
)

// EmailMessage is a single outbound email. Sender identity defaults to the
// system sender unless the tenant configures an override.
type EmailMessage struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	EventType string    `json:"event_type"`
	To        []string  `json:"to"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
