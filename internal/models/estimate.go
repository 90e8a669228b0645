package models

import (
	"time"

	"github.com/google/uuid"
)

const EstimateStatusPending = "Pending"

type Estimate struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	TenantID     uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	ReferralID   uuid.UUID      `json:"referralId" db:"referral_id"`
	Name         string         `json:"name" db:"name"`
	Email        string         `json:"email" db:"email"`
	Phone        string         `json:"phone" db:"phone"`
	Address      string         `json:"address" db:"address"`
	City         *string        `json:"city" db:"city"`
	Description  *string        `json:"description" db:"description"`
	CustomFields map[string]any `json:"customFields" db:"custom_fields"`
	Status       string         `json:"status" db:"status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
