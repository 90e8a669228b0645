package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardSetting enumerates the selectable rewards for a tenant. Referrals store
// the reward name as free text, so renaming or removing a setting never
// invalidates past referrals.
type RewardSetting struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
