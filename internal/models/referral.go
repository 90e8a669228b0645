package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral status values. Open -> Used happens automatically on first estimate
// submission; Open -> Closed is a manual admin action. Wait and Expired are
// admin-set only; no automated transition drives them.
const (
	ReferralStatusOpen    = "Open"
	ReferralStatusWait    = "Wait"
	ReferralStatusUsed    = "Used"
	ReferralStatusClosed  = "Closed"
	ReferralStatusExpired = "Expired"
)

// ValidReferralStatus reports whether s is one of the known status values.
// Transitions themselves are unchecked: any status may be set from any other,
// which is deliberate admin-override flexibility.
func ValidReferralStatus(s string) bool {
	switch s {
	case ReferralStatusOpen, ReferralStatusWait, ReferralStatusUsed, ReferralStatusClosed, ReferralStatusExpired:
		return true
	}
	return false
}

type Referral struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TenantID       uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID         uuid.UUID `json:"userId" db:"user_id"`
	Code           string    `json:"code" db:"code"`
	ProspectName   *string   `json:"prospectName" db:"prospect_name"`
	ProspectEmail  *string   `json:"prospectEmail" db:"prospect_email"`
	SelectedReward string    `json:"selectedReward" db:"selected_reward"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ReferralSummary is the admin listing shape: referral plus referrer identity
// and whether an estimate has been submitted against it.
type ReferralSummary struct {
	Referral
	ReferrerName  string     `json:"referrerName"`
	ReferrerEmail string     `json:"referrerEmail"`
	EstimateID    *uuid.UUID `json:"estimateId"`
	Used          bool       `json:"used"`
}

// ReferralLookup is the public landing-page shape. Used is computed from
// estimate existence, independent of the stored status field.
type ReferralLookup struct {
	Referral
	Used        bool          `json:"used"`
	FieldConfig []FieldConfig `json:"fieldConfig"`
}
