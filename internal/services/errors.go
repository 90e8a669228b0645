package services

import "errors"

// Lifecycle errors surfaced to HTTP handlers. Message text is part of the
// contract: the landing page pattern-matches the already-used message to show
// its "link used" state.
var (
	ErrTenantNotFound      = errors.New("Tenant not found")
	ErrNoTenants           = errors.New("no tenants configured")
	ErrClientNotFound      = errors.New("Client not found. Please contact support.")
	ErrInvalidReferralCode = errors.New("Invalid referral code")
	ErrReferralNotFound    = errors.New("Referral not found")
	ErrReferralNotActive   = errors.New("Referral is no longer active")
	ErrReferralUsed        = errors.New("This referral link has already been used")
	ErrEstimateNotFound    = errors.New("Estimate not found")
	ErrRewardNotFound      = errors.New("Reward not found")
	ErrDuplicateReward     = errors.New("Reward with this name already exists")
	ErrUserNotFound        = errors.New("User not found")
	ErrDuplicateEmail      = errors.New("User with this email already exists")
	ErrSelfDelete          = errors.New("Cannot delete yourself")
	ErrDuplicateSlug       = errors.New("Tenant slug already exists")
	ErrDuplicateHost       = errors.New("Host is already mapped to a tenant")
	ErrHostNotFound        = errors.New("Host mapping not found")
	ErrInvalidCredentials  = errors.New("Invalid credentials")
	ErrAdminsOnly          = errors.New("Access denied. Admins only.")
	ErrInvalidStatus       = errors.New("Invalid status value")
	ErrCodeExhausted       = errors.New("could not generate a unique referral code")
)

// ValidationError aggregates all custom-field failures from one submission
// into a single message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
