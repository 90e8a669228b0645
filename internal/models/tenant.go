package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	Name                string        `json:"name" db:"name"`
	Slug                string        `json:"slug" db:"slug"`
	Phone               *string       `json:"phone" db:"phone"`
	Email               *string       `json:"email" db:"email"`
	Address             *string       `json:"address" db:"address"`
	City                *string       `json:"city" db:"city"`
	State               *string       `json:"state" db:"state"`
	Zip                 *string       `json:"zip" db:"zip"`
	Country             *string       `json:"country" db:"country"`
	ClientURL           string        `json:"clientUrl" db:"client_url"`
	SenderEmail         *string       `json:"senderEmail" db:"sender_email"`
	LogoURL             *string       `json:"logoUrl" db:"logo_url"`
	EstimateFieldConfig []FieldConfig `json:"estimateFieldConfig,omitempty" db:"estimate_field_config"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// TenantContext is the resolved tenant identity attached to every request
type TenantContext struct {
	TenantID   uuid.UUID `json:"tenantId"`
	TenantSlug string    `json:"tenantSlug"`
	TenantName string    `json:"tenantName"`
}

// PublicTenant is the minimal shape exposed on unauthenticated listings
type PublicTenant struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	LogoURL *string   `json:"logoUrl"`
}
