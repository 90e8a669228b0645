package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantHost maps an inbound host name to a tenant. Lookups go through the
// resolver cache, so host mappings take up to one TTL to propagate.
type TenantHost struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Host      string    `json:"host" db:"host"`
	IsPrimary bool      `json:"isPrimary" db:"is_primary"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
