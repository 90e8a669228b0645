package repositories

import (
	"context"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
)

type TenantHostRepository interface {
	Create(ctx context.Context, host *models.TenantHost) error
	ResolveHost(ctx context.Context, host string) (*models.TenantContext, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantHost, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type tenantHostRepo struct {
	db Database
}

func NewTenantHostRepo(db Database) TenantHostRepository {
	return &tenantHostRepo{db: db}
}

func (r *tenantHostRepo) Create(ctx context.Context, host *models.TenantHost) error {
	query := `
		INSERT INTO tenant_hosts (id, tenant_id, host, is_primary, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, host.ID, host.TenantID, host.Host, host.IsPrimary, host.Verified)
	return err
}

// ResolveHost joins the host mapping to its tenant. Returns pgx.ErrNoRows when
// the host is unmapped; the resolver handles the fallback from there.
func (r *tenantHostRepo) ResolveHost(ctx context.Context, host string) (*models.TenantContext, error) {
	tc := &models.TenantContext{}
	query := `
		SELECT t.id, t.slug, t.name
		FROM tenant_hosts th
		JOIN tenants t ON t.id = th.tenant_id
		WHERE th.host = $1
	`
	err := r.db.QueryRow(ctx, query, host).Scan(&tc.TenantID, &tc.TenantSlug, &tc.TenantName)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

func (r *tenantHostRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantHost, error) {
	query := `
		SELECT id, tenant_id, host, is_primary, verified, created_at, updated_at
		FROM tenant_hosts
		WHERE tenant_id = $1
		ORDER BY is_primary DESC, host ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []*models.TenantHost
	for rows.Next() {
		h := &models.TenantHost{}
		if err := rows.Scan(&h.ID, &h.TenantID, &h.Host, &h.IsPrimary, &h.Verified, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

func (r *tenantHostRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM tenant_hosts WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}
