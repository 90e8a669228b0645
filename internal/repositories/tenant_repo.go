package repositories

import (
	"context"
	"encoding/json"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	CreateTx(ctx context.Context, tx pgx.Tx, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetOldest(ctx context.Context) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error
	ListPublic(ctx context.Context) ([]*models.PublicTenant, error)
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, phone, email, address, city, state, zip, country,
		client_url, sender_email, logo_url, estimate_field_config, created_at, updated_at`

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query, args, err := tenantInsert(tenant)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// CreateTx inserts a tenant inside an existing transaction. Onboarding creates
// the tenant and its first admin atomically so a tenant can never exist
// without an admin.
func (r *tenantRepo) CreateTx(ctx context.Context, tx pgx.Tx, tenant *models.Tenant) error {
	query, args, err := tenantInsert(tenant)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func tenantInsert(tenant *models.Tenant) (string, []any, error) {
	fieldConfig, err := marshalFieldConfig(tenant.EstimateFieldConfig)
	if err != nil {
		return "", nil, err
	}
	query := `
		INSERT INTO tenants (id, name, slug, phone, email, address, city, state, zip, country,
			client_url, sender_email, logo_url, estimate_field_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`
	args := []any{
		tenant.ID, tenant.Name, tenant.Slug, tenant.Phone, tenant.Email, tenant.Address,
		tenant.City, tenant.State, tenant.Zip, tenant.Country, tenant.ClientURL,
		tenant.SenderEmail, tenant.LogoURL, fieldConfig,
	}
	return query, args, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRow(ctx, query, id))
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(r.db.QueryRow(ctx, query, slug))
}

// GetOldest returns the first-created tenant, the resolver's fallback of last
// resort when no host mapping or configured default matches.
func (r *tenantRepo) GetOldest(ctx context.Context) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at ASC LIMIT 1`
	return scanTenant(r.db.QueryRow(ctx, query))
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	fieldConfig, err := marshalFieldConfig(tenant.EstimateFieldConfig)
	if err != nil {
		return err
	}
	query := `
		UPDATE tenants
		SET name = $1, phone = $2, email = $3, address = $4, city = $5, state = $6,
			zip = $7, country = $8, sender_email = $9, estimate_field_config = $10, updated_at = NOW()
		WHERE id = $11
	`
	_, err = r.db.Exec(ctx, query, tenant.Name, tenant.Phone, tenant.Email, tenant.Address,
		tenant.City, tenant.State, tenant.Zip, tenant.Country, tenant.SenderEmail, fieldConfig, tenant.ID)
	return err
}

func (r *tenantRepo) UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error {
	query := `UPDATE tenants SET logo_url = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, logoURL, id)
	return err
}

func (r *tenantRepo) ListPublic(ctx context.Context) ([]*models.PublicTenant, error) {
	query := `SELECT id, name, slug, logo_url FROM tenants ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.PublicTenant
	for rows.Next() {
		tenant := &models.PublicTenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.LogoURL); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	var fieldConfig []byte
	err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Phone, &tenant.Email,
		&tenant.Address, &tenant.City, &tenant.State, &tenant.Zip, &tenant.Country,
		&tenant.ClientURL, &tenant.SenderEmail, &tenant.LogoURL, &fieldConfig,
		&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(fieldConfig) > 0 {
		if err := json.Unmarshal(fieldConfig, &tenant.EstimateFieldConfig); err != nil {
			return nil, err
		}
	}
	return tenant, nil
}

func marshalFieldConfig(config []models.FieldConfig) ([]byte, error) {
	if config == nil {
		return nil, nil
	}
	return json.Marshal(config)
}
