package repositories

import (
	"context"
	"encoding/json"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EstimateRepository interface {
	Create(ctx context.Context, estimate *models.Estimate) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Estimate, error)
	ExistsForReferral(ctx context.Context, tenantID, referralID uuid.UUID) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Estimate, error)
}

type estimateRepo struct {
	db Database
}

func NewEstimateRepo(db Database) EstimateRepository {
	return &estimateRepo{db: db}
}

const estimateColumns = `id, tenant_id, referral_id, name, email, phone, address, city, description, custom_fields, status, created_at, updated_at`

// Create inserts an estimate. The unique constraint on referral_id is the
// authoritative one-estimate-per-referral guard: concurrent submissions for
// the same code collide there, and the service maps the violation to the
// already-used rejection.
func (r *estimateRepo) Create(ctx context.Context, estimate *models.Estimate) error {
	customFields, err := json.Marshal(estimate.CustomFields)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO estimates (id, tenant_id, referral_id, name, email, phone, address, city, description, custom_fields, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, estimate.ID, estimate.TenantID, estimate.ReferralID,
		estimate.Name, estimate.Email, estimate.Phone, estimate.Address, estimate.City,
		estimate.Description, customFields, estimate.Status)
	return err
}

func (r *estimateRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE tenant_id = $1 AND id = $2`
	return scanEstimate(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *estimateRepo) ExistsForReferral(ctx context.Context, tenantID, referralID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM estimates WHERE tenant_id = $1 AND referral_id = $2)`
	err := r.db.QueryRow(ctx, query, tenantID, referralID).Scan(&exists)
	return exists, err
}

func (r *estimateRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estimates []*models.Estimate
	for rows.Next() {
		estimate, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, estimate)
	}
	return estimates, rows.Err()
}

func scanEstimate(row pgx.Row) (*models.Estimate, error) {
	estimate := &models.Estimate{}
	var customFields []byte
	err := row.Scan(&estimate.ID, &estimate.TenantID, &estimate.ReferralID, &estimate.Name,
		&estimate.Email, &estimate.Phone, &estimate.Address, &estimate.City,
		&estimate.Description, &customFields, &estimate.Status, &estimate.CreatedAt, &estimate.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &estimate.CustomFields); err != nil {
			return nil, err
		}
	}
	return estimate, nil
}
