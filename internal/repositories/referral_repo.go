package repositories

import (
	"context"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Referral, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Referral, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ReferralSummary, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
	DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type referralRepo struct {
	db Database
}

func NewReferralRepo(db Database) ReferralRepository {
	return &referralRepo{db: db}
}

const referralColumns = `id, tenant_id, user_id, code, prospect_name, prospect_email, selected_reward, status, created_at, updated_at`

// Create inserts a referral. The (tenant_id, code) unique constraint surfaces
// code collisions as a unique violation; the service retries with a fresh code.
func (r *referralRepo) Create(ctx context.Context, referral *models.Referral) error {
	query := `
		INSERT INTO referrals (id, tenant_id, user_id, code, prospect_name, prospect_email, selected_reward, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, referral.ID, referral.TenantID, referral.UserID, referral.Code,
		referral.ProspectName, referral.ProspectEmail, referral.SelectedReward, referral.Status)
	return err
}

func (r *referralRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE tenant_id = $1 AND id = $2`
	return scanReferral(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *referralRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE tenant_id = $1 AND code = $2`
	return scanReferral(r.db.QueryRow(ctx, query, tenantID, code))
}

// List returns referrals with referrer identity and estimate summary for the
// admin dashboard. Used reflects estimate existence, not the status field.
func (r *referralRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ReferralSummary, error) {
	query := `
		SELECT r.id, r.tenant_id, r.user_id, r.code, r.prospect_name, r.prospect_email,
			r.selected_reward, r.status, r.created_at, r.updated_at,
			u.name, u.email, e.id
		FROM referrals r
		JOIN users u ON u.id = r.user_id AND u.tenant_id = r.tenant_id
		LEFT JOIN estimates e ON e.referral_id = r.id AND e.tenant_id = r.tenant_id
		WHERE r.tenant_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []*models.ReferralSummary
	for rows.Next() {
		s := &models.ReferralSummary{}
		err := rows.Scan(&s.ID, &s.TenantID, &s.UserID, &s.Code, &s.ProspectName, &s.ProspectEmail,
			&s.SelectedReward, &s.Status, &s.CreatedAt, &s.UpdatedAt,
			&s.ReferrerName, &s.ReferrerEmail, &s.EstimateID)
		if err != nil {
			return nil, err
		}
		s.Used = s.EstimateID != nil
		referrals = append(referrals, s)
	}
	return referrals, rows.Err()
}

func (r *referralRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	query := `UPDATE referrals SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, status, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteByIDs hard-deletes referrals and their estimates in one transaction.
// Deleting the estimates first keeps the foreign key satisfied throughout.
func (r *referralRepo) DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM estimates WHERE tenant_id = $1 AND referral_id = ANY($2)`, tenantID, ids)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM referrals WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanReferral(row pgx.Row) (*models.Referral, error) {
	referral := &models.Referral{}
	err := row.Scan(&referral.ID, &referral.TenantID, &referral.UserID, &referral.Code,
		&referral.ProspectName, &referral.ProspectEmail, &referral.SelectedReward,
		&referral.Status, &referral.CreatedAt, &referral.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return referral, nil
}
