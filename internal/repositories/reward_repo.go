package repositories

import (
	"context"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RewardRepository interface {
	Create(ctx context.Context, reward *models.RewardSetting) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.RewardSetting, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error)
	SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type rewardRepo struct {
	db Database
}

func NewRewardRepo(db Database) RewardRepository {
	return &rewardRepo{db: db}
}

const rewardColumns = `id, tenant_id, name, active, created_at, updated_at`

func (r *rewardRepo) Create(ctx context.Context, reward *models.RewardSetting) error {
	query := `
		INSERT INTO reward_settings (id, tenant_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, reward.ID, reward.TenantID, reward.Name, reward.Active)
	return err
}

func (r *rewardRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.RewardSetting, error) {
	query := `SELECT ` + rewardColumns + ` FROM reward_settings WHERE tenant_id = $1 AND id = $2`
	return scanReward(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *rewardRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error) {
	query := `SELECT ` + rewardColumns + ` FROM reward_settings WHERE tenant_id = $1 ORDER BY name ASC`
	return r.listRewards(ctx, query, tenantID)
}

func (r *rewardRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error) {
	query := `SELECT ` + rewardColumns + ` FROM reward_settings WHERE tenant_id = $1 AND active = true ORDER BY name ASC`
	return r.listRewards(ctx, query, tenantID)
}

func (r *rewardRepo) SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) error {
	query := `UPDATE reward_settings SET active = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`
	tag, err := r.db.Exec(ctx, query, active, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *rewardRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM reward_settings WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}

func (r *rewardRepo) listRewards(ctx context.Context, query string, tenantID uuid.UUID) ([]*models.RewardSetting, error) {
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []*models.RewardSetting
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, reward)
	}
	return rewards, rows.Err()
}

func scanReward(row pgx.Row) (*models.RewardSetting, error) {
	reward := &models.RewardSetting{}
	err := row.Scan(&reward.ID, &reward.TenantID, &reward.Name, &reward.Active, &reward.CreatedAt, &reward.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return reward, nil
}
