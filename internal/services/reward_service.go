package services

import (
	"context"
	"errors"
	"strings"

	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RewardService interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.RewardSetting, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error)
	SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*models.RewardSetting, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type rewardService struct {
	rewardRepo repositories.RewardRepository
}

func NewRewardService(rewardRepo repositories.RewardRepository) RewardService {
	return &rewardService{rewardRepo: rewardRepo}
}

func (s *rewardService) Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.RewardSetting, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "name is required"}
	}
	reward := &models.RewardSetting{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Active:   true,
	}
	if err := s.rewardRepo.Create(ctx, reward); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, ErrDuplicateReward
		}
		return nil, err
	}
	return reward, nil
}

func (s *rewardService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error) {
	return s.rewardRepo.List(ctx, tenantID)
}

func (s *rewardService) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.RewardSetting, error) {
	return s.rewardRepo.ListActive(ctx, tenantID)
}

func (s *rewardService) SetActive(ctx context.Context, tenantID, id uuid.UUID, active bool) (*models.RewardSetting, error) {
	if err := s.rewardRepo.SetActive(ctx, tenantID, id, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	reward, err := s.rewardRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return reward, nil
}

func (s *rewardService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.rewardRepo.GetByID(ctx, tenantID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRewardNotFound
		}
		return err
	}
	return s.rewardRepo.Delete(ctx, tenantID, id)
}
