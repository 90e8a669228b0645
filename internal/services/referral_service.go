package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// codeAttempts bounds collision retries during code generation. With 4 random
// bytes per code, more than one retry is already vanishingly rare.
const codeAttempts = 5

type ReferralService interface {
	Create(ctx context.Context, tenant *models.TenantContext, req *CreateReferralRequest) (*models.Referral, error)
	GetByCode(ctx context.Context, tenant *models.TenantContext, code string) (*models.ReferralLookup, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ReferralSummary, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*models.Referral, error)
	BulkDelete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type CreateReferralRequest struct {
	Email          string `json:"email" validate:"required,email"`
	SelectedReward string `json:"selectedReward" validate:"required"`
	ProspectName   string `json:"prospectName"`
	ProspectEmail  string `json:"prospectEmail"`

	// TenantSlug is consumed by the tenant middleware as a resolution
	// override before this struct is bound.
	TenantSlug string `json:"tenantSlug"`
}

type referralService struct {
	referralRepo repositories.ReferralRepository
	estimateRepo repositories.EstimateRepository
	userRepo     repositories.UserRepository
	tenantRepo   repositories.TenantRepository
	notifier     NotificationService
}

func NewReferralService(referralRepo repositories.ReferralRepository, estimateRepo repositories.EstimateRepository,
	userRepo repositories.UserRepository, tenantRepo repositories.TenantRepository, notifier NotificationService) ReferralService {
	return &referralService{
		referralRepo: referralRepo,
		estimateRepo: estimateRepo,
		userRepo:     userRepo,
		tenantRepo:   tenantRepo,
		notifier:     notifier,
	}
}

// Create generates a referral for a pre-provisioned client. This is not open
// registration: an unknown client email is rejected outright.
func (s *referralService) Create(ctx context.Context, tenant *models.TenantContext, req *CreateReferralRequest) (*models.Referral, error) {
	if req.SelectedReward == "" {
		return nil, &ValidationError{Message: "selectedReward is required"}
	}

	email := common.NormalizeEmail(req.Email)
	user, err := s.userRepo.GetByEmail(ctx, tenant.TenantID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	referral := &models.Referral{
		ID:             uuid.New(),
		TenantID:       tenant.TenantID,
		UserID:         user.ID,
		SelectedReward: req.SelectedReward,
		Status:         models.ReferralStatusOpen,
	}
	if req.ProspectName != "" {
		referral.ProspectName = &req.ProspectName
	}
	if req.ProspectEmail != "" {
		referral.ProspectEmail = &req.ProspectEmail
	}

	if err := s.insertWithFreshCode(ctx, referral); err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, tenant, referral, user)

	return referral, nil
}

// insertWithFreshCode generates a code and inserts, retrying on the
// (tenant_id, code) unique violation with a new code.
func (s *referralService) insertWithFreshCode(ctx context.Context, referral *models.Referral) error {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		referral.Code = generateReferralCode()
		err := s.referralRepo.Create(ctx, referral)
		if err == nil {
			return nil
		}
		if !repositories.IsUniqueViolation(err) {
			return err
		}
		log.Printf("referral: code collision for tenant %s (attempt %d)", referral.TenantID, attempt+1)
	}
	return ErrCodeExhausted
}

// generateReferralCode returns an 8 hex character token.
func generateReferralCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *referralService) notifyCreated(ctx context.Context, tenant *models.TenantContext, referral *models.Referral, user *models.User) {
	fullTenant, err := s.tenantRepo.GetByID(ctx, tenant.TenantID)
	if err != nil {
		log.Printf("referral: tenant load for notifications failed: %v", err)
		return
	}
	from := senderFor(fullTenant, "")

	prospectName := ""
	if referral.ProspectName != nil {
		prospectName = *referral.ProspectName
	}

	// The referrer's link email is awaited; delivery problems show up in logs
	// before the response goes out, but still never fail the request.
	_ = s.notifier.SendNow(ctx, &models.EmailMessage{
		TenantID:  tenant.TenantID,
		EventType: models.EventReferralCreated,
		To:        []string{user.Email},
		From:      from,
		Subject:   fmt.Sprintf("Your %s referral link", tenant.TenantName),
		HTML: renderTemplate(referralLinkTmpl, map[string]any{
			"ReferrerName": user.Name,
			"TenantName":   tenant.TenantName,
			"ProspectName": prospectName,
			"Link":         referralLink(fullTenant, referral.Code),
			"Reward":       referral.SelectedReward,
		}),
	})

	adminEmails, err := s.userRepo.ListAdminEmails(ctx, tenant.TenantID)
	if err != nil {
		log.Printf("referral: admin email lookup failed: %v", err)
		return
	}
	if len(adminEmails) == 0 {
		return
	}
	s.notifier.Enqueue(&models.EmailMessage{
		TenantID:  tenant.TenantID,
		EventType: models.EventReferralCreated,
		To:        adminEmails,
		From:      from,
		Subject:   "New referral created",
		HTML: renderTemplate(referralAdminTmpl, map[string]any{
			"ReferrerName":  user.Name,
			"ReferrerEmail": user.Email,
			"Code":          referral.Code,
			"Reward":        referral.SelectedReward,
		}),
	})
}

// GetByCode is the public landing-page lookup. Used is computed from estimate
// existence, which is the canonical "link consumed" signal regardless of the
// stored status field.
func (s *referralService) GetByCode(ctx context.Context, tenant *models.TenantContext, code string) (*models.ReferralLookup, error) {
	referral, err := s.referralRepo.GetByCode(ctx, tenant.TenantID, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}

	used, err := s.estimateRepo.ExistsForReferral(ctx, tenant.TenantID, referral.ID)
	if err != nil {
		return nil, err
	}

	fieldConfig, err := s.fieldConfigFor(ctx, tenant.TenantID)
	if err != nil {
		return nil, err
	}

	return &models.ReferralLookup{
		Referral:    *referral,
		Used:        used,
		FieldConfig: fieldConfig,
	}, nil
}

func (s *referralService) fieldConfigFor(ctx context.Context, tenantID uuid.UUID) ([]models.FieldConfig, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(tenant.EstimateFieldConfig) > 0 {
		return tenant.EstimateFieldConfig, nil
	}
	return models.DefaultFieldConfig(), nil
}

func (s *referralService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.ReferralSummary, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.referralRepo.List(ctx, tenantID, limit, offset)
}

// UpdateStatus sets any status from any status; admins use it as an override,
// so no transition table is enforced. The first transition into Closed
// triggers the reward-activation email to the referrer.
func (s *referralService) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*models.Referral, error) {
	if !models.ValidReferralStatus(status) {
		return nil, ErrInvalidStatus
	}

	referral, err := s.referralRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}

	previous := referral.Status
	if err := s.referralRepo.UpdateStatus(ctx, tenantID, id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	referral.Status = status

	if status == models.ReferralStatusClosed && previous != models.ReferralStatusClosed {
		s.notifyClosed(ctx, tenantID, referral)
	}

	return referral, nil
}

func (s *referralService) notifyClosed(ctx context.Context, tenantID uuid.UUID, referral *models.Referral) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		log.Printf("referral: tenant load for close notification failed: %v", err)
		return
	}
	user, err := s.userRepo.GetByID(ctx, tenantID, referral.UserID)
	if err != nil {
		log.Printf("referral: referrer load for close notification failed: %v", err)
		return
	}
	s.notifier.Enqueue(&models.EmailMessage{
		TenantID:  tenantID,
		EventType: models.EventReferralClosed,
		To:        []string{user.Email},
		From:      senderFor(tenant, ""),
		Subject:   "Your referral reward is active",
		HTML: renderTemplate(rewardActivatedTmpl, map[string]any{
			"ReferrerName": user.Name,
			"Reward":       referral.SelectedReward,
			"TenantName":   tenant.Name,
		}),
	})
}

func (s *referralService) BulkDelete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return s.referralRepo.DeleteByIDs(ctx, tenantID, ids)
}
