package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EstimateService interface {
	Submit(ctx context.Context, tenant *models.TenantContext, req *SubmitEstimateRequest) (*models.Estimate, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Estimate, []models.FieldConfig, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Estimate, error)
}

type SubmitEstimateRequest struct {
	ReferralCode string         `json:"referralCode" validate:"required"`
	Name         string         `json:"name" validate:"required"`
	Email        string         `json:"email" validate:"required,email"`
	Phone        string         `json:"phone" validate:"required"`
	Address      string         `json:"address" validate:"required"`
	City         string         `json:"city"`
	Description  string         `json:"description"`
	CustomFields map[string]any `json:"customFields"`

	// TenantSlug is consumed by the tenant middleware as a resolution
	// override before this struct is bound.
	TenantSlug string `json:"tenantSlug"`
}

type estimateService struct {
	estimateRepo repositories.EstimateRepository
	referralRepo repositories.ReferralRepository
	tenantRepo   repositories.TenantRepository
	userRepo     repositories.UserRepository
	notifier     NotificationService
}

func NewEstimateService(estimateRepo repositories.EstimateRepository, referralRepo repositories.ReferralRepository,
	tenantRepo repositories.TenantRepository, userRepo repositories.UserRepository, notifier NotificationService) EstimateService {
	return &estimateService{
		estimateRepo: estimateRepo,
		referralRepo: referralRepo,
		tenantRepo:   tenantRepo,
		userRepo:     userRepo,
		notifier:     notifier,
	}
}

// Submit validates and persists a prospect's estimate request, then flips the
// referral to Used. The unique constraint on referral_id backs the
// one-estimate-per-referral invariant, so a concurrent duplicate loses the
// insert race and gets the same already-used rejection as a sequential one.
func (s *estimateService) Submit(ctx context.Context, tenant *models.TenantContext, req *SubmitEstimateRequest) (*models.Estimate, error) {
	referral, err := s.referralRepo.GetByCode(ctx, tenant.TenantID, req.ReferralCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}

	if referral.Status != models.ReferralStatusOpen {
		if referral.Status == models.ReferralStatusUsed {
			return nil, ErrReferralUsed
		}
		return nil, ErrReferralNotActive
	}

	used, err := s.estimateRepo.ExistsForReferral(ctx, tenant.TenantID, referral.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrReferralUsed
	}

	if err := validateProspectFields(req); err != nil {
		return nil, err
	}

	fullTenant, err := s.tenantRepo.GetByID(ctx, tenant.TenantID)
	if err != nil {
		return nil, err
	}
	schema := fullTenant.EstimateFieldConfig
	if len(schema) == 0 {
		schema = models.DefaultFieldConfig()
	}

	customFields, err := ValidateCustomFields(schema, req.CustomFields)
	if err != nil {
		return nil, err
	}

	estimate := &models.Estimate{
		ID:           uuid.New(),
		TenantID:     tenant.TenantID,
		ReferralID:   referral.ID,
		Name:         req.Name,
		Email:        common.NormalizeEmail(req.Email),
		Phone:        req.Phone,
		Address:      req.Address,
		CustomFields: customFields,
		Status:       models.EstimateStatusPending,
	}
	if req.City != "" {
		estimate.City = &req.City
	}
	if req.Description != "" {
		estimate.Description = &req.Description
	}

	if err := s.estimateRepo.Create(ctx, estimate); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, ErrReferralUsed
		}
		return nil, err
	}

	if err := s.referralRepo.UpdateStatus(ctx, tenant.TenantID, referral.ID, models.ReferralStatusUsed); err != nil {
		log.Printf("estimate: referral %s status flip failed: %v", referral.ID, err)
	}

	s.notifySubmitted(ctx, tenant, fullTenant, referral, estimate)

	return estimate, nil
}

func (s *estimateService) notifySubmitted(ctx context.Context, tenant *models.TenantContext, fullTenant *models.Tenant,
	referral *models.Referral, estimate *models.Estimate) {
	from := senderFor(fullTenant, "")

	if adminEmails, err := s.userRepo.ListAdminEmails(ctx, tenant.TenantID); err != nil {
		log.Printf("estimate: admin email lookup failed: %v", err)
	} else if len(adminEmails) > 0 {
		s.notifier.Enqueue(&models.EmailMessage{
			TenantID:  tenant.TenantID,
			EventType: models.EventEstimateCreated,
			To:        adminEmails,
			From:      from,
			Subject:   "New estimate request",
			HTML: renderTemplate(estimateAdminTmpl, map[string]any{
				"Code":          referral.Code,
				"ProspectName":  estimate.Name,
				"ProspectEmail": estimate.Email,
				"ProspectPhone": estimate.Phone,
				"Address":       estimate.Address,
			}),
		})
	}

	if referrer, err := s.userRepo.GetByID(ctx, tenant.TenantID, referral.UserID); err != nil {
		log.Printf("estimate: referrer lookup failed: %v", err)
	} else {
		s.notifier.Enqueue(&models.EmailMessage{
			TenantID:  tenant.TenantID,
			EventType: models.EventEstimateCreated,
			To:        []string{referrer.Email},
			From:      from,
			Subject:   "Your referral code was used",
			HTML: renderTemplate(estimateReferrerTmpl, map[string]any{
				"ReferrerName": referrer.Name,
				"Code":         referral.Code,
			}),
		})
	}

	s.notifier.Enqueue(&models.EmailMessage{
		TenantID:  tenant.TenantID,
		EventType: models.EventEstimateCreated,
		To:        []string{estimate.Email},
		From:      from,
		Subject:   fmt.Sprintf("Your estimate request with %s", tenant.TenantName),
		HTML: renderTemplate(estimateProspectTmpl, map[string]any{
			"ProspectName": estimate.Name,
			"TenantName":   tenant.TenantName,
		}),
	})
}

func (s *estimateService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Estimate, []models.FieldConfig, error) {
	estimate, err := s.estimateRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrEstimateNotFound
		}
		return nil, nil, err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	schema := tenant.EstimateFieldConfig
	if len(schema) == 0 {
		schema = models.DefaultFieldConfig()
	}
	return estimate, schema, nil
}

func (s *estimateService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Estimate, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.estimateRepo.List(ctx, tenantID, limit, offset)
}

func validateProspectFields(req *SubmitEstimateRequest) error {
	var msgs []string
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		msgs = append(msgs, err.Error())
	}
	if err := common.ValidateEmail(req.Email, "email"); err != nil {
		msgs = append(msgs, err.Error())
	}
	if err := common.ValidateRequiredString(req.Phone, "phone"); err != nil {
		msgs = append(msgs, err.Error())
	}
	if err := common.ValidateRequiredString(req.Address, "address"); err != nil {
		msgs = append(msgs, err.Error())
	}
	if len(msgs) > 0 {
		return &ValidationError{Message: strings.Join(msgs, "; ")}
	}
	return nil
}

// ValidateCustomFields checks a submission against the tenant's field schema.
// All failures are collected and reported together rather than failing on the
// first. Values are coerced per field type; keys outside the schema are
// dropped.
func ValidateCustomFields(schema []models.FieldConfig, values map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(schema))
	var msgs []string

	for _, field := range schema {
		raw, present := values[field.ID]
		str := stringValue(raw)

		if field.Required && (!present || strings.TrimSpace(str) == "") {
			msgs = append(msgs, fmt.Sprintf("%s is required", field.Label))
			continue
		}
		if !present || strings.TrimSpace(str) == "" {
			continue
		}

		switch field.Type {
		case models.FieldTypeSelect:
			if !containsOption(field.Options, str) {
				msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field.Label, strings.Join(field.Options, ", ")))
				continue
			}
			result[field.ID] = str
		case models.FieldTypeNumber:
			n, err := toNumber(raw)
			if err != nil {
				msgs = append(msgs, fmt.Sprintf("%s must be a number", field.Label))
				continue
			}
			result[field.ID] = n
		case models.FieldTypeDate:
			if !validDate(str) {
				msgs = append(msgs, fmt.Sprintf("%s must be a valid date", field.Label))
				continue
			}
			result[field.ID] = str
		case models.FieldTypeCheckbox:
			result[field.ID] = toBool(raw)
		default:
			result[field.ID] = str
		}
	}

	if len(msgs) > 0 {
		return nil, &ValidationError{Message: strings.Join(msgs, "; ")}
	}
	return result, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

func toNumber(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("not a number")
	}
}

func validDate(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case float64:
		return val != 0
	default:
		return false
	}
}
