package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/caldana20/referral-sys/internal/caching"
	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/gommon/random"
	"golang.org/x/crypto/bcrypt"
)

const logoBucket = "tenant-logos"

type TenantService interface {
	Preview(companyName string) (*OnboardingPreview, error)
	Confirm(ctx context.Context, req *ConfirmOnboardingRequest) (*models.Tenant, *models.User, error)
	ListPublic(ctx context.Context) ([]*models.PublicTenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	UpdateSettings(ctx context.Context, tenantID uuid.UUID, req *UpdateTenantSettingsRequest) (*models.Tenant, error)
	UploadLogo(ctx context.Context, tenantID uuid.UUID, filename string, reader io.Reader, size int64) (string, error)
	ListHosts(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantHost, error)
	AddHost(ctx context.Context, tenantID uuid.UUID, req *AddHostRequest) (*models.TenantHost, error)
	RemoveHost(ctx context.Context, tenantID, id uuid.UUID) error
}

type OnboardingPreview struct {
	Slug      string `json:"slug"`
	ClientURL string `json:"clientUrl"`
}

type ConfirmOnboardingRequest struct {
	CompanyName   string `json:"companyName" validate:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	Country       string `json:"country"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" validate:"required,min=6"`
	SenderEmail   string `json:"senderEmail"`
	TenantSlug    string `json:"tenantSlug"`
}

type UpdateTenantSettingsRequest struct {
	Name                string               `json:"name" validate:"required"`
	Phone               *string              `json:"phone"`
	Email               *string              `json:"email"`
	Address             *string              `json:"address"`
	City                *string              `json:"city"`
	State               *string              `json:"state"`
	Zip                 *string              `json:"zip"`
	Country             *string              `json:"country"`
	SenderEmail         *string              `json:"senderEmail"`
	EstimateFieldConfig []models.FieldConfig `json:"estimateFieldConfig"`
}

// AddHostRequest maps a custom domain to the tenant.
type AddHostRequest struct {
	Host      string `json:"host" validate:"required"`
	IsPrimary bool   `json:"isPrimary"`
}

type tenantService struct {
	db            repositories.Database
	tenantRepo    repositories.TenantRepository
	userRepo      repositories.UserRepository
	hostRepo      repositories.TenantHostRepository
	storage       StorageService
	cache         caching.CacheService
	clientURLBase string
}

func NewTenantService(db repositories.Database, tenantRepo repositories.TenantRepository,
	userRepo repositories.UserRepository, hostRepo repositories.TenantHostRepository,
	storage StorageService, cache caching.CacheService, clientURLBase string) TenantService {
	return &tenantService{
		db:            db,
		tenantRepo:    tenantRepo,
		userRepo:      userRepo,
		hostRepo:      hostRepo,
		storage:       storage,
		cache:         cache,
		clientURLBase: strings.TrimRight(clientURLBase, "/"),
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from a company name with a short random
// suffix so near-identical names never collide.
func slugify(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = slugStrip.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "tenant"
	}
	suffix := strings.ToLower(random.String(4, random.Alphanumeric))
	return base + "-" + suffix
}

func (s *tenantService) clientURL(slug string) string {
	return fmt.Sprintf("%s/%s", s.clientURLBase, slug)
}

func (s *tenantService) Preview(companyName string) (*OnboardingPreview, error) {
	if strings.TrimSpace(companyName) == "" {
		return nil, &ValidationError{Message: "companyName is required"}
	}
	slug := slugify(companyName)
	return &OnboardingPreview{Slug: slug, ClientURL: s.clientURL(slug)}, nil
}

// Confirm creates the tenant and its first admin in one transaction. A tenant
// must never exist without an admin, so a failed second write rolls back both.
func (s *tenantService) Confirm(ctx context.Context, req *ConfirmOnboardingRequest) (*models.Tenant, *models.User, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" || req.AdminEmail == "" || req.AdminPassword == "" {
		return nil, nil, &ValidationError{Message: "companyName, adminEmail, adminPassword are required"}
	}

	slug := req.TenantSlug
	if slug == "" {
		slug = slugify(name)
	}

	if _, err := s.tenantRepo.GetBySlug(ctx, slug); err == nil {
		return nil, nil, ErrDuplicateSlug
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		ClientURL: s.clientURL(slug),
	}
	setIfPresent(&tenant.Phone, req.Phone)
	setIfPresent(&tenant.Email, req.Email)
	setIfPresent(&tenant.Address, req.Address)
	setIfPresent(&tenant.City, req.City)
	setIfPresent(&tenant.State, req.State)
	setIfPresent(&tenant.Zip, req.Zip)
	setIfPresent(&tenant.Country, req.Country)
	setIfPresent(&tenant.SenderEmail, req.SenderEmail)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	hash := string(passwordHash)
	admin := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        common.NormalizeEmail(req.AdminEmail),
		Name:         "Tenant Admin",
		Role:         models.RoleAdmin,
		PasswordHash: &hash,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.tenantRepo.CreateTx(ctx, tx, tenant); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, nil, ErrDuplicateSlug
		}
		return nil, nil, err
	}
	if err := s.userRepo.CreateTx(ctx, tx, admin); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	tenant.CreatedAt = time.Now()
	tenant.UpdatedAt = tenant.CreatedAt
	return tenant, admin, nil
}

func (s *tenantService) ListPublic(ctx context.Context) ([]*models.PublicTenant, error) {
	return s.tenantRepo.ListPublic(ctx)
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, req *UpdateTenantSettingsRequest) (*models.Tenant, error) {
	tenant, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Message: "name is required"}
	}
	tenant.Name = strings.TrimSpace(req.Name)
	tenant.Phone = req.Phone
	tenant.Email = req.Email
	tenant.Address = req.Address
	tenant.City = req.City
	tenant.State = req.State
	tenant.Zip = req.Zip
	tenant.Country = req.Country
	tenant.SenderEmail = req.SenderEmail
	if req.EstimateFieldConfig != nil {
		if err := validateFieldSchema(req.EstimateFieldConfig); err != nil {
			return nil, err
		}
		tenant.EstimateFieldConfig = req.EstimateFieldConfig
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// UploadLogo relocates an uploaded logo to object storage and records its URL.
func (s *tenantService) UploadLogo(ctx context.Context, tenantID uuid.UUID, filename string, reader io.Reader, size int64) (string, error) {
	if err := s.storage.EnsureBucketExists(ctx, logoBucket); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("%s/%s", tenantID, filename)
	if err := s.storage.Upload(ctx, logoBucket, objectName, reader, size); err != nil {
		return "", err
	}

	url, err := s.storage.PresignedURL(logoBucket, objectName, 7*24*time.Hour)
	if err != nil {
		return "", err
	}

	if err := s.tenantRepo.UpdateLogoURL(ctx, tenantID, url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *tenantService) ListHosts(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantHost, error) {
	return s.hostRepo.ListByTenant(ctx, tenantID)
}

// AddHost maps a custom domain to the tenant. The resolver may have cached a
// fallback tenant for that host, so the cache entry is dropped right away.
func (s *tenantService) AddHost(ctx context.Context, tenantID uuid.UUID, req *AddHostRequest) (*models.TenantHost, error) {
	normalized := common.NormalizeHost(req.Host)
	if normalized == "" {
		return nil, &ValidationError{Message: "host is required"}
	}

	host := &models.TenantHost{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Host:      normalized,
		IsPrimary: req.IsPrimary,
		Verified:  true,
	}
	if err := s.hostRepo.Create(ctx, host); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, ErrDuplicateHost
		}
		return nil, err
	}
	host.CreatedAt = time.Now()
	host.UpdatedAt = host.CreatedAt

	s.invalidateHost(ctx, normalized)
	return host, nil
}

func (s *tenantService) RemoveHost(ctx context.Context, tenantID, id uuid.UUID) error {
	hosts, err := s.hostRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	var target *models.TenantHost
	for _, h := range hosts {
		if h.ID == id {
			target = h
			break
		}
	}
	if target == nil {
		return ErrHostNotFound
	}

	if err := s.hostRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.invalidateHost(ctx, target.Host)
	return nil
}

// invalidateHost is best-effort: a failed delete only means the old mapping
// lives until the resolver cache TTL expires.
func (s *tenantService) invalidateHost(ctx context.Context, host string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteTenantContext(ctx, host); err != nil {
		log.Printf("WARN: failed to invalidate cached host %s: %v", host, err)
	}
}

func validateFieldSchema(schema []models.FieldConfig) error {
	var msgs []string
	for i, field := range schema {
		if strings.TrimSpace(field.ID) == "" {
			msgs = append(msgs, fmt.Sprintf("field %d: id is required", i))
		}
		if strings.TrimSpace(field.Label) == "" {
			msgs = append(msgs, fmt.Sprintf("field %d: label is required", i))
		}
		switch field.Type {
		case models.FieldTypeText, models.FieldTypeEmail, models.FieldTypePhone, models.FieldTypeTextarea,
			models.FieldTypeSelect, models.FieldTypeCheckbox, models.FieldTypeDate, models.FieldTypeNumber:
		default:
			msgs = append(msgs, fmt.Sprintf("field %d: unknown type %q", i, field.Type))
		}
		if field.Type == models.FieldTypeSelect && len(field.Options) == 0 {
			msgs = append(msgs, fmt.Sprintf("field %d: select fields need options", i))
		}
	}
	if len(msgs) > 0 {
		return &ValidationError{Message: strings.Join(msgs, "; ")}
	}
	return nil
}

func setIfPresent(dst **string, value string) {
	if strings.TrimSpace(value) != "" {
		v := strings.TrimSpace(value)
		*dst = &v
	}
}
