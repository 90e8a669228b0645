package services

import (
	"context"
	"testing"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ReferralServiceTestSuite struct {
	suite.Suite
	referralRepo *MockReferralRepository
	estimateRepo *MockEstimateRepository
	userRepo     *MockUserRepository
	tenantRepo   *MockTenantRepository
	notifier     *MockNotificationService
	service      ReferralService
	tenant       *models.TenantContext
	fullTenant   *models.Tenant
	ctx          context.Context
}

func (suite *ReferralServiceTestSuite) SetupTest() {
	suite.referralRepo = &MockReferralRepository{}
	suite.estimateRepo = &MockEstimateRepository{}
	suite.userRepo = &MockUserRepository{}
	suite.tenantRepo = &MockTenantRepository{}
	suite.notifier = &MockNotificationService{}
	suite.service = NewReferralService(suite.referralRepo, suite.estimateRepo, suite.userRepo, suite.tenantRepo, suite.notifier)

	tenantID := uuid.New()
	suite.tenant = &models.TenantContext{
		TenantID:   tenantID,
		TenantSlug: "acme-pest",
		TenantName: "Acme Pest Control",
	}
	suite.fullTenant = &models.Tenant{
		ID:        tenantID,
		Name:      "Acme Pest Control",
		Slug:      "acme-pest",
		ClientURL: "https://app.example.com/acme-pest",
	}
	suite.ctx = context.Background()
}

func (suite *ReferralServiceTestSuite) TearDownTest() {
	suite.referralRepo.AssertExpectations(suite.T())
	suite.estimateRepo.AssertExpectations(suite.T())
	suite.userRepo.AssertExpectations(suite.T())
	suite.tenantRepo.AssertExpectations(suite.T())
	suite.notifier.AssertExpectations(suite.T())
}

func TestReferralServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReferralServiceTestSuite))
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (suite *ReferralServiceTestSuite) TestCreate_Success() {
	client := &models.User{
		ID:       uuid.New(),
		TenantID: suite.tenant.TenantID,
		Email:    "client@example.com",
		Name:     "Jordan Client",
		Role:     models.RoleClient,
	}

	suite.userRepo.On("GetByEmail", suite.ctx, suite.tenant.TenantID, "client@example.com").Return(client, nil)
	suite.referralRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Referral")).Return(nil)
	suite.tenantRepo.On("GetByID", suite.ctx, suite.tenant.TenantID).Return(suite.fullTenant, nil)
	suite.notifier.On("SendNow", suite.ctx, mock.AnythingOfType("*models.EmailMessage")).Return(nil)
	suite.userRepo.On("ListAdminEmails", suite.ctx, suite.tenant.TenantID).Return([]string{"admin@example.com"}, nil)
	suite.notifier.On("Enqueue", mock.AnythingOfType("*models.EmailMessage")).Return()

	referral, err := suite.service.Create(suite.ctx, suite.tenant, &CreateReferralRequest{
		Email:          " Client@Example.com ",
		SelectedReward: "$50 gift card",
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), client.ID, referral.UserID)
	assert.Equal(suite.T(), models.ReferralStatusOpen, referral.Status)
	assert.Len(suite.T(), referral.Code, 8)
	assert.Regexp(suite.T(), "^[0-9a-f]{8}$", referral.Code)
}

func (suite *ReferralServiceTestSuite) TestCreate_UnknownClient() {
	suite.userRepo.On("GetByEmail", suite.ctx, suite.tenant.TenantID, "stranger@example.com").Return(nil, pgx.ErrNoRows)

	referral, err := suite.service.Create(suite.ctx, suite.tenant, &CreateReferralRequest{
		Email:          "stranger@example.com",
		SelectedReward: "$50 gift card",
	})

	assert.Nil(suite.T(), referral)
	assert.ErrorIs(suite.T(), err, ErrClientNotFound)
	assert.EqualError(suite.T(), err, "Client not found. Please contact support.")
}

func (suite *ReferralServiceTestSuite) TestCreate_MissingReward() {
	referral, err := suite.service.Create(suite.ctx, suite.tenant, &CreateReferralRequest{
		Email: "client@example.com",
	})

	assert.Nil(suite.T(), referral)
	var validationErr *ValidationError
	assert.ErrorAs(suite.T(), err, &validationErr)
}

func (suite *ReferralServiceTestSuite) TestCreate_CodeCollisionRetries() {
	client := &models.User{ID: uuid.New(), TenantID: suite.tenant.TenantID, Email: "client@example.com", Name: "Jordan"}

	suite.userRepo.On("GetByEmail", suite.ctx, suite.tenant.TenantID, "client@example.com").Return(client, nil)
	// First insert collides on (tenant_id, code), second succeeds with a new code
	suite.referralRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Referral")).Return(uniqueViolation()).Once()
	suite.referralRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Referral")).Return(nil).Once()
	suite.tenantRepo.On("GetByID", suite.ctx, suite.tenant.TenantID).Return(suite.fullTenant, nil)
	suite.notifier.On("SendNow", suite.ctx, mock.AnythingOfType("*models.EmailMessage")).Return(nil)
	suite.userRepo.On("ListAdminEmails", suite.ctx, suite.tenant.TenantID).Return([]string{}, nil)

	referral, err := suite.service.Create(suite.ctx, suite.tenant, &CreateReferralRequest{
		Email:          "client@example.com",
		SelectedReward: "$50 gift card",
	})

	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), referral.Code)
}

func (suite *ReferralServiceTestSuite) TestGetByCode_InvalidCode() {
	suite.referralRepo.On("GetByCode", suite.ctx, suite.tenant.TenantID, "deadbeef").Return(nil, pgx.ErrNoRows)

	lookup, err := suite.service.GetByCode(suite.ctx, suite.tenant, "deadbeef")

	assert.Nil(suite.T(), lookup)
	assert.ErrorIs(suite.T(), err, ErrInvalidReferralCode)
}

func (suite *ReferralServiceTestSuite) TestGetByCode_UsedAndDefaultSchema() {
	referral := &models.Referral{
		ID:       uuid.New(),
		TenantID: suite.tenant.TenantID,
		Code:     "cafe0123",
		Status:   models.ReferralStatusUsed,
	}

	suite.referralRepo.On("GetByCode", suite.ctx, suite.tenant.TenantID, "cafe0123").Return(referral, nil)
	suite.estimateRepo.On("ExistsForReferral", suite.ctx, suite.tenant.TenantID, referral.ID).Return(true, nil)
	// Tenant has no custom schema; lookup falls back to the default one
	suite.tenantRepo.On("GetByID", suite.ctx, suite.tenant.TenantID).Return(suite.fullTenant, nil)

	lookup, err := suite.service.GetByCode(suite.ctx, suite.tenant, "cafe0123")

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), lookup.Used)
	assert.Equal(suite.T(), models.DefaultFieldConfig(), lookup.FieldConfig)
}

func (suite *ReferralServiceTestSuite) TestGetByCode_TenantSchemaWins() {
	referral := &models.Referral{ID: uuid.New(), TenantID: suite.tenant.TenantID, Code: "cafe0123", Status: models.ReferralStatusOpen}
	customTenant := *suite.fullTenant
	customTenant.EstimateFieldConfig = []models.FieldConfig{
		{ID: "roofType", Label: "Roof type", Type: models.FieldTypeSelect, Required: true, Options: []string{"flat", "pitched"}},
	}

	suite.referralRepo.On("GetByCode", suite.ctx, suite.tenant.TenantID, "cafe0123").Return(referral, nil)
	suite.estimateRepo.On("ExistsForReferral", suite.ctx, suite.tenant.TenantID, referral.ID).Return(false, nil)
	suite.tenantRepo.On("GetByID", suite.ctx, suite.tenant.TenantID).Return(&customTenant, nil)

	lookup, err := suite.service.GetByCode(suite.ctx, suite.tenant, "cafe0123")

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), lookup.Used)
	assert.Equal(suite.T(), customTenant.EstimateFieldConfig, lookup.FieldConfig)
}

func (suite *ReferralServiceTestSuite) TestUpdateStatus_InvalidStatus() {
	referral, err := suite.service.UpdateStatus(suite.ctx, suite.tenant.TenantID, uuid.New(), "Bogus")

	assert.Nil(suite.T(), referral)
	assert.ErrorIs(suite.T(), err, ErrInvalidStatus)
}

func (suite *ReferralServiceTestSuite) TestUpdateStatus_NotFound() {
	referralID := uuid.New()
	suite.referralRepo.On("GetByID", suite.ctx, suite.tenant.TenantID, referralID).Return(nil, pgx.ErrNoRows)

	referral, err := suite.service.UpdateStatus(suite.ctx, suite.tenant.TenantID, referralID, models.ReferralStatusWait)

	assert.Nil(suite.T(), referral)
	assert.ErrorIs(suite.T(), err, ErrReferralNotFound)
}

func (suite *ReferralServiceTestSuite) TestUpdateStatus_CloseSendsRewardEmail() {
	referrer := &models.User{ID: uuid.New(), TenantID: suite.tenant.TenantID, Email: "client@example.com", Name: "Jordan"}
	referral := &models.Referral{
		ID:             uuid.New(),
		TenantID:       suite.tenant.TenantID,
		UserID:         referrer.ID,
		Code:           "cafe0123",
		SelectedReward: "$50 gift card",
		Status:         models.ReferralStatusUsed,
	}

	suite.referralRepo.On("GetByID", suite.ctx, suite.tenant.TenantID, referral.ID).Return(referral, nil)
	suite.referralRepo.On("UpdateStatus", suite.ctx, suite.tenant.TenantID, referral.ID, models.ReferralStatusClosed).Return(nil)
	suite.tenantRepo.On("GetByID", suite.ctx, suite.tenant.TenantID).Return(suite.fullTenant, nil)
	suite.userRepo.On("GetByID", suite.ctx, suite.tenant.TenantID, referrer.ID).Return(referrer, nil)
	suite.notifier.On("Enqueue", mock.MatchedBy(func(msg *models.EmailMessage) bool {
		return msg.EventType == models.EventReferralClosed && msg.To[0] == referrer.Email
	})).Return()

	updated, err := suite.service.UpdateStatus(suite.ctx, suite.tenant.TenantID, referral.ID, models.ReferralStatusClosed)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ReferralStatusClosed, updated.Status)
}

func (suite *ReferralServiceTestSuite) TestUpdateStatus_AlreadyClosedNoEmail() {
	referral := &models.Referral{
		ID:       uuid.New(),
		TenantID: suite.tenant.TenantID,
		UserID:   uuid.New(),
		Status:   models.ReferralStatusClosed,
	}

	suite.referralRepo.On("GetByID", suite.ctx, suite.tenant.TenantID, referral.ID).Return(referral, nil)
	suite.referralRepo.On("UpdateStatus", suite.ctx, suite.tenant.TenantID, referral.ID, models.ReferralStatusClosed).Return(nil)

	_, err := suite.service.UpdateStatus(suite.ctx, suite.tenant.TenantID, referral.ID, models.ReferralStatusClosed)

	assert.NoError(suite.T(), err)
	suite.notifier.AssertNotCalled(suite.T(), "Enqueue", mock.Anything)
}

func (suite *ReferralServiceTestSuite) TestBulkDelete() {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	suite.referralRepo.On("DeleteByIDs", suite.ctx, suite.tenant.TenantID, ids).Return(int64(2), nil)

	deleted, err := suite.service.BulkDelete(suite.ctx, suite.tenant.TenantID, ids)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), deleted)
}
