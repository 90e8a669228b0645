package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ReferralRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     ReferralRepository
	tenantID uuid.UUID
	userID   uuid.UUID
	ctx      context.Context
}

func (suite *ReferralRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewReferralRepo(mock)
	suite.tenantID = uuid.New()
	suite.userID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *ReferralRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestReferralRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ReferralRepoTestSuite))
}

func (suite *ReferralRepoTestSuite) TestCreate_Success() {
	referral := &models.Referral{
		ID:             uuid.New(),
		TenantID:       suite.tenantID,
		UserID:         suite.userID,
		Code:           "cafe0123",
		SelectedReward: "$50 gift card",
		Status:         models.ReferralStatusOpen,
	}

	suite.mock.ExpectExec(`INSERT INTO referrals`).
		WithArgs(referral.ID, referral.TenantID, referral.UserID, referral.Code,
			referral.ProspectName, referral.ProspectEmail, referral.SelectedReward, referral.Status).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.ctx, referral)
	assert.NoError(suite.T(), err)
}

func (suite *ReferralRepoTestSuite) TestCreate_CodeCollision() {
	referral := &models.Referral{
		ID:             uuid.New(),
		TenantID:       suite.tenantID,
		UserID:         suite.userID,
		Code:           "cafe0123",
		SelectedReward: "$50 gift card",
		Status:         models.ReferralStatusOpen,
	}

	suite.mock.ExpectExec(`INSERT INTO referrals`).
		WithArgs(referral.ID, referral.TenantID, referral.UserID, referral.Code,
			referral.ProspectName, referral.ProspectEmail, referral.SelectedReward, referral.Status).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := suite.repo.Create(suite.ctx, referral)
	assert.True(suite.T(), IsUniqueViolation(err))
}

func (suite *ReferralRepoTestSuite) TestGetByCode_ScopedToTenant() {
	referralID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "code", "prospect_name", "prospect_email",
		"selected_reward", "status", "created_at", "updated_at"}).
		AddRow(referralID, suite.tenantID, suite.userID, "cafe0123", nil, nil, "$50 gift card", models.ReferralStatusOpen, now, now)

	suite.mock.ExpectQuery(`SELECT .+ FROM referrals WHERE tenant_id = \$1 AND code = \$2`).
		WithArgs(suite.tenantID, "cafe0123").
		WillReturnRows(rows)

	referral, err := suite.repo.GetByCode(suite.ctx, suite.tenantID, "cafe0123")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), referralID, referral.ID)
	assert.Equal(suite.T(), models.ReferralStatusOpen, referral.Status)
}

func (suite *ReferralRepoTestSuite) TestGetByCode_OtherTenantInvisible() {
	suite.mock.ExpectQuery(`SELECT .+ FROM referrals WHERE tenant_id = \$1 AND code = \$2`).
		WithArgs(suite.tenantID, "cafe0123").
		WillReturnError(pgx.ErrNoRows)

	referral, err := suite.repo.GetByCode(suite.ctx, suite.tenantID, "cafe0123")
	assert.Nil(suite.T(), referral)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
}

func (suite *ReferralRepoTestSuite) TestList_UsedComputedFromEstimate() {
	now := time.Now()
	estimateID := uuid.New()

	rows := pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "code", "prospect_name", "prospect_email",
		"selected_reward", "status", "created_at", "updated_at", "name", "email", "e.id"}).
		AddRow(uuid.New(), suite.tenantID, suite.userID, "cafe0123", nil, nil, "$50 gift card",
			models.ReferralStatusUsed, now, now, "Jordan", "client@example.com", &estimateID).
		AddRow(uuid.New(), suite.tenantID, suite.userID, "beef4567", nil, nil, "$50 gift card",
			models.ReferralStatusOpen, now, now, "Jordan", "client@example.com", nil)

	suite.mock.ExpectQuery(`SELECT r\.id, .+ FROM referrals r`).
		WithArgs(suite.tenantID, 50, 0).
		WillReturnRows(rows)

	referrals, err := suite.repo.List(suite.ctx, suite.tenantID, 50, 0)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), referrals, 2)
	assert.True(suite.T(), referrals[0].Used)
	assert.False(suite.T(), referrals[1].Used)
	assert.Equal(suite.T(), "Jordan", referrals[0].ReferrerName)
}

func (suite *ReferralRepoTestSuite) TestUpdateStatus_NoRowsIsNotFound() {
	referralID := uuid.New()

	suite.mock.ExpectExec(`UPDATE referrals SET status = \$1`).
		WithArgs(models.ReferralStatusClosed, suite.tenantID, referralID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.UpdateStatus(suite.ctx, suite.tenantID, referralID, models.ReferralStatusClosed)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
}

func (suite *ReferralRepoTestSuite) TestDeleteByIDs_CascadesEstimatesInTx() {
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`DELETE FROM estimates WHERE tenant_id = \$1 AND referral_id = ANY\(\$2\)`).
		WithArgs(suite.tenantID, ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	suite.mock.ExpectExec(`DELETE FROM referrals WHERE tenant_id = \$1 AND id = ANY\(\$2\)`).
		WithArgs(suite.tenantID, ids).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	suite.mock.ExpectCommit()
	suite.mock.ExpectRollback()

	deleted, err := suite.repo.DeleteByIDs(suite.ctx, suite.tenantID, ids)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), deleted)
}

func (suite *ReferralRepoTestSuite) TestDeleteByIDs_EstimateDeleteFailureRollsBack() {
	ids := []uuid.UUID{uuid.New()}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`DELETE FROM estimates`).
		WithArgs(suite.tenantID, ids).
		WillReturnError(pgx.ErrTxClosed)
	suite.mock.ExpectRollback()

	deleted, err := suite.repo.DeleteByIDs(suite.ctx, suite.tenantID, ids)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), int64(0), deleted)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ReferralRepoTestSuite) TestDeleteByIDs_EmptyInput() {
	deleted, err := suite.repo.DeleteByIDs(suite.ctx, suite.tenantID, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), deleted)
}
