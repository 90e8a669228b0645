package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockTenantResolver struct {
	mock.Mock
}

func (m *MockTenantResolver) Resolve(ctx context.Context, host, slugOverride string) (*models.TenantContext, error) {
	args := m.Called(ctx, host, slugOverride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantContext), args.Error(1)
}

func (m *MockTenantResolver) WarmCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type TenantMiddlewareTestSuite struct {
	suite.Suite
	resolver *MockTenantResolver
	tenant   *models.TenantContext
	e        *echo.Echo
}

func (suite *TenantMiddlewareTestSuite) SetupTest() {
	suite.resolver = &MockTenantResolver{}
	suite.tenant = &models.TenantContext{TenantID: uuid.New(), TenantSlug: "acme", TenantName: "Acme Pest Control"}
	suite.e = echo.New()
}

func (suite *TenantMiddlewareTestSuite) TearDownTest() {
	suite.resolver.AssertExpectations(suite.T())
}

func TestTenantMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(TenantMiddlewareTestSuite))
}

func (suite *TenantMiddlewareTestSuite) run(req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := suite.e.NewContext(req, rec)
	err := TenantMiddleware(suite.resolver)(handler)(c)
	return rec, err
}

func (suite *TenantMiddlewareTestSuite) TestQuerySlugOverride() {
	suite.resolver.On("Resolve", mock.Anything, "pest.example.com", "acme").Return(suite.tenant, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rewards/active?tenantSlug=acme", nil)
	req.Host = "pest.example.com"

	_, err := suite.run(req, func(c echo.Context) error {
		tenant, ok := GetTenantContextFromContext(c.Request().Context())
		assert.True(suite.T(), ok)
		assert.Equal(suite.T(), suite.tenant.TenantID, tenant.TenantID)
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(suite.T(), err)
}

func (suite *TenantMiddlewareTestSuite) TestBodySlugOverride() {
	suite.resolver.On("Resolve", mock.Anything, "unmapped.example.com", "acme").Return(suite.tenant, nil)

	body := `{"tenantSlug":"acme","referralCode":"cafe0123","name":"Sam Prospect"}`
	req := httptest.NewRequest(http.MethodPost, "/api/estimates", strings.NewReader(body))
	req.Host = "unmapped.example.com"
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	_, err := suite.run(req, func(c echo.Context) error {
		// The peek must not consume the body the handler binds
		replayed, readErr := io.ReadAll(c.Request().Body)
		assert.NoError(suite.T(), readErr)
		assert.JSONEq(suite.T(), body, string(replayed))
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(suite.T(), err)
}

func (suite *TenantMiddlewareTestSuite) TestQuerySlugWinsOverBody() {
	suite.resolver.On("Resolve", mock.Anything, "pest.example.com", "acme").Return(suite.tenant, nil)

	body := `{"tenantSlug":"other","email":"jane@acme.test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/referrals?tenantSlug=acme", strings.NewReader(body))
	req.Host = "pest.example.com"
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	_, err := suite.run(req, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(suite.T(), err)
}

func (suite *TenantMiddlewareTestSuite) TestNonJSONBodyIgnored() {
	suite.resolver.On("Resolve", mock.Anything, "pest.example.com", "").Return(suite.tenant, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tenants/logo", strings.NewReader("--boundary--"))
	req.Host = "pest.example.com"
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm)

	_, err := suite.run(req, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(suite.T(), err)
}

func (suite *TenantMiddlewareTestSuite) TestTenantHostHeaderPreferred() {
	suite.resolver.On("Resolve", mock.Anything, "acme.example.com", "").Return(suite.tenant, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rewards/active", nil)
	req.Host = "api.internal:8080"
	req.Header.Set(TenantHostHeader, "Acme.Example.COM:443")

	_, err := suite.run(req, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(suite.T(), err)
}

func (suite *TenantMiddlewareTestSuite) TestUnknownTenantIs404() {
	suite.resolver.On("Resolve", mock.Anything, "nowhere.example.com", "").Return(nil, services.ErrNoTenants)

	req := httptest.NewRequest(http.MethodGet, "/api/rewards/active", nil)
	req.Host = "nowhere.example.com"

	_, err := suite.run(req, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	var httpErr *echo.HTTPError
	assert.ErrorAs(suite.T(), err, &httpErr)
	assert.Equal(suite.T(), http.StatusNotFound, httpErr.Code)
}
