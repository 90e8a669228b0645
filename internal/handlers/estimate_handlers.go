package handlers

import (
	"errors"
	"net/http"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/middleware"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/labstack/echo/v4"
)

// EstimateHandlers handles estimate intake and admin review
type EstimateHandlers struct {
	estimateService services.EstimateService
}

func NewEstimateHandlers(estimateService services.EstimateService) *EstimateHandlers {
	return &EstimateHandlers{estimateService: estimateService}
}

// SubmitEstimate accepts a prospect's estimate request against a referral
// link. Public: the prospect is not a registered user.
func (h *EstimateHandlers) SubmitEstimate(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.SubmitEstimateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, ok := middleware.GetTenantContextFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}

	estimate, err := h.estimateService.Submit(ctx, tenant, &req)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrReferralUsed), errors.Is(err, services.ErrReferralNotActive):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to submit estimate")
		}
	}

	return c.JSON(http.StatusCreated, estimate)
}

// ListEstimatesRequest represents query parameters for listing estimates
type ListEstimatesRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListEstimates returns the tenant's estimate requests
func (h *EstimateHandlers) ListEstimates(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListEstimatesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	estimates, err := h.estimateService.List(ctx, tenantID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list estimates")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"estimates": estimates,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetEstimate returns a single estimate along with the field schema it was
// validated against, so admin UIs can label custom fields.
func (h *EstimateHandlers) GetEstimate(c echo.Context) error {
	ctx := c.Request().Context()

	estimateID, err := common.ValidateUUID(c.Param("id"), "estimate id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	estimate, fieldConfig, err := h.estimateService.GetByID(ctx, tenantID, estimateID)
	if err != nil {
		if errors.Is(err, services.ErrEstimateNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get estimate")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"estimate":    estimate,
		"fieldConfig": fieldConfig,
	})
}
