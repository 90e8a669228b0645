package handlers

import (
	"errors"
	"net/http"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/middleware"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ReferralHandlers handles referral-related HTTP requests
type ReferralHandlers struct {
	referralService services.ReferralService
}

func NewReferralHandlers(referralService services.ReferralService) *ReferralHandlers {
	return &ReferralHandlers{referralService: referralService}
}

// CreateReferral issues a referral link for an existing client of the tenant.
// Public: the client identifies themselves by email.
func (h *ReferralHandlers) CreateReferral(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.CreateReferralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, ok := middleware.GetTenantContextFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}

	referral, err := h.referralService.Create(ctx, tenant, &req)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrClientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create referral")
		}
	}

	return c.JSON(http.StatusCreated, referral)
}

// GetReferralByCode resolves a referral link for the public estimate form
func (h *ReferralHandlers) GetReferralByCode(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Referral code is required")
	}

	tenant, ok := middleware.GetTenantContextFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}

	lookup, err := h.referralService.GetByCode(ctx, tenant, code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidReferralCode) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up referral")
	}

	return c.JSON(http.StatusOK, lookup)
}

// ListReferralsRequest represents query parameters for listing referrals
type ListReferralsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListReferrals returns the tenant's referrals with referrer and usage info
func (h *ReferralHandlers) ListReferrals(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListReferralsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	referrals, err := h.referralService.List(ctx, tenantID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list referrals")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"referrals": referrals,
		"limit":     limit,
		"offset":    offset,
	})
}

// UpdateReferralStatusRequest represents the status update payload
type UpdateReferralStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateReferralStatus moves a referral to a new lifecycle status
func (h *ReferralHandlers) UpdateReferralStatus(c echo.Context) error {
	ctx := c.Request().Context()

	referralID, err := common.ValidateUUID(c.Param("id"), "referral id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req UpdateReferralStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	referral, err := h.referralService.UpdateStatus(ctx, tenantID, referralID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReferralNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update referral")
		}
	}

	return c.JSON(http.StatusOK, referral)
}

// BulkDeleteReferralsRequest represents the bulk delete payload
type BulkDeleteReferralsRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// BulkDeleteReferrals deletes referrals and their estimates in one transaction
func (h *ReferralHandlers) BulkDeleteReferrals(c echo.Context) error {
	ctx := c.Request().Context()

	var req BulkDeleteReferralsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, idStr := range req.IDs {
		id, err := common.ValidateUUID(idStr, "referral id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		ids = append(ids, id)
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	deleted, err := h.referralService.BulkDelete(ctx, tenantID, ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete referrals")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}
