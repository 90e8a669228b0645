package handlers

import (
	"errors"
	"net/http"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers handles tenant onboarding and settings
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

// PreviewOnboardingRequest represents the onboarding preview payload
type PreviewOnboardingRequest struct {
	CompanyName string `json:"companyName" validate:"required"`
}

// PreviewOnboarding returns the slug and client URL a new tenant would get,
// without creating anything
func (h *TenantHandlers) PreviewOnboarding(c echo.Context) error {
	var req PreviewOnboardingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	preview, err := h.tenantService.Preview(req.CompanyName)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to preview onboarding")
	}

	return c.JSON(http.StatusOK, preview)
}

// ConfirmOnboarding creates the tenant and its first admin atomically
func (h *TenantHandlers) ConfirmOnboarding(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.ConfirmOnboardingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenant, admin, err := h.tenantService.Confirm(ctx, &req)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrDuplicateSlug):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create tenant")
		}
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"tenant": tenant,
		"admin":  admin,
	})
}

// ListPublicTenants returns the id, name, slug and logo of every tenant.
// Used by the shared frontend's tenant picker.
func (h *TenantHandlers) ListPublicTenants(c echo.Context) error {
	tenants, err := h.tenantService.ListPublic(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list tenants")
	}
	return c.JSON(http.StatusOK, tenants)
}

// GetSettings returns the authenticated tenant's full settings
func (h *TenantHandlers) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	tenant, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get tenant")
	}

	return c.JSON(http.StatusOK, tenant)
}

// UpdateSettings updates tenant contact info and the estimate field schema
func (h *TenantHandlers) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.UpdateTenantSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	tenant, err := h.tenantService.UpdateSettings(ctx, tenantID, &req)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrTenantNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update tenant")
		}
	}

	return c.JSON(http.StatusOK, tenant)
}

// UploadLogo stores the tenant's logo in object storage and saves its URL
func (h *TenantHandlers) UploadLogo(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "logo file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read logo file")
	}
	defer file.Close()

	url, err := h.tenantService.UploadLogo(ctx, tenantID, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload logo")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"logoUrl": url,
	})
}

// ListHosts returns the custom domains mapped to the authenticated tenant
func (h *TenantHandlers) ListHosts(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	hosts, err := h.tenantService.ListHosts(ctx, tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list hosts")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"hosts": hosts,
	})
}

// AddHost maps a custom domain to the authenticated tenant
func (h *TenantHandlers) AddHost(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.AddHostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	host, err := h.tenantService.AddHost(ctx, tenantID, &req)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrDuplicateHost):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add host")
		}
	}

	return c.JSON(http.StatusCreated, host)
}

// RemoveHost unmaps a custom domain from the authenticated tenant
func (h *TenantHandlers) RemoveHost(c echo.Context) error {
	ctx := c.Request().Context()

	hostID, err := common.ValidateUUID(c.Param("id"), "host id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	if err := h.tenantService.RemoveHost(ctx, tenantID, hostID); err != nil {
		if errors.Is(err, services.ErrHostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to remove host")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Host removed",
	})
}
