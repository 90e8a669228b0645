package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHostHeader lets browser clients served from a shared frontend pass
// the tenant-facing hostname explicitly instead of relying on the Host header.
const TenantHostHeader = "X-Tenant-Host"

// Bound on how much of a request body the middleware will read looking for a
// tenantSlug override.
const maxSlugPeekBytes = 1 << 20

// TenantMiddleware resolves the tenant for every request and stores its
// identity in the request context before handlers run.
func TenantMiddleware(resolver services.TenantResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := c.Request().Header.Get(TenantHostHeader)
			if host == "" {
				host = c.Request().Host
			}
			slugOverride := c.QueryParam("tenantSlug")
			if slugOverride == "" {
				slugOverride = bodyTenantSlug(c)
			}

			tenant, err := resolver.Resolve(c.Request().Context(), common.NormalizeHost(host), slugOverride)
			if err != nil {
				if errors.Is(err, services.ErrTenantNotFound) || errors.Is(err, services.ErrNoTenants) {
					return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve tenant")
			}

			ctx := context.WithValue(c.Request().Context(), common.TenantIDKey, tenant.TenantID)
			ctx = context.WithValue(ctx, common.TenantSlugKey, tenant.TenantSlug)
			ctx = context.WithValue(ctx, common.TenantContextKey, tenant)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// bodyTenantSlug peeks a JSON request body for a tenantSlug override, then
// restores the body so handler binding still sees it. POST endpoints accept
// the override in the body as well as the query string.
func bodyTenantSlug(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}

	orig := req.Body
	buf, err := io.ReadAll(io.LimitReader(orig, maxSlugPeekBytes))
	req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), orig))
	if err != nil {
		return ""
	}

	var payload struct {
		TenantSlug string `json:"tenantSlug"`
	}
	if err := json.Unmarshal(buf, &payload); err != nil {
		return ""
	}
	return payload.TenantSlug
}

// GetTenantContextFromContext extracts the resolved tenant from the request context
func GetTenantContextFromContext(ctx context.Context) (*models.TenantContext, bool) {
	tenant, ok := ctx.Value(common.TenantContextKey).(*models.TenantContext)
	return tenant, ok
}
