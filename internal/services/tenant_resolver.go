package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/caldana20/referral-sys/internal/caching"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/jackc/pgx/v5"
)

// Host mappings are cached for this long; a changed mapping takes up to one
// TTL to be seen everywhere.
const tenantHostCacheTTL = 5 * time.Minute

// TenantResolver maps an inbound host (or explicit slug override) to the
// tenant identity every request runs under.
type TenantResolver interface {
	// Resolve returns the tenant for the given host. slugOverride wins over
	// the host when present. ErrNoTenants means the system has no tenants at
	// all, which is a fatal configuration error, not a per-request one.
	Resolve(ctx context.Context, host, slugOverride string) (*models.TenantContext, error)

	// WarmCache re-resolves known hosts so steady-state requests hit the
	// cache. Driven by the background scheduler.
	WarmCache(ctx context.Context) error
}

type tenantResolver struct {
	tenantRepo     repositories.TenantRepository
	tenantHostRepo repositories.TenantHostRepository
	cache          caching.CacheService
	defaultSlug    string
}

func NewTenantResolver(tenantRepo repositories.TenantRepository, tenantHostRepo repositories.TenantHostRepository,
	cache caching.CacheService, defaultSlug string) TenantResolver {
	return &tenantResolver{
		tenantRepo:     tenantRepo,
		tenantHostRepo: tenantHostRepo,
		cache:          cache,
		defaultSlug:    defaultSlug,
	}
}

func (r *tenantResolver) Resolve(ctx context.Context, host, slugOverride string) (*models.TenantContext, error) {
	if slugOverride != "" {
		tenant, err := r.tenantRepo.GetBySlug(ctx, slugOverride)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTenantNotFound
			}
			return nil, err
		}
		return tenantContext(tenant), nil
	}

	if host != "" {
		if tc, err := r.cache.GetTenantContext(ctx, host); err != nil {
			log.Printf("tenant resolver: cache read failed for host %s: %v", host, err)
		} else if tc != nil {
			return tc, nil
		}

		tc, err := r.tenantHostRepo.ResolveHost(ctx, host)
		if err == nil {
			if cacheErr := r.cache.SetTenantContext(ctx, host, tc, tenantHostCacheTTL); cacheErr != nil {
				log.Printf("tenant resolver: cache write failed for host %s: %v", host, cacheErr)
			}
			return tc, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	// Unknown host: fall back to the configured default tenant, then the
	// oldest tenant. Fallbacks are not written through to the cache.
	if r.defaultSlug != "" {
		tenant, err := r.tenantRepo.GetBySlug(ctx, r.defaultSlug)
		if err == nil {
			return tenantContext(tenant), nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	tenant, err := r.tenantRepo.GetOldest(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTenants
		}
		return nil, err
	}
	return tenantContext(tenant), nil
}

func (r *tenantResolver) WarmCache(ctx context.Context) error {
	tenants, err := r.tenantRepo.ListPublic(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		hosts, err := r.tenantHostRepo.ListByTenant(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			tc := &models.TenantContext{TenantID: t.ID, TenantSlug: t.Slug, TenantName: t.Name}
			if err := r.cache.SetTenantContext(ctx, h.Host, tc, tenantHostCacheTTL); err != nil {
				log.Printf("tenant resolver: warm failed for host %s: %v", h.Host, err)
			}
		}
	}
	return nil
}

func tenantContext(tenant *models.Tenant) *models.TenantContext {
	return &models.TenantContext{
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		TenantName: tenant.Name,
	}
}
