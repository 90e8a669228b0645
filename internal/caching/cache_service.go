package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caldana20/referral-sys/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService is the injected cache abstraction used by the tenant resolver.
// Process-local state would break under horizontal scaling, so the production
// implementation is Redis; tests use the in-memory one.
type CacheService interface {
	GetTenantContext(ctx context.Context, host string) (*models.TenantContext, error)
	SetTenantContext(ctx context.Context, host string, tc *models.TenantContext, ttl time.Duration) error
	// DeleteTenantContext drops a host's cached mapping so host changes take
	// effect immediately instead of after the TTL.
	DeleteTenantContext(ctx context.Context, host string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as bare host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func hostKey(host string) string {
	return fmt.Sprintf("referral:tenant_host:%s", host)
}

func (r *redisCacheService) GetTenantContext(ctx context.Context, host string) (*models.TenantContext, error) {
	data, err := r.client.Get(ctx, hostKey(host)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var tc models.TenantContext
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

func (r *redisCacheService) SetTenantContext(ctx context.Context, host string, tc *models.TenantContext, ttl time.Duration) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, hostKey(host), data, ttl).Err()
}

func (r *redisCacheService) DeleteTenantContext(ctx context.Context, host string) error {
	return r.client.Del(ctx, hostKey(host)).Err()
}
