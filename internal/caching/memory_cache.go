package caching

import (
	"context"
	"sync"
	"time"

	"github.com/caldana20/referral-sys/internal/models"
)

type memoryEntry struct {
	tc      *models.TenantContext
	expires time.Time
}

// memoryCacheService is a TTL map for tests and single-instance deployments.
type memoryCacheService struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCacheService() CacheService {
	return &memoryCacheService{entries: make(map[string]memoryEntry)}
}

func (m *memoryCacheService) get(key string) (memoryEntry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *memoryCacheService) set(key string, entry memoryEntry, ttl time.Duration) {
	entry.expires = time.Now().Add(ttl)
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

func (m *memoryCacheService) GetTenantContext(_ context.Context, host string) (*models.TenantContext, error) {
	entry, ok := m.get(hostKey(host))
	if !ok {
		return nil, nil
	}
	return entry.tc, nil
}

func (m *memoryCacheService) SetTenantContext(_ context.Context, host string, tc *models.TenantContext, ttl time.Duration) error {
	m.set(hostKey(host), memoryEntry{tc: tc}, ttl)
	return nil
}

func (m *memoryCacheService) DeleteTenantContext(_ context.Context, host string) error {
	m.mu.Lock()
	delete(m.entries, hostKey(host))
	m.mu.Unlock()
	return nil
}
