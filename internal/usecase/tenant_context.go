package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/adapter/metrics"
	"github.com/user/rag-orchestrator/internal/domain"
)

// TenantContextCache is a write-invalidated, in-process cache mapping tenant
// identity to resolved runtime context. Entries have no time-based expiry:
// correctness depends on every identity-store mutator calling Invalidate.
//
// It is constructed once at process start and injected into every handler
// that needs tenant context, so tests can instantiate isolated instances.
type TenantContextCache struct {
	repo    domain.TenantRepository
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[uuid.UUID]domain.TenantContext
	// generations is bumped by Invalidate. A fetched context is only stored
	// if the generation observed before the fetch is still current, so an
	// invalidation landing mid-fetch can never be overwritten by the stale
	// record that fetch returns.
	generations map[uuid.UUID]uint64
}

// NewTenantContextCache creates a new cache in front of the identity store.
// Metrics may be nil.
func NewTenantContextCache(repo domain.TenantRepository, logger *slog.Logger, m *metrics.Metrics) *TenantContextCache {
	return &TenantContextCache{
		repo:        repo,
		logger:      logger.With("component", "tenant_context_cache"),
		metrics:     m,
		entries:     make(map[uuid.UUID]domain.TenantContext),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Get returns the tenant's resolved context. A warm entry is returned
// without touching the identity store unless forceRefresh is set. On a miss
// or refresh the current record is read and validated; records missing
// resourceId or indexPath fail with ErrResourceIncomplete.
func (c *TenantContextCache) Get(ctx context.Context, identity uuid.UUID, forceRefresh bool) (domain.TenantContext, error) {
	if !forceRefresh {
		c.mu.RLock()
		tc, ok := c.entries[identity]
		c.mu.RUnlock()
		if ok {
			if c.metrics != nil {
				c.metrics.ContextCacheHits.Inc()
			}
			return tc, nil
		}
	}

	if c.metrics != nil {
		c.metrics.ContextCacheMisses.Inc()
	}

	c.mu.RLock()
	gen := c.generations[identity]
	c.mu.RUnlock()

	// The store read happens outside the lock. Two concurrent misses for the
	// same identity may both fetch and both populate; the fetch is a pure
	// idempotent read, so the duplicate round-trip is accepted over holding
	// the write lock across it.
	record, err := c.repo.FindByID(ctx, identity)
	if err != nil {
		return domain.TenantContext{}, err
	}

	if !record.Complete() {
		return domain.TenantContext{}, fmt.Errorf("tenant %s: %w", identity, domain.ErrResourceIncomplete)
	}

	tc := domain.TenantContext{
		Identity:       identity,
		ResourceFields: record.ResourceFields,
		FetchedAt:      time.Now().UTC(),
	}

	c.mu.Lock()
	if c.generations[identity] == gen {
		c.entries[identity] = tc
	}
	c.mu.Unlock()

	return tc, nil
}

// Invalidate evicts the cached entry for an identity so the next Get
// re-reads the identity store. Every operation that mutates a tenant
// record's resource-relevant fields, or deletes the record, must call this.
func (c *TenantContextCache) Invalidate(identity uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, identity)
	c.generations[identity]++
	c.mu.Unlock()
	c.logger.Debug("invalidated tenant context", "identity", identity)
}

// Len reports the number of cached entries.
func (c *TenantContextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
