package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/metrics"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// CatalogCache is a read-through decorator over a CatalogStore. Every page
// render hits the catalog several times, so lookups are cached as JSON and
// invalidated per tenant on any write.
type CatalogCache struct {
	store storage.CatalogStore
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

var _ storage.CatalogStore = (*CatalogCache)(nil)

// NewCatalogCache wraps store with the given cache backend. A zero ttl keeps
// entries until the next invalidation.
func NewCatalogCache(store storage.CatalogStore, cache Cache, ttl time.Duration, log *logger.Logger) *CatalogCache {
	if log == nil {
		log = logger.NewDefault("catalog-cache")
	}
	return &CatalogCache{store: store, cache: cache, ttl: ttl, log: log}
}

func tenantKey(tenantID string, parts ...string) string {
	return "catalog:" + tenantID + ":" + strings.Join(parts, ":")
}

// Invalidate drops every cached catalog entry for the tenant.
func (c *CatalogCache) Invalidate(ctx context.Context, tenantID string) {
	if err := c.cache.DeletePrefix(ctx, "catalog:"+tenantID+":"); err != nil {
		c.log.WithError(err).WithField("tenant", tenantID).Warn("catalog cache invalidation failed")
	}
}

func (c *CatalogCache) invalidateDefinitions(ctx context.Context) {
	if err := c.cache.DeletePrefix(ctx, "catalog:defs"); err != nil {
		c.log.WithError(err).Warn("definition cache invalidation failed")
	}
}

// readThrough fills dst from the cache or falls back to load. Cache failures
// degrade to direct store reads, never to errors. Misses from the store are
// not cached.
func (c *CatalogCache) readThrough(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			metrics.RecordCacheOp("hit")
			return nil
		}
	}
	metrics.RecordCacheOp("miss")

	value, err := load()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err == nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			return err
		}
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("cache write failed")
		}
	}
	return nil
}

func (c *CatalogCache) CreatePageType(ctx context.Context, pt catalog.PageType) (catalog.PageType, error) {
	created, err := c.store.CreatePageType(ctx, pt)
	if err == nil {
		c.Invalidate(ctx, created.TenantID)
	}
	return created, err
}

func (c *CatalogCache) GetPageType(ctx context.Context, tenantID, code string) (catalog.PageType, error) {
	var pt catalog.PageType
	err := c.readThrough(ctx, tenantKey(tenantID, "pagetype", strings.ToLower(code)), &pt, func() (any, error) {
		return c.store.GetPageType(ctx, tenantID, code)
	})
	return pt, err
}

func (c *CatalogCache) GetPageTypeByRole(ctx context.Context, tenantID string, role catalog.Role) (catalog.PageType, error) {
	var pt catalog.PageType
	err := c.readThrough(ctx, tenantKey(tenantID, "role", string(role)), &pt, func() (any, error) {
		return c.store.GetPageTypeByRole(ctx, tenantID, role)
	})
	return pt, err
}

func (c *CatalogCache) FindSinglePageType(ctx context.Context, tenantID, dataSource string) (catalog.PageType, error) {
	var pt catalog.PageType
	err := c.readThrough(ctx, tenantKey(tenantID, "single", dataSource), &pt, func() (any, error) {
		return c.store.FindSinglePageType(ctx, tenantID, dataSource)
	})
	return pt, err
}

func (c *CatalogCache) ListPageTypes(ctx context.Context, tenantID string) ([]catalog.PageType, error) {
	var types []catalog.PageType
	err := c.readThrough(ctx, tenantKey(tenantID, "pagetypes"), &types, func() (any, error) {
		return c.store.ListPageTypes(ctx, tenantID)
	})
	return types, err
}

func (c *CatalogCache) CreatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	created, err := c.store.CreatePrefix(ctx, p)
	if err == nil {
		c.Invalidate(ctx, created.TenantID)
	}
	return created, err
}

func (c *CatalogCache) UpdatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	updated, err := c.store.UpdatePrefix(ctx, p)
	if err == nil {
		c.Invalidate(ctx, updated.TenantID)
	}
	return updated, err
}

func (c *CatalogCache) ListPrefixes(ctx context.Context, tenantID string) ([]catalog.PrefixConfig, error) {
	var prefixes []catalog.PrefixConfig
	err := c.readThrough(ctx, tenantKey(tenantID, "prefixes"), &prefixes, func() (any, error) {
		return c.store.ListPrefixes(ctx, tenantID)
	})
	return prefixes, err
}

func (c *CatalogCache) CreateDefinition(ctx context.Context, def catalog.ComponentDefinition) (catalog.ComponentDefinition, error) {
	created, err := c.store.CreateDefinition(ctx, def)
	if err == nil {
		c.invalidateDefinitions(ctx)
	}
	return created, err
}

func (c *CatalogCache) GetDefinition(ctx context.Context, kind string) (catalog.ComponentDefinition, error) {
	var def catalog.ComponentDefinition
	err := c.readThrough(ctx, "catalog:defs:"+strings.ToLower(kind), &def, func() (any, error) {
		return c.store.GetDefinition(ctx, kind)
	})
	return def, err
}

func (c *CatalogCache) ListDefinitions(ctx context.Context) ([]catalog.ComponentDefinition, error) {
	var defs []catalog.ComponentDefinition
	err := c.readThrough(ctx, "catalog:defs:all", &defs, func() (any, error) {
		return c.store.ListDefinitions(ctx)
	})
	return defs, err
}
