package app

import (
	"context"
	"errors"
	"time"

	"github.com/pagecraft/render-engine/internal/app/cache"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/metrics"
	"github.com/pagecraft/render-engine/internal/app/services/assembler"
	"github.com/pagecraft/render-engine/internal/app/services/components"
	"github.com/pagecraft/render-engine/internal/app/services/composer"
	"github.com/pagecraft/render-engine/internal/app/services/dyndata"
	"github.com/pagecraft/render-engine/internal/app/services/router"
	"github.com/pagecraft/render-engine/internal/app/services/tenants"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/internal/app/storage/memory"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// Stores bundles the persistence interfaces the engine depends on. Any nil
// field falls back to a shared in-memory store, which keeps tests and local
// development free of external services.
type Stores struct {
	Tenants    storage.TenantStore
	Catalog    storage.CatalogStore
	Components storage.ComponentStore
	Content    storage.ContentStore
}

// Options configures an Application.
type Options struct {
	Stores Stores
	// Cache backs the catalog read-through cache. Nil means in-memory.
	Cache cache.Cache
	// CacheTTL bounds cached catalog entries. Zero keeps entries until a
	// write invalidates them.
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// Application wires the render pipeline and the administrative services.
type Application struct {
	log *logger.Logger

	router     *router.Service
	composer   *composer.Service
	dyndata    *dyndata.Service
	assembler  *assembler.Service
	components *components.Service
	tenants    *tenants.Service

	catalogCache *cache.CatalogCache
}

// New builds an Application from the given options.
func New(opts Options) *Application {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("render-engine")
	}

	stores := opts.Stores
	if stores.Tenants == nil || stores.Catalog == nil || stores.Components == nil || stores.Content == nil {
		fallback := memory.New()
		if stores.Tenants == nil {
			stores.Tenants = fallback
		}
		if stores.Catalog == nil {
			stores.Catalog = fallback
		}
		if stores.Components == nil {
			stores.Components = fallback
		}
		if stores.Content == nil {
			stores.Content = fallback
		}
	}

	backend := opts.Cache
	if backend == nil {
		backend = cache.NewMemory()
	}
	catalogCache := cache.NewCatalogCache(stores.Catalog, backend, opts.CacheTTL, log.WithField("component", "catalog-cache"))

	app := &Application{
		log:          log,
		catalogCache: catalogCache,
	}
	app.router = router.New(stores.Tenants, catalogCache, stores.Content, log.WithField("component", "router"))
	app.composer = composer.New(stores.Components, catalogCache, log.WithField("component", "composer"))
	app.dyndata = dyndata.New(dyndata.NewRegistry(stores.Content), log.WithField("component", "dyndata"))
	app.assembler = assembler.New(stores.Tenants, catalogCache, log.WithField("component", "assembler"))
	app.components = components.New(stores.Components, catalogCache, log.WithField("component", "components"))
	app.tenants = tenants.New(stores.Tenants, catalogCache, stores.Content, catalogCache, log.WithField("component", "tenants"))
	return app
}

// Render runs the full pipeline for one request: resolve the route, compose
// the component list, resolve dynamic data and assemble the payload.
func (a *Application) Render(ctx context.Context, tenantID, path, locale string) (page.Payload, error) {
	start := time.Now()

	match, err := a.router.Resolve(ctx, tenantID, path, locale)
	if err != nil {
		if errors.Is(err, page.ErrNotFound) {
			metrics.RecordResolution("not_found")
			metrics.RecordRender("not_found", time.Since(start))
		} else {
			metrics.RecordResolution("error")
			metrics.RecordRender("error", time.Since(start))
		}
		return page.Payload{}, err
	}
	metrics.RecordResolution("ok")

	composed, err := a.composer.Compose(ctx, tenantID, match.PageTypeCode)
	if err != nil {
		metrics.RecordRender("error", time.Since(start))
		return page.Payload{}, err
	}

	resolved := a.dyndata.Resolve(ctx, tenantID, match, composed)

	payload, err := a.assembler.Assemble(ctx, tenantID, path, match, resolved)
	if err != nil {
		metrics.RecordRender("error", time.Since(start))
		return page.Payload{}, err
	}
	metrics.RecordRender("ok", time.Since(start))
	return payload, nil
}

// Router exposes the route resolver.
func (a *Application) Router() *router.Service { return a.router }

// Composer exposes the composition engine.
func (a *Application) Composer() *composer.Service { return a.composer }

// Components exposes the component admin service.
func (a *Application) Components() *components.Service { return a.components }

// Tenants exposes the tenant admin service.
func (a *Application) Tenants() *tenants.Service { return a.tenants }

// CatalogCache exposes the read-through catalog cache for invalidation.
func (a *Application) CatalogCache() *cache.CatalogCache { return a.catalogCache }
