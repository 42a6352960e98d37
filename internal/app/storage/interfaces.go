package storage

import (
	"context"
	"errors"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
)

// ErrNotFound marks expected lookup misses. Every store implementation wraps
// it so callers can separate a miss from an infrastructure failure.
var ErrNotFound = errors.New("record not found")

// TenantStore persists tenants and their themes.
type TenantStore interface {
	CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)

	UpsertTheme(ctx context.Context, th tenant.Theme) (tenant.Theme, error)
	GetActiveTheme(ctx context.Context, tenantID string) (tenant.Theme, error)
}

// CatalogStore persists page types, route prefixes and global component
// definitions. Lookups are point reads by (tenant, code) or ordered scans by
// tenant.
type CatalogStore interface {
	CreatePageType(ctx context.Context, pt catalog.PageType) (catalog.PageType, error)
	GetPageType(ctx context.Context, tenantID, code string) (catalog.PageType, error)
	GetPageTypeByRole(ctx context.Context, tenantID string, role catalog.Role) (catalog.PageType, error)
	FindSinglePageType(ctx context.Context, tenantID, dataSource string) (catalog.PageType, error)
	ListPageTypes(ctx context.Context, tenantID string) ([]catalog.PageType, error)

	CreatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error)
	UpdatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error)
	ListPrefixes(ctx context.Context, tenantID string) ([]catalog.PrefixConfig, error)

	CreateDefinition(ctx context.Context, def catalog.ComponentDefinition) (catalog.ComponentDefinition, error)
	GetDefinition(ctx context.Context, kind string) (catalog.ComponentDefinition, error)
	ListDefinitions(ctx context.Context) ([]catalog.ComponentDefinition, error)
}

// ComponentStore persists component instances and configuration snapshots.
// List results are ordered by (order, created_at).
type ComponentStore interface {
	CreateInstance(ctx context.Context, inst component.Instance) (component.Instance, error)
	UpdateInstance(ctx context.Context, inst component.Instance) (component.Instance, error)
	GetInstance(ctx context.Context, id string) (component.Instance, error)
	DeleteInstance(ctx context.Context, id string) error
	ListByPageType(ctx context.Context, tenantID, pageTypeCode string) ([]component.Instance, error)
	ListByCustomRoute(ctx context.Context, tenantID, route string) ([]component.Instance, error)
	ListGlobal(ctx context.Context, tenantID string) ([]component.Instance, error)

	CreateSnapshot(ctx context.Context, snap component.Snapshot) (component.Snapshot, error)
	UpdateSnapshot(ctx context.Context, snap component.Snapshot) (component.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (component.Snapshot, error)
	ListSnapshots(ctx context.Context, tenantID, pageTypeCode string) ([]component.Snapshot, error)
}

// ContentStore persists the domain records served by dynamic-data providers.
type ContentStore interface {
	CreateRecord(ctx context.Context, rec content.Record) (content.Record, error)
	UpdateRecord(ctx context.Context, rec content.Record) (content.Record, error)
	GetRecordBySlug(ctx context.Context, tenantID, collection, locale, slug string) (content.Record, error)
	ListRecords(ctx context.Context, tenantID, collection string, q content.Query) ([]content.Record, error)
}
