// Package tenants implements the administrative operations over tenants,
// themes, page types, route prefixes, component definitions and content.
package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

var (
	// ErrPrefixRole marks a prefix registration for a page type role that
	// must stay prefix-free. Single and category types resolve through
	// trailing segments; giving them a prefix would collide with entity
	// slugs.
	ErrPrefixRole = errors.New("page type role cannot register a route prefix")
	// ErrPrefixCodes marks a prefix whose level and page type codes do not
	// line up.
	ErrPrefixCodes = errors.New("prefix codes do not match its navigation level")
)

// Invalidator drops cached catalog state after a write. The catalog cache
// implements it; a no-op is used when caching is disabled.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

// Service is the tenant-facing admin surface.
type Service struct {
	tenants     storage.TenantStore
	catalog     storage.CatalogStore
	content     storage.ContentStore
	invalidator Invalidator
	log         *logger.Logger
}

// New creates the tenant admin service. invalidator may be nil.
func New(tenants storage.TenantStore, cat storage.CatalogStore, cont storage.ContentStore, invalidator Invalidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tenants")
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Service{tenants: tenants, catalog: cat, content: cont, invalidator: invalidator, log: log}
}

// CreateTenant registers a tenant. The default locale is always enabled.
func (s *Service) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if t.Name == "" {
		return tenant.Tenant{}, errors.New("tenant name required")
	}
	if t.DefaultLocale == "" {
		t.DefaultLocale = "es"
	}
	if !t.HasLocale(t.DefaultLocale) {
		t.Locales = append(t.Locales, t.DefaultLocale)
	}
	created, err := s.tenants.CreateTenant(ctx, t)
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	s.log.WithFields(map[string]any{"tenant": created.ID, "name": created.Name}).Info("tenant created")
	return created, nil
}

// UpdateTenant rewrites a tenant's settings.
func (s *Service) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if !t.HasLocale(t.DefaultLocale) {
		t.Locales = append(t.Locales, t.DefaultLocale)
	}
	updated, err := s.tenants.UpdateTenant(ctx, t)
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	return updated, nil
}

// GetTenant returns one tenant.
func (s *Service) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	return s.tenants.GetTenant(ctx, id)
}

// ListTenants returns every tenant.
func (s *Service) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	return s.tenants.ListTenants(ctx)
}

// UpsertTheme saves a palette. Activating one deactivates the others.
func (s *Service) UpsertTheme(ctx context.Context, th tenant.Theme) (tenant.Theme, error) {
	saved, err := s.tenants.UpsertTheme(ctx, th)
	if err != nil {
		return tenant.Theme{}, fmt.Errorf("save theme: %w", err)
	}
	return saved, nil
}

// CreatePageType adds a catalog entry and invalidates the tenant's cached
// catalog.
func (s *Service) CreatePageType(ctx context.Context, pt catalog.PageType) (catalog.PageType, error) {
	if pt.Code == "" {
		return catalog.PageType{}, errors.New("page type code required")
	}
	created, err := s.catalog.CreatePageType(ctx, pt)
	if err != nil {
		return catalog.PageType{}, fmt.Errorf("create page type: %w", err)
	}
	s.invalidator.Invalidate(ctx, created.TenantID)
	return created, nil
}

// ListPageTypes returns a tenant's catalog.
func (s *Service) ListPageTypes(ctx context.Context, tenantID string) ([]catalog.PageType, error) {
	return s.catalog.ListPageTypes(ctx, tenantID)
}

// CreatePrefix registers a route prefix after enforcing the role invariant:
// only static-, directory- and listing-role page types may sit behind a
// prefix.
func (s *Service) CreatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	if err := s.validatePrefix(ctx, p); err != nil {
		return catalog.PrefixConfig{}, err
	}
	created, err := s.catalog.CreatePrefix(ctx, p)
	if err != nil {
		return catalog.PrefixConfig{}, fmt.Errorf("create prefix: %w", err)
	}
	s.invalidator.Invalidate(ctx, created.TenantID)
	return created, nil
}

// UpdatePrefix rewrites a prefix under the same invariants as CreatePrefix.
func (s *Service) UpdatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	if err := s.validatePrefix(ctx, p); err != nil {
		return catalog.PrefixConfig{}, err
	}
	updated, err := s.catalog.UpdatePrefix(ctx, p)
	if err != nil {
		return catalog.PrefixConfig{}, fmt.Errorf("update prefix: %w", err)
	}
	s.invalidator.Invalidate(ctx, updated.TenantID)
	return updated, nil
}

// ListPrefixes returns a tenant's prefixes.
func (s *Service) ListPrefixes(ctx context.Context, tenantID string) ([]catalog.PrefixConfig, error) {
	return s.catalog.ListPrefixes(ctx, tenantID)
}

// CreateDefinition adds a global component definition.
func (s *Service) CreateDefinition(ctx context.Context, def catalog.ComponentDefinition) (catalog.ComponentDefinition, error) {
	if def.Kind == "" {
		return catalog.ComponentDefinition{}, errors.New("definition kind required")
	}
	created, err := s.catalog.CreateDefinition(ctx, def)
	if err != nil {
		return catalog.ComponentDefinition{}, fmt.Errorf("create definition: %w", err)
	}
	return created, nil
}

// ListDefinitions returns every component definition.
func (s *Service) ListDefinitions(ctx context.Context) ([]catalog.ComponentDefinition, error) {
	return s.catalog.ListDefinitions(ctx)
}

// CreateRecord adds a content record.
func (s *Service) CreateRecord(ctx context.Context, rec content.Record) (content.Record, error) {
	if rec.Collection == "" || rec.Slug == "" {
		return content.Record{}, errors.New("record collection and slug required")
	}
	created, err := s.content.CreateRecord(ctx, rec)
	if err != nil {
		return content.Record{}, fmt.Errorf("create record: %w", err)
	}
	return created, nil
}

// UpdateRecord rewrites a content record.
func (s *Service) UpdateRecord(ctx context.Context, rec content.Record) (content.Record, error) {
	updated, err := s.content.UpdateRecord(ctx, rec)
	if err != nil {
		return content.Record{}, fmt.Errorf("update record: %w", err)
	}
	return updated, nil
}

// validatePrefix checks the role invariant for every page type code the
// prefix references and that the codes fit the declared level.
func (s *Service) validatePrefix(ctx context.Context, p catalog.PrefixConfig) error {
	if p.Prefix == "" {
		return errors.New("prefix required")
	}
	switch p.Level {
	case catalog.LevelStatic:
		if p.StaticCode == "" {
			return fmt.Errorf("%w: level 0 needs a static code", ErrPrefixCodes)
		}
	case catalog.LevelDirectory:
		if p.DirectoryCode == "" || p.SingleCode == "" {
			return fmt.Errorf("%w: level 1 needs directory and single codes", ErrPrefixCodes)
		}
	case catalog.LevelListing:
		if p.ListingCode == "" || p.CategoryCode == "" || p.SingleCode == "" {
			return fmt.Errorf("%w: level 2 needs listing, category and single codes", ErrPrefixCodes)
		}
	default:
		return fmt.Errorf("%w: unknown level %d", ErrPrefixCodes, p.Level)
	}

	// Only the prefix-fronting codes are checked: the codes reached through
	// trailing segments (single, category) are allowed precisely because
	// they are not the prefix target.
	for _, code := range []string{p.StaticCode, p.DirectoryCode, p.ListingCode} {
		if code == "" {
			continue
		}
		pt, err := s.catalog.GetPageType(ctx, p.TenantID, code)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("page type %s not found", code)
			}
			return fmt.Errorf("load page type: %w", err)
		}
		switch pt.Role {
		case catalog.RoleSingle, catalog.RoleCategory:
			return fmt.Errorf("%w: %s is %s", ErrPrefixRole, code, pt.Role)
		}
	}
	return nil
}
