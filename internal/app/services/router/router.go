// Package router resolves incoming URL paths to page types and entity slugs
// against a tenant's routing catalog.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// Service resolves paths for all tenants. It performs reads only.
type Service struct {
	tenants storage.TenantStore
	catalog storage.CatalogStore
	content storage.ContentStore
	log     *logger.Logger
}

// New creates a route resolver over the given stores.
func New(tenants storage.TenantStore, cat storage.CatalogStore, cont storage.ContentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("router")
	}
	return &Service{tenants: tenants, catalog: cat, content: cont, log: log}
}

// Resolve maps a URL path to a page type and, where applicable, an entity or
// category slug. Expected misses return an error matching page.ErrNotFound;
// any other error is an infrastructure failure.
func (s *Service) Resolve(ctx context.Context, tenantID, path, locale string) (page.RouteMatch, error) {
	tn, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, page.NotFound(tenantID, path, "unknown tenant")
		}
		return page.RouteMatch{}, fmt.Errorf("load tenant: %w", err)
	}
	if !tn.Active {
		return page.RouteMatch{}, page.NotFound(tenantID, path, "tenant inactive")
	}

	segments := splitPath(path)

	// A leading locale segment wins over the requested locale.
	if len(segments) > 0 && tn.HasLocale(strings.ToLower(segments[0])) {
		locale = strings.ToLower(segments[0])
		segments = segments[1:]
	} else if locale == "" || !tn.HasLocale(locale) {
		locale = tn.DefaultLocale
	}

	// Root resolves straight to the homepage.
	if len(segments) == 0 {
		home, err := s.catalog.GetPageTypeByRole(ctx, tenantID, catalog.RoleHomepage)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return page.RouteMatch{}, page.NotFound(tenantID, path, "no homepage page type")
			}
			return page.RouteMatch{}, fmt.Errorf("load homepage: %w", err)
		}
		return page.RouteMatch{PageTypeCode: home.Code, Locale: locale}, nil
	}

	prefixes, err := s.catalog.ListPrefixes(ctx, tenantID)
	if err != nil {
		return page.RouteMatch{}, fmt.Errorf("load prefixes: %w", err)
	}
	for _, p := range prefixes {
		if !p.Active || !p.Matches(segments[0], locale) {
			continue
		}
		return s.resolvePrefix(ctx, tenantID, path, locale, p, segments[1:])
	}

	// No prefix claimed the path. Try structured filters, then a flat slug
	// lookup against the tenant's default collection.
	if match, ok, err := s.resolveFilters(ctx, tenantID, locale, segments); err != nil {
		return page.RouteMatch{}, err
	} else if ok {
		return match, nil
	}
	if match, ok, err := s.resolveFlatSlug(ctx, tn, locale, segments); err != nil {
		return page.RouteMatch{}, err
	} else if ok {
		return match, nil
	}
	return page.RouteMatch{}, page.NotFound(tenantID, path, "no prefix, filter or slug match")
}

func (s *Service) resolvePrefix(ctx context.Context, tenantID, path, locale string, p catalog.PrefixConfig, trailing []string) (page.RouteMatch, error) {
	switch p.Level {
	case catalog.LevelStatic:
		if len(trailing) == 0 {
			return page.RouteMatch{PageTypeCode: p.StaticCode, Locale: locale}, nil
		}
		// Static pages accept trailing segments only when the type declares
		// them as child slugs.
		pt, err := s.catalog.GetPageType(ctx, tenantID, p.StaticCode)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return page.RouteMatch{}, page.NotFound(tenantID, path, "static page type missing")
			}
			return page.RouteMatch{}, fmt.Errorf("load page type: %w", err)
		}
		if len(trailing) == 1 && containsFold(pt.ChildSlugs, trailing[0]) {
			return page.RouteMatch{PageTypeCode: p.StaticCode, EntitySlug: trailing[0], Locale: locale}, nil
		}
		return page.RouteMatch{}, page.NotFound(tenantID, path, "static page has no such child")

	case catalog.LevelDirectory:
		switch len(trailing) {
		case 0:
			return page.RouteMatch{PageTypeCode: p.DirectoryCode, Locale: locale}, nil
		case 1:
			return s.resolveSingle(ctx, tenantID, path, locale, p.SingleCode, "", trailing[0])
		}
		return page.RouteMatch{}, page.NotFound(tenantID, path, "too many segments for directory prefix")

	case catalog.LevelListing:
		switch len(trailing) {
		case 0:
			return page.RouteMatch{PageTypeCode: p.ListingCode, Locale: locale}, nil
		case 1:
			return s.resolveCategory(ctx, tenantID, path, locale, p.CategoryCode, trailing[0])
		case 2:
			return s.resolveSingle(ctx, tenantID, path, locale, p.SingleCode, trailing[0], trailing[1])
		}
		return page.RouteMatch{}, page.NotFound(tenantID, path, "too many segments for listing prefix")
	}
	return page.RouteMatch{}, page.NotFound(tenantID, path, "prefix has unknown navigation level")
}

// resolveSingle confirms the entity exists before returning a single-page
// match. The store already handles translated-slug fallback.
func (s *Service) resolveSingle(ctx context.Context, tenantID, path, locale, code, categorySlug, slug string) (page.RouteMatch, error) {
	pt, err := s.catalog.GetPageType(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, page.NotFound(tenantID, path, "single page type missing")
		}
		return page.RouteMatch{}, fmt.Errorf("load page type: %w", err)
	}
	if _, err := s.content.GetRecordBySlug(ctx, tenantID, pt.DataSource, locale, slug); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, page.NotFound(tenantID, path, "entity not found")
		}
		return page.RouteMatch{}, fmt.Errorf("lookup entity: %w", err)
	}
	return page.RouteMatch{
		PageTypeCode: code,
		EntitySlug:   slug,
		CategorySlug: categorySlug,
		Locale:       locale,
	}, nil
}

func (s *Service) resolveCategory(ctx context.Context, tenantID, path, locale, code, slug string) (page.RouteMatch, error) {
	pt, err := s.catalog.GetPageType(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, page.NotFound(tenantID, path, "category page type missing")
		}
		return page.RouteMatch{}, fmt.Errorf("load page type: %w", err)
	}
	if _, err := s.content.GetRecordBySlug(ctx, tenantID, pt.DataSource, locale, slug); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, page.NotFound(tenantID, path, "category not found")
		}
		return page.RouteMatch{}, fmt.Errorf("lookup category: %w", err)
	}
	return page.RouteMatch{PageTypeCode: code, CategorySlug: slug, Locale: locale}, nil
}

// resolveFilters matches paths made entirely of operation/property-type
// tokens, e.g. "/venta/casas", onto the tenant's search page.
func (s *Service) resolveFilters(ctx context.Context, tenantID, locale string, segments []string) (page.RouteMatch, bool, error) {
	filters, ok := parseFilterSegments(segments)
	if !ok {
		return page.RouteMatch{}, false, nil
	}
	search, err := s.catalog.GetPageTypeByRole(ctx, tenantID, catalog.RoleSearch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, false, nil
		}
		return page.RouteMatch{}, false, fmt.Errorf("load search page: %w", err)
	}
	return page.RouteMatch{PageTypeCode: search.Code, Filters: filters, Locale: locale}, true, nil
}

// resolveFlatSlug treats a bare single-segment path as an entity slug in the
// tenant's default collection.
func (s *Service) resolveFlatSlug(ctx context.Context, tn tenant.Tenant, locale string, segments []string) (page.RouteMatch, bool, error) {
	if len(segments) != 1 || tn.DefaultCollection == "" {
		return page.RouteMatch{}, false, nil
	}
	pt, err := s.catalog.FindSinglePageType(ctx, tn.ID, tn.DefaultCollection)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, false, nil
		}
		return page.RouteMatch{}, false, fmt.Errorf("load single page type: %w", err)
	}
	if _, err := s.content.GetRecordBySlug(ctx, tn.ID, tn.DefaultCollection, locale, segments[0]); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return page.RouteMatch{}, false, nil
		}
		return page.RouteMatch{}, false, fmt.Errorf("lookup entity: %w", err)
	}
	return page.RouteMatch{PageTypeCode: pt.Code, EntitySlug: segments[0], Locale: locale}, true, nil
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
