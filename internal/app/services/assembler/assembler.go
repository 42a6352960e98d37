// Package assembler packages a resolved route, theme and component list into
// the final stable-shaped payload.
package assembler

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// Service builds render payloads.
type Service struct {
	tenants storage.TenantStore
	catalog storage.CatalogStore
	log     *logger.Logger
}

// New creates an assembler over the given stores.
func New(tenants storage.TenantStore, cat storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assembler")
	}
	return &Service{tenants: tenants, catalog: cat, log: log}
}

// Assemble merges page metadata, the active theme and the resolved component
// list into one payload. A tenant without an active theme falls back to the
// default palette.
func (s *Service) Assemble(ctx context.Context, tenantID, path string, match page.RouteMatch, components []component.Composed) (page.Payload, error) {
	tn, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return page.Payload{}, fmt.Errorf("load tenant: %w", err)
	}

	palette := tenant.DefaultPalette()
	theme, err := s.tenants.GetActiveTheme(ctx, tenantID)
	switch {
	case err == nil && len(theme.Palette) > 0:
		palette = theme.Palette
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return page.Payload{}, fmt.Errorf("load theme: %w", err)
	}

	meta := page.Meta{
		PageType:     match.PageTypeCode,
		Path:         path,
		EntitySlug:   match.EntitySlug,
		CategorySlug: match.CategorySlug,
		Filters:      match.Filters,
	}
	if pt, err := s.catalog.GetPageType(ctx, tenantID, match.PageTypeCode); err == nil {
		meta.IsTemplate = pt.IsTemplate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return page.Payload{}, fmt.Errorf("load page type: %w", err)
	}

	if components == nil {
		components = []component.Composed{}
	}
	return page.Payload{
		Page:             meta,
		Theme:            palette,
		Components:       components,
		Locale:           match.Locale,
		AvailableLocales: tn.Locales,
	}, nil
}
