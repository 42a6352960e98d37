// Package composer assembles the ordered component list for a resolved page,
// merging catalog defaults with stored instance configuration.
package composer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// Service composes component lists. It performs reads only.
type Service struct {
	components storage.ComponentStore
	catalog    storage.CatalogStore
	log        *logger.Logger
}

// New creates a composition engine over the given stores.
func New(components storage.ComponentStore, cat storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("composer")
	}
	return &Service{components: components, catalog: cat, log: log}
}

// Compose returns the ordered component descriptors for a page type:
// pre-page globals, then page-bound components, then post-page globals.
func (s *Service) Compose(ctx context.Context, tenantID, pageTypeCode string) ([]component.Composed, error) {
	pageComponents, err := s.pageComponents(ctx, tenantID, pageTypeCode)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, tenantID, pageComponents)
}

// ComposeCustomRoute is Compose for components bound to a custom route
// instead of a page type.
func (s *Service) ComposeCustomRoute(ctx context.Context, tenantID, route string) ([]component.Composed, error) {
	instances, err := s.components.ListByCustomRoute(ctx, tenantID, route)
	if err != nil {
		return nil, fmt.Errorf("load route components: %w", err)
	}
	return s.assemble(ctx, tenantID, instances)
}

// pageComponents returns the live instance list for a page type, or the
// contents of its active snapshot when one exists.
func (s *Service) pageComponents(ctx context.Context, tenantID, pageTypeCode string) ([]component.Instance, error) {
	snapshots, err := s.components.ListSnapshots(ctx, tenantID, pageTypeCode)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	for _, snap := range snapshots {
		if snap.Active {
			instances := make([]component.Instance, len(snap.Components))
			copy(instances, snap.Components)
			sortInstances(instances)
			return instances, nil
		}
	}

	instances, err := s.components.ListByPageType(ctx, tenantID, pageTypeCode)
	if err != nil {
		return nil, fmt.Errorf("load page components: %w", err)
	}
	return instances, nil
}

func (s *Service) assemble(ctx context.Context, tenantID string, pageComponents []component.Instance) ([]component.Composed, error) {
	globals, err := s.components.ListGlobal(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load global components: %w", err)
	}

	var before, after []component.Instance
	for _, g := range globals {
		if !g.Active {
			continue
		}
		if g.RendersAfterPage {
			after = append(after, g)
		} else {
			before = append(before, g)
		}
	}

	ordered := make([]component.Instance, 0, len(before)+len(pageComponents)+len(after))
	ordered = append(ordered, before...)
	for _, inst := range pageComponents {
		if inst.Active {
			ordered = append(ordered, inst)
		}
	}
	ordered = append(ordered, after...)

	composed := make([]component.Composed, 0, len(ordered))
	for i, inst := range ordered {
		cfg := normalizeConfig(inst.Config, inst.ID, s.log)

		if defaults, err := s.variantDefaults(ctx, inst.Kind, inst.Variant); err != nil {
			return nil, err
		} else if defaults != nil {
			cfg.StaticData = mergeDefaults(defaults, cfg.StaticData)
		}

		injectImplicitDataType(inst.Kind, cfg.DynamicData)

		composed = append(composed, component.Composed{
			ID:      inst.ID,
			Kind:    inst.Kind,
			Variant: inst.Variant,
			Order:   i,
			Config:  cfg,
		})
	}
	return composed, nil
}

// variantDefaults returns the catalog default-data blob for a kind/variant,
// or nil when the kind has no definition or the variant no defaults.
func (s *Service) variantDefaults(ctx context.Context, kind, variant string) (map[string]any, error) {
	def, err := s.catalog.GetDefinition(ctx, kind)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load definition %s: %w", kind, err)
	}
	return def.Defaults[variant], nil
}

func sortInstances(instances []component.Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].Order != instances[j].Order {
			return instances[i].Order < instances[j].Order
		}
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})
}
