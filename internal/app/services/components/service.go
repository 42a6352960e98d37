// Package components implements the administrative operations over component
// instances: create, update, delete, reorder, variant changes and
// configuration snapshots.
package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/services/composer"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/pkg/logger"
)

var (
	// ErrScopeConflict marks an instance bound to both a page type and a
	// custom route, or to neither while not global.
	ErrScopeConflict = errors.New("component must bind exactly one of page type or custom route")
	// ErrUnknownVariant marks a variant the kind's definition does not allow.
	ErrUnknownVariant = errors.New("variant not allowed for kind")
	// ErrDuplicateGlobal marks a second global header or footer for a tenant.
	ErrDuplicateGlobal = errors.New("tenant already has a global component of this kind")
	// ErrOwnership marks a mutation crossing tenant boundaries.
	ErrOwnership = errors.New("component belongs to another tenant")
)

// Service guards every mutation with per-tenant ownership checks.
type Service struct {
	components storage.ComponentStore
	catalog    storage.CatalogStore
	log        *logger.Logger
}

// New creates the component admin service.
func New(components storage.ComponentStore, cat storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("components")
	}
	return &Service{components: components, catalog: cat, log: log}
}

// Create validates and persists a new instance, appending it at the end of
// its scope's dense order.
func (s *Service) Create(ctx context.Context, inst component.Instance) (component.Instance, error) {
	if err := s.validateScope(inst); err != nil {
		return component.Instance{}, err
	}
	if err := s.validateVariant(ctx, inst.Kind, inst.Variant); err != nil {
		return component.Instance{}, err
	}
	if inst.Global {
		if err := s.checkGlobalSingleton(ctx, inst); err != nil {
			return component.Instance{}, err
		}
		// Footers render after page content; everything else before.
		inst.RendersAfterPage = inst.Kind == component.KindFooter
	}

	siblings, err := s.scopeSiblings(ctx, inst)
	if err != nil {
		return component.Instance{}, err
	}
	inst.Order = len(siblings)

	created, err := s.components.CreateInstance(ctx, inst)
	if err != nil {
		return component.Instance{}, fmt.Errorf("create instance: %w", err)
	}
	s.log.WithFields(map[string]any{
		"tenant": created.TenantID,
		"kind":   created.Kind,
		"id":     created.ID,
	}).Info("component instance created")
	return created, nil
}

// Update rewrites an instance's configuration and flags. Scope and kind are
// immutable; use Reorder and ChangeVariant for order and variant.
func (s *Service) Update(ctx context.Context, tenantID, id string, config json.RawMessage, active bool) (component.Instance, error) {
	inst, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return component.Instance{}, err
	}
	inst.Config = config
	inst.Active = active
	updated, err := s.components.UpdateInstance(ctx, inst)
	if err != nil {
		return component.Instance{}, fmt.Errorf("update instance: %w", err)
	}
	return updated, nil
}

// Delete removes an instance and closes the gap in its scope's order.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	inst, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.components.DeleteInstance(ctx, id); err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return s.renumber(ctx, inst)
}

// Reorder applies a full new ordering for one page scope. Every sibling must
// appear exactly once.
func (s *Service) Reorder(ctx context.Context, tenantID, pageTypeCode string, orderedIDs []string) error {
	siblings, err := s.components.ListByPageType(ctx, tenantID, pageTypeCode)
	if err != nil {
		return fmt.Errorf("load siblings: %w", err)
	}
	if len(orderedIDs) != len(siblings) {
		return fmt.Errorf("reorder lists %d of %d components", len(orderedIDs), len(siblings))
	}
	byID := make(map[string]component.Instance, len(siblings))
	for _, sib := range siblings {
		byID[sib.ID] = sib
	}
	for position, id := range orderedIDs {
		inst, ok := byID[id]
		if !ok {
			return fmt.Errorf("instance %s is not in this page scope", id)
		}
		if inst.Order == position {
			continue
		}
		inst.Order = position
		if _, err := s.components.UpdateInstance(ctx, inst); err != nil {
			return fmt.Errorf("reorder instance %s: %w", id, err)
		}
	}
	return nil
}

// ChangeVariant switches an instance to another allowed variant. Only the
// override keys present in the new variant's default-data schema survive;
// the rest are discarded intentionally.
func (s *Service) ChangeVariant(ctx context.Context, tenantID, id, variant string) (component.Instance, error) {
	inst, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return component.Instance{}, err
	}
	def, err := s.catalog.GetDefinition(ctx, inst.Kind)
	if err != nil {
		return component.Instance{}, fmt.Errorf("load definition: %w", err)
	}
	if !def.HasVariant(variant) {
		return component.Instance{}, fmt.Errorf("%w: %s/%s", ErrUnknownVariant, inst.Kind, variant)
	}

	var cfg map[string]any
	if len(inst.Config) > 0 {
		if err := json.Unmarshal(inst.Config, &cfg); err != nil {
			cfg = nil
		}
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	if override, ok := cfg["static_data"].(map[string]any); ok {
		schema := def.Defaults[variant]
		if schema == nil {
			schema = map[string]any{}
		}
		cfg["static_data"] = composer.PruneToSchema(override, schema)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return component.Instance{}, fmt.Errorf("encode config: %w", err)
	}

	inst.Variant = variant
	inst.Config = raw
	updated, err := s.components.UpdateInstance(ctx, inst)
	if err != nil {
		return component.Instance{}, fmt.Errorf("update instance: %w", err)
	}
	return updated, nil
}

// --- snapshots --------------------------------------------------------------

// SaveSnapshot captures the current live component list of a page under a
// name. The snapshot starts inactive.
func (s *Service) SaveSnapshot(ctx context.Context, tenantID, pageTypeCode, name string) (component.Snapshot, error) {
	instances, err := s.components.ListByPageType(ctx, tenantID, pageTypeCode)
	if err != nil {
		return component.Snapshot{}, fmt.Errorf("load page components: %w", err)
	}
	snap, err := s.components.CreateSnapshot(ctx, component.Snapshot{
		TenantID:     tenantID,
		Name:         name,
		PageTypeCode: pageTypeCode,
		Components:   instances,
	})
	if err != nil {
		return component.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return snap, nil
}

// ActivateSnapshot makes one snapshot the page's active list, deactivating
// any other active snapshot in the same scope.
func (s *Service) ActivateSnapshot(ctx context.Context, tenantID, id string) error {
	snap, err := s.components.GetSnapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap.TenantID != tenantID {
		return ErrOwnership
	}
	siblings, err := s.components.ListSnapshots(ctx, tenantID, snap.PageTypeCode)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	for _, sib := range siblings {
		if sib.ID != snap.ID && sib.Active {
			sib.Active = false
			if _, err := s.components.UpdateSnapshot(ctx, sib); err != nil {
				return fmt.Errorf("deactivate snapshot %s: %w", sib.ID, err)
			}
		}
	}
	snap.Active = true
	if _, err := s.components.UpdateSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("activate snapshot: %w", err)
	}
	return nil
}

// --- helpers ----------------------------------------------------------------

func (s *Service) owned(ctx context.Context, tenantID, id string) (component.Instance, error) {
	inst, err := s.components.GetInstance(ctx, id)
	if err != nil {
		return component.Instance{}, fmt.Errorf("load instance: %w", err)
	}
	if inst.TenantID != tenantID {
		return component.Instance{}, ErrOwnership
	}
	return inst, nil
}

func (s *Service) validateScope(inst component.Instance) error {
	if inst.Global {
		if inst.PageTypeCode != "" || inst.CustomRoute != "" {
			return ErrScopeConflict
		}
		return nil
	}
	if (inst.PageTypeCode == "") == (inst.CustomRoute == "") {
		return ErrScopeConflict
	}
	return nil
}

func (s *Service) validateVariant(ctx context.Context, kind, variant string) error {
	if variant == "" {
		return nil
	}
	def, err := s.catalog.GetDefinition(ctx, kind)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load definition: %w", err)
	}
	if !def.HasVariant(variant) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownVariant, kind, variant)
	}
	return nil
}

func (s *Service) checkGlobalSingleton(ctx context.Context, inst component.Instance) error {
	if inst.Kind != component.KindHeader && inst.Kind != component.KindFooter {
		return nil
	}
	globals, err := s.components.ListGlobal(ctx, inst.TenantID)
	if err != nil {
		return fmt.Errorf("load global components: %w", err)
	}
	for _, g := range globals {
		if g.Kind == inst.Kind {
			return fmt.Errorf("%w: %s", ErrDuplicateGlobal, inst.Kind)
		}
	}
	return nil
}

func (s *Service) scopeSiblings(ctx context.Context, inst component.Instance) ([]component.Instance, error) {
	switch {
	case inst.Global:
		return s.components.ListGlobal(ctx, inst.TenantID)
	case inst.PageTypeCode != "":
		return s.components.ListByPageType(ctx, inst.TenantID, inst.PageTypeCode)
	default:
		return s.components.ListByCustomRoute(ctx, inst.TenantID, inst.CustomRoute)
	}
}

// renumber restores dense ordering in the deleted instance's scope.
func (s *Service) renumber(ctx context.Context, deleted component.Instance) error {
	siblings, err := s.scopeSiblings(ctx, deleted)
	if err != nil {
		return fmt.Errorf("load siblings: %w", err)
	}
	for position, sib := range siblings {
		if sib.Order == position {
			continue
		}
		sib.Order = position
		if _, err := s.components.UpdateInstance(ctx, sib); err != nil {
			return fmt.Errorf("renumber instance %s: %w", sib.ID, err)
		}
	}
	return nil
}
