package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	tenants     map[string]tenant.Tenant
	themes      map[string]tenant.Theme
	pageTypes   map[string]catalog.PageType
	prefixes    map[string]catalog.PrefixConfig
	definitions map[string]catalog.ComponentDefinition
	instances   map[string]component.Instance
	snapshots   map[string]component.Snapshot
	records     map[string]content.Record
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.ComponentStore = (*Store)(nil)
var _ storage.ContentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		tenants:     make(map[string]tenant.Tenant),
		themes:      make(map[string]tenant.Theme),
		pageTypes:   make(map[string]catalog.PageType),
		prefixes:    make(map[string]catalog.PrefixConfig),
		definitions: make(map[string]catalog.ComponentDefinition),
		instances:   make(map[string]component.Instance),
		snapshots:   make(map[string]component.Snapshot),
		records:     make(map[string]content.Record),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// TenantStore implementation --------------------------------------------------

func (s *Store) CreateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.tenants[t.ID]; exists {
		return tenant.Tenant{}, fmt.Errorf("tenant %s already exists", t.ID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Locales = append([]string(nil), t.Locales...)

	s.tenants[t.ID] = t
	return cloneTenant(t), nil
}

func (s *Store) UpdateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.tenants[t.ID]
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("tenant %s: %w", t.ID, storage.ErrNotFound)
	}

	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	t.Locales = append([]string(nil), t.Locales...)

	s.tenants[t.ID] = t
	return cloneTenant(t), nil
}

func (s *Store) GetTenant(_ context.Context, id string) (tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("tenant %s: %w", id, storage.ErrNotFound)
	}
	return cloneTenant(t), nil
}

func (s *Store) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, cloneTenant(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) UpsertTheme(_ context.Context, th tenant.Theme) (tenant.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if th.ID == "" {
		th.ID = s.nextIDLocked()
		th.CreatedAt = now
	} else if existing, ok := s.themes[th.ID]; ok {
		th.CreatedAt = existing.CreatedAt
	} else {
		th.CreatedAt = now
	}
	th.UpdatedAt = now
	th.Palette = cloneStringMap(th.Palette)

	if th.Active {
		for id, other := range s.themes {
			if other.TenantID == th.TenantID && id != th.ID && other.Active {
				other.Active = false
				s.themes[id] = other
			}
		}
	}

	s.themes[th.ID] = th
	return cloneTheme(th), nil
}

func (s *Store) GetActiveTheme(_ context.Context, tenantID string) (tenant.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, th := range s.themes {
		if th.TenantID == tenantID && th.Active {
			return cloneTheme(th), nil
		}
	}
	return tenant.Theme{}, fmt.Errorf("active theme for tenant %s: %w", tenantID, storage.ErrNotFound)
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) CreatePageType(_ context.Context, pt catalog.PageType) (catalog.PageType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.pageTypes {
		if existing.TenantID == pt.TenantID && strings.EqualFold(existing.Code, pt.Code) {
			return catalog.PageType{}, fmt.Errorf("page type %s already exists for tenant %s", pt.Code, pt.TenantID)
		}
	}

	if pt.ID == "" {
		pt.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	pt.CreatedAt = now
	pt.UpdatedAt = now
	pt.ChildSlugs = append([]string(nil), pt.ChildSlugs...)

	s.pageTypes[pt.ID] = pt
	return clonePageType(pt), nil
}

func (s *Store) GetPageType(_ context.Context, tenantID, code string) (catalog.PageType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pt := range s.pageTypes {
		if pt.TenantID == tenantID && strings.EqualFold(pt.Code, code) {
			return clonePageType(pt), nil
		}
	}
	return catalog.PageType{}, fmt.Errorf("page type %s for tenant %s: %w", code, tenantID, storage.ErrNotFound)
}

func (s *Store) GetPageTypeByRole(_ context.Context, tenantID string, role catalog.Role) (catalog.PageType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pt := range s.pageTypes {
		if pt.TenantID == tenantID && pt.Role == role {
			return clonePageType(pt), nil
		}
	}
	return catalog.PageType{}, fmt.Errorf("page type with role %s for tenant %s: %w", role, tenantID, storage.ErrNotFound)
}

func (s *Store) FindSinglePageType(_ context.Context, tenantID, dataSource string) (catalog.PageType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pt := range s.pageTypes {
		if pt.TenantID == tenantID && pt.Role == catalog.RoleSingle && pt.DataSource == dataSource {
			return clonePageType(pt), nil
		}
	}
	return catalog.PageType{}, fmt.Errorf("single page type for source %s, tenant %s: %w", dataSource, tenantID, storage.ErrNotFound)
}

func (s *Store) ListPageTypes(_ context.Context, tenantID string) ([]catalog.PageType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.PageType, 0)
	for _, pt := range s.pageTypes {
		if pt.TenantID == tenantID {
			result = append(result, clonePageType(pt))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) CreatePrefix(_ context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.prefixes {
		if existing.TenantID == p.TenantID && strings.EqualFold(existing.Prefix, p.Prefix) {
			return catalog.PrefixConfig{}, fmt.Errorf("prefix %s already exists for tenant %s", p.Prefix, p.TenantID)
		}
	}

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Aliases = cloneStringMap(p.Aliases)

	s.prefixes[p.ID] = p
	return clonePrefix(p), nil
}

func (s *Store) UpdatePrefix(_ context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.prefixes[p.ID]
	if !ok {
		return catalog.PrefixConfig{}, fmt.Errorf("prefix %s: %w", p.ID, storage.ErrNotFound)
	}

	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Aliases = cloneStringMap(p.Aliases)

	s.prefixes[p.ID] = p
	return clonePrefix(p), nil
}

func (s *Store) ListPrefixes(_ context.Context, tenantID string) ([]catalog.PrefixConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.PrefixConfig, 0)
	for _, p := range s.prefixes {
		if p.TenantID == tenantID {
			result = append(result, clonePrefix(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Prefix < result[j].Prefix })
	return result, nil
}

func (s *Store) CreateDefinition(_ context.Context, def catalog.ComponentDefinition) (catalog.ComponentDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.definitions {
		if strings.EqualFold(existing.Kind, def.Kind) {
			return catalog.ComponentDefinition{}, fmt.Errorf("component definition %s already exists", def.Kind)
		}
	}

	if def.ID == "" {
		def.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	s.definitions[def.ID] = cloneDefinition(def)
	return cloneDefinition(def), nil
}

func (s *Store) GetDefinition(_ context.Context, kind string) (catalog.ComponentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, def := range s.definitions {
		if strings.EqualFold(def.Kind, kind) {
			return cloneDefinition(def), nil
		}
	}
	return catalog.ComponentDefinition{}, fmt.Errorf("component definition %s: %w", kind, storage.ErrNotFound)
}

func (s *Store) ListDefinitions(_ context.Context) ([]catalog.ComponentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.ComponentDefinition, 0, len(s.definitions))
	for _, def := range s.definitions {
		result = append(result, cloneDefinition(def))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result, nil
}

// ComponentStore implementation -----------------------------------------------

func (s *Store) CreateInstance(_ context.Context, inst component.Instance) (component.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst.ID == "" {
		inst.ID = s.nextIDLocked()
	} else if _, exists := s.instances[inst.ID]; exists {
		return component.Instance{}, fmt.Errorf("component instance %s already exists", inst.ID)
	}

	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	inst.Config = append(json.RawMessage(nil), inst.Config...)

	s.instances[inst.ID] = inst
	return inst, nil
}

func (s *Store) UpdateInstance(_ context.Context, inst component.Instance) (component.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.instances[inst.ID]
	if !ok {
		return component.Instance{}, fmt.Errorf("component instance %s: %w", inst.ID, storage.ErrNotFound)
	}

	inst.CreatedAt = original.CreatedAt
	inst.UpdatedAt = time.Now().UTC()
	inst.Config = append(json.RawMessage(nil), inst.Config...)

	s.instances[inst.ID] = inst
	return inst, nil
}

func (s *Store) GetInstance(_ context.Context, id string) (component.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return component.Instance{}, fmt.Errorf("component instance %s: %w", id, storage.ErrNotFound)
	}
	return inst, nil
}

func (s *Store) DeleteInstance(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return fmt.Errorf("component instance %s: %w", id, storage.ErrNotFound)
	}
	delete(s.instances, id)
	return nil
}

func (s *Store) ListByPageType(_ context.Context, tenantID, pageTypeCode string) ([]component.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]component.Instance, 0)
	for _, inst := range s.instances {
		if inst.TenantID == tenantID && !inst.Global && strings.EqualFold(inst.PageTypeCode, pageTypeCode) {
			result = append(result, inst)
		}
	}
	sortInstances(result)
	return result, nil
}

func (s *Store) ListByCustomRoute(_ context.Context, tenantID, route string) ([]component.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]component.Instance, 0)
	for _, inst := range s.instances {
		if inst.TenantID == tenantID && !inst.Global && strings.EqualFold(inst.CustomRoute, route) {
			result = append(result, inst)
		}
	}
	sortInstances(result)
	return result, nil
}

func (s *Store) ListGlobal(_ context.Context, tenantID string) ([]component.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]component.Instance, 0)
	for _, inst := range s.instances {
		if inst.TenantID == tenantID && inst.Global {
			result = append(result, inst)
		}
	}
	sortInstances(result)
	return result, nil
}

func (s *Store) CreateSnapshot(_ context.Context, snap component.Snapshot) (component.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = s.nextIDLocked()
	} else if _, exists := s.snapshots[snap.ID]; exists {
		return component.Snapshot{}, fmt.Errorf("snapshot %s already exists", snap.ID)
	}

	now := time.Now().UTC()
	snap.CreatedAt = now
	snap.UpdatedAt = now
	snap.Components = append([]component.Instance(nil), snap.Components...)

	s.snapshots[snap.ID] = snap
	return snap, nil
}

func (s *Store) UpdateSnapshot(_ context.Context, snap component.Snapshot) (component.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.snapshots[snap.ID]
	if !ok {
		return component.Snapshot{}, fmt.Errorf("snapshot %s: %w", snap.ID, storage.ErrNotFound)
	}

	snap.CreatedAt = original.CreatedAt
	snap.UpdatedAt = time.Now().UTC()
	snap.Components = append([]component.Instance(nil), snap.Components...)

	s.snapshots[snap.ID] = snap
	return snap, nil
}

func (s *Store) GetSnapshot(_ context.Context, id string) (component.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return component.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, storage.ErrNotFound)
	}
	return snap, nil
}

func (s *Store) ListSnapshots(_ context.Context, tenantID, pageTypeCode string) ([]component.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]component.Snapshot, 0)
	for _, snap := range s.snapshots {
		if snap.TenantID == tenantID && strings.EqualFold(snap.PageTypeCode, pageTypeCode) {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// ContentStore implementation -------------------------------------------------

func (s *Store) CreateRecord(_ context.Context, rec content.Record) (content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	} else if _, exists := s.records[rec.ID]; exists {
		return content.Record{}, fmt.Errorf("content record %s already exists", rec.ID)
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.SlugTranslations = cloneStringMap(rec.SlugTranslations)
	rec.Fields = cloneAnyMap(rec.Fields)

	s.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (s *Store) UpdateRecord(_ context.Context, rec content.Record) (content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.records[rec.ID]
	if !ok {
		return content.Record{}, fmt.Errorf("content record %s: %w", rec.ID, storage.ErrNotFound)
	}

	rec.CreatedAt = original.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	rec.SlugTranslations = cloneStringMap(rec.SlugTranslations)
	rec.Fields = cloneAnyMap(rec.Fields)

	s.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (s *Store) GetRecordBySlug(_ context.Context, tenantID, collection, locale, slug string) (content.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Translated slug first, default-locale slug as fallback.
	for _, rec := range s.records {
		if rec.TenantID != tenantID || rec.Collection != collection || !rec.Published {
			continue
		}
		if translated, ok := rec.SlugTranslations[locale]; ok && strings.EqualFold(translated, slug) {
			return cloneRecord(rec), nil
		}
	}
	for _, rec := range s.records {
		if rec.TenantID != tenantID || rec.Collection != collection || !rec.Published {
			continue
		}
		if strings.EqualFold(rec.Slug, slug) {
			return cloneRecord(rec), nil
		}
	}
	return content.Record{}, fmt.Errorf("record %s in %s for tenant %s: %w", slug, collection, tenantID, storage.ErrNotFound)
}

func (s *Store) ListRecords(_ context.Context, tenantID, collection string, q content.Query) ([]content.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]content.Record, 0)
	for _, rec := range s.records {
		if rec.TenantID != tenantID || rec.Collection != collection || !rec.Published {
			continue
		}
		if q.CategorySlug != "" && !strings.EqualFold(rec.CategorySlug, q.CategorySlug) {
			continue
		}
		if q.Slug != "" && !strings.EqualFold(rec.SlugFor(q.Locale), q.Slug) && !strings.EqualFold(rec.Slug, q.Slug) {
			continue
		}
		if !matchesFilters(rec, q.Filters) {
			continue
		}
		result = append(result, cloneRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return paginate(result, q.Page, q.Limit), nil
}

func matchesFilters(rec content.Record, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := rec.Fields[key]
		if !ok {
			return false
		}
		if !strings.EqualFold(fmt.Sprintf("%v", got), want) {
			return false
		}
	}
	return true
}

func paginate(records []content.Record, page, limit int) []content.Record {
	if limit <= 0 {
		return records
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(records) {
		return []content.Record{}
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// Helpers --------------------------------------------------------------------

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneAnyMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneTenant(t tenant.Tenant) tenant.Tenant {
	t.Locales = append([]string(nil), t.Locales...)
	return t
}

func cloneTheme(th tenant.Theme) tenant.Theme {
	th.Palette = cloneStringMap(th.Palette)
	return th
}

func clonePageType(pt catalog.PageType) catalog.PageType {
	pt.ChildSlugs = append([]string(nil), pt.ChildSlugs...)
	return pt
}

func clonePrefix(p catalog.PrefixConfig) catalog.PrefixConfig {
	p.Aliases = cloneStringMap(p.Aliases)
	return p
}

func cloneDefinition(def catalog.ComponentDefinition) catalog.ComponentDefinition {
	def.Variants = append([]string(nil), def.Variants...)
	def.Fields = cloneStringMap(def.Fields)
	if def.Defaults != nil {
		defaults := make(map[string]map[string]any, len(def.Defaults))
		for variant, data := range def.Defaults {
			defaults[variant] = cloneAnyMap(data)
		}
		def.Defaults = defaults
	}
	return def
}

func cloneRecord(rec content.Record) content.Record {
	rec.SlugTranslations = cloneStringMap(rec.SlugTranslations)
	rec.Fields = cloneAnyMap(rec.Fields)
	return rec
}

func sortInstances(list []component.Instance) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order == list[j].Order {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Order < list[j].Order
	})
}
