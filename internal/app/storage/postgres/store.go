package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.ComponentStore = (*Store)(nil)
var _ storage.ContentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// --- TenantStore ------------------------------------------------------------

type tenantRow struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	DefaultLocale     string    `db:"default_locale"`
	Locales           []byte    `db:"locales"`
	DefaultCollection string    `db:"default_collection"`
	Active            bool      `db:"active"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r tenantRow) toDomain() tenant.Tenant {
	t := tenant.Tenant{
		ID:                r.ID,
		Name:              r.Name,
		DefaultLocale:     r.DefaultLocale,
		DefaultCollection: r.DefaultCollection,
		Active:            r.Active,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if len(r.Locales) > 0 {
		_ = json.Unmarshal(r.Locales, &t.Locales)
	}
	return t
}

func (s *Store) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	localesJSON, err := json.Marshal(t.Locales)
	if err != nil {
		return tenant.Tenant{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, default_locale, locales, default_collection, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Name, t.DefaultLocale, localesJSON, t.DefaultCollection, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	existing, err := s.GetTenant(ctx, t.ID)
	if err != nil {
		return tenant.Tenant{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	localesJSON, err := json.Marshal(t.Locales)
	if err != nil {
		return tenant.Tenant{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET name = $2, default_locale = $3, locales = $4, default_collection = $5, active = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Name, t.DefaultLocale, localesJSON, t.DefaultCollection, t.Active, t.UpdatedAt)
	if err != nil {
		return tenant.Tenant{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tenant.Tenant{}, fmt.Errorf("tenant %s: %w", t.ID, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	var row tenantRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, default_locale, locales, default_collection, active, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id)
	if err != nil {
		return tenant.Tenant{}, notFound(err, "tenant "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	var rows []tenantRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, default_locale, locales, default_collection, active, created_at, updated_at
		FROM tenants ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	result := make([]tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

type themeRow struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	Palette   []byte    `db:"palette"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r themeRow) toDomain() tenant.Theme {
	th := tenant.Theme{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Palette) > 0 {
		_ = json.Unmarshal(r.Palette, &th.Palette)
	}
	return th
}

func (s *Store) UpsertTheme(ctx context.Context, th tenant.Theme) (tenant.Theme, error) {
	if th.ID == "" {
		th.ID = uuid.NewString()
		th.CreatedAt = time.Now().UTC()
	}
	th.UpdatedAt = time.Now().UTC()

	paletteJSON, err := json.Marshal(th.Palette)
	if err != nil {
		return tenant.Theme{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return tenant.Theme{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	if th.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE themes SET active = FALSE, updated_at = $2 WHERE tenant_id = $1 AND id <> $3 AND active
		`, th.TenantID, th.UpdatedAt, th.ID); err != nil {
			return tenant.Theme{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO themes (id, tenant_id, name, palette, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, palette = EXCLUDED.palette, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
	`, th.ID, th.TenantID, th.Name, paletteJSON, th.Active, th.CreatedAt, th.UpdatedAt); err != nil {
		return tenant.Theme{}, err
	}

	if err := tx.Commit(); err != nil {
		return tenant.Theme{}, err
	}
	return th, nil
}

func (s *Store) GetActiveTheme(ctx context.Context, tenantID string) (tenant.Theme, error) {
	var row themeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, tenant_id, name, palette, active, created_at, updated_at
		FROM themes WHERE tenant_id = $1 AND active
		ORDER BY updated_at DESC LIMIT 1
	`, tenantID)
	if err != nil {
		return tenant.Theme{}, notFound(err, "active theme for tenant "+tenantID)
	}
	return row.toDomain(), nil
}

// --- CatalogStore -----------------------------------------------------------

type pageTypeRow struct {
	ID         string    `db:"id"`
	TenantID   string    `db:"tenant_id"`
	Code       string    `db:"code"`
	Role       string    `db:"role"`
	Level      int       `db:"level"`
	DataSource string    `db:"data_source"`
	ChildSlugs []byte    `db:"child_slugs"`
	IsTemplate bool      `db:"is_template"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r pageTypeRow) toDomain() catalog.PageType {
	pt := catalog.PageType{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Code:       r.Code,
		Role:       catalog.Role(r.Role),
		Level:      catalog.NavigationLevel(r.Level),
		DataSource: r.DataSource,
		IsTemplate: r.IsTemplate,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if len(r.ChildSlugs) > 0 {
		_ = json.Unmarshal(r.ChildSlugs, &pt.ChildSlugs)
	}
	return pt
}

const pageTypeColumns = `id, tenant_id, code, role, level, data_source, child_slugs, is_template, created_at, updated_at`

func (s *Store) CreatePageType(ctx context.Context, pt catalog.PageType) (catalog.PageType, error) {
	if pt.ID == "" {
		pt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pt.CreatedAt = now
	pt.UpdatedAt = now

	slugsJSON, err := json.Marshal(pt.ChildSlugs)
	if err != nil {
		return catalog.PageType{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO page_types (id, tenant_id, code, role, level, data_source, child_slugs, is_template, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, pt.ID, pt.TenantID, pt.Code, string(pt.Role), int(pt.Level), pt.DataSource, slugsJSON, pt.IsTemplate, pt.CreatedAt, pt.UpdatedAt)
	if err != nil {
		return catalog.PageType{}, err
	}
	return pt, nil
}

func (s *Store) GetPageType(ctx context.Context, tenantID, code string) (catalog.PageType, error) {
	var row pageTypeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+pageTypeColumns+` FROM page_types
		WHERE tenant_id = $1 AND lower(code) = lower($2)
	`, tenantID, code)
	if err != nil {
		return catalog.PageType{}, notFound(err, "page type "+code)
	}
	return row.toDomain(), nil
}

func (s *Store) GetPageTypeByRole(ctx context.Context, tenantID string, role catalog.Role) (catalog.PageType, error) {
	var row pageTypeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+pageTypeColumns+` FROM page_types
		WHERE tenant_id = $1 AND role = $2
		ORDER BY created_at LIMIT 1
	`, tenantID, string(role))
	if err != nil {
		return catalog.PageType{}, notFound(err, "page type with role "+string(role))
	}
	return row.toDomain(), nil
}

func (s *Store) FindSinglePageType(ctx context.Context, tenantID, dataSource string) (catalog.PageType, error) {
	var row pageTypeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+pageTypeColumns+` FROM page_types
		WHERE tenant_id = $1 AND role = 'single' AND data_source = $2
		ORDER BY created_at LIMIT 1
	`, tenantID, dataSource)
	if err != nil {
		return catalog.PageType{}, notFound(err, "single page type for "+dataSource)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPageTypes(ctx context.Context, tenantID string) ([]catalog.PageType, error) {
	var rows []pageTypeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+pageTypeColumns+` FROM page_types
		WHERE tenant_id = $1 ORDER BY code
	`, tenantID)
	if err != nil {
		return nil, err
	}
	result := make([]catalog.PageType, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

type prefixRow struct {
	ID            string    `db:"id"`
	TenantID      string    `db:"tenant_id"`
	Prefix        string    `db:"prefix"`
	Aliases       []byte    `db:"aliases"`
	Level         int       `db:"level"`
	StaticCode    string    `db:"static_code"`
	DirectoryCode string    `db:"directory_code"`
	ListingCode   string    `db:"listing_code"`
	CategoryCode  string    `db:"category_code"`
	SingleCode    string    `db:"single_code"`
	Active        bool      `db:"active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r prefixRow) toDomain() catalog.PrefixConfig {
	p := catalog.PrefixConfig{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Prefix:        r.Prefix,
		Level:         catalog.NavigationLevel(r.Level),
		StaticCode:    r.StaticCode,
		DirectoryCode: r.DirectoryCode,
		ListingCode:   r.ListingCode,
		CategoryCode:  r.CategoryCode,
		SingleCode:    r.SingleCode,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Aliases) > 0 {
		_ = json.Unmarshal(r.Aliases, &p.Aliases)
	}
	return p
}

const prefixColumns = `id, tenant_id, prefix, aliases, level, static_code, directory_code, listing_code, category_code, single_code, active, created_at, updated_at`

func (s *Store) CreatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	aliasesJSON, err := json.Marshal(p.Aliases)
	if err != nil {
		return catalog.PrefixConfig{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO route_prefixes (id, tenant_id, prefix, aliases, level, static_code, directory_code, listing_code, category_code, single_code, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.TenantID, p.Prefix, aliasesJSON, int(p.Level), p.StaticCode, p.DirectoryCode, p.ListingCode, p.CategoryCode, p.SingleCode, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.PrefixConfig{}, err
	}
	return p, nil
}

func (s *Store) UpdatePrefix(ctx context.Context, p catalog.PrefixConfig) (catalog.PrefixConfig, error) {
	p.UpdatedAt = time.Now().UTC()

	aliasesJSON, err := json.Marshal(p.Aliases)
	if err != nil {
		return catalog.PrefixConfig{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE route_prefixes
		SET prefix = $2, aliases = $3, level = $4, static_code = $5, directory_code = $6,
		    listing_code = $7, category_code = $8, single_code = $9, active = $10, updated_at = $11
		WHERE id = $1
	`, p.ID, p.Prefix, aliasesJSON, int(p.Level), p.StaticCode, p.DirectoryCode, p.ListingCode, p.CategoryCode, p.SingleCode, p.Active, p.UpdatedAt)
	if err != nil {
		return catalog.PrefixConfig{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.PrefixConfig{}, fmt.Errorf("prefix %s: %w", p.ID, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListPrefixes(ctx context.Context, tenantID string) ([]catalog.PrefixConfig, error) {
	var rows []prefixRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+prefixColumns+` FROM route_prefixes
		WHERE tenant_id = $1 ORDER BY prefix
	`, tenantID)
	if err != nil {
		return nil, err
	}
	result := make([]catalog.PrefixConfig, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

type definitionRow struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	Variants  []byte    `db:"variants"`
	Defaults  []byte    `db:"defaults"`
	Fields    []byte    `db:"fields"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r definitionRow) toDomain() catalog.ComponentDefinition {
	def := catalog.ComponentDefinition{
		ID:        r.ID,
		Kind:      r.Kind,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Variants) > 0 {
		_ = json.Unmarshal(r.Variants, &def.Variants)
	}
	if len(r.Defaults) > 0 {
		_ = json.Unmarshal(r.Defaults, &def.Defaults)
	}
	if len(r.Fields) > 0 {
		_ = json.Unmarshal(r.Fields, &def.Fields)
	}
	return def
}

func (s *Store) CreateDefinition(ctx context.Context, def catalog.ComponentDefinition) (catalog.ComponentDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	variantsJSON, err := json.Marshal(def.Variants)
	if err != nil {
		return catalog.ComponentDefinition{}, err
	}
	defaultsJSON, err := json.Marshal(def.Defaults)
	if err != nil {
		return catalog.ComponentDefinition{}, err
	}
	fieldsJSON, err := json.Marshal(def.Fields)
	if err != nil {
		return catalog.ComponentDefinition{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO component_definitions (id, kind, variants, defaults, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, def.ID, def.Kind, variantsJSON, defaultsJSON, fieldsJSON, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return catalog.ComponentDefinition{}, err
	}
	return def, nil
}

func (s *Store) GetDefinition(ctx context.Context, kind string) (catalog.ComponentDefinition, error) {
	var row definitionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, kind, variants, defaults, fields, created_at, updated_at
		FROM component_definitions WHERE lower(kind) = lower($1)
	`, kind)
	if err != nil {
		return catalog.ComponentDefinition{}, notFound(err, "component definition "+kind)
	}
	return row.toDomain(), nil
}

func (s *Store) ListDefinitions(ctx context.Context) ([]catalog.ComponentDefinition, error) {
	var rows []definitionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, kind, variants, defaults, fields, created_at, updated_at
		FROM component_definitions ORDER BY kind
	`)
	if err != nil {
		return nil, err
	}
	result := make([]catalog.ComponentDefinition, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

// --- ComponentStore ---------------------------------------------------------

type instanceRow struct {
	ID               string    `db:"id"`
	TenantID         string    `db:"tenant_id"`
	Kind             string    `db:"kind"`
	Variant          string    `db:"variant"`
	PageTypeCode     string    `db:"page_type_code"`
	CustomRoute      string    `db:"custom_route"`
	IsGlobal         bool      `db:"is_global"`
	RendersAfterPage bool      `db:"renders_after_page"`
	Ord              int       `db:"ord"`
	Active           bool      `db:"active"`
	Config           []byte    `db:"config"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r instanceRow) toDomain() component.Instance {
	return component.Instance{
		ID:               r.ID,
		TenantID:         r.TenantID,
		Kind:             r.Kind,
		Variant:          r.Variant,
		PageTypeCode:     r.PageTypeCode,
		CustomRoute:      r.CustomRoute,
		Global:           r.IsGlobal,
		RendersAfterPage: r.RendersAfterPage,
		Order:            r.Ord,
		Active:           r.Active,
		Config:           json.RawMessage(r.Config),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const instanceColumns = `id, tenant_id, kind, variant, page_type_code, custom_route, is_global, renders_after_page, ord, active, config, created_at, updated_at`

func (s *Store) CreateInstance(ctx context.Context, inst component.Instance) (component.Instance, error) {
	if inst.TenantID == "" {
		return component.Instance{}, errors.New("tenant_id required")
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now

	cfg := inst.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO component_instances (id, tenant_id, kind, variant, page_type_code, custom_route, is_global, renders_after_page, ord, active, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, inst.ID, inst.TenantID, inst.Kind, inst.Variant, inst.PageTypeCode, inst.CustomRoute, inst.Global, inst.RendersAfterPage, inst.Order, inst.Active, []byte(cfg), inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return component.Instance{}, err
	}
	return inst, nil
}

func (s *Store) UpdateInstance(ctx context.Context, inst component.Instance) (component.Instance, error) {
	inst.UpdatedAt = time.Now().UTC()

	cfg := inst.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE component_instances
		SET kind = $2, variant = $3, page_type_code = $4, custom_route = $5, is_global = $6,
		    renders_after_page = $7, ord = $8, active = $9, config = $10, updated_at = $11
		WHERE id = $1
	`, inst.ID, inst.Kind, inst.Variant, inst.PageTypeCode, inst.CustomRoute, inst.Global, inst.RendersAfterPage, inst.Order, inst.Active, []byte(cfg), inst.UpdatedAt)
	if err != nil {
		return component.Instance{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return component.Instance{}, fmt.Errorf("component instance %s: %w", inst.ID, storage.ErrNotFound)
	}
	return inst, nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (component.Instance, error) {
	var row instanceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+instanceColumns+` FROM component_instances WHERE id = $1
	`, id)
	if err != nil {
		return component.Instance{}, notFound(err, "component instance "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM component_instances WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("component instance %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) selectInstances(ctx context.Context, where string, args ...any) ([]component.Instance, error) {
	var rows []instanceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+instanceColumns+` FROM component_instances
		WHERE `+where+` ORDER BY ord, created_at
	`, args...)
	if err != nil {
		return nil, err
	}
	result := make([]component.Instance, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) ListByPageType(ctx context.Context, tenantID, pageTypeCode string) ([]component.Instance, error) {
	return s.selectInstances(ctx, `tenant_id = $1 AND NOT is_global AND lower(page_type_code) = lower($2)`, tenantID, pageTypeCode)
}

func (s *Store) ListByCustomRoute(ctx context.Context, tenantID, route string) ([]component.Instance, error) {
	return s.selectInstances(ctx, `tenant_id = $1 AND NOT is_global AND lower(custom_route) = lower($2)`, tenantID, route)
}

func (s *Store) ListGlobal(ctx context.Context, tenantID string) ([]component.Instance, error) {
	return s.selectInstances(ctx, `tenant_id = $1 AND is_global`, tenantID)
}

type snapshotRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Name         string    `db:"name"`
	PageTypeCode string    `db:"page_type_code"`
	Components   []byte    `db:"components"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r snapshotRow) toDomain() component.Snapshot {
	snap := component.Snapshot{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Name:         r.Name,
		PageTypeCode: r.PageTypeCode,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Components) > 0 {
		_ = json.Unmarshal(r.Components, &snap.Components)
	}
	return snap
}

func (s *Store) CreateSnapshot(ctx context.Context, snap component.Snapshot) (component.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	snap.CreatedAt = now
	snap.UpdatedAt = now

	componentsJSON, err := json.Marshal(snap.Components)
	if err != nil {
		return component.Snapshot{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_snapshots (id, tenant_id, name, page_type_code, components, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, snap.ID, snap.TenantID, snap.Name, snap.PageTypeCode, componentsJSON, snap.Active, snap.CreatedAt, snap.UpdatedAt)
	if err != nil {
		return component.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) UpdateSnapshot(ctx context.Context, snap component.Snapshot) (component.Snapshot, error) {
	snap.UpdatedAt = time.Now().UTC()

	componentsJSON, err := json.Marshal(snap.Components)
	if err != nil {
		return component.Snapshot{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE config_snapshots
		SET name = $2, components = $3, active = $4, updated_at = $5
		WHERE id = $1
	`, snap.ID, snap.Name, componentsJSON, snap.Active, snap.UpdatedAt)
	if err != nil {
		return component.Snapshot{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return component.Snapshot{}, fmt.Errorf("snapshot %s: %w", snap.ID, storage.ErrNotFound)
	}
	return snap, nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (component.Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, tenant_id, name, page_type_code, components, active, created_at, updated_at
		FROM config_snapshots WHERE id = $1
	`, id)
	if err != nil {
		return component.Snapshot{}, notFound(err, "snapshot "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListSnapshots(ctx context.Context, tenantID, pageTypeCode string) ([]component.Snapshot, error) {
	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, tenant_id, name, page_type_code, components, active, created_at, updated_at
		FROM config_snapshots
		WHERE tenant_id = $1 AND lower(page_type_code) = lower($2)
		ORDER BY created_at
	`, tenantID, pageTypeCode)
	if err != nil {
		return nil, err
	}
	result := make([]component.Snapshot, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

// --- ContentStore -----------------------------------------------------------

type recordRow struct {
	ID               string    `db:"id"`
	TenantID         string    `db:"tenant_id"`
	Collection       string    `db:"collection"`
	Slug             string    `db:"slug"`
	SlugTranslations []byte    `db:"slug_translations"`
	CategorySlug     string    `db:"category_slug"`
	Fields           []byte    `db:"fields"`
	Published        bool      `db:"published"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r recordRow) toDomain() content.Record {
	rec := content.Record{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Collection:   r.Collection,
		Slug:         r.Slug,
		CategorySlug: r.CategorySlug,
		Published:    r.Published,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.SlugTranslations) > 0 {
		_ = json.Unmarshal(r.SlugTranslations, &rec.SlugTranslations)
	}
	if len(r.Fields) > 0 {
		_ = json.Unmarshal(r.Fields, &rec.Fields)
	}
	return rec
}

const recordColumns = `id, tenant_id, collection, slug, slug_translations, category_slug, fields, published, created_at, updated_at`

func (s *Store) CreateRecord(ctx context.Context, rec content.Record) (content.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	translationsJSON, err := json.Marshal(rec.SlugTranslations)
	if err != nil {
		return content.Record{}, err
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return content.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_records (id, tenant_id, collection, slug, slug_translations, category_slug, fields, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.TenantID, rec.Collection, rec.Slug, translationsJSON, rec.CategorySlug, fieldsJSON, rec.Published, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return content.Record{}, err
	}
	return rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec content.Record) (content.Record, error) {
	rec.UpdatedAt = time.Now().UTC()

	translationsJSON, err := json.Marshal(rec.SlugTranslations)
	if err != nil {
		return content.Record{}, err
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return content.Record{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE content_records
		SET slug = $2, slug_translations = $3, category_slug = $4, fields = $5, published = $6, updated_at = $7
		WHERE id = $1
	`, rec.ID, rec.Slug, translationsJSON, rec.CategorySlug, fieldsJSON, rec.Published, rec.UpdatedAt)
	if err != nil {
		return content.Record{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return content.Record{}, fmt.Errorf("content record %s: %w", rec.ID, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) GetRecordBySlug(ctx context.Context, tenantID, collection, locale, slug string) (content.Record, error) {
	var row recordRow
	// Translated slug first, default-locale slug as fallback.
	err := s.db.GetContext(ctx, &row, `
		SELECT `+recordColumns+` FROM content_records
		WHERE tenant_id = $1 AND collection = $2 AND published
		  AND lower(slug_translations->>$3) = lower($4)
		LIMIT 1
	`, tenantID, collection, locale, slug)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.GetContext(ctx, &row, `
			SELECT `+recordColumns+` FROM content_records
			WHERE tenant_id = $1 AND collection = $2 AND published AND lower(slug) = lower($3)
			LIMIT 1
		`, tenantID, collection, slug)
	}
	if err != nil {
		return content.Record{}, notFound(err, fmt.Sprintf("record %s in %s", slug, collection))
	}
	return row.toDomain(), nil
}

func (s *Store) ListRecords(ctx context.Context, tenantID, collection string, q content.Query) ([]content.Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + recordColumns + ` FROM content_records WHERE tenant_id = $1 AND collection = $2 AND published`)
	args := []any{tenantID, collection}

	if q.CategorySlug != "" {
		args = append(args, q.CategorySlug)
		fmt.Fprintf(&sb, ` AND lower(category_slug) = lower($%d)`, len(args))
	}
	if q.Slug != "" {
		args = append(args, q.Locale, q.Slug)
		fmt.Fprintf(&sb, ` AND (lower(slug_translations->>$%d) = lower($%d) OR lower(slug) = lower($%d))`,
			len(args)-1, len(args), len(args))
	}
	for key, value := range q.Filters {
		args = append(args, key, value)
		fmt.Fprintf(&sb, ` AND lower(fields->>$%d) = lower($%d)`, len(args)-1, len(args))
	}

	sb.WriteString(` ORDER BY created_at, id`)
	if q.Limit > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		args = append(args, q.Limit, (page-1)*q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, err
	}
	result := make([]content.Record, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}
