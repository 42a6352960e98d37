package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
)

// seedApplication builds an Application on the in-memory fallback store and
// loads a small but complete tenant.
func seedApplication(t *testing.T) (*Application, string) {
	t.Helper()
	application := New(Options{})
	ctx := context.Background()

	tn, err := application.Tenants().CreateTenant(ctx, tenant.Tenant{
		Name:              "demo",
		DefaultLocale:     "es",
		Locales:           []string{"es", "en"},
		DefaultCollection: content.CollectionProperties,
		Active:            true,
	})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}

	pageTypes := []catalog.PageType{
		{TenantID: tn.ID, Code: "homepage", Role: catalog.RoleHomepage},
		{TenantID: tn.ID, Code: "directorio_asesores", Role: catalog.RoleDirectory, Level: catalog.LevelDirectory, DataSource: content.CollectionAdvisors},
		{TenantID: tn.ID, Code: "asesor_single", Role: catalog.RoleSingle, DataSource: content.CollectionAdvisors, IsTemplate: true},
	}
	for _, pt := range pageTypes {
		if _, err := application.Tenants().CreatePageType(ctx, pt); err != nil {
			t.Fatalf("CreatePageType: %v", err)
		}
	}
	if _, err := application.Tenants().CreatePrefix(ctx, catalog.PrefixConfig{
		TenantID: tn.ID, Prefix: "asesores", Level: catalog.LevelDirectory,
		DirectoryCode: "directorio_asesores", SingleCode: "asesor_single", Active: true,
	}); err != nil {
		t.Fatalf("CreatePrefix: %v", err)
	}

	instances := []component.Instance{
		{TenantID: tn.ID, Kind: component.KindHeader, Global: true, Active: true},
		{TenantID: tn.ID, Kind: component.KindFooter, Global: true, Active: true},
		{TenantID: tn.ID, Kind: "hero", PageTypeCode: "homepage", Active: true,
			Config: json.RawMessage(`{"static_data":{"title":"Bienvenido"}}`)},
		{TenantID: tn.ID, Kind: "team_grid", PageTypeCode: "homepage", Active: true},
	}
	for _, inst := range instances {
		if _, err := application.Components().Create(ctx, inst); err != nil {
			t.Fatalf("Create component: %v", err)
		}
	}

	if _, err := application.Tenants().CreateRecord(ctx, content.Record{
		TenantID: tn.ID, Collection: content.CollectionAdvisors, Slug: "maria-rodriguez",
		Fields: map[string]any{"name": "Maria"}, Published: true,
	}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	return application, tn.ID
}

func TestRenderHomepage(t *testing.T) {
	application, tenantID := seedApplication(t)

	payload, err := application.Render(context.Background(), tenantID, "/", "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if payload.Page.PageType != "homepage" || payload.Locale != "es" {
		t.Fatalf("unexpected page meta: %+v", payload.Page)
	}

	if len(payload.Components) != 4 {
		t.Fatalf("expected 4 components, got %d", len(payload.Components))
	}
	if payload.Components[0].Kind != component.KindHeader {
		t.Fatalf("header must be first, got %s", payload.Components[0].Kind)
	}
	if payload.Components[len(payload.Components)-1].Kind != component.KindFooter {
		t.Fatalf("footer must be last, got %s", payload.Components[len(payload.Components)-1].Kind)
	}

	// The team grid's implicit advisors feed is resolved.
	for _, c := range payload.Components {
		if c.Kind != "team_grid" {
			continue
		}
		records, ok := c.Config.DynamicData["resolved"].([]map[string]any)
		if !ok || len(records) != 1 || records[0]["name"] != "Maria" {
			t.Fatalf("expected resolved advisors, got %v", c.Config.DynamicData)
		}
	}

	if payload.Theme["primary"] != tenant.DefaultPalette()["primary"] {
		t.Fatalf("expected default palette, got %v", payload.Theme)
	}
}

func TestRenderSinglePage(t *testing.T) {
	application, tenantID := seedApplication(t)

	payload, err := application.Render(context.Background(), tenantID, "/asesores/maria-rodriguez", "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if payload.Page.PageType != "asesor_single" || payload.Page.EntitySlug != "maria-rodriguez" {
		t.Fatalf("unexpected page meta: %+v", payload.Page)
	}
	if !payload.Page.IsTemplate {
		t.Fatal("expected template flag from catalog")
	}
	// Globals still frame a page with no bound components.
	if len(payload.Components) != 2 {
		t.Fatalf("expected header and footer only, got %d", len(payload.Components))
	}
}

func TestRenderNotFound(t *testing.T) {
	application, tenantID := seedApplication(t)

	_, err := application.Render(context.Background(), tenantID, "/no-such-page", "")
	if !errors.Is(err, page.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
