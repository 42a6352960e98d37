package assembler

import (
	"context"
	"testing"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage/memory"
)

func TestAssembleThemeFallback(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tn, err := store.CreateTenant(ctx, tenant.Tenant{Name: "demo", DefaultLocale: "es", Locales: []string{"es", "en"}, Active: true})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	svc := New(store, store, nil)

	match := page.RouteMatch{PageTypeCode: "homepage", Locale: "es"}
	payload, err := svc.Assemble(ctx, tn.ID, "/", match, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if payload.Theme["primary"] != tenant.DefaultPalette()["primary"] {
		t.Fatalf("expected default palette, got %v", payload.Theme)
	}
	if payload.Components == nil || len(payload.Components) != 0 {
		t.Fatalf("expected empty component slice, got %v", payload.Components)
	}
	if len(payload.AvailableLocales) != 2 {
		t.Fatalf("expected tenant locales, got %v", payload.AvailableLocales)
	}

	// An active theme replaces the default palette.
	if _, err := store.UpsertTheme(ctx, tenant.Theme{
		TenantID: tn.ID, Name: "brand", Palette: map[string]string{"primary": "#123456"}, Active: true,
	}); err != nil {
		t.Fatalf("UpsertTheme: %v", err)
	}
	payload, err = svc.Assemble(ctx, tn.ID, "/", match, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if payload.Theme["primary"] != "#123456" {
		t.Fatalf("expected brand palette, got %v", payload.Theme)
	}
}

func TestAssemblePageMeta(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tn, err := store.CreateTenant(ctx, tenant.Tenant{Name: "demo", DefaultLocale: "es", Active: true})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := store.CreatePageType(ctx, catalog.PageType{
		TenantID: tn.ID, Code: "asesor_single", Role: catalog.RoleSingle, IsTemplate: true,
	}); err != nil {
		t.Fatalf("CreatePageType: %v", err)
	}
	svc := New(store, store, nil)

	match := page.RouteMatch{PageTypeCode: "asesor_single", EntitySlug: "maria-rodriguez", Locale: "es"}
	components := []component.Composed{{ID: "c1", Kind: "advisor_card"}}
	payload, err := svc.Assemble(ctx, tn.ID, "/asesores/maria-rodriguez", match, components)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if payload.Page.PageType != "asesor_single" || payload.Page.EntitySlug != "maria-rodriguez" {
		t.Fatalf("unexpected meta: %+v", payload.Page)
	}
	if !payload.Page.IsTemplate {
		t.Fatal("expected template flag from the catalog")
	}
	if len(payload.Components) != 1 {
		t.Fatalf("expected components passed through, got %v", payload.Components)
	}
}
