package composer

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*memory.Store, *Service, string) {
	t.Helper()
	store := memory.New()
	tn, err := store.CreateTenant(context.Background(), tenant.Tenant{Name: "demo", DefaultLocale: "es", Active: true})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return store, New(store, store, nil), tn.ID
}

func TestComposeGlobalOrdering(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	// Footer created before header; ordering must not depend on insertion.
	instances := []component.Instance{
		{TenantID: tenantID, Kind: component.KindFooter, Global: true, RendersAfterPage: true, Active: true},
		{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Order: 0, Active: true},
		{TenantID: tenantID, Kind: component.KindHeader, Global: true, Active: true},
		{TenantID: tenantID, Kind: "property_grid", PageTypeCode: "homepage", Order: 1, Active: true},
		{TenantID: tenantID, Kind: "banner", PageTypeCode: "homepage", Order: 2, Active: false},
	}
	for _, inst := range instances {
		if _, err := store.CreateInstance(ctx, inst); err != nil {
			t.Fatalf("CreateInstance: %v", err)
		}
	}

	composed, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	kinds := make([]string, len(composed))
	for i, c := range composed {
		kinds[i] = c.Kind
		if c.Order != i {
			t.Fatalf("expected dense order %d, got %d", i, c.Order)
		}
	}
	want := []string{component.KindHeader, "hero", "property_grid", component.KindFooter}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("expected order %v, got %v", want, kinds)
	}
}

func TestComposeImplicitDataType(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateInstance(ctx, component.Instance{
		TenantID: tenantID, Kind: "team_grid", PageTypeCode: "homepage", Active: true,
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, err := store.CreateInstance(ctx, component.Instance{
		TenantID: tenantID, Kind: "property_grid", PageTypeCode: "homepage", Order: 1, Active: true,
		Config: json.RawMessage(`{"dynamic_data":{"dataType":"videos"}}`),
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	composed, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := composed[0].Config.DynamicData["dataType"]; got != "advisors" {
		t.Fatalf("expected implicit advisors feed, got %v", got)
	}
	// An explicit dataType is never overwritten.
	if got := composed[1].Config.DynamicData["dataType"]; got != "videos" {
		t.Fatalf("expected stored dataType preserved, got %v", got)
	}
}

func TestComposeNormalizesMalformedConfig(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	blobs := []json.RawMessage{
		json.RawMessage(`"just a string"`),
		json.RawMessage(`{"styles":"compact","title":"Hola"}`),
	}
	for i, blob := range blobs {
		if _, err := store.CreateInstance(ctx, component.Instance{
			TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Order: i, Active: true, Config: blob,
		}); err != nil {
			t.Fatalf("CreateInstance: %v", err)
		}
	}

	composed, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	// Non-object blob collapses to empty partitions.
	if len(composed[0].Config.StaticData) != 0 || composed[0].Config.Styles == nil {
		t.Fatalf("expected empty normalized config, got %+v", composed[0].Config)
	}
	// Scalar partition is coerced, stray keys land in static data.
	if got := composed[1].Config.Styles["value"]; got != "compact" {
		t.Fatalf("expected coerced styles partition, got %+v", composed[1].Config.Styles)
	}
	if got := composed[1].Config.StaticData["title"]; got != "Hola" {
		t.Fatalf("expected stray key in static data, got %+v", composed[1].Config.StaticData)
	}
}

func TestComposeVariantDefaultsMerge(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateDefinition(ctx, catalog.ComponentDefinition{
		Kind:     "hero",
		Variants: []string{"full", "compact"},
		Defaults: map[string]map[string]any{
			"full": {"title": "Bienvenido", "subtitle": "default subtitle", "cta": "Contactar"},
		},
	}); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if _, err := store.CreateInstance(ctx, component.Instance{
		TenantID: tenantID, Kind: "hero", Variant: "full", PageTypeCode: "homepage", Active: true,
		Config: json.RawMessage(`{"static_data":{"title":"Villa del Mar"}}`),
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	composed, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	sd := composed[0].Config.StaticData
	if sd["title"] != "Villa del Mar" {
		t.Fatalf("override should win, got %v", sd["title"])
	}
	if sd["subtitle"] != "default subtitle" || sd["cta"] != "Contactar" {
		t.Fatalf("defaults should fill gaps, got %+v", sd)
	}
}

func TestComposeActiveSnapshotWins(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateInstance(ctx, component.Instance{
		TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true,
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, err := store.CreateSnapshot(ctx, component.Snapshot{
		TenantID: tenantID, Name: "holiday", PageTypeCode: "homepage", Active: true,
		Components: []component.Instance{
			{ID: "snap-1", TenantID: tenantID, Kind: "banner", PageTypeCode: "homepage", Active: true},
		},
	}); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	composed, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(composed) != 1 || composed[0].Kind != "banner" {
		t.Fatalf("expected snapshot contents, got %+v", composed)
	}
}

func TestComposeIdempotent(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateInstance(ctx, component.Instance{
		TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true,
		Config: json.RawMessage(`{"static_data":{"title":"Hola"}}`),
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	first, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := svc.Compose(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("composition is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
