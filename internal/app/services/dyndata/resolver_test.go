package dyndata

import (
	"context"
	"errors"
	"testing"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/storage/memory"
)

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"agents":         content.CollectionAdvisors,
		"asesores":       content.CollectionAdvisors,
		"lista_asesores": content.CollectionAdvisors,
		"Propiedades":    content.CollectionProperties,
		" videos ":       content.CollectionVideos,
	}
	for input, want := range cases {
		got, ok := Canonicalize(input)
		if !ok || got != want {
			t.Fatalf("Canonicalize(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := Canonicalize("no-such-feed"); ok {
		t.Fatal("expected unknown dataType to miss")
	}
}

func seedContent(t *testing.T) (*memory.Store, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	tn, err := store.CreateTenant(ctx, tenant.Tenant{Name: "demo", DefaultLocale: "es", Active: true})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	records := []content.Record{
		{TenantID: tn.ID, Collection: content.CollectionAdvisors, Slug: "maria-rodriguez", Fields: map[string]any{"name": "Maria"}, Published: true},
		{TenantID: tn.ID, Collection: content.CollectionAdvisors, Slug: "juan-perez", Fields: map[string]any{"name": "Juan"}, Published: true},
		{TenantID: tn.ID, Collection: content.CollectionProperties, Slug: "villa-del-mar", Fields: map[string]any{"operation": "sale"}, Published: true},
	}
	for _, rec := range records {
		if _, err := store.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("CreateRecord: %v", err)
		}
	}
	return store, tn.ID
}

func composedWith(id string, dd map[string]any) component.Composed {
	return component.Composed{
		ID:   id,
		Kind: "grid",
		Config: component.Config{
			StaticData:  map[string]any{},
			DynamicData: dd,
			Styles:      map[string]any{},
			Toggles:     map[string]any{},
		},
	}
}

func TestResolveAttachesRecords(t *testing.T) {
	store, tenantID := seedContent(t)
	svc := New(NewRegistry(store), nil)

	components := []component.Composed{
		composedWith("c1", map[string]any{"dataType": "asesores"}),
		composedWith("c2", map[string]any{}),
	}
	resolved := svc.Resolve(context.Background(), tenantID, page.RouteMatch{Locale: "es"}, components)

	records, ok := resolved[0].Config.DynamicData["resolved"].([]map[string]any)
	if !ok || len(records) != 2 {
		t.Fatalf("expected 2 advisor records, got %v", resolved[0].Config.DynamicData["resolved"])
	}
	if _, annotated := resolved[0].Config.DynamicData["error"]; annotated {
		t.Fatal("unexpected error annotation on successful fetch")
	}
	if _, touched := resolved[1].Config.DynamicData["resolved"]; touched {
		t.Fatal("component without declaration must stay untouched")
	}
}

func TestResolveSingleMode(t *testing.T) {
	store, tenantID := seedContent(t)
	svc := New(NewRegistry(store), nil)

	components := []component.Composed{
		composedWith("detail", map[string]any{"dataType": "propiedades", "mode": "single"}),
	}
	match := page.RouteMatch{Locale: "es", EntitySlug: "villa-del-mar"}
	resolved := svc.Resolve(context.Background(), tenantID, match, components)

	records := resolved[0].Config.DynamicData["resolved"].([]map[string]any)
	if len(records) != 1 || records[0]["slug"] != "villa-del-mar" {
		t.Fatalf("expected the routed entity, got %v", records)
	}
}

// failingProvider always errors, standing in for an unreachable data source.
type failingProvider struct{}

func (failingProvider) Fetch(context.Context, string, Request) ([]map[string]any, error) {
	return nil, errors.New("connection refused")
}

func TestResolvePartialFailureIsolation(t *testing.T) {
	store, tenantID := seedContent(t)
	registry := NewRegistry(store)
	registry[content.CollectionVideos] = failingProvider{}
	svc := New(registry, nil)

	components := []component.Composed{
		composedWith("ok-1", map[string]any{"dataType": "advisors"}),
		composedWith("broken", map[string]any{"dataType": "videos"}),
		composedWith("ok-2", map[string]any{"dataType": "properties"}),
	}
	resolved := svc.Resolve(context.Background(), tenantID, page.RouteMatch{Locale: "es"}, components)

	healthy := 0
	annotated := 0
	for _, c := range resolved {
		dd := c.Config.DynamicData
		if _, failed := dd["error"]; failed {
			annotated++
			if records := dd["resolved"].([]map[string]any); len(records) != 0 {
				t.Fatalf("failed component must carry empty records, got %v", records)
			}
			continue
		}
		if _, ok := dd["resolved"]; ok {
			healthy++
		}
	}
	if healthy != 2 || annotated != 1 {
		t.Fatalf("expected 2 resolved + 1 annotated, got %d + %d", healthy, annotated)
	}
}

func TestResolveUnknownDataType(t *testing.T) {
	store, tenantID := seedContent(t)
	svc := New(NewRegistry(store), nil)

	components := []component.Composed{
		composedWith("c1", map[string]any{"dataType": "mystery_feed"}),
	}
	resolved := svc.Resolve(context.Background(), tenantID, page.RouteMatch{Locale: "es"}, components)

	dd := resolved[0].Config.DynamicData
	if dd["error"] == "" || len(dd["resolved"].([]map[string]any)) != 0 {
		t.Fatalf("expected annotated empty result, got %v", dd)
	}
}
