package components

import (
	"context"
	"encoding/json"
	"errors"
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

func TestCreateScopeValidation(t *testing.T) {
	_, svc, tenantID := newFixture(t)
	ctx := context.Background()

	cases := []component.Instance{
		{TenantID: tenantID, Kind: "hero"},                                                            // neither
		{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", CustomRoute: "/landing"},         // both
		{TenantID: tenantID, Kind: component.KindHeader, Global: true, PageTypeCode: "homepage"},      // global + page
	}
	for i, inst := range cases {
		if _, err := svc.Create(ctx, inst); !errors.Is(err, ErrScopeConflict) {
			t.Fatalf("case %d: expected scope conflict, got %v", i, err)
		}
	}

	if _, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true}); err != nil {
		t.Fatalf("valid instance rejected: %v", err)
	}
}

func TestCreateDenseOrderAndGlobalSingleton(t *testing.T) {
	_, svc, tenantID := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created.Order != i {
			t.Fatalf("expected appended order %d, got %d", i, created.Order)
		}
	}

	header, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: component.KindHeader, Global: true, Active: true})
	if err != nil {
		t.Fatalf("Create header: %v", err)
	}
	if header.RendersAfterPage {
		t.Fatal("header must render before page content")
	}
	footer, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: component.KindFooter, Global: true, Active: true})
	if err != nil {
		t.Fatalf("Create footer: %v", err)
	}
	if !footer.RendersAfterPage {
		t.Fatal("footer must render after page content")
	}

	if _, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: component.KindHeader, Global: true}); !errors.Is(err, ErrDuplicateGlobal) {
		t.Fatalf("expected duplicate global rejection, got %v", err)
	}
}

func TestDeleteRenumbers(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, created.ID)
	}

	if err := svc.Delete(ctx, tenantID, ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	remaining, err := store.ListByPageType(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("ListByPageType: %v", err)
	}
	if len(remaining) != 2 || remaining[0].Order != 0 || remaining[1].Order != 1 {
		t.Fatalf("expected dense order after delete, got %+v", remaining)
	}
}

func TestReorder(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, created.ID)
	}

	if err := svc.Reorder(ctx, tenantID, "homepage", []string{ids[2], ids[0], ids[1]}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	reordered, err := store.ListByPageType(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("ListByPageType: %v", err)
	}
	if reordered[0].ID != ids[2] || reordered[1].ID != ids[0] || reordered[2].ID != ids[1] {
		t.Fatalf("unexpected order: %+v", reordered)
	}

	if err := svc.Reorder(ctx, tenantID, "homepage", ids[:2]); err == nil {
		t.Fatal("partial reorder must be rejected")
	}
}

func TestChangeVariantPrunesOverrides(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := store.CreateDefinition(ctx, catalog.ComponentDefinition{
		Kind:     "hero",
		Variants: []string{"full", "compact"},
		Defaults: map[string]map[string]any{
			"full":    {"title": "t", "subtitle": "s", "cta": "c"},
			"compact": {"title": "t"},
		},
	}); err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	created, err := svc.Create(ctx, component.Instance{
		TenantID: tenantID, Kind: "hero", Variant: "full", PageTypeCode: "homepage", Active: true,
		Config: json.RawMessage(`{"static_data":{"title":"Hola","subtitle":"Bienvenido"},"styles":{"align":"left"}}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.ChangeVariant(ctx, tenantID, created.ID, "compact")
	if err != nil {
		t.Fatalf("ChangeVariant: %v", err)
	}
	var cfg map[string]map[string]any
	if err := json.Unmarshal(updated.Config, &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	sd := cfg["static_data"]
	if sd["title"] != "Hola" {
		t.Fatalf("shared key must survive, got %+v", sd)
	}
	if _, ok := sd["subtitle"]; ok {
		t.Fatalf("key absent from new schema must be discarded, got %+v", sd)
	}
	if cfg["styles"]["align"] != "left" {
		t.Fatalf("other partitions must be untouched, got %+v", cfg)
	}

	if _, err := svc.ChangeVariant(ctx, tenantID, created.ID, "banner"); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected unknown variant rejection, got %v", err)
	}
}

func TestSnapshotActivation(t *testing.T) {
	store, svc, tenantID := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := svc.SaveSnapshot(ctx, tenantID, "homepage", "v1")
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	second, err := svc.SaveSnapshot(ctx, tenantID, "homepage", "v2")
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if first.Active || second.Active {
		t.Fatal("snapshots must start inactive")
	}

	if err := svc.ActivateSnapshot(ctx, tenantID, first.ID); err != nil {
		t.Fatalf("ActivateSnapshot: %v", err)
	}
	if err := svc.ActivateSnapshot(ctx, tenantID, second.ID); err != nil {
		t.Fatalf("ActivateSnapshot: %v", err)
	}

	snapshots, err := store.ListSnapshots(ctx, tenantID, "homepage")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	active := 0
	for _, snap := range snapshots {
		if snap.Active {
			active++
			if snap.ID != second.ID {
				t.Fatalf("expected %s active, got %s", second.ID, snap.ID)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active snapshot, got %d", active)
	}

	if err := svc.ActivateSnapshot(ctx, "other-tenant", second.ID); !errors.Is(err, ErrOwnership) {
		t.Fatalf("expected ownership rejection, got %v", err)
	}
}

func TestOwnershipChecks(t *testing.T) {
	_, svc, tenantID := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, component.Instance{TenantID: tenantID, Kind: "hero", PageTypeCode: "homepage", Active: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Update(ctx, "other-tenant", created.ID, nil, true); !errors.Is(err, ErrOwnership) {
		t.Fatalf("expected ownership rejection, got %v", err)
	}
	if err := svc.Delete(ctx, "other-tenant", created.ID); !errors.Is(err, ErrOwnership) {
		t.Fatalf("expected ownership rejection, got %v", err)
	}
}
