package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagecraft/render-engine/internal/app"
	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
)

func newServer(t *testing.T, ratePerSecond float64) (*httptest.Server, string) {
	t.Helper()
	application := app.New(app.Options{})
	ctx := context.Background()

	tn, err := application.Tenants().CreateTenant(ctx, tenant.Tenant{Name: "demo", DefaultLocale: "es", Active: true})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if _, err := application.Tenants().CreatePageType(ctx, catalog.PageType{
		TenantID: tn.ID, Code: "homepage", Role: catalog.RoleHomepage,
	}); err != nil {
		t.Fatalf("CreatePageType: %v", err)
	}
	if _, err := application.Components().Create(ctx, component.Instance{
		TenantID: tn.ID, Kind: "hero", PageTypeCode: "homepage", Active: true,
		Config: json.RawMessage(`{"static_data":{"title":"Bienvenido"}}`),
	}); err != nil {
		t.Fatalf("Create component: %v", err)
	}
	if _, err := application.Tenants().CreateRecord(ctx, content.Record{
		TenantID: tn.ID, Collection: content.CollectionAdvisors, Slug: "maria-rodriguez", Published: true,
	}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	server := httptest.NewServer(New(application, ratePerSecond, nil).Routes())
	t.Cleanup(server.Close)
	return server, tn.ID
}

func TestRenderEndpoint(t *testing.T) {
	server, tenantID := newServer(t, 0)

	resp, err := http.Get(server.URL + "/v1/pages/render?tenant=" + tenantID + "&path=/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload page.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Page.PageType != "homepage" || len(payload.Components) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Components[0].Config.StaticData["title"] != "Bienvenido" {
		t.Fatalf("unexpected component config: %+v", payload.Components[0].Config)
	}
}

func TestRenderEndpointNotFound(t *testing.T) {
	server, tenantID := newServer(t, 0)

	resp, err := http.Get(server.URL + "/v1/pages/render?tenant=" + tenantID + "&path=/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRenderEndpointRequiresTenant(t *testing.T) {
	server, _ := newServer(t, 0)

	resp, err := http.Get(server.URL + "/v1/pages/render?path=/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRenderEndpointRateLimit(t *testing.T) {
	server, tenantID := newServer(t, 1)

	limited := false
	for i := 0; i < 10; i++ {
		resp, err := http.Get(server.URL + "/v1/pages/render?tenant=" + tenantID + "&path=/")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected the per-tenant rate limit to trip")
	}
}

func TestAdminComponentLifecycle(t *testing.T) {
	server, tenantID := newServer(t, 0)
	client := server.Client()

	post := func(path string, body any) *http.Response {
		t.Helper()
		raw, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(raw))
		req.Header.Set("X-Tenant-ID", tenantID)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/v1/admin/components", map[string]any{
		"Kind": "team_grid", "PageTypeCode": "homepage", "Active": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created component.Instance
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if created.Order != 1 {
		t.Fatalf("expected appended order 1, got %d", created.Order)
	}

	// Binding both scopes is rejected.
	resp = post("/v1/admin/components", map[string]any{
		"Kind": "hero", "PageTypeCode": "homepage", "CustomRoute": "/landing",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete closes the order gap; rendering still works.
	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/v1/admin/components/"+created.ID, nil)
	req.Header.Set("X-Tenant-ID", tenantID)
	delResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", delResp.StatusCode)
	}

	renderResp, err := http.Get(server.URL + "/v1/pages/render?tenant=" + tenantID + "&path=/")
	if err != nil {
		t.Fatalf("GET render: %v", err)
	}
	defer renderResp.Body.Close()
	if renderResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after delete, got %d", renderResp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newServer(t, 0)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
