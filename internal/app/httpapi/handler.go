// Package httpapi exposes the render pipeline and the administrative surface
// over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagecraft/render-engine/internal/app"
	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/domain/tenant"
	"github.com/pagecraft/render-engine/internal/app/metrics"
	"github.com/pagecraft/render-engine/internal/app/services/components"
	"github.com/pagecraft/render-engine/internal/app/services/tenants"
	"github.com/pagecraft/render-engine/pkg/logger"
)

// Handler serves the public render endpoint and the admin API.
type Handler struct {
	app     *app.Application
	limiter *tenantLimiter
	log     *logger.Logger
}

// New creates a Handler. ratePerSecond <= 0 disables rate limiting.
func New(application *app.Application, ratePerSecond float64, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{
		app:     application,
		limiter: newTenantLimiter(ratePerSecond),
		log:     log,
	}
}

// Routes builds the full router, instrumented with request metrics.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(h.requireTenant, h.rateLimit).Get("/pages/render", h.handleRender)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/tenants", h.handleCreateTenant)
			r.Get("/tenants", h.handleListTenants)
			r.Put("/tenants/{id}", h.handleUpdateTenant)

			r.Get("/definitions", h.handleListDefinitions)
			r.Post("/definitions", h.handleCreateDefinition)

			r.Group(func(r chi.Router) {
				r.Use(h.requireTenant)

				r.Post("/themes", h.handleUpsertTheme)
				r.Post("/page-types", h.handleCreatePageType)
				r.Get("/page-types", h.handleListPageTypes)
				r.Post("/prefixes", h.handleCreatePrefix)
				r.Put("/prefixes/{id}", h.handleUpdatePrefix)
				r.Get("/prefixes", h.handleListPrefixes)
				r.Post("/records", h.handleCreateRecord)
				r.Put("/records/{id}", h.handleUpdateRecord)

				r.Post("/components", h.handleCreateComponent)
				r.Put("/components/{id}", h.handleUpdateComponent)
				r.Delete("/components/{id}", h.handleDeleteComponent)
				r.Post("/components/reorder", h.handleReorderComponents)
				r.Post("/components/{id}/variant", h.handleChangeVariant)

				r.Post("/snapshots", h.handleSaveSnapshot)
				r.Post("/snapshots/{id}/activate", h.handleActivateSnapshot)
			})
		})
	})

	return metrics.InstrumentHandler(r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFrom(r.Context())
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	locale := r.URL.Query().Get("locale")

	payload, err := h.app.Render(r.Context(), tenantID, path, locale)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, page.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.WithError(err).WithField("path", r.URL.String()).Error("render failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// --- tenant admin -----------------------------------------------------------

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var t tenant.Tenant
	if !decodeJSON(w, r, &t) {
		return
	}
	created, err := h.app.Tenants().CreateTenant(r.Context(), t)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tenants().ListTenants(r.Context())
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var t tenant.Tenant
	if !decodeJSON(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	updated, err := h.app.Tenants().UpdateTenant(r.Context(), t)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleUpsertTheme(w http.ResponseWriter, r *http.Request) {
	var th tenant.Theme
	if !decodeJSON(w, r, &th) {
		return
	}
	th.TenantID = tenantFrom(r.Context())
	saved, err := h.app.Tenants().UpsertTheme(r.Context(), th)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleCreatePageType(w http.ResponseWriter, r *http.Request) {
	var pt catalog.PageType
	if !decodeJSON(w, r, &pt) {
		return
	}
	pt.TenantID = tenantFrom(r.Context())
	created, err := h.app.Tenants().CreatePageType(r.Context(), pt)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListPageTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tenants().ListPageTypes(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreatePrefix(w http.ResponseWriter, r *http.Request) {
	var p catalog.PrefixConfig
	if !decodeJSON(w, r, &p) {
		return
	}
	p.TenantID = tenantFrom(r.Context())
	created, err := h.app.Tenants().CreatePrefix(r.Context(), p)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdatePrefix(w http.ResponseWriter, r *http.Request) {
	var p catalog.PrefixConfig
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	p.TenantID = tenantFrom(r.Context())
	updated, err := h.app.Tenants().UpdatePrefix(r.Context(), p)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleListPrefixes(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tenants().ListPrefixes(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tenants().ListDefinitions(r.Context())
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var def catalog.ComponentDefinition
	if !decodeJSON(w, r, &def) {
		return
	}
	created, err := h.app.Tenants().CreateDefinition(r.Context(), def)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec content.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	rec.TenantID = tenantFrom(r.Context())
	created, err := h.app.Tenants().CreateRecord(r.Context(), rec)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var rec content.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	rec.ID = chi.URLParam(r, "id")
	rec.TenantID = tenantFrom(r.Context())
	updated, err := h.app.Tenants().UpdateRecord(r.Context(), rec)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- component admin --------------------------------------------------------

func (h *Handler) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	var inst component.Instance
	if !decodeJSON(w, r, &inst) {
		return
	}
	inst.TenantID = tenantFrom(r.Context())
	created, err := h.app.Components().Create(r.Context(), inst)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config json.RawMessage `json:"config"`
		Active bool            `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := h.app.Components().Update(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"), body.Config, body.Active)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Components().Delete(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.adminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReorderComponents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageTypeCode string   `json:"pageTypeCode"`
		OrderedIDs   []string `json:"orderedIds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.app.Components().Reorder(r.Context(), tenantFrom(r.Context()), body.PageTypeCode, body.OrderedIDs); err != nil {
		h.adminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangeVariant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Variant string `json:"variant"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := h.app.Components().ChangeVariant(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"), body.Variant)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageTypeCode string `json:"pageTypeCode"`
		Name         string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	snap, err := h.app.Components().SaveSnapshot(r.Context(), tenantFrom(r.Context()), body.PageTypeCode, body.Name)
	if err != nil {
		h.adminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleActivateSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Components().ActivateSnapshot(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.adminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminError maps service errors to status codes. Validation errors become
// 400s, misses 404s, ownership violations 403s; everything else is a 500.
func (h *Handler) adminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, components.ErrOwnership):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, components.ErrScopeConflict),
		errors.Is(err, components.ErrUnknownVariant),
		errors.Is(err, components.ErrDuplicateGlobal),
		errors.Is(err, tenants.ErrPrefixRole),
		errors.Is(err, tenants.ErrPrefixCodes):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, page.ErrNotFound), isStorageMiss(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.WithError(err).Error("admin operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
