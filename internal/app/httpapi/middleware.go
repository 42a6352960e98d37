package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pagecraft/render-engine/internal/app/storage"
)

type contextKey string

const tenantKey contextKey = "tenant"

// requireTenant extracts the tenant from the X-Tenant-ID header, falling back
// to the "tenant" query parameter, and stores it in the request context.
func (h *Handler) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			tenantID = r.URL.Query().Get("tenant")
		}
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey, tenantID)))
	})
}

func tenantFrom(ctx context.Context) string {
	tenantID, _ := ctx.Value(tenantKey).(string)
	return tenantID
}

// tenantLimiter keeps one token bucket per tenant.
type tenantLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

func newTenantLimiter(rps float64) *tenantLimiter {
	return &tenantLimiter{limiters: make(map[string]*rate.Limiter), rps: rps}
}

func (l *tenantLimiter) allow(tenantID string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), int(l.rps)+1)
		l.limiters[tenantID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// rateLimit rejects render requests above the per-tenant budget.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.allow(tenantFrom(r.Context())) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isStorageMiss(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
