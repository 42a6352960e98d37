package page

import (
	"github.com/pagecraft/render-engine/internal/app/domain/component"
)

// RouteMatch is the outcome of resolving a URL path against a tenant's
// catalog.
type RouteMatch struct {
	PageTypeCode string            `json:"pageTypeCode"`
	EntitySlug   string            `json:"entitySlug,omitempty"`
	CategorySlug string            `json:"categorySlug,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	Locale       string            `json:"locale"`
}

// Meta describes the resolved page itself inside the final payload.
type Meta struct {
	PageType     string            `json:"pageType"`
	Path         string            `json:"path"`
	EntitySlug   string            `json:"entitySlug,omitempty"`
	CategorySlug string            `json:"categorySlug,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	IsTemplate   bool              `json:"isTemplate,omitempty"`
}

// Payload is the stable-shaped response consumed verbatim by the
// presentation layer.
type Payload struct {
	Page             Meta                 `json:"page"`
	Theme            map[string]string    `json:"theme"`
	Components       []component.Composed `json:"components"`
	Locale           string               `json:"locale"`
	AvailableLocales []string             `json:"availableLocales"`
}
