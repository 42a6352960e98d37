package component

import (
	"encoding/json"
	"time"
)

// Well-known component kinds with engine-level behavior.
const (
	KindHeader = "header"
	KindFooter = "footer"
)

// Instance is a tenant-scoped instantiation of a component kind, bound to
// exactly one of a page type or a custom route.
type Instance struct {
	ID       string
	TenantID string
	Kind     string
	Variant  string

	// Exactly one of PageTypeCode and CustomRoute is set for page-bound
	// components; both are empty for tenant-global ones.
	PageTypeCode string
	CustomRoute  string

	// Global components (header, footer) appear on every resolved page.
	Global bool
	// RendersAfterPage places a global component after all page content.
	RendersAfterPage bool

	// Order is dense per (tenant, page scope); ties break by CreatedAt.
	Order  int
	Active bool

	// Config is the stored configuration blob as persisted. Historical rows
	// may carry arbitrary shapes; it is normalized at composition time.
	Config json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Config is the normalized component configuration, partitioned into exactly
// four named sections.
type Config struct {
	StaticData  map[string]any `json:"static_data"`
	DynamicData map[string]any `json:"dynamic_data"`
	Styles      map[string]any `json:"styles"`
	Toggles     map[string]any `json:"toggles"`
}

// Clone returns a deep-enough copy: each partition map is copied so callers
// can annotate results without mutating shared state.
func (c Config) Clone() Config {
	return Config{
		StaticData:  cloneAnyMap(c.StaticData),
		DynamicData: cloneAnyMap(c.DynamicData),
		Styles:      cloneAnyMap(c.Styles),
		Toggles:     cloneAnyMap(c.Toggles),
	}
}

func cloneAnyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Composed is a component descriptor ready for dynamic-data resolution and
// final assembly.
type Composed struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Variant string `json:"variant"`
	Order   int    `json:"order"`
	Config  Config `json:"config"`
}

// Snapshot is a named, swappable full copy of a page's component list. At
// most one snapshot per page scope is active.
type Snapshot struct {
	ID           string
	TenantID     string
	Name         string
	PageTypeCode string
	Components   []Instance
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
