package tenant

import "time"

// Tenant is the isolation boundary. Every other entity in the engine is
// scoped to exactly one tenant.
type Tenant struct {
	ID            string
	Name          string
	DefaultLocale string
	Locales       []string
	// DefaultCollection is the content collection searched when a path
	// matches no registered prefix, e.g. "properties".
	DefaultCollection string
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasLocale reports whether the locale is enabled for the tenant.
func (t Tenant) HasLocale(locale string) bool {
	for _, l := range t.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// Theme is a tenant-level named color palette.
type Theme struct {
	ID        string
	TenantID  string
	Name      string
	Palette   map[string]string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultPalette is the palette applied when a tenant has no active theme.
func DefaultPalette() map[string]string {
	return map[string]string{
		"primary":    "#1a1a2e",
		"secondary":  "#16213e",
		"accent":     "#e94560",
		"background": "#ffffff",
		"text":       "#0f0f0f",
	}
}
