package catalog

import (
	"strings"
	"time"
)

// NavigationLevel is the URL depth a prefix supports before requiring an
// entity or category slug.
type NavigationLevel int

const (
	// LevelStatic routes serve a fixed page with no trailing segments.
	LevelStatic NavigationLevel = 0
	// LevelDirectory routes serve a directory page and, with one trailing
	// segment, a single-entity page.
	LevelDirectory NavigationLevel = 1
	// LevelListing routes serve a listing page, a category page with one
	// trailing segment, and a single-entity page with two.
	LevelListing NavigationLevel = 2
)

// Role describes what class of page a type renders. Prefix registration and
// route fallback both depend on it.
type Role string

const (
	RoleHomepage  Role = "homepage"
	RoleStatic    Role = "static"
	RoleDirectory Role = "directory"
	RoleListing   Role = "listing"
	RoleCategory  Role = "category"
	RoleSingle    Role = "single"
	RoleSearch    Role = "search"
)

// PageType is a catalog entry describing a class of rendered page.
type PageType struct {
	ID       string
	TenantID string
	Code     string
	Role     Role
	Level    NavigationLevel
	// DataSource names the content collection backing single, category and
	// listing pages. Empty for static pages.
	DataSource string
	// ChildSlugs are the only trailing segments a static page accepts.
	ChildSlugs []string
	IsTemplate bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PrefixConfig maps a URL prefix to a navigation level and the page type
// codes reachable at each depth. Prefixes exist only for directory-level or
// fully static page types; single and category types never register one.
type PrefixConfig struct {
	ID       string
	TenantID string
	// Prefix is the canonical first path segment.
	Prefix string
	// Aliases maps locale to the locale-specific prefix string.
	Aliases map[string]string
	Level   NavigationLevel

	// StaticCode serves level-0 prefixes.
	StaticCode string
	// DirectoryCode and ListingCode serve the zero-trailing-segment case at
	// levels 1 and 2 respectively.
	DirectoryCode string
	ListingCode   string
	// CategoryCode serves one trailing segment at level 2.
	CategoryCode string
	// SingleCode serves the deepest slot at levels 1 and 2.
	SingleCode string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches reports whether the first path segment selects this prefix in the
// given locale. Both the canonical prefix and the locale alias count.
func (p PrefixConfig) Matches(segment, locale string) bool {
	if strings.EqualFold(p.Prefix, segment) {
		return true
	}
	if alias, ok := p.Aliases[locale]; ok && strings.EqualFold(alias, segment) {
		return true
	}
	return false
}

// ComponentDefinition is the global definition of a component kind shared by
// all tenants.
type ComponentDefinition struct {
	ID       string
	Kind     string
	Variants []string
	// Defaults holds the default-data blob per variant. Its top-level keys
	// double as the variant's override schema.
	Defaults map[string]map[string]any
	// Fields documents the kind's field types for editors; the engine only
	// uses it for boundary validation hints.
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasVariant reports whether the kind allows the named variant.
func (d ComponentDefinition) HasVariant(variant string) bool {
	for _, v := range d.Variants {
		if v == variant {
			return true
		}
	}
	return false
}
