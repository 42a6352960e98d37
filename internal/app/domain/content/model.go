package content

import "time"

// Collections served by the dynamic-data providers.
const (
	CollectionProperties   = "properties"
	CollectionAdvisors     = "advisors"
	CollectionVideos       = "videos"
	CollectionArticles     = "articles"
	CollectionTestimonials = "testimonials"
	CollectionCategories   = "categories"
	CollectionStatistics   = "statistics"
	CollectionFreeText     = "freetext"
)

// Record is a tenant-scoped entry in a named content collection.
type Record struct {
	ID         string
	TenantID   string
	Collection string
	// Slug is the default-locale slug.
	Slug string
	// SlugTranslations maps locale to the translated slug.
	SlugTranslations map[string]string
	// CategorySlug groups records under a category, when the collection has
	// categories.
	CategorySlug string
	Fields       map[string]any
	Published    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SlugFor returns the record's slug in the given locale, falling back to the
// default-locale slug.
func (r Record) SlugFor(locale string) string {
	if s, ok := r.SlugTranslations[locale]; ok && s != "" {
		return s
	}
	return r.Slug
}

// Query is the common envelope accepted by every content lookup.
type Query struct {
	Page  int
	Limit int
	// Filters matches against record fields; values compare as strings.
	Filters map[string]string
	// Slug selects a single record, honoring locale translations.
	Slug string
	// CategorySlug restricts results to one category.
	CategorySlug string
	Locale       string
}
