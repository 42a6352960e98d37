package dyndata

import (
	"context"
	"fmt"

	"github.com/pagecraft/render-engine/internal/app/domain/content"
	"github.com/pagecraft/render-engine/internal/app/storage"
)

// Request is the common envelope every provider accepts.
type Request struct {
	Page         int
	Limit        int
	Filters      map[string]string
	Slug         string
	CategorySlug string
	Locale       string
}

// Provider fetches a finite sequence of records for one data type. Fetches
// are read-only and idempotent.
type Provider interface {
	Fetch(ctx context.Context, tenantID string, req Request) ([]map[string]any, error)
}

// collectionProvider serves one content collection from the store.
type collectionProvider struct {
	collection   string
	store        storage.ContentStore
	defaultLimit int
}

func (p *collectionProvider) Fetch(ctx context.Context, tenantID string, req Request) ([]map[string]any, error) {
	// A slug selects exactly one record.
	if p.Slugged() && req.Slug != "" {
		rec, err := p.store.GetRecordBySlug(ctx, tenantID, p.collection, req.Locale, req.Slug)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %q: %w", p.collection, req.Slug, err)
		}
		return []map[string]any{flatten(rec, req.Locale)}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = p.defaultLimit
	}
	records, err := p.store.ListRecords(ctx, tenantID, p.collection, content.Query{
		Page:         req.Page,
		Limit:        limit,
		Filters:      req.Filters,
		CategorySlug: req.CategorySlug,
		Locale:       req.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p.collection, err)
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, flatten(rec, req.Locale))
	}
	return out, nil
}

// Slugged reports whether the collection supports single-record lookups.
// Statistics and free text are aggregate feeds without entity slugs.
func (p *collectionProvider) Slugged() bool {
	return p.collection != content.CollectionStatistics && p.collection != content.CollectionFreeText
}

// flatten turns a record into the flat map shape the presentation layer
// consumes. Field values win over envelope keys of the same name.
func flatten(rec content.Record, locale string) map[string]any {
	out := map[string]any{
		"id":   rec.ID,
		"slug": rec.SlugFor(locale),
	}
	if rec.CategorySlug != "" {
		out["category_slug"] = rec.CategorySlug
	}
	for k, v := range rec.Fields {
		out[k] = v
	}
	return out
}

// Registry holds the provider for each canonical data type.
type Registry map[string]Provider

// NewRegistry builds the standard provider set over one content store.
func NewRegistry(store storage.ContentStore) Registry {
	limits := map[string]int{
		content.CollectionProperties:   12,
		content.CollectionAdvisors:     24,
		content.CollectionVideos:       12,
		content.CollectionArticles:     10,
		content.CollectionTestimonials: 20,
		content.CollectionCategories:   50,
		content.CollectionStatistics:   50,
		content.CollectionFreeText:     50,
	}
	registry := make(Registry, len(limits))
	for collection, limit := range limits {
		registry[collection] = &collectionProvider{collection: collection, store: store, defaultLimit: limit}
	}
	return registry
}
