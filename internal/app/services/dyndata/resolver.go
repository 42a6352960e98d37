// Package dyndata resolves the dynamic-data declarations carried by composed
// components against the domain content providers.
package dyndata

import (
	"context"
	"fmt"
	"sync"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/internal/app/domain/page"
	"github.com/pagecraft/render-engine/internal/app/metrics"
	"github.com/pagecraft/render-engine/pkg/logger"
)

const defaultWorkers = 8

// Service dispatches dynamic-data declarations to providers with bounded
// fan-out. Failures are isolated per component.
type Service struct {
	providers Registry
	workers   int
	log       *logger.Logger
}

// New creates a resolver over the given provider registry.
func New(providers Registry, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dyndata")
	}
	return &Service{providers: providers, workers: defaultWorkers, log: log}
}

// Resolve fetches data for every component declaring a dataType and attaches
// the records under the declaration's "resolved" key. One failing fetch
// annotates only its own component; siblings and the page are unaffected.
func (s *Service) Resolve(ctx context.Context, tenantID string, match page.RouteMatch, components []component.Composed) []component.Composed {
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i := range components {
		dd := components[i].Config.DynamicData
		dataType, _ := dd["dataType"].(string)
		if dataType == "" {
			continue
		}

		wg.Add(1)
		go func(idx int, dataType string, dd map[string]any) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s.resolveOne(ctx, tenantID, match, components[idx].ID, dataType, dd)
		}(i, dataType, dd)
	}
	wg.Wait()
	return components
}

// resolveOne mutates dd in place. Each goroutine owns exactly one component's
// partition map, so no locking is needed.
func (s *Service) resolveOne(ctx context.Context, tenantID string, match page.RouteMatch, componentID, dataType string, dd map[string]any) {
	key, ok := Canonicalize(dataType)
	if !ok {
		dd["resolved"] = []map[string]any{}
		dd["error"] = fmt.Sprintf("unknown dataType %q", dataType)
		s.log.WithFields(map[string]any{
			"component": componentID,
			"dataType":  dataType,
		}).Warn("dynamic data declaration names no provider")
		return
	}
	provider := s.providers[key]
	if provider == nil {
		dd["resolved"] = []map[string]any{}
		dd["error"] = fmt.Sprintf("no provider for %q", key)
		return
	}

	records, err := provider.Fetch(ctx, tenantID, buildRequest(dd, match))
	metrics.RecordDynamicDataFetch(key, err == nil)
	if err != nil {
		dd["resolved"] = []map[string]any{}
		dd["error"] = err.Error()
		s.log.WithError(err).WithFields(map[string]any{
			"component": componentID,
			"provider":  key,
		}).Warn("dynamic data fetch failed")
		return
	}
	dd["resolved"] = records
}

// buildRequest merges the declaration's parameters with the route match.
// Declared values win; the match fills in page-level filters and category,
// and the entity slug for declarations in single mode.
func buildRequest(dd map[string]any, match page.RouteMatch) Request {
	req := Request{
		Page:         toInt(dd["page"]),
		Limit:        toInt(dd["limit"]),
		Slug:         toString(dd["slug"]),
		CategorySlug: toString(dd["category"]),
		Locale:       match.Locale,
		Filters:      map[string]string{},
	}
	for k, v := range match.Filters {
		req.Filters[k] = v
	}
	if declared, ok := dd["filters"].(map[string]any); ok {
		for k, v := range declared {
			req.Filters[k] = fmt.Sprint(v)
		}
	}
	if req.Slug == "" && toString(dd["mode"]) == "single" {
		req.Slug = match.EntitySlug
	}
	if req.CategorySlug == "" {
		req.CategorySlug = match.CategorySlug
	}
	return req
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
