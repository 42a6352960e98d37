package composer

import "github.com/pagecraft/render-engine/internal/app/domain/content"

// implicitDataTypes maps component kinds to the data feed they always need.
// The table is fixed engine behavior, not tenant-configurable.
var implicitDataTypes = map[string]string{
	"property_grid":    content.CollectionProperties,
	"property_search":  content.CollectionProperties,
	"team_grid":        content.CollectionAdvisors,
	"advisor_card":     content.CollectionAdvisors,
	"video_gallery":    content.CollectionVideos,
	"article_list":     content.CollectionArticles,
	"testimonial_wall": content.CollectionTestimonials,
	"category_nav":     content.CollectionCategories,
	"stats_band":       content.CollectionStatistics,
}

// injectImplicitDataType fills in the kind's implicit requirement. An
// explicitly stored dataType always wins.
func injectImplicitDataType(kind string, dynamicData map[string]any) {
	dataType, ok := implicitDataTypes[kind]
	if !ok {
		return
	}
	if existing, exists := dynamicData["dataType"]; exists && existing != "" {
		return
	}
	dynamicData["dataType"] = dataType
}
