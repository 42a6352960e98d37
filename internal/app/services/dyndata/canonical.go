package dyndata

import (
	"strings"

	"github.com/pagecraft/render-engine/internal/app/domain/content"
)

// synonyms collapses the dataType spellings found in stored configuration to
// one internal provider key. Resolved once at dispatch.
var synonyms = map[string]string{
	"properties":        content.CollectionProperties,
	"propiedades":       content.CollectionProperties,
	"inmuebles":         content.CollectionProperties,
	"lista_propiedades": content.CollectionProperties,

	"advisors":       content.CollectionAdvisors,
	"agents":         content.CollectionAdvisors,
	"asesores":       content.CollectionAdvisors,
	"lista_asesores": content.CollectionAdvisors,
	"team":           content.CollectionAdvisors,

	"videos": content.CollectionVideos,
	"video":  content.CollectionVideos,

	"articles":  content.CollectionArticles,
	"articulos": content.CollectionArticles,
	"blog":      content.CollectionArticles,
	"posts":     content.CollectionArticles,

	"testimonials": content.CollectionTestimonials,
	"testimonios":  content.CollectionTestimonials,
	"reviews":      content.CollectionTestimonials,

	"categories": content.CollectionCategories,
	"categorias": content.CollectionCategories,

	"statistics":   content.CollectionStatistics,
	"estadisticas": content.CollectionStatistics,
	"stats":        content.CollectionStatistics,

	"freetext":    content.CollectionFreeText,
	"free_text":   content.CollectionFreeText,
	"texto_libre": content.CollectionFreeText,
}

// Canonicalize maps a stored dataType to its internal provider key.
func Canonicalize(dataType string) (string, bool) {
	key, ok := synonyms[strings.ToLower(strings.TrimSpace(dataType))]
	return key, ok
}
