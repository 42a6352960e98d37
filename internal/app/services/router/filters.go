package router

import "strings"

// Operation and property-type vocabularies accepted in filter paths. The
// tables are fixed; tenants cannot extend them.
var operationTokens = map[string]string{
	"venta":  "sale",
	"ventas": "sale",
	"sale":   "sale",
	"renta":  "rent",
	"rentas": "rent",
	"rent":   "rent",
}

var propertyTypeTokens = map[string]string{
	"casa":          "house",
	"casas":         "house",
	"house":         "house",
	"houses":        "house",
	"departamento":  "apartment",
	"departamentos": "apartment",
	"apartment":     "apartment",
	"apartments":    "apartment",
	"terreno":       "land",
	"terrenos":      "land",
	"land":          "land",
	"oficina":       "office",
	"oficinas":      "office",
	"office":        "office",
	"offices":       "office",
	"local":         "commercial",
	"locales":       "commercial",
	"bodega":        "warehouse",
	"bodegas":       "warehouse",
	"warehouse":     "warehouse",
	"warehouses":    "warehouse",
}

// parseFilterSegments reports whether every segment is a filter token and, if
// so, the canonical filter map. Accepted forms per segment: an operation
// token, a property-type token, or the compound "<type>-en-<operation>"
// pattern used in listing URLs.
func parseFilterSegments(segments []string) (map[string]string, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	filters := make(map[string]string)
	for _, seg := range segments {
		seg = strings.ToLower(seg)

		if op, ok := operationTokens[seg]; ok {
			filters["operation"] = op
			continue
		}
		if pt, ok := propertyTypeTokens[seg]; ok {
			filters["property_type"] = pt
			continue
		}
		if typeToken, opToken, ok := splitCompound(seg); ok {
			pt, okType := propertyTypeTokens[typeToken]
			op, okOp := operationTokens[opToken]
			if okType && okOp {
				filters["property_type"] = pt
				filters["operation"] = op
				continue
			}
		}
		return nil, false
	}
	return filters, true
}

// splitCompound splits "casas-en-venta" into ("casas", "venta").
func splitCompound(seg string) (typeToken, opToken string, ok bool) {
	parts := strings.Split(seg, "-en-")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
