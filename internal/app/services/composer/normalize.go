package composer

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/pagecraft/render-engine/internal/app/domain/component"
	"github.com/pagecraft/render-engine/pkg/logger"
)

var partitionNames = map[string]bool{
	"static_data":  true,
	"dynamic_data": true,
	"styles":       true,
	"toggles":      true,
}

// normalizeConfig coerces a stored configuration blob into the four named
// partitions. Historical rows carry arbitrary shapes; anything malformed is
// bent into the nearest valid form and logged, never rejected.
func normalizeConfig(raw json.RawMessage, instanceID string, log *logger.Logger) component.Config {
	cfg := component.Config{
		StaticData:  map[string]any{},
		DynamicData: map[string]any{},
		Styles:      map[string]any{},
		Toggles:     map[string]any{},
	}
	if len(raw) == 0 {
		return cfg
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		log.WithField("instance", instanceID).Warn("config blob is not an object, discarding")
		return cfg
	}

	cfg.StaticData = normalizePartition(parsed.Get("static_data"), instanceID, "static_data", log)
	cfg.DynamicData = normalizePartition(parsed.Get("dynamic_data"), instanceID, "dynamic_data", log)
	cfg.Styles = normalizePartition(parsed.Get("styles"), instanceID, "styles", log)
	cfg.Toggles = normalizePartition(parsed.Get("toggles"), instanceID, "toggles", log)

	// Stray top-level keys predate the partitioned format; they live on as
	// static content unless a partitioned key shadows them.
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if partitionNames[name] {
			return true
		}
		if _, exists := cfg.StaticData[name]; !exists {
			cfg.StaticData[name] = value.Value()
		}
		return true
	})

	return cfg
}

func normalizePartition(res gjson.Result, instanceID, name string, log *logger.Logger) map[string]any {
	if !res.Exists() {
		return map[string]any{}
	}
	if res.IsObject() {
		out := map[string]any{}
		if err := json.Unmarshal([]byte(res.Raw), &out); err == nil {
			return out
		}
	}
	log.WithFields(map[string]any{
		"instance":  instanceID,
		"partition": name,
	}).Warn("config partition is not an object, coercing")
	return map[string]any{"value": res.Value()}
}
