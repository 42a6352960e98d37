package composer

// mergeDefaults produces the effective blob from a catalog default-data blob
// and an instance override. The merge is shallow and override-wins per
// top-level key.
func mergeDefaults(defaults, override map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(override))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// PruneToSchema keeps only the override keys present in the schema. Used when
// an instance changes variant: keys the new variant does not know are
// discarded.
func PruneToSchema(override, schema map[string]any) map[string]any {
	pruned := make(map[string]any)
	for k, v := range override {
		if _, ok := schema[k]; ok {
			pruned[k] = v
		}
	}
	return pruned
}
