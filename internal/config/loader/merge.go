package loader

// DeepMerge returns the union of base and over. Tables present in both
// are merged key by key; any other value in over replaces the one in base.
// Neither argument is modified.
func DeepMerge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if sub, ok := v.(map[string]any); ok {
			if prev, ok := out[k].(map[string]any); ok {
				out[k] = DeepMerge(prev, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Merge loads every source in order and merges them, later sources
// winning. Absent sources contribute nothing.
func Merge(sources ...Source) (map[string]any, error) {
	var merged map[string]any
	for _, src := range sources {
		values, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, values)
	}
	return merged, nil
}
