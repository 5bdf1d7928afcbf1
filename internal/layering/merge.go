// Package layering composes configuration payloads decoded from several
// sources into one.
package layering

import "github.com/goliatone/go-formbridge/internal/clone"

// Merge composes layers ordered from strongest to weakest, returning a new
// map that keeps explicit settings from stronger layers while filling any
// missing keys from weaker ones. Nested maps merge key by key; any other
// value, lists included, is taken whole from the strongest layer that sets
// it. The inputs are never modified.
func Merge(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = mergeMap(layers[i], merged)
	}
	return merged
}

func mergeMap(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = clone.Value(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := result[key].(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = mergeMap(strongMap, weakMap)
			continue
		}
		result[key] = clone.Value(value)
	}
	return result
}
