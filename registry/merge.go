package registry

// DeepMerge recursively merges second into first without mutating either.
// On conflicting primitive leaves the first value wins; nested maps merge
// key-wise.
func DeepMerge(first, second map[string]any) map[string]any {
	merged := make(map[string]any, len(first)+len(second))
	for key, value := range first {
		merged[key] = value
	}
	for key, value := range second {
		existing, ok := merged[key]
		if !ok {
			merged[key] = value
			continue
		}
		existingMap, okExisting := existing.(map[string]any)
		valueMap, okValue := value.(map[string]any)
		if okExisting && okValue {
			merged[key] = DeepMerge(existingMap, valueMap)
		}
		// Primitive conflict: the first-registered value stays.
	}
	return merged
}
