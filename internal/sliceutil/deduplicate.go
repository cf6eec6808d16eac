// Package sliceutil provides generic slice manipulation utilities.
package sliceutil

// Deduplicate removes items whose key was already seen while preserving order.
// Only the first occurrence of each key is kept. Items for which keyFunc
// reports false have no identity and are always kept.
//
// Example:
//
//	rows = sliceutil.Deduplicate(rows, func(r storage.Row) (int64, bool) { return r.ID() })
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) (K, bool)) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]bool, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key, ok := keyFunc(item)
		if ok {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result = append(result, item)
	}

	return result
}
