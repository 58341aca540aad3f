package resolve

// Product computes the Cartesian product of the given value lists in
// odometer order: the last list varies fastest. The product of no lists is a
// single empty combination, never zero combinations.
func Product[T any](lists [][]T) [][]T {
	result := [][]T{{}}

	for _, list := range lists {
		next := make([][]T, 0, len(result)*len(list))
		for _, existing := range result {
			for _, item := range list {
				combo := make([]T, len(existing), len(existing)+1)
				copy(combo, existing)
				next = append(next, append(combo, item))
			}
		}
		result = next
	}

	return result
}
