package pagination

// Result holds pagination metadata.
type Result struct {
	Total     int
	Truncated bool
}

// Apply returns the window of items starting at offset and holding at most
// limit entries. Out-of-range offsets yield an empty window; a limit of zero
// or less means no limit.
func Apply[T any](items []T, offset, limit int) ([]T, Result) {
	total := len(items)
	start := min(max(offset, 0), total)
	end := total
	if limit > 0 && start+limit < total {
		end = start + limit
	}
	return items[start:end], Result{Total: total, Truncated: end < total}
}
