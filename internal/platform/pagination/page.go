package pagination

// Page is one window of a keyset listing.
type Page[T any] struct {
	Items []T
	// Next is the encoded cursor for the following page, empty on the last.
	Next string
}

// Trim builds a Page from a store query that fetched up to limit+1 rows. The
// extra row only signals that another page exists.
func Trim[T any](rows []T, limit int, typ string, key func(T) string) Page[T] {
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	items := rows[:limit]
	return Page[T]{
		Items: items,
		Next:  Cursor{Type: typ, Value: key(items[len(items)-1])}.Encode(),
	}
}

// After returns the rows strictly after the keyset position, for stores that
// hold everything in memory. rows must be sorted by key.
func After[T any](rows []T, after string, key func(T) string) []T {
	if after == "" {
		return rows
	}
	for i, row := range rows {
		if key(row) > after {
			return rows[i:]
		}
	}
	return nil
}
