package pagination

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params embeds into Huma input structs for cursor pagination.
type Params struct {
	Cursor string `query:"cursor" doc:"Opaque pagination cursor from previous response"`
	Limit  int    `query:"limit"  doc:"Maximum items per page"                          default:"20" minimum:"1" maximum:"100"`
}

// DefaultLimit returns the limit, defaulting to 20 if zero.
func (p Params) DefaultLimit() int {
	return ClampLimit(p.Limit)
}

// ClampLimit bounds a caller-supplied page size to 1..100, using 20 when unset.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

// PageOffset converts a 1-based page number into a skip count.
func PageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * ClampLimit(limit)
}
