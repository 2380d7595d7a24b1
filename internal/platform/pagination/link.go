package pagination

import (
	"net/url"
)

// NextLink returns an RFC 8288 Link header value pointing at the next page,
// or "" when there is none. query is copied; the cursor replaces any cursor
// already present.
func NextLink(path string, query url.Values, cursor string) string {
	if cursor == "" {
		return ""
	}
	q := make(url.Values, len(query)+1)
	for k, vals := range query {
		q[k] = append([]string(nil), vals...)
	}
	q.Set("cursor", cursor)
	u := url.URL{Path: path, RawQuery: q.Encode()}
	return "<" + u.String() + `>; rel="next"`
}
