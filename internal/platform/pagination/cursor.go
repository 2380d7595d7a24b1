package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidCursor indicates the cursor could not be decoded or belongs to a
// different listing.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor represents a keyset position: the sort key of the last item served.
type Cursor struct {
	Type  string // listing the cursor was issued for, e.g. "profile"
	Value string // last seen sort key
}

// Encode returns a URL-safe opaque Base64 representation.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.Type + ":" + c.Value))
}

// DecodeCursor parses a URL-safe Base64 cursor string.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	typ, value, ok := strings.Cut(string(b), ":")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Type: typ, Value: value}, nil
}

// DecodeFor decodes s and checks it was issued for typ. An empty s yields the
// zero position.
func DecodeFor(s, typ string) (string, error) {
	c, err := DecodeCursor(s)
	if err != nil {
		return "", err
	}
	if s != "" && c.Type != typ {
		return "", ErrInvalidCursor
	}
	return c.Value, nil
}
