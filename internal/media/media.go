// Package media moves images out of documents into object storage. Payloads
// may carry base64 data URIs; documents only ever store the resulting URLs.
package media

import (
	"context"
	"errors"
)

// MaxImageBytes is the largest decoded image accepted.
const MaxImageBytes = 5 << 20

// Kind groups stored objects by the document type that owns them.
type Kind string

const (
	KindFarm    Kind = "farms"
	KindPost    Kind = "posts"
	KindProfile Kind = "profiles"
)

// Object is a decoded image ready to store.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Store persists objects and returns their public URL.
type Store interface {
	Put(ctx context.Context, obj Object) (string, error)
	// Delete removes the object behind a URL this store returned. Unknown
	// URLs are ignored.
	Delete(ctx context.Context, url string) error
	// Key returns the object key behind a URL this store returned, and false
	// for any other URL.
	Key(url string) (string, bool)
}

var (
	// ErrNotImage is returned when the decoded bytes are not an image.
	ErrNotImage = errors.New("content is not an image")
	// ErrTooLarge is returned when an image exceeds MaxImageBytes.
	ErrTooLarge = errors.New("image exceeds 5 MiB")
	// ErrMalformed is returned for data URIs that cannot be decoded.
	ErrMalformed = errors.New("malformed data URI")
)
