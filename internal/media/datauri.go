package media

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// IsDataURI reports whether s is an inline data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Decode parses a base64 data URI and sniffs the real content type from the
// bytes. The declared media type is ignored.
func Decode(uri string, maxBytes int) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrMalformed
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrMalformed
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return "", nil, ErrTooLarge
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Browsers occasionally emit unpadded payloads.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if len(data) > maxBytes {
		return "", nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", nil, ErrNotImage
	}
	return mt.String(), data, nil
}

// Encode builds the base64 data URI a client attaches to a payload. The
// media type is sniffed from data, which must be an image of at most
// MaxImageBytes.
func Encode(data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// extension returns the file extension for a sniffed content type.
func extension(contentType string) string {
	if mt := mimetype.Lookup(contentType); mt != nil {
		return mt.Extension()
	}
	return ""
}
