package auth

import (
	"context"
	"errors"
	"strings"
)

// User is the authenticated caller. UID is the value stored as userId on
// every document the caller owns.
type User struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
}

// Verification failures. Verifiers wrap these so the middleware can pick a
// status; ErrCertificateFetch answers 503, the rest 401.
var (
	ErrNoToken          = errors.New("missing authorization header")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrUserDisabled     = errors.New("user disabled")
	ErrCertificateFetch = errors.New("failed to fetch certificates")
)

// Verifier validates tokens and returns user information.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// SchemeBearer is the OpenAPI security scheme name registered by the server.
const SchemeBearer = "bearer"

// Security requirements for huma.Operation.Security.
var (
	// Required rejects requests without a valid bearer token.
	Required = []map[string][]string{{SchemeBearer: {}}}

	// Optional authenticates when a token is sent and continues anonymously
	// otherwise. The empty requirement is the OpenAPI spelling of "optional".
	Optional = []map[string][]string{{}, {SchemeBearer: {}}}
)

// ExtractBearerToken returns the token of a "Bearer <token>" header. The scheme
// is matched case-insensitively.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}
