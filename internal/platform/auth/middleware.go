package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
)

type userContextKey struct{}

// rejection is how a failed authentication is answered. reason is logged;
// message is what the caller sees.
type rejection struct {
	status  int
	message string
	reason  string
}

var rejections = []struct {
	err error
	rejection
}{
	{ErrNoToken, rejection{http.StatusUnauthorized, "missing or invalid authorization header", "no_token"}},
	{ErrTokenExpired, rejection{http.StatusUnauthorized, "invalid or expired token", "token_expired"}},
	{ErrTokenRevoked, rejection{http.StatusUnauthorized, "invalid or expired token", "token_revoked"}},
	{ErrUserDisabled, rejection{http.StatusUnauthorized, "invalid or expired token", "user_disabled"}},
	{ErrCertificateFetch, rejection{http.StatusServiceUnavailable, "authentication service temporarily unavailable", "certificate_fetch_failed"}},
	{ErrInvalidToken, rejection{http.StatusUnauthorized, "invalid or expired token", "invalid_token"}},
}

func rejectionFor(err error) rejection {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return r.rejection
		}
	}
	return rejection{http.StatusUnauthorized, "invalid or expired token", "unknown"}
}

// NewAuthMiddleware returns Huma middleware that enforces each operation's
// Security requirements. Operations declaring none pass straight through.
// Optional operations run anonymously when no Authorization header is sent,
// but a header that is present must still verify.
func NewAuthMiddleware(api huma.API, verifier Verifier) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		security := ctx.Operation().Security
		if len(security) == 0 {
			next(ctx)
			return
		}
		header := ctx.Header("Authorization")
		if header == "" && allowsAnonymous(security) {
			next(ctx)
			return
		}

		user, err := authenticate(ctx.Context(), verifier, header)
		if err != nil {
			r := rejectionFor(err)
			applog.LogWarn(ctx.Context(), "authentication rejected", zap.String("reason", r.reason))
			if r.status == http.StatusServiceUnavailable {
				ctx.SetHeader("Retry-After", "30")
			} else {
				ctx.SetHeader("WWW-Authenticate", `Bearer realm="harvest-bridge"`)
			}
			_ = huma.WriteErr(api, ctx, r.status, r.message)
			return
		}

		goCtx := applog.WithFields(WithUser(ctx.Context(), user), zap.String("userId", user.UID))
		next(huma.WithContext(ctx, goCtx))
	}
}

func authenticate(ctx context.Context, verifier Verifier, header string) (*User, error) {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return nil, ErrNoToken
	}
	return verifier.Verify(ctx, token)
}

// allowsAnonymous reports whether one of the requirements is empty, which
// OpenAPI reads as "no authentication needed".
func allowsAnonymous(security []map[string][]string) bool {
	for _, req := range security {
		if len(req) == 0 {
			return true
		}
	}
	return false
}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated caller, or nil for anonymous
// requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}
