package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// Headers the marketplace client reads: Link for profile paging, Location
// after creates, X-Request-Id for support tickets, Retry-After on 503.
var exposedHeaders = []string{"Link", "Location", "Retry-After", "X-Request-Id"}

// CORS allows cross-origin calls from origins, or from anywhere when none are
// configured. Origins may use one wildcard, e.g. "https://*.harvestbridge.app".
// Credentials are only allowed for an explicit origin list since browsers
// refuse them with "*".
func CORS(origins ...string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
