package testutil

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/harvestbridge/harvest-bridge/internal/platform/apidoc"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	appmiddleware "github.com/harvestbridge/harvest-bridge/internal/platform/middleware"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
)

// Tokens understood by Verifier.
const (
	TokenU1 = "token-u1"
	TokenU2 = "token-u2"
)

// Verifier accepts TokenU1 as user U1 and TokenU2 as user U2.
func Verifier() *auth.MockVerifier {
	return &auth.MockVerifier{Users: map[string]*auth.User{
		TokenU1: {UID: "U1", Email: "u1@example.com"},
		TokenU2: {UID: "U2", Email: "u2@example.com"},
	}}
}

// Router builds the production middleware and error stack around the
// operations added by register.
func Router(verifier auth.Verifier, register func(huma.API)) chi.Router {
	respond.Install()
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())
	router.Use(
		appmiddleware.RequestID(),
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, apidoc.Config("Harvest Bridge Test", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))
	register(api)
	return router
}

// Do sends a JSON request. An empty token sends no Authorization header.
func Do(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body into T.
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// ExpectStatus fails the test when the response status differs.
func ExpectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// DetailPaths collects the details[].path values of an error response.
func DetailPaths(t *testing.T, rec *httptest.ResponseRecorder) map[string]bool {
	t.Helper()
	body := Decode[respond.ErrorBody](t, rec)
	paths := make(map[string]bool, len(body.Details))
	for _, d := range body.Details {
		paths[d.Path] = true
	}
	return paths
}

// PNGDataURI returns a tiny base64 PNG data URI accepted by the media package.
func PNGDataURI() string {
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
