package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	appmiddleware "github.com/harvestbridge/harvest-bridge/internal/platform/middleware"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

func init() {
	Install()
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", resp.Body.String(), err)
	}
	return body
}

type createInput struct {
	Body struct {
		FarmName string  `json:"farmName" minLength:"2"`
		FarmSize float64 `json:"farmSize" minimum:"0"`
	}
}

func newTestAPI() (*chi.Mux, huma.API) {
	router := chi.NewRouter()
	router.Use(appmiddleware.RequestID(), Recoverer())
	router.NotFound(NotFoundHandler())
	router.MethodNotAllowed(MethodNotAllowedHandler())
	api := humachi.New(router, huma.DefaultConfig("Test", "test"))
	return router, api
}

func TestNotFoundHandler(t *testing.T) {
	router, _ := newTestAPI()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := decode(t, resp)
	if diff := cmp.Diff(ErrorBody{Message: msgNotFound, Status: http.StatusNotFound}, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestMethodNotAllowedHandler(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Get("/api/farmdataapi", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, "/api/farmdataapi", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow to list GET, got %q", allow)
	}
	body := decode(t, resp)
	if !strings.Contains(body.Message, "PATCH") {
		t.Fatalf("expected message to mention PATCH, got %q", body.Message)
	}
}

func TestHumaValidationBecomes400WithPaths(t *testing.T) {
	router, api := newTestAPI()
	huma.Post(api, "/farms", func(_ context.Context, _ *createInput) (*struct{}, error) {
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/farms", strings.NewReader(`{"farmName":"G","farmSize":-1}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decode(t, resp)
	if body.Status != http.StatusBadRequest {
		t.Fatalf("expected status field 400, got %d", body.Status)
	}
	paths := map[string]bool{}
	for _, d := range body.Details {
		paths[d.Path] = true
	}
	if !paths["farmName"] || !paths["farmSize"] {
		t.Fatalf("expected farmName and farmSize paths, got %+v", body.Details)
	}
}

func TestInvalidMapsSchemaIssues(t *testing.T) {
	verr := &schema.ValidationError{Issues: []schema.Issue{
		{Path: "cooperativeName", Message: "required when belongsToCooperative is true"},
	}}
	se := Invalid(context.Background(), verr)

	body, ok := se.(*ErrorBody)
	if !ok {
		t.Fatalf("expected *ErrorBody, got %T", se)
	}
	want := &ErrorBody{
		Message: msgValidation,
		Status:  http.StatusBadRequest,
		Details: []Detail{{Path: "cooperativeName", Message: "required when belongsToCooperative is true"}},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidWithPlainError(t *testing.T) {
	se := Invalid(context.Background(), errors.New("bad image"))
	if se.GetStatus() != http.StatusBadRequest || se.Error() != "bad image" {
		t.Fatalf("unexpected error %d %q", se.GetStatus(), se.Error())
	}
}

func TestInternalErrorsHideCause(t *testing.T) {
	router, api := newTestAPI()
	huma.Get(api, "/boom", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error500InternalServerError("mongo: connection refused at 10.0.0.3", errors.New("dial tcp"))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "10.0.0.3") || strings.Contains(resp.Body.String(), "dial tcp") {
		t.Fatalf("internal detail leaked: %s", resp.Body.String())
	}
	body := decode(t, resp)
	if body.Message != msgInternal || len(body.Details) != 0 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestUnavailableSetsRetryAfter(t *testing.T) {
	router, api := newTestAPI()
	huma.Get(api, "/keys", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, Unavailable(ctx, "identity provider unavailable", 30, errors.New("certs"))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/keys", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After 30, got %q", got)
	}
}

func TestRecovererReturns500(t *testing.T) {
	router, api := newTestAPI()
	huma.Get(api, "/panic", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := decode(t, resp)
	if body.Message != msgInternal {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatal("panic value leaked into response")
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/abort", func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to be re-panicked, got %v", rec)
		}
	}()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate")
}

func TestRecovererKeepsStartedResponse(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/partial", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "partial" {
		t.Fatalf("expected untouched response, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestWriteErrorNegotiatesCBOR(t *testing.T) {
	router, _ := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %q", ct)
	}
	var body ErrorBody
	if err := cbor.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode cbor: %v", err)
	}
	if body.Status != http.StatusNotFound || body.Message != msgNotFound {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWantsCBOR(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"application/json", false},
		{"application/cbor", true},
		{"application/cbor, application/json", false},
		{"*/*", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", tt.accept)
		if got := wantsCBOR(req); got != tt.want {
			t.Errorf("wantsCBOR(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}

func TestFieldPath(t *testing.T) {
	tests := map[string]string{
		"body.farmName":      "farmName",
		"body.product.price": "product.price",
		"query.limit":        "limit",
		"body":               "",
		"farmName":           "farmName",
	}
	for in, want := range tests {
		if got := fieldPath(in); got != want {
			t.Errorf("fieldPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteErrorCustomStatus(t *testing.T) {
	router := chi.NewRouter()
	router.Use(appmiddleware.RequestID())
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusConflict, "username already taken")
	})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	body := decode(t, resp)
	if body.Status != http.StatusConflict || body.Message != "username already taken" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMissingPropertyPath(t *testing.T) {
	router, api := newTestAPI()
	huma.Post(api, "/farms", func(_ context.Context, _ *createInput) (*struct{}, error) {
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/farms", strings.NewReader(`{"farmSize":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decode(t, resp)
	if len(body.Details) != 1 || body.Details[0].Path != "farmName" {
		t.Fatalf("expected a farmName detail, got %+v", body.Details)
	}
}

func TestMissingProperty(t *testing.T) {
	tests := map[string]string{
		"expected required property farmName to be present": "farmName",
		"expected number": "",
	}
	for in, want := range tests {
		if got := missingProperty(in); got != want {
			t.Errorf("missingProperty(%q) = %q, want %q", in, got, want)
		}
	}
}
