package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/goleak"

	"github.com/harvestbridge/harvest-bridge/internal/app"
	"github.com/harvestbridge/harvest-bridge/internal/platform/config"
	appmiddleware "github.com/harvestbridge/harvest-bridge/internal/platform/middleware"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
)

func memoryConfig(t *testing.T, extra map[string]string) *config.Config {
	t.Helper()
	env := map[string]string{
		"STORE_BACKEND": "memory",
		"AUTH_MODE":     "jwt",
		"JWT_SECRET":    "0123456789abcdef0123456789abcdef",
	}
	for k, v := range extra {
		env[k] = v
	}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func testServer(t *testing.T) http.Handler {
	t.Helper()
	a, err := app.New(context.Background(), memoryConfig(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a.Handler("test", appmiddleware.NewMetrics())
}

func TestRunServesUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, memoryConfig(t, map[string]string{"RECONCILE_INTERVAL": "1h"}), ln)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for range 50 {
		if resp, err = client.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Fatalf("unexpected health response %d %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnBadBackend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg := memoryConfig(t, map[string]string{"REDIS_URL": "redis://127.0.0.1:1/0"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := run(ctx, cfg, ln); err == nil {
		t.Fatal("expected run to fail")
	}
}

func TestCBORAcceptHeader(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/farmdataapi", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor content type, got %q", ct)
	}
	var body struct {
		FarmData []any `cbor:"farmData"`
		Total    int   `cbor:"total"`
	}
	if err := cbor.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode CBOR: %v", err)
	}
	if body.Total != 0 || len(body.FarmData) != 0 {
		t.Fatalf("expected empty list, got %+v", body)
	}
}

func TestCBORErrorBody(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/farmdataapi/missing", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body respond.ErrorBody
	if err := cbor.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode CBOR error: %v", err)
	}
	if body.Status != http.StatusNotFound || body.Message != "farm not found" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestFallbackToJSONForUnknownAccept(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/posts.api", nil)
	req.Header.Set("Accept", "text/plain")
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)

	// Huma falls back to JSON when Accept cannot be satisfied (RFC 9110 12.4.1).
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK with JSON fallback, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json content type, got %q", ct)
	}
}

func TestMalformedQueryIsBadRequest(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/users/1?limit=abc", nil)
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed limit, got %d", resp.Code)
	}
}

func TestServerConfiguration(t *testing.T) {
	srv := newServer(http.NotFoundHandler())

	if srv.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("expected ReadHeaderTimeout 2s, got %v", srv.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != 30*time.Second || srv.WriteTimeout != 30*time.Second {
		t.Errorf("expected 30s read/write timeouts, got %v/%v", srv.ReadTimeout, srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
	if srv.MaxHeaderBytes != 64<<10 {
		t.Errorf("expected MaxHeaderBytes 64KB, got %d", srv.MaxHeaderBytes)
	}
}

func TestVersionVariable(t *testing.T) {
	if Version != "dev" {
		t.Errorf("expected default Version 'dev', got %q", Version)
	}
}
