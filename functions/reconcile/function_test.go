package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerReportsDryRun(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/?dryRun=true", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report == nil || !resp.Report.DryRun {
		t.Errorf("expected a dry-run report, got %+v", resp)
	}
}

func TestHandlerHidesConfigErrors(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "reconcile failed" || resp.Report != nil {
		t.Errorf("unexpected body %+v", resp)
	}
}
