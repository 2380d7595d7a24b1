package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/harvestbridge/harvest-bridge/internal/service/reconcile"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REDIS_URL", "")
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", t.TempDir() + "/none.env"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRunOncePrintsReport(t *testing.T) {
	memoryEnv(t)
	out, err := execute(t, context.Background(), "--dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	var report reconcile.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("expected JSON report, got %q: %v", out, err)
	}
	if !report.DryRun || report.Tombstones != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestIntervalStopsOnCancel(t *testing.T) {
	memoryEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := execute(t, ctx, "--interval", "10ms"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	memoryEnv(t)
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := execute(t, context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestRejectsArguments(t *testing.T) {
	memoryEnv(t)
	if _, err := execute(t, context.Background(), "extra"); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}
