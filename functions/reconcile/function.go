// Package reconcile exposes the orphan sweep as an HTTP Cloud Function, for
// deployments that trigger it from Cloud Scheduler instead of running the
// reconcile command.
package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/harvestbridge/harvest-bridge/internal/app"
	"github.com/harvestbridge/harvest-bridge/internal/platform/config"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	sweep "github.com/harvestbridge/harvest-bridge/internal/service/reconcile"
)

// runTimeout bounds one sweep; Cloud Functions default to 60s.
const runTimeout = 50 * time.Second

func init() {
	functions.HTTP("Reconcile", handler)
}

// Response is the function's JSON body.
type Response struct {
	Report    *sweep.Report `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp timeutil.Time `json:"timestamp"`
}

func handler(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	status := http.StatusOK
	resp := Response{Timestamp: timeutil.NewTime(timeutil.Now())}
	report, err := run(ctx, dryRun)
	if err != nil {
		applog.LogError(ctx, "reconcile function failed", err)
		status = http.StatusInternalServerError
		resp.Error = "reconcile failed"
	} else {
		resp.Report = report
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func run(ctx context.Context, dryRun bool) (*sweep.Report, error) {
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close(context.Background()) }()

	report, err := a.Reconciler(sweep.WithDryRun(dryRun)).Run(ctx)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
