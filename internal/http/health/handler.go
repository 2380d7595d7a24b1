package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check probes one dependency, e.g. a database ping.
type Check func(ctx context.Context) error

const checkTimeout = 2 * time.Second

// Handler is a plain HTTP handler for the health check endpoint. Without
// checks it only reports liveness; with checks a failing dependency turns the
// response into a 503.
func Handler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Response{Status: "healthy"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			for name, check := range checks {
				if err := check(ctx); err != nil {
					applog.LogWarn(r.Context(), "health check failed", zap.String("check", name), zap.Error(err))
					resp.Checks[name] = "unavailable"
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
