package http

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck checks one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetHealth handles GET /health. Any failing check turns the response into
// a 503 with status "degraded".
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.Health))}
	for _, hc := range h.Health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.Check(ctx)
		cancel()
		if err != nil {
			status.Status = "degraded"
			status.Checks[hc.Name] = err.Error()
			continue
		}
		status.Checks[hc.Name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
