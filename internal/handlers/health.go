package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/communiconnect/backend/internal/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information. When Database is
// set, an unreachable database reports 503.
type HealthHandler struct {
	Database Pinger
	Timeout  time.Duration
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusOK
	payload := map[string]string{
		"status": "ok",
	}

	if h.Database != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := h.Database.Ping(ctx); err != nil {
			logging.FromContext(ctx).Error("database health check failed", "error", err)
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
		} else {
			payload["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
