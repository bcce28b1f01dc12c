package handler

import (
	"context"
	"net/http"
	"time"

	"trackvote/pkg/logger"
)

// HealthChecker is implemented by every dependency the health check pings
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checks  map[string]HealthChecker
	version string
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler. Nil checkers are skipped.
func NewHealthHandler(checks map[string]HealthChecker, version string, logger *logger.Logger) *HealthHandler {
	active := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{
		checks:  active,
		version: version,
		logger:  logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Service:   "trackvote",
		Checks:    make(map[string]string, len(h.checks)),
	}

	status := http.StatusOK
	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			h.logger.WithField("dependency", name).WithError(err).Warn("Health check failed")
			response.Checks[name] = "unhealthy"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	respondJSON(w, status, response)
}
