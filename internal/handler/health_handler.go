package handler

import (
	"context"
	"net/http"
	"time"

	"polls-be/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
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

// Check handles GET /health. A failing database makes the service unhealthy;
// a failing cache only degrades it.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "polls-be",
		Checks:    map[string]string{"storage": "memory", "cache": "disabled"},
	}
	status := http.StatusOK

	if h.container.HasDatabase() {
		response.Checks["storage"] = "ok"
		if err := h.container.DB.Health(ctx); err != nil {
			log.WithError(err).Error("Database health check failed")
			response.Checks["storage"] = "unavailable"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	if h.container.Services.Cache.Enabled() {
		response.Checks["cache"] = "ok"
		if err := h.container.Services.Cache.HealthCheck(ctx); err != nil {
			response.Checks["cache"] = "unavailable"
			if status == http.StatusOK {
				response.Status = "degraded"
			}
		}
	}

	respondJSON(w, status, response)
}
