package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/sentiment/pkg/metrics"
)

// ReadinessChecker reports whether a model is loaded.
type ReadinessChecker interface {
	Ready(ctx context.Context) bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HandleHealth handles GET /health requests. The process is healthy as long
// as it answers; model_loaded tells whether predictions can be served.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, "api.health") {
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		ModelLoaded: h.checker.Ready(r.Context()),
	})
}

// NewMetricsHandler serves the service metrics registry.
func NewMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
