package api

import "net/http"

// Version is reported by GET /.
const Version = "1.0.0"

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// RootHandler describes the service.
type RootHandler struct {
	index rootResponse
}

// NewRootHandler creates a root handler. adminRoutes adds the admin
// endpoints to the index.
func NewRootHandler(adminRoutes bool) *RootHandler {
	endpoints := map[string]string{
		"health":  "GET /health",
		"predict": "POST /predict",
		"report":  "POST /report-bad-prediction",
		"stats":   "GET /stats",
		"metrics": "GET /metrics",
		"docs":    "GET /api-docs",
	}
	if adminRoutes {
		endpoints["reports"] = "GET /reports"
	}
	return &RootHandler{index: rootResponse{
		Message:   "Tweet sentiment analysis API",
		Version:   Version,
		Endpoints: endpoints,
	}}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !allowMethod(w, r, http.MethodGet, "api.root") {
		return
	}
	writeJSON(w, http.StatusOK, h.index)
}
