// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/internal/domain/types"
	"github.com/okian/sentiment/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ready reports whether a model can serve predictions.
	Ready(ctx context.Context) bool

	Predict(ctx context.Context, text string) (types.Prediction, error)
	SubmitReport(ctx context.Context, in model.ReportInput) (types.ReportReceipt, error)
	RecentReports(ctx context.Context, limit int) (types.ReportPage, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	rootHandler    *RootHandler
	healthHandler  *HealthHandler
	metricsHandler http.Handler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	reportHandler  *ReportHandler
	reportsHandler *ReportsHandler
	adminSecret    []byte
	logger         logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAdminSecret enables GET /reports behind HS256 bearer tokens signed
// with secret.
func WithAdminSecret(secret string) ServerOption {
	return func(s *Server) {
		if secret != "" {
			s.adminSecret = []byte(secret)
		}
	}
}

// WithLogger sets the logger used by handlers and middleware.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.rootHandler = NewRootHandler(len(s.adminSecret) > 0)
	s.healthHandler = NewHealthHandler(deps)
	s.metricsHandler = NewMetricsHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.predictHandler = NewPredictHandler(deps, s.logger)
	s.reportHandler = NewReportHandler(deps, s.logger)
	s.reportsHandler = NewReportsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", s.wrap(s.healthHandler.HandleHealth, "health"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", s.wrap(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/report-bad-prediction", s.wrap(s.reportHandler.HandleReport, "report"))
	if len(s.adminSecret) > 0 {
		mux.HandleFunc("/reports", s.wrap(AdminAuth(s.adminSecret, s.reportsHandler.HandleReports), "reports"))
	}
	mux.HandleFunc("/", s.wrap(s.rootHandler.HandleRoot, "root"))
}

func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(MetricsMiddleware(h, endpoint), s.logger)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err to its status and writes it. Server-side failures
// are logged and answered without internal detail.
func writeFailure(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		l.Error(ctx, "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// allowMethod answers 405 unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method, op string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	return false
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
