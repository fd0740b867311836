package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/internal/domain/types"
	"github.com/okian/sentiment/pkg/logger"
)

const defaultReportsLimit = 10

// ReportSubmitter stores bad-prediction reports.
type ReportSubmitter interface {
	SubmitReport(ctx context.Context, in model.ReportInput) (types.ReportReceipt, error)
}

// ReportReader lists stored reports.
type ReportReader interface {
	RecentReports(ctx context.Context, limit int) (types.ReportPage, error)
}

// ReportHandler handles bad-prediction reports.
type ReportHandler struct {
	submitter ReportSubmitter
	logger    logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(s ReportSubmitter, l logger.Logger) *ReportHandler {
	return &ReportHandler{submitter: s, logger: l}
}

type reportRequest struct {
	Text               string   `json:"text"`
	PredictedSentiment string   `json:"predicted_sentiment"`
	ConfidenceScore    *float64 `json:"confidence_score"`
}

type reportResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ReportCount int64  `json:"report_count"`
	EmailSent   bool   `json:"email_sent"`
}

// HandleReport handles POST /report-bad-prediction requests.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report"
	if !allowMethod(w, r, http.MethodPost, op) {
		return
	}
	var req reportRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, err)
		return
	}
	if req.ConfidenceScore == nil {
		writeFailure(r.Context(), w, h.logger, WrapKind(op, ErrBadRequest, fmt.Errorf("missing confidence_score")))
		return
	}

	receipt, err := h.submitter.SubmitReport(r.Context(), model.ReportInput{
		Text:               req.Text,
		PredictedSentiment: req.PredictedSentiment,
		ConfidenceScore:    *req.ConfidenceScore,
	})
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Success:     true,
		Message:     receiptMessage(receipt),
		ReportCount: receipt.ReportCount,
		EmailSent:   receipt.EmailSent,
	})
}

func receiptMessage(r types.ReportReceipt) string {
	switch {
	case !r.NotificationTriggered:
		return fmt.Sprintf("Report saved (%d/%d before email)", r.BatchPosition(), r.BatchSize)
	case r.EmailSent:
		return "Report saved. Email sent to the administrator"
	default:
		return "Report saved but sending the email failed"
	}
}

// ReportsHandler lists stored reports for administrators.
type ReportsHandler struct {
	reader ReportReader
	logger logger.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(rr ReportReader, l logger.Logger) *ReportsHandler {
	return &ReportsHandler{reader: rr, logger: l}
}

// HandleReports handles GET /reports?limit=N requests.
func (h *ReportsHandler) HandleReports(w http.ResponseWriter, r *http.Request) {
	const op = "api.reports"
	if !allowMethod(w, r, http.MethodGet, op) {
		return
	}
	limit := defaultReportsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeFailure(r.Context(), w, h.logger, NewKind(op, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)))
			return
		}
		limit = n
	}

	page, err := h.reader.RecentReports(r.Context(), limit)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	if page.Reports == nil {
		page.Reports = []model.Report{}
	}
	writeJSON(w, http.StatusOK, page)
}
