package api

import (
	"context"
	"net/http"

	"github.com/okian/sentiment/internal/domain/types"
	"github.com/okian/sentiment/pkg/logger"
)

// Predictor classifies text.
type Predictor interface {
	Predict(ctx context.Context, text string) (types.Prediction, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	predictor Predictor
	logger    logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(p Predictor, l logger.Logger) *PredictHandler {
	return &PredictHandler{predictor: p, logger: l}
}

type predictRequest struct {
	Text string `json:"text"`
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if !allowMethod(w, r, http.MethodPost, op) {
		return
	}
	var req predictRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, err)
		return
	}

	p, err := h.predictor.Predict(r.Context(), req.Text)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
