package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/pkg/logger"
	"github.com/okian/sentiment/pkg/metrics"
)

const (
	defaultTimeout          = 2 * time.Second
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	maxErrorBody            = 512
)

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Prediction    int       `json:"prediction"`
	Probabilities []float64 `json:"probabilities"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded *bool  `json:"model_loaded,omitempty"`
}

// Remote is an HTTP client for the model-serving sidecar.
type Remote struct {
	baseURL          string
	http             *http.Client
	timeout          time.Duration
	logger           logger.Logger
	failureThreshold uint32
	openTimeout      time.Duration
	cb               *gobreaker.CircuitBreaker
}

// NewRemote returns a client for the sidecar at baseURL.
func NewRemote(baseURL string, opts ...Option) *Remote {
	r := &Remote{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{},
		timeout:          defaultTimeout,
		logger:           logger.NewNop(),
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     r.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return r
}

// Predict classifies tokens. Any transport, status or decoding failure and
// an open breaker are reported as model.ErrUnavailable.
func (r *Remote) Predict(ctx context.Context, tokens []string) (model.Prediction, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.predict(ctx, strings.Join(tokens, " "))
	})
	if err != nil {
		reason := "request"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "breaker_open"
		}
		metrics.RecordClassifierError(reason)
		return model.Prediction{}, fmt.Errorf("%w: classifier: %w", model.ErrUnavailable, err)
	}
	return out.(model.Prediction), nil
}

func (r *Remote) predict(ctx context.Context, text string) (model.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return model.Prediction{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return model.Prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.Prediction{}, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return model.Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	return toPrediction(pr)
}

// toPrediction maps the sidecar's class index and class probabilities,
// ordered negative then positive, onto a Prediction.
func toPrediction(pr predictResponse) (model.Prediction, error) {
	p := model.Prediction{Label: model.Negative}
	if pr.Prediction == 1 {
		p.Label = model.Positive
	} else if pr.Prediction != 0 {
		return model.Prediction{}, fmt.Errorf("unknown class %d", pr.Prediction)
	}

	switch len(pr.Probabilities) {
	case 0:
		p.Score = float64(pr.Prediction)
	case 2:
		p.Score = pr.Probabilities[1]
	default:
		return model.Prediction{}, fmt.Errorf("expected 2 class probabilities, got %d", len(pr.Probabilities))
	}
	if p.Score < 0 || p.Score > 1 || p.Score != p.Score {
		return model.Prediction{}, fmt.Errorf("probability out of range: %v", p.Score)
	}
	return p, nil
}

// Ready reports whether the sidecar answers its health check with a loaded
// model. It does not go through the breaker.
func (r *Remote) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Debug(ctx, "classifier health check failed", logger.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		// A bare 200 counts as ready.
		return true
	}
	if hr.ModelLoaded != nil {
		return *hr.ModelLoaded
	}
	return true
}

// State returns the breaker state name.
func (r *Remote) State() string {
	return r.cb.State().String()
}
