// Package service wires the normalizer, the classifier, the report store and
// the notifier into the operations served by the HTTP API.
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/sentiment/internal/adapters/classifier"
	"github.com/okian/sentiment/internal/adapters/mail/brevo"
	"github.com/okian/sentiment/internal/adapters/repository"
	"github.com/okian/sentiment/internal/domain/feedback"
	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/internal/domain/notify"
	"github.com/okian/sentiment/internal/domain/textnorm"
	"github.com/okian/sentiment/internal/domain/types"
	"github.com/okian/sentiment/pkg/logger"
	"github.com/okian/sentiment/pkg/metrics"
)

// Classifier maps normalized tokens to a sentiment.
type Classifier interface {
	Predict(ctx context.Context, tokens []string) (model.Prediction, error)
	Ready(ctx context.Context) bool
}

const (
	defaultClassifierTimeout = 2 * time.Second
	defaultMaxReportsLimit   = 100
)

// ErrNotStarted is returned by operations called before Start. It is a
// model.ErrUnavailable.
var ErrNotStarted = fmt.Errorf("%w: service not started", model.ErrUnavailable)

// Service implements the API dependencies for the sentiment service.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	normalizer *textnorm.Normalizer
	classifier Classifier
	sender     notify.Sender
	notifier   *notify.Notifier
	aggregator *feedback.Aggregator

	// Configuration
	storeDriver       string
	storeDSN          string
	classifierURL     string
	classifierTimeout time.Duration
	mode              textnorm.Mode
	brevoAPIKey       string
	brevoBaseURL      string
	recipient         string
	senderEmail       string
	senderName        string
	batchSize         int
	deliveryAttempts  int
	maxReportsLimit   int
	notifyOpts        []notify.Option

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:       repository.DriverSQLite,
		storeDSN:          "bad_predictions.db",
		classifierTimeout: defaultClassifierTimeout,
		mode:              textnorm.Lemmatize,
		brevoBaseURL:      brevo.DefaultBaseURL,
		senderEmail:       "support@devbystep.fr",
		senderName:        "Sentiment Analysis",
		batchSize:         feedback.DefaultBatchSize,
		deliveryAttempts:  notify.DefaultMaxAttempts,
		maxReportsLimit:   defaultMaxReportsLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and builds the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting sentiment service...")

	if s.normalizer == nil {
		n, err := textnorm.New()
		if err != nil {
			return fmt.Errorf("build normalizer: %w", err)
		}
		s.normalizer = n
	}

	if s.classifier == nil {
		if s.classifierURL == "" {
			s.logger.Warn(ctx, "no classifier configured, predictions are unavailable")
			s.classifier = classifier.Unavailable{}
		} else {
			s.classifier = classifier.NewRemote(s.classifierURL,
				classifier.WithTimeout(s.classifierTimeout),
				classifier.WithLogger(s.logger.Named("classifier")))
		}
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeDriver, s.storeDSN,
			repository.WithLogger(s.logger.Named("store")))
		if err != nil {
			return fmt.Errorf("open report store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	if s.sender == nil {
		s.sender = brevo.New(s.brevoAPIKey,
			brevo.WithBaseURL(s.brevoBaseURL),
			brevo.WithSender(s.senderName, s.senderEmail))
	}
	notifyOpts := append([]notify.Option{
		notify.WithMaxAttempts(s.deliveryAttempts),
		notify.WithLogger(s.logger.Named("notify")),
	}, s.notifyOpts...)
	s.notifier = notify.New(s.sender, s.recipient, notifyOpts...)
	if !s.notifier.Configured() {
		s.logger.Warn(ctx, "email delivery not configured, digests will not be sent")
	}

	s.aggregator = feedback.New(s.store, s.notifier,
		feedback.WithBatchSize(s.batchSize),
		feedback.WithLogger(s.logger.Named("feedback")))

	if c, err := s.store.Counter(ctx); err == nil {
		metrics.UpdateReportCount(c.ReportCount)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "sentiment service started",
		logger.String("store", s.storeDriver),
		logger.String("mode", string(s.mode)),
		logger.Int("batchSize", s.batchSize),
	)

	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping sentiment service...")

	// Stores passed in with WithStore belong to the caller.
	if s.store != nil && s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "close report store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "sentiment service stopped")
}

// Normalize returns the tokens the classifier would see for text.
func (s *Service) Normalize(text string) []string {
	s.mu.RLock()
	n, mode := s.normalizer, s.mode
	s.mu.RUnlock()
	if n == nil {
		return []string{}
	}
	return n.Normalize(text, mode)
}

// Predict classifies text. A missing model is reported before any input
// check, then empty input and input without tokens are rejected.
func (s *Service) Predict(ctx context.Context, text string) (types.Prediction, error) {
	start := time.Now()
	c, err := s.snapshot()
	if err != nil {
		return types.Prediction{}, err
	}
	if _, none := c.classifier.(classifier.Unavailable); none {
		metrics.RecordClassifierError("not_loaded")
		return types.Prediction{}, fmt.Errorf("%w: model not loaded", model.ErrUnavailable)
	}

	if strings.TrimSpace(text) == "" {
		metrics.RecordRejectedInput("empty_text")
		return types.Prediction{}, fmt.Errorf("%w: text cannot be empty", model.ErrValidation)
	}

	tokens := c.normalizer.Normalize(text, c.mode)
	metrics.RecordTokenCount(len(tokens))
	if len(tokens) == 0 {
		metrics.RecordRejectedInput("no_tokens")
		return types.Prediction{}, fmt.Errorf("%w: text contains no usable words after cleaning", model.ErrValidation)
	}

	p, err := c.classifier.Predict(ctx, tokens)
	if err != nil {
		s.logger.Error(ctx, "prediction failed", logger.Error(err))
		return types.Prediction{}, err
	}

	metrics.RecordPrediction(string(p.Label))
	metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)
	return types.Prediction{
		Text:       text,
		Sentiment:  string(p.Label),
		Confidence: round4(p.Confidence()),
		Score:      round4(p.Score),
	}, nil
}

// SubmitReport stores a bad-prediction report and reports whether it
// triggered a digest and whether the digest was delivered.
func (s *Service) SubmitReport(ctx context.Context, in model.ReportInput) (types.ReportReceipt, error) {
	c, err := s.snapshot()
	if err != nil {
		return types.ReportReceipt{}, err
	}
	res, err := c.aggregator.Submit(ctx, in)
	if err != nil {
		return types.ReportReceipt{}, err
	}
	return types.ReportReceipt{
		ReportCount:           res.Count,
		BatchSize:             c.aggregator.BatchSize(),
		NotificationTriggered: res.NotificationTriggered,
		EmailSent:             res.NotificationSent,
	}, nil
}

// RecentReports returns up to limit reports, newest first, with the counter.
// The limit is clamped to the configured maximum.
func (s *Service) RecentReports(ctx context.Context, limit int) (types.ReportPage, error) {
	c, err := s.snapshot()
	if err != nil {
		return types.ReportPage{}, err
	}
	if limit <= 0 {
		return types.ReportPage{}, fmt.Errorf("%w: limit must be positive", model.ErrValidation)
	}
	if limit > s.maxReportsLimit {
		limit = s.maxReportsLimit
	}

	reports, err := c.store.RecentReports(ctx, limit)
	if err != nil {
		return types.ReportPage{}, err
	}
	counter, err := c.store.Counter(ctx)
	if err != nil {
		return types.ReportPage{}, err
	}
	return types.ReportPage{
		Reports:        reports,
		ReportCount:    counter.ReportCount,
		LastNotifiedAt: counter.LastNotifiedAt,
	}, nil
}

// Ready reports whether a model is available to serve predictions.
func (s *Service) Ready(ctx context.Context) bool {
	c, err := s.snapshot()
	if err != nil {
		return false
	}
	return c.classifier.Ready(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"store":         s.storeDriver,
		"normalizeMode": string(s.mode),
		"batchSize":     s.batchSize,
	}

	if s.started {
		ctx := context.Background()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["emailConfigured"] = s.notifier.Configured()
		if n, err := s.store.CountReports(ctx); err == nil {
			stats["totalReports"] = n
		}
		if c, err := s.store.Counter(ctx); err == nil {
			stats["reportCount"] = c.ReportCount
			stats["lastNotifiedAt"] = c.LastNotifiedAt
			metrics.UpdateReportCount(c.ReportCount)
		}
		if r, ok := s.classifier.(*classifier.Remote); ok {
			stats["classifierBreaker"] = r.State()
		}
	}

	return stats
}

type pipeline struct {
	normalizer *textnorm.Normalizer
	mode       textnorm.Mode
	classifier Classifier
	store      repository.Store
	aggregator *feedback.Aggregator
}

func (s *Service) snapshot() (pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return pipeline{}, ErrNotStarted
	}
	return pipeline{
		normalizer: s.normalizer,
		mode:       s.mode,
		classifier: s.classifier,
		store:      s.store,
		aggregator: s.aggregator,
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
