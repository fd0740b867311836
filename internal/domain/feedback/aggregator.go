// Package feedback stores bad-prediction reports and triggers a digest
// notification for every batch of reports.
package feedback

import (
	"context"
	"fmt"

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/pkg/logger"
	"github.com/okian/sentiment/pkg/metrics"
)

// DefaultBatchSize is the number of reports per notification.
const DefaultBatchSize = 3

// Store is the durable report log and counter.
type Store interface {
	// InsertReport appends r and returns it with its id and timestamp set.
	InsertReport(ctx context.Context, r model.Report) (model.Report, error)
	// IncrementReportCount atomically adds one and returns the new value.
	IncrementReportCount(ctx context.Context) (int64, error)
	// RecentReports returns up to n reports, newest first.
	RecentReports(ctx context.Context, n int) ([]model.Report, error)
	// MarkNotified records the time of the last delivered digest.
	MarkNotified(ctx context.Context) error
}

// Notifier delivers a digest of reports and reports whether it arrived.
type Notifier interface {
	Notify(ctx context.Context, reports []model.Report) bool
}

// Result describes what happened to one submission.
type Result struct {
	Stored                bool
	Count                 int64
	NotificationTriggered bool
	NotificationSent      bool
}

// Aggregator owns the report counter and the notification trigger.
type Aggregator struct {
	store     Store
	notifier  Notifier
	batchSize int
	logger    logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithBatchSize sets how many reports trigger one notification.
func WithBatchSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Aggregator.
func New(store Store, notifier Notifier, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:     store,
		notifier:  notifier,
		batchSize: DefaultBatchSize,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BatchSize returns the notification threshold.
func (a *Aggregator) BatchSize() int { return a.batchSize }

// Submit validates and stores a report, advances the counter and, on every
// batch boundary, notifies with the most recent reports. Nothing is rolled
// back once stored: a failed notification leaves the report and the count
// in place. Once the insert succeeds the remaining steps ignore cancellation
// of ctx, so a stored report is always counted.
func (a *Aggregator) Submit(ctx context.Context, in model.ReportInput) (Result, error) {
	if err := in.Validate(); err != nil {
		metrics.RecordRejectedInput("report")
		return Result{}, err
	}

	stored, err := a.store.InsertReport(ctx, model.Report{
		Text:               in.Text,
		PredictedSentiment: model.Sentiment(in.PredictedSentiment),
		ConfidenceScore:    in.ConfidenceScore,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	metrics.RecordReportAccepted()
	ctx = context.WithoutCancel(ctx)

	count, err := a.store.IncrementReportCount(ctx)
	if err != nil {
		return Result{Stored: true}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	metrics.UpdateReportCount(count)

	res := Result{Stored: true, Count: count}
	a.logger.Info(ctx, "report stored",
		logger.Int64("report_id", stored.ID),
		logger.Int64("count", count))

	if count%int64(a.batchSize) != 0 {
		return res, nil
	}

	res.NotificationTriggered = true
	res.NotificationSent = a.notify(ctx)
	return res, nil
}

func (a *Aggregator) notify(ctx context.Context) bool {
	if a.notifier == nil {
		metrics.RecordNotification("failed")
		return false
	}
	recent, err := a.store.RecentReports(ctx, a.batchSize)
	if err != nil {
		a.logger.Error(ctx, "load recent reports", logger.Error(err))
		metrics.RecordNotification("failed")
		return false
	}
	if !a.notifier.Notify(ctx, recent) {
		metrics.RecordNotification("failed")
		return false
	}
	metrics.RecordNotification("sent")
	if err := a.store.MarkNotified(ctx); err != nil {
		a.logger.Error(ctx, "mark notified", logger.Error(err))
	}
	return true
}
