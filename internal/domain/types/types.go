// Package types contains the result types shared by the service and its
// transports.
package types

import (
	"time"

	"github.com/okian/sentiment/internal/domain/model"
)

// Prediction is the answer to a classification request. Score is the
// probability of the positive class; Confidence is the probability of the
// returned label.
type Prediction struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

// ReportReceipt summarizes the handling of one bad-prediction report.
type ReportReceipt struct {
	ReportCount           int64
	BatchSize             int
	NotificationTriggered bool
	EmailSent             bool
}

// BatchPosition returns how many reports of the current batch are stored.
// It is zero right after a batch boundary.
func (r ReportReceipt) BatchPosition() int64 {
	if r.BatchSize <= 0 {
		return 0
	}
	return r.ReportCount % int64(r.BatchSize)
}

// ReportPage is a view of the most recent reports and the counter.
type ReportPage struct {
	Reports        []model.Report `json:"reports"`
	ReportCount    int64          `json:"report_count"`
	LastNotifiedAt *time.Time     `json:"last_notified_at"`
}
