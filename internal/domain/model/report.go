// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"
)

// Sentiment is a binary classifier label.
type Sentiment string

// Supported labels.
const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
)

// Valid reports whether s is one of the supported labels.
func (s Sentiment) Valid() bool {
	return s == Positive || s == Negative
}

// ParseSentiment returns the label for raw or ErrValidation.
func ParseSentiment(raw string) (Sentiment, error) {
	s := Sentiment(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: sentiment must be %q or %q, got %q", ErrValidation, Positive, Negative, raw)
	}
	return s, nil
}

// Report is a user-submitted claim that a prediction was wrong.
// Reports are append-only; ID and CreatedAt are assigned by the store.
type Report struct {
	ID                 int64     `db:"id"                  json:"id"`
	Text               string    `db:"text"                json:"text"`
	PredictedSentiment Sentiment `db:"predicted_sentiment" json:"predicted_sentiment"`
	ConfidenceScore    float64   `db:"confidence_score"    json:"confidence_score"`
	CreatedAt          time.Time `db:"created_at"          json:"timestamp"`
}

// ReportInput carries the caller supplied fields of a report.
type ReportInput struct {
	Text               string
	PredictedSentiment string
	ConfidenceScore    float64
}

// Validate checks the label and confidence range. NaN is rejected.
func (in ReportInput) Validate() error {
	if _, err := ParseSentiment(in.PredictedSentiment); err != nil {
		return err
	}
	c := in.ConfidenceScore
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence_score must be between 0.0 and 1.0, got %v", ErrValidation, c)
	}
	return nil
}

// ReportCounter is the durable notification counter. It only ever grows.
type ReportCounter struct {
	ReportCount    int64      `db:"report_count"     json:"report_count"`
	LastNotifiedAt *time.Time `db:"last_notified_at" json:"last_notified_at,omitempty"`
}

// Prediction is a classifier output. Score is P(positive).
type Prediction struct {
	Label Sentiment
	Score float64
}

// Confidence is the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	if p.Label == Positive {
		return p.Score
	}
	return 1 - p.Score
}
