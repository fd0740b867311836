// Package classifier provides clients for the sentiment model.
//
// The trained model and its vectorizer are served by a sidecar that accepts
// the normalized tokens joined by spaces. Remote talks to it over HTTP and
// guards it with a circuit breaker; Unavailable stands in when no model is
// configured.
package classifier

import (
	"context"
	"fmt"

	"github.com/okian/sentiment/internal/domain/model"
)

// Unavailable is a classifier without a model. It is never ready.
type Unavailable struct{}

// Predict always fails with model.ErrUnavailable.
func (Unavailable) Predict(context.Context, []string) (model.Prediction, error) {
	return model.Prediction{}, fmt.Errorf("%w: model not loaded", model.ErrUnavailable)
}

// Ready reports false.
func (Unavailable) Ready(context.Context) bool { return false }
