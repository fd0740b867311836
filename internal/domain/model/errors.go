package model

import "errors"

// Error kinds shared across layers. Wrap them with fmt.Errorf("...: %w").
var (
	// ErrValidation marks rejected input: bad label, confidence out of range,
	// empty text or text without tokens. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable marks a dependency that is not ready, such as the classifier.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrNotConfigured marks missing delivery credentials.
	ErrNotConfigured = errors.New("not configured")
)
