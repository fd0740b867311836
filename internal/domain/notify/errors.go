package notify

import (
	"fmt"
	"net/http"
)

// StatusError is a delivery failure carrying the provider's HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("delivery failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("delivery failed: status %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// RateLimited reports whether the provider throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
