package classifier

import (
	"net/http"
	"time"

	"github.com/okian/sentiment/pkg/logger"
)

// Option applies a configuration option to Remote.
type Option func(*Remote)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Remote) {
		if c != nil {
			r.http = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n uint32) Option {
	return func(r *Remote) {
		if n > 0 {
			r.failureThreshold = n
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(d time.Duration) Option {
	return func(r *Remote) {
		if d > 0 {
			r.openTimeout = d
		}
	}
}
