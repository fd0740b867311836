// Package notify delivers report digests to the administrator with a
// bounded retry budget.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/pkg/logger"
	"github.com/okian/sentiment/pkg/metrics"
)

// Default delivery policy.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 10 * time.Second
	defaultBaseDelay      = time.Second
)

// MaxDuration bounds one Notify call under the default backoff: attempts
// deliveries of at most attemptTimeout each plus the waits between them.
func MaxDuration(attempts int, attemptTimeout time.Duration) time.Duration {
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	total := time.Duration(attempts) * attemptTimeout
	for k := 1; k < attempts; k++ {
		total += defaultBaseDelay << k
	}
	return total
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message. Failures carrying a provider status are
// returned as *StatusError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// configurable is implemented by senders that know whether their
// credentials are present.
type configurable interface {
	Configured() bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// outcome tags the result of one delivery attempt.
type outcome int

const (
	sent outcome = iota
	retryable
	fatal
)

func (o outcome) String() string {
	switch o {
	case sent:
		return "sent"
	case retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Notifier renders digests and delivers them through a Sender.
type Notifier struct {
	sender      Sender
	recipient   string
	subject     string
	maxAttempts int
	timeout     time.Duration
	baseDelay   time.Duration
	sleep       SleepFunc
	logger      logger.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSubject overrides the digest subject line.
func WithSubject(subject string) Option {
	return func(n *Notifier) {
		if subject != "" {
			n.subject = subject
		}
	}
}

// WithMaxAttempts sets the delivery attempt budget.
func WithMaxAttempts(attempts int) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.maxAttempts = attempts
		}
	}
}

// WithAttemptTimeout bounds a single delivery attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithBaseDelay sets the unit of the exponential backoff. The wait after
// attempt k is base * 2^k.
func WithBaseDelay(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.baseDelay = d
		}
	}
}

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(n *Notifier) {
		if sleep != nil {
			n.sleep = sleep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier delivering to recipient through sender.
func New(sender Sender, recipient string, opts ...Option) *Notifier {
	n := &Notifier{
		sender:      sender,
		recipient:   recipient,
		subject:     DefaultSubject,
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultAttemptTimeout,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepContext,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Configured reports whether a recipient and usable sender are present.
func (n *Notifier) Configured() bool {
	if n == nil || n.sender == nil || n.recipient == "" {
		return false
	}
	if c, ok := n.sender.(configurable); ok {
		return c.Configured()
	}
	return true
}

// Notify delivers a digest of reports. It returns true on the first
// successful attempt and false when configuration is missing, the provider
// rejects the credentials, or the attempt budget runs out.
func (n *Notifier) Notify(ctx context.Context, reports []model.Report) bool {
	if !n.Configured() {
		n.logger.Warn(ctx, "notification skipped", logger.Error(model.ErrNotConfigured))
		return false
	}

	html, err := Render(reports)
	if err != nil {
		n.logger.Error(ctx, "notification not rendered", logger.Error(err))
		return false
	}
	msg := Message{To: n.recipient, Subject: n.subject, HTML: html}

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		res, err := n.attempt(ctx, msg)
		metrics.RecordDeliveryAttempt(res.String())

		switch res {
		case sent:
			n.logger.Info(ctx, "notification sent",
				logger.Int("attempt", attempt),
				logger.Int("reports", len(reports)))
			return true
		case fatal:
			n.logger.Error(ctx, "notification failed",
				logger.Int("attempt", attempt),
				logger.Error(err))
			return false
		}

		if attempt == n.maxAttempts {
			n.logger.Error(ctx, "notification attempts exhausted",
				logger.Int("attempts", attempt),
				logger.Error(err))
			return false
		}

		wait := n.backoff(attempt)
		n.logger.Warn(ctx, "notification attempt failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err))
		metrics.RecordDeliveryBackoff(wait.Seconds())
		if err := n.sleep(ctx, wait); err != nil {
			n.logger.Warn(ctx, "notification retry canceled", logger.Error(err))
			return false
		}
	}
	return false
}

// attempt performs one delivery under the attempt deadline and classifies
// the result. Hitting the attempt deadline is retryable.
func (n *Notifier) attempt(ctx context.Context, msg Message) (outcome, error) {
	actx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err := n.sender.Send(actx, msg)
	if err == nil {
		return sent, nil
	}
	var se *StatusError
	if errors.As(err, &se) && se.Unauthorized() {
		return fatal, err
	}
	if ctx.Err() != nil {
		return fatal, err
	}
	return retryable, err
}

// backoff returns base * 2^attempt.
func (n *Notifier) backoff(attempt int) time.Duration {
	return n.baseDelay << attempt
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
