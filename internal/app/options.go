package service

import (
	"time"

	"github.com/okian/sentiment/internal/adapters/repository"
	"github.com/okian/sentiment/internal/domain/notify"
	"github.com/okian/sentiment/internal/domain/textnorm"
	"github.com/okian/sentiment/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreDSN selects the store driver and data source opened by Start.
func WithStoreDSN(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
		}
		if dsn != "" {
			s.storeDSN = dsn
		}
	}
}

// WithStore injects an already opened store. Start will not open another one
// and Stop will close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClassifierURL points the service at a model-serving sidecar.
func WithClassifierURL(url string, timeout time.Duration) Option {
	return func(s *Service) {
		s.classifierURL = url
		if timeout > 0 {
			s.classifierTimeout = timeout
		}
	}
}

// WithClassifier injects the classifier.
func WithClassifier(c Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithNormalizer injects the text normalizer.
func WithNormalizer(n *textnorm.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithNormalizeMode selects the word reduction step.
func WithNormalizeMode(mode textnorm.Mode) Option {
	return func(s *Service) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithBrevo configures the email provider.
func WithBrevo(apiKey, baseURL string) Option {
	return func(s *Service) {
		s.brevoAPIKey = apiKey
		if baseURL != "" {
			s.brevoBaseURL = baseURL
		}
	}
}

// WithEmail sets the digest recipient and the sender identity.
func WithEmail(recipient, senderEmail, senderName string) Option {
	return func(s *Service) {
		s.recipient = recipient
		if senderEmail != "" {
			s.senderEmail = senderEmail
		}
		if senderName != "" {
			s.senderName = senderName
		}
	}
}

// WithSender injects the delivery client.
func WithSender(sender notify.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithNotifierOptions passes options to the notifier built by Start.
func WithNotifierOptions(opts ...notify.Option) Option {
	return func(s *Service) {
		s.notifyOpts = append(s.notifyOpts, opts...)
	}
}

// WithBatchSize sets how many reports trigger one digest.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDeliveryAttempts sets the delivery attempt budget.
func WithDeliveryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.deliveryAttempts = n
		}
	}
}

// WithMaxReportsLimit caps the page size of RecentReports.
func WithMaxReportsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReportsLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
