package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/sentiment/internal/adapters/repository"
	service "github.com/okian/sentiment/internal/app"
	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/internal/domain/notify"
	"github.com/okian/sentiment/internal/domain/textnorm"
	"github.com/okian/sentiment/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type identityLemmatizer struct{}

func (identityLemmatizer) Lemma(w string) string { return w }

type stubClassifier struct {
	mu     sync.Mutex
	pred   model.Prediction
	err    error
	ready  bool
	tokens [][]string
}

func (c *stubClassifier) Predict(_ context.Context, tokens []string) (model.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, tokens)
	return c.pred, c.err
}

func (c *stubClassifier) Ready(context.Context) bool { return c.ready }

type recordingSender struct {
	mu       sync.Mutex
	errs     []error
	messages []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newNormalizer() *textnorm.Normalizer {
	n, err := textnorm.New(textnorm.WithLemmatizer(identityLemmatizer{}))
	if err != nil {
		panic(err)
	}
	return n
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithStoreDSN("sqlite", filepath.Join(t.TempDir(), "reports.db")),
		service.WithNormalizer(newNormalizer()),
		service.WithNotifierOptions(notify.WithSleep(noSleep)),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func report(text string) model.ReportInput {
	return model.ReportInput{Text: text, PredictedSentiment: "positive", ConfidenceScore: 0.81}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithBatchSize(5))

		Convey("Then it reports sensible defaults before start", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["store"], ShouldEqual, "sqlite")
			So(stats["normalizeMode"], ShouldEqual, "lemmatize")
			So(stats["batchSize"], ShouldEqual, 5)
		})

		Convey("Then operations fail until it is started", func() {
			_, err := svc.Predict(context.Background(), "hello")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.SubmitReport(context.Background(), report("x"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Ready(context.Background()), ShouldBeFalse)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with an unopenable store", t, func() {
		svc := service.New(
			service.WithStoreDSN("mysql", "nowhere"),
			service.WithNormalizer(newNormalizer()),
		)

		Convey("Then Start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		svc := startService(t)

		Convey("Then it is marked as started and Start is idempotent", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["totalReports"], ShouldEqual, int64(0))
			So(stats["emailConfigured"], ShouldBeFalse)
		})

		Convey("Then Stop can be called twice", func() {
			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldBeFalse)
		})
	})
}

func TestService_Predict(t *testing.T) {
	Convey("Given a service without a model", t, func() {
		svc := startService(t)

		Convey("Then predictions are unavailable even for empty text", func() {
			So(svc.Ready(context.Background()), ShouldBeFalse)
			_, err := svc.Predict(context.Background(), "")
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a service with a classifier", t, func() {
		clf := &stubClassifier{pred: model.Prediction{Label: model.Negative, Score: 0.123456}, ready: true}
		svc := startService(t, service.WithClassifier(clf))

		Convey("When predicting a tweet", func() {
			p, err := svc.Predict(context.Background(), "@bob I hate rainy mondays :( http://t.co/x")

			Convey("Then the classifier sees normalized tokens", func() {
				So(err, ShouldBeNil)
				So(clf.tokens, ShouldHaveLength, 1)
				So(clf.tokens[0], ShouldResemble, []string{"hate", "rainy", "mondays", "tokensmileysad"})
			})

			Convey("Then the answer is rounded to four decimals", func() {
				So(p.Text, ShouldEqual, "@bob I hate rainy mondays :( http://t.co/x")
				So(p.Sentiment, ShouldEqual, "negative")
				So(p.Score, ShouldEqual, 0.1235)
				So(p.Confidence, ShouldEqual, 0.8765)
			})
		})

		Convey("When the text is blank", func() {
			_, err := svc.Predict(context.Background(), "   ")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(clf.tokens, ShouldBeEmpty)
		})

		Convey("When nothing survives cleaning", func() {
			_, err := svc.Predict(context.Background(), "@someone http://example.com 42 a an the")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(clf.tokens, ShouldBeEmpty)
		})

		Convey("When the classifier fails", func() {
			clf.err = errors.Join(model.ErrUnavailable, errors.New("sidecar down"))
			_, err := svc.Predict(context.Background(), "lovely day")
			So(errors.Is(err, model.ErrUnavailable), ShouldBeTrue)
		})

		Convey("Then Normalize exposes the token stream", func() {
			So(svc.Normalize("I can't believe it's SO good!!"), ShouldResemble, []string{"not", "believe", "good"})
		})
	})
}

func TestService_SubmitReport(t *testing.T) {
	Convey("Given a service with a working mail sender", t, func() {
		sender := &recordingSender{}
		svc := startService(t,
			service.WithSender(sender),
			service.WithEmail("admin@example.com", "", ""),
		)
		ctx := context.Background()

		Convey("When three reports arrive", func() {
			r1, err1 := svc.SubmitReport(ctx, report("first"))
			r2, err2 := svc.SubmitReport(ctx, report("second"))
			r3, err3 := svc.SubmitReport(ctx, report("third"))

			Convey("Then only the third triggers a digest", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(r1.ReportCount, ShouldEqual, 1)
				So(r1.BatchPosition(), ShouldEqual, 1)
				So(r1.NotificationTriggered, ShouldBeFalse)
				So(r2.EmailSent, ShouldBeFalse)
				So(r3.ReportCount, ShouldEqual, 3)
				So(r3.NotificationTriggered, ShouldBeTrue)
				So(r3.EmailSent, ShouldBeTrue)
				So(sender.count(), ShouldEqual, 1)
				So(sender.messages[0].To, ShouldEqual, "admin@example.com")
				So(sender.messages[0].HTML, ShouldContainSubstring, "third")
			})

			Convey("Then the reports and counter are readable", func() {
				page, err := svc.RecentReports(ctx, 2)
				So(err, ShouldBeNil)
				So(page.Reports, ShouldHaveLength, 2)
				So(page.Reports[0].Text, ShouldEqual, "third")
				So(page.Reports[1].Text, ShouldEqual, "second")
				So(page.ReportCount, ShouldEqual, 3)
				So(page.LastNotifiedAt, ShouldNotBeNil)
			})
		})

		Convey("When a report is invalid", func() {
			_, err := svc.SubmitReport(ctx, model.ReportInput{Text: "x", PredictedSentiment: "neutral", ConfidenceScore: 0.5})

			Convey("Then nothing is stored", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				page, err := svc.RecentReports(ctx, 10)
				So(err, ShouldBeNil)
				So(page.Reports, ShouldBeEmpty)
				So(page.ReportCount, ShouldEqual, 0)
			})
		})

		Convey("When the page size is out of range", func() {
			_, err := svc.RecentReports(ctx, 0)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("Given a provider that rejects the credentials", t, func() {
		sender := &recordingSender{errs: []error{&notify.StatusError{StatusCode: 401}}}
		svc := startService(t,
			service.WithSender(sender),
			service.WithEmail("admin@example.com", "", ""),
		)
		ctx := context.Background()

		Convey("Then the third report is kept but the email is not sent", func() {
			for i := 0; i < 2; i++ {
				_, err := svc.SubmitReport(ctx, report("r"))
				So(err, ShouldBeNil)
			}
			r, err := svc.SubmitReport(ctx, report("r"))
			So(err, ShouldBeNil)
			So(r.ReportCount, ShouldEqual, 3)
			So(r.NotificationTriggered, ShouldBeTrue)
			So(r.EmailSent, ShouldBeFalse)
			So(sender.count(), ShouldEqual, 1)

			page, err := svc.RecentReports(ctx, 5)
			So(err, ShouldBeNil)
			So(page.LastNotifiedAt, ShouldBeNil)
		})
	})

	Convey("Given no recipient", t, func() {
		sender := &recordingSender{}
		svc := startService(t, service.WithSender(sender))

		Convey("Then digests are skipped without a send attempt", func() {
			var last error
			for i := 0; i < 3; i++ {
				_, last = svc.SubmitReport(context.Background(), report("r"))
			}
			So(last, ShouldBeNil)
			So(sender.count(), ShouldEqual, 0)
		})
	})
}

func TestService_ConcurrentReports(t *testing.T) {
	Convey("Given concurrent report submissions", t, func() {
		sender := &recordingSender{}
		svc := startService(t,
			service.WithSender(sender),
			service.WithEmail("admin@example.com", "", ""),
		)

		const n = 12
		counts := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r, err := svc.SubmitReport(context.Background(), report("concurrent"))
				if err == nil {
					counts <- r.ReportCount
				}
			}()
		}
		wg.Wait()
		close(counts)

		Convey("Then every submission gets a distinct count and every third one notifies", func() {
			seen := map[int64]bool{}
			for c := range counts {
				seen[c] = true
			}
			So(len(seen), ShouldEqual, n)
			for i := int64(1); i <= n; i++ {
				So(seen[i], ShouldBeTrue)
			}
			So(sender.count(), ShouldEqual, n/3)
		})
	})
}

func TestService_InjectedStoreLifecycle(t *testing.T) {
	Convey("Given a service over a store owned by the caller", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "shared.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(
			service.WithStore(store),
			service.WithNormalizer(newNormalizer()),
			service.WithNotifierOptions(notify.WithSleep(noSleep)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		_, err = svc.SubmitReport(ctx, report("before restart"))
		So(err, ShouldBeNil)

		Convey("When the service is stopped and started again", func() {
			svc.Stop()
			So(store.Ping(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			receipt, err := svc.SubmitReport(ctx, report("after restart"))

			Convey("Then the store is still open and the count carries on", func() {
				So(err, ShouldBeNil)
				So(receipt.ReportCount, ShouldEqual, 2)
				n, err := store.CountReports(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}
