package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/sentiment/internal/adapters/http/api"
	"github.com/okian/sentiment/internal/domain/model"
	"github.com/okian/sentiment/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const secret = "test-secret"

// Mock implementations for testing
type mockDeps struct {
	ready      bool
	prediction types.Prediction
	predictErr error
	receipt    types.ReportReceipt
	reportErr  error
	page       types.ReportPage
	pageErr    error

	gotText  string
	gotInput model.ReportInput
	gotLimit int
}

func (m *mockDeps) Ready(context.Context) bool { return m.ready }

func (m *mockDeps) Predict(_ context.Context, text string) (types.Prediction, error) {
	m.gotText = text
	return m.prediction, m.predictErr
}

func (m *mockDeps) SubmitReport(_ context.Context, in model.ReportInput) (types.ReportReceipt, error) {
	m.gotInput = in
	return m.receipt, m.reportErr
}

func (m *mockDeps) RecentReports(_ context.Context, limit int) (types.ReportPage, error) {
	m.gotLimit = limit
	return m.page, m.pageErr
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "reportCount": 4}
}

func newMux(deps *mockDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestRootAndHealth(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{ready: true}
		mux := newMux(deps)

		Convey("GET / describes the service", func() {
			w := do(mux, http.MethodGet, "/", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["version"], ShouldEqual, api.Version)
			So(body["endpoints"], ShouldContainKey, "predict")
			So(body["endpoints"], ShouldNotContainKey, "reports")
		})

		Convey("unknown paths are 404", func() {
			w := do(mux, http.MethodGet, "/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /health reports the model state", func() {
			w := do(mux, http.MethodGet, "/health", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]interface{}{"status": "healthy", "model_loaded": true})

			deps.ready = false
			w = do(mux, http.MethodGet, "/health", "")
			So(decode(w)["model_loaded"], ShouldEqual, false)
		})

		Convey("GET /stats returns the provider's stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["reportCount"], ShouldEqual, 4)
		})

		Convey("GET /metrics exposes prometheus text", func() {
			_ = do(mux, http.MethodGet, "/health", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "sentiment_api_http_requests_total")
		})

		Convey("every response carries a request id", func() {
			w := do(mux, http.MethodGet, "/health", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			w = do(mux, http.MethodGet, "/health", "", api.RequestIDHeader, "abc-123")
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given an API server with a model", t, func() {
		deps := &mockDeps{ready: true, prediction: types.Prediction{
			Text: "great day", Sentiment: "positive", Confidence: 0.9123, Score: 0.9123,
		}}
		mux := newMux(deps)

		Convey("POST /predict returns the prediction", func() {
			w := do(mux, http.MethodPost, "/predict", `{"text":"great day"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotText, ShouldEqual, "great day")
			So(decode(w), ShouldResemble, map[string]interface{}{
				"text": "great day", "sentiment": "positive", "confidence": 0.9123, "score": 0.9123,
			})
		})

		Convey("malformed JSON is a bad request", func() {
			w := do(mux, http.MethodPost, "/predict", `{"text":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("validation failures are 400", func() {
			deps.predictErr = fmt.Errorf("%w: text cannot be empty", model.ErrValidation)
			w := do(mux, http.MethodPost, "/predict", `{"text":""}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["message"], ShouldContainSubstring, "text cannot be empty")
		})

		Convey("a missing model is 503", func() {
			deps.predictErr = fmt.Errorf("%w: model not loaded", model.ErrUnavailable)
			w := do(mux, http.MethodPost, "/predict", `{"text":"hi"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "unavailable")
		})

		Convey("unexpected failures are 500 without detail", func() {
			deps.predictErr = errors.New("disk on fire")
			w := do(mux, http.MethodPost, "/predict", `{"text":"hi"}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
		})

		Convey("GET /predict is not allowed", func() {
			w := do(mux, http.MethodGet, "/predict", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})
	})
}

func TestReportBadPrediction(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)
		body := `{"text":"meh","predicted_sentiment":"positive","confidence_score":0.61}`

		Convey("a report before the batch boundary shows the progress", func() {
			deps.receipt = types.ReportReceipt{ReportCount: 4, BatchSize: 3}
			w := do(mux, http.MethodPost, "/report-bad-prediction", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotInput, ShouldResemble, model.ReportInput{Text: "meh", PredictedSentiment: "positive", ConfidenceScore: 0.61})
			So(decode(w), ShouldResemble, map[string]interface{}{
				"success": true, "message": "Report saved (1/3 before email)", "report_count": 4.0, "email_sent": false,
			})
		})

		Convey("a delivered digest is reported", func() {
			deps.receipt = types.ReportReceipt{ReportCount: 6, BatchSize: 3, NotificationTriggered: true, EmailSent: true}
			w := do(mux, http.MethodPost, "/report-bad-prediction", body)
			So(decode(w)["message"], ShouldEqual, "Report saved. Email sent to the administrator")
			So(decode(w)["email_sent"], ShouldEqual, true)
		})

		Convey("a failed digest still succeeds", func() {
			deps.receipt = types.ReportReceipt{ReportCount: 3, BatchSize: 3, NotificationTriggered: true}
			w := do(mux, http.MethodPost, "/report-bad-prediction", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["message"], ShouldEqual, "Report saved but sending the email failed")
			So(decode(w)["success"], ShouldEqual, true)
		})

		Convey("a missing confidence is rejected before the service", func() {
			w := do(mux, http.MethodPost, "/report-bad-prediction", `{"text":"meh","predicted_sentiment":"positive"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.gotInput, ShouldResemble, model.ReportInput{})
		})

		Convey("service validation errors are 400", func() {
			deps.reportErr = fmt.Errorf("%w: unknown sentiment", model.ErrValidation)
			w := do(mux, http.MethodPost, "/report-bad-prediction", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("store failures are 500", func() {
			deps.reportErr = errors.New("database is locked")
			w := do(mux, http.MethodPost, "/report-bad-prediction", body)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestAdminReports(t *testing.T) {
	Convey("Given an API server without an admin secret", t, func() {
		mux := newMux(&mockDeps{})

		Convey("GET /reports is not routed", func() {
			w := do(mux, http.MethodGet, "/reports", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given an API server with an admin secret", t, func() {
		at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockDeps{page: types.ReportPage{
			Reports: []model.Report{{ID: 2, Text: "b", PredictedSentiment: model.Negative, ConfidenceScore: 0.7, CreatedAt: at}},
			ReportCount: 2,
		}}
		mux := newMux(deps, api.WithAdminSecret(secret))
		token, err := api.NewAdminToken([]byte(secret), "ops", time.Hour, time.Now())
		So(err, ShouldBeNil)

		Convey("the index lists the admin route", func() {
			So(decode(do(mux, http.MethodGet, "/", ""))["endpoints"], ShouldContainKey, "reports")
		})

		Convey("a valid token lists reports", func() {
			w := do(mux, http.MethodGet, "/reports?limit=5", "", "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotLimit, ShouldEqual, 5)
			body := decode(w)
			So(body["report_count"], ShouldEqual, 2)
			reports := body["reports"].([]interface{})
			So(reports, ShouldHaveLength, 1)
			So(reports[0].(map[string]interface{})["timestamp"], ShouldEqual, "2025-05-01T12:00:00Z")
		})

		Convey("the default limit applies", func() {
			_ = do(mux, http.MethodGet, "/reports", "", "Authorization", "Bearer "+token)
			So(deps.gotLimit, ShouldEqual, 10)
		})

		Convey("a bad limit is 400", func() {
			w := do(mux, http.MethodGet, "/reports?limit=-1", "", "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("missing, foreign and expired tokens are 401", func() {
			So(do(mux, http.MethodGet, "/reports", "").Code, ShouldEqual, http.StatusUnauthorized)

			foreign, _ := api.NewAdminToken([]byte("other"), "ops", time.Hour, time.Now())
			So(do(mux, http.MethodGet, "/reports", "", "Authorization", "Bearer "+foreign).Code, ShouldEqual, http.StatusUnauthorized)

			expired, _ := api.NewAdminToken([]byte(secret), "ops", time.Minute, time.Now().Add(-time.Hour))
			w := do(mux, http.MethodGet, "/reports", "", "Authorization", "Bearer "+expired)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(w)["message"], ShouldEqual, "token expired")
		})
	})

	Convey("NewAdminToken refuses an empty secret", t, func() {
		_, err := api.NewAdminToken(nil, "ops", time.Hour, time.Now())
		So(err, ShouldNotBeNil)
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")

		Convey("Wrap keeps the cause and tolerates nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
			err := api.Wrap("op", cause)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: boom")
		})

		Convey("WrapKind exposes both kind and cause", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: bad request: boom")
		})

		Convey("NewKind has no cause", func() {
			err := api.NewKind("op", api.ErrUnauthorized)
			So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: unauthorized")
		})
	})
}
