package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})

		Convey("When applying empty values", func() {
			m := &Manager{namespace: "ns", subsystem: "sub", histogramBuckets: []float64{1}}
			WithNamespace("")(m)
			WithSubsystem("")(m)
			WithHistogramBuckets(nil)(m)
			WithPrometheusRegistry(nil)(m)

			Convey("Then the defaults are kept", func() {
				So(m.namespace, ShouldEqual, "ns")
				So(m.subsystem, ShouldEqual, "sub")
				So(m.histogramBuckets, ShouldResemble, []float64{1})
				So(m.registry, ShouldBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "sentiment")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)
			manager.reportsAccepted.Inc()

			Convey("Then metric names carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_reports_accepted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording prediction metrics", func() {
			before := testutil.ToFloat64(globalManager.predictions.WithLabelValues("positive"))
			RecordPrediction("positive")
			RecordPredictionLatency(12.5)
			RecordTokenCount(4)

			Convey("Then the prediction counter increases", func() {
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("positive")), ShouldEqual, before+1)
			})
		})

		Convey("When recording feedback metrics", func() {
			before := testutil.ToFloat64(globalManager.reportsAccepted)
			RecordReportAccepted()
			UpdateReportCount(9)
			RecordNotification("sent")

			Convey("Then the counters and gauges reflect them", func() {
				So(testutil.ToFloat64(globalManager.reportsAccepted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.reportCount), ShouldEqual, 9)
			})
		})

		Convey("When recording delivery metrics", func() {
			before := testutil.ToFloat64(globalManager.deliveryAttempts.WithLabelValues("retryable"))
			RecordDeliveryAttempt("retryable")
			RecordDeliveryBackoff(2)

			Convey("Then the attempt counter increases", func() {
				So(testutil.ToFloat64(globalManager.deliveryAttempts.WithLabelValues("retryable")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then none of the helpers panic", func() {
				So(func() {
					RecordRejectedInput("confidence")
					RecordClassifierError("unavailable")
					RecordStoreLatency("insert_report", 1.2)
					RecordHTTPRequest("/predict", "POST", "200")
					RecordHTTPRequestDuration("/predict", "POST", "200", 3.4)
					RecordErrorByType("validation", "low")
					RecordErrorByEndpoint("/predict", "POST", "validation")
					RecordErrorLatency("api", "validation", 0.5)
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When exporting the registry", func() {
			RecordHTTPRequest("/health", "GET", "200")
			n, err := testutil.GatherAndCount(GetRegistry(), "sentiment_api_http_requests_total")

			Convey("Then the HTTP counter is exported", func() {
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)
			})

			Convey("And the metrics carry the sentiment namespace", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "sentiment_"), ShouldBeTrue)
				}
			})
		})
	})
}
