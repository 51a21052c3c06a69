package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.reviewAttempts.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_review_attempts_total")
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording review metrics", func() {
			before := testutil.ToFloat64(globalManager.reviewAttempts)
			RecordReviewAttempt()
			RecordReviewTransition("done")
			RecordReviewStale()
			RecordReviewTimeout()
			RecordReviewDuration("done", 120)
			RecordDegradedResult()

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.reviewAttempts), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.reviewTransitions.WithLabelValues("done")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording upstream and http metrics", func() {
			RecordUpstreamRequest("predict", "ok", 42)
			RecordHTTPRequest("/analysis", "POST", "200")
			RecordHTTPRequestDuration("/analysis", "POST", "200", 12.5)
			RecordErrorByComponent("upstream", "transport")

			Convey("Then labelled counters are readable", func() {
				So(testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("predict", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/analysis", "POST", "200")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(3)
			UpdateQueueCapacity(16)
			UpdateWorkerCount(4)
			UpdateSessionsLive(7)
			AddWorkerActive(1)
			AddWorkerActive(-1)

			Convey("Then gauges hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 16)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.sessionsLive), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 0)
			})
		})

		Convey("When recording remaining metrics", func() {
			So(func() {
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(5)
				RecordWorkerError()
				RecordSessionCreated()
				RecordSessionEvicted("expired")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
