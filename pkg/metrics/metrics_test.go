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
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the custom namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.rowsWritten.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_score_rows_written_total")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "podium")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.histogramBuckets, ShouldResemble, defaultBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording passes", func() {
			before := testutil.ToFloat64(globalManager.passes.WithLabelValues("finish", "ok"))
			RecordPass("finish", "ok", 12)

			Convey("Then the labelled counter increases", func() {
				So(testutil.ToFloat64(globalManager.passes.WithLabelValues("finish", "ok")), ShouldEqual, before+1)
			})
		})

		Convey("When recording row writes and errors", func() {
			written := testutil.ToFloat64(globalManager.rowsWritten)
			failed := testutil.ToFloat64(globalManager.rowWriteErrors)
			RecordRowWritten()
			RecordRowWritten()
			RecordRowWriteError()

			Convey("Then both counters move independently", func() {
				So(testutil.ToFloat64(globalManager.rowsWritten), ShouldEqual, written+2)
				So(testutil.ToFloat64(globalManager.rowWriteErrors), ShouldEqual, failed+1)
			})
		})

		Convey("When recording a leaderboard read", func() {
			RecordLeaderboardRead(7)

			Convey("Then the entries gauge reflects the last read", func() {
				So(testutil.ToFloat64(globalManager.leaderboardEntries), ShouldEqual, 7)
			})
		})

		Convey("When recording a failed repository op", func() {
			before := testutil.ToFloat64(globalManager.repoErrors.WithLabelValues("postgres", "save_outcome"))
			RecordRepositoryOp("postgres", "save_outcome", 4, true)

			Convey("Then the error counter for that op increases", func() {
				So(testutil.ToFloat64(globalManager.repoErrors.WithLabelValues("postgres", "save_outcome")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordParticipantsScored(4)
				RecordRollback("ok")
				RecordFallbackRow()
				RecordWorkerTask(3, true)
				UpdateWorkerCount(8)
				RecordHTTPRequest("leaderboard", "GET", "200", 1.5)
				RecordHTTPError("finish", "POST", "client_error")
				RecordHTTPThrottled("finish")
				RecordRepositoryOp("memory", "upsert_score_row", 0.2, false)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
