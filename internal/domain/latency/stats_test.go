package latency_test

import (
	"testing"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func turnsWithTotals(totals ...float64) []model.CompletedTurn {
	out := make([]model.CompletedTurn, len(totals))
	for i, total := range totals {
		// Split each total 20/50/30 so every series is non-trivial.
		out[i] = model.CompletedTurn{
			Index:     i + 1,
			EOUMs:     total * 0.2,
			LLMTTFTMs: total * 0.5,
			TTSTTFBMs: total * 0.3,
			TotalMs:   total,
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	Convey("Given no completed turns", t, func() {
		s, ok := latency.Summarize(nil)

		Convey("Then the summary reports no data", func() {
			So(ok, ShouldBeFalse)
			So(s.Turns, ShouldEqual, 0)
		})
	})

	Convey("Given a single completed turn", t, func() {
		s, ok := latency.Summarize([]model.CompletedTurn{{Index: 1, EOUMs: 120, LLMTTFTMs: 300, TTSTTFBMs: 150, TotalMs: 570}})

		Convey("Then every order statistic equals that turn's value", func() {
			So(ok, ShouldBeTrue)
			So(s.Turns, ShouldEqual, 1)
			for _, series := range s.Series() {
				st := series.Stats
				So(st.Count, ShouldEqual, 1)
				So(st.P50, ShouldEqual, st.Mean)
				So(st.P90, ShouldEqual, st.Mean)
				So(st.P99, ShouldEqual, st.Mean)
				So(st.Min, ShouldEqual, st.Mean)
				So(st.Max, ShouldEqual, st.Mean)
			}
			So(s.Total.P90, ShouldEqual, 570)
			So(s.Verdict, ShouldEqual, latency.VerdictGood)
		})
	})

	Convey("Given ten turns with totals 100..1000 in shuffled order", t, func() {
		s, ok := latency.Summarize(turnsWithTotals(700, 100, 1000, 300, 500, 200, 900, 400, 800, 600))

		Convey("Then nearest-rank percentiles follow floor(n*p)", func() {
			So(ok, ShouldBeTrue)
			So(s.Total.Mean, ShouldAlmostEqual, 550, 1e-9)
			So(s.Total.P50, ShouldEqual, 600)
			So(s.Total.P90, ShouldEqual, 1000)
			So(s.Total.P99, ShouldEqual, 1000)
			So(s.Total.Min, ShouldEqual, 100)
			So(s.Total.Max, ShouldEqual, 1000)
		})

		Convey("Then each component series is summarized independently", func() {
			So(s.EOU.Max, ShouldAlmostEqual, 200, 1e-9)
			So(s.LLMTTFT.Mean, ShouldAlmostEqual, 275, 1e-9)
			So(s.TTSTTFB.Min, ShouldAlmostEqual, 30, 1e-9)
		})

		Convey("Then the verdict is needs optimization", func() {
			So(s.Verdict, ShouldEqual, latency.VerdictNeedsOptimization)
		})
	})
}

func TestPercentile(t *testing.T) {
	Convey("Given ascending series", t, func() {
		Convey("When the series is empty", func() {
			So(latency.Percentile(nil, 0.5), ShouldEqual, 0)
		})

		Convey("When the series has two values", func() {
			sorted := []float64{10, 20}

			Convey("Then P50 selects index 1 and P99 clamps to the maximum", func() {
				So(latency.Percentile(sorted, 0.5), ShouldEqual, 20)
				So(latency.Percentile(sorted, 0.9), ShouldEqual, 20)
				So(latency.Percentile(sorted, 0.99), ShouldEqual, 20)
			})
		})

		Convey("When p would index past the end", func() {
			So(latency.Percentile([]float64{1, 2, 3}, 1.0), ShouldEqual, 3)
		})

		Convey("When the series has a hundred values", func() {
			sorted := make([]float64, 100)
			for i := range sorted {
				sorted[i] = float64(i + 1)
			}
			So(latency.Percentile(sorted, 0.5), ShouldEqual, 51)
			So(latency.Percentile(sorted, 0.9), ShouldEqual, 91)
			So(latency.Percentile(sorted, 0.99), ShouldEqual, 100)
		})
	})
}

func TestAssess(t *testing.T) {
	Convey("Given P90 totals around the thresholds", t, func() {
		So(latency.Assess(0), ShouldEqual, latency.VerdictExcellent)
		So(latency.Assess(499.9), ShouldEqual, latency.VerdictExcellent)
		So(latency.Assess(500), ShouldEqual, latency.VerdictGood)
		So(latency.Assess(799.9), ShouldEqual, latency.VerdictGood)
		So(latency.Assess(800), ShouldEqual, latency.VerdictNeedsOptimization)
		So(latency.Assess(2500), ShouldEqual, latency.VerdictNeedsOptimization)
	})
}

func TestDescribeDoesNotReorderInput(t *testing.T) {
	Convey("Given an unsorted slice", t, func() {
		values := []float64{3, 1, 2}
		st, ok := latency.Describe(values)

		Convey("Then the caller's slice keeps its order", func() {
			So(ok, ShouldBeTrue)
			So(values, ShouldResemble, []float64{3, 1, 2})
			So(st.Mean, ShouldEqual, 2)
			So(st.P50, ShouldEqual, 2)
		})
	})
}
