package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/internal/report"
	"github.com/okian/turnlat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func summaryOf(totals ...float64) (latency.Summary, bool) {
	turns := make([]model.CompletedTurn, len(totals))
	for i, total := range totals {
		turns[i] = model.CompletedTurn{Index: i + 1, EOUMs: total / 4, LLMTTFTMs: total / 2, TTSTTFBMs: total / 4, TotalMs: total}
	}
	return latency.Summarize(turns)
}

func TestWrite(t *testing.T) {
	Convey("Given a summary with data", t, func() {
		s, ok := summaryOf(400, 420, 480)
		var buf bytes.Buffer

		Convey("When written without color", func() {
			So(report.Write(&buf, "room-1", s, ok, report.Options{}), ShouldBeNil)
			out := buf.String()

			Convey("Then every series and the verdict are present", func() {
				So(out, ShouldContainSubstring, "session=room-1")
				So(out, ShouldContainSubstring, "Total Turns: 3")
				for _, name := range []string{"End of Utterance:", "LLM (TTFT):", "TTS (TTFB):", "Total Latency:"} {
					So(out, ShouldContainSubstring, name)
				}
				So(strings.Count(out, "Average:"), ShouldEqual, 4)
				So(out, ShouldContainSubstring, "P90 Total Latency: 480ms")
				So(out, ShouldContainSubstring, "Status: EXCELLENT - sub-500ms")
				So(strings.Contains(out, "\x1b["), ShouldBeFalse)
			})
		})

		Convey("When written with color", func() {
			So(report.Write(&buf, "room-1", s, ok, report.Options{Color: true}), ShouldBeNil)

			Convey("Then the verdict carries ANSI escapes", func() {
				So(buf.String(), ShouldContainSubstring, "\x1b[")
			})
		})
	})

	Convey("Given an empty summary", t, func() {
		var buf bytes.Buffer
		So(report.Write(&buf, "room-2", latency.Summary{}, false, report.Options{}), ShouldBeNil)

		Convey("Then it reports no turns", func() {
			So(buf.String(), ShouldContainSubstring, report.NoTurnsMessage)
			So(buf.String(), ShouldNotContainSubstring, "Average:")
		})
	})
}

func TestLog(t *testing.T) {
	Convey("Given a buffered logger", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithWriter(&buf)), ShouldBeNil)
		defer func() { _ = logger.Init() }()
		ctx := context.Background()

		Convey("When logging a summary", func() {
			s, ok := summaryOf(100, 200, 300, 400, 500, 600, 700, 800, 900, 1000)
			report.Log(ctx, logger.Get(), "room-3", s, ok)
			out := buf.String()

			Convey("Then the block reports every statistic and the verdict", func() {
				So(out, ShouldContainSubstring, "turns=10")
				So(out, ShouldContainSubstring, "avg=550ms")
				So(out, ShouldContainSubstring, "p50=600ms")
				So(out, ShouldContainSubstring, "p90_total=1000ms")
				So(out, ShouldContainSubstring, `status="needs optimization"`)
			})
		})

		Convey("When logging an empty summary", func() {
			report.Log(ctx, logger.Get(), "room-4", latency.Summary{}, false)
			So(buf.String(), ShouldContainSubstring, report.NoTurnsMessage)
		})
	})
}
