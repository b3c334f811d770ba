package latency_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestTracker_Record(t *testing.T) {
	Convey("Given an empty tracker", t, func() {
		ctx := context.Background()
		tr := latency.New()

		Convey("When one event of each kind arrives", func() {
			_, ok1 := tr.Record(ctx, model.KindEndOfUtterance, 0.120)
			_, ok2 := tr.Record(ctx, model.KindLLMFirstToken, 0.300)
			turn, ok3 := tr.Record(ctx, model.KindTTSFirstByte, 0.150)

			Convey("Then only the third call completes a turn", func() {
				So(ok1, ShouldBeFalse)
				So(ok2, ShouldBeFalse)
				So(ok3, ShouldBeTrue)
			})

			Convey("Then the turn carries millisecond values and their sum", func() {
				So(turn.Index, ShouldEqual, 1)
				So(turn.EOUMs, ShouldAlmostEqual, 120, 1e-9)
				So(turn.LLMTTFTMs, ShouldAlmostEqual, 300, 1e-9)
				So(turn.TTSTTFBMs, ShouldAlmostEqual, 150, 1e-9)
				So(turn.TotalMs, ShouldAlmostEqual, 570, 1e-9)
			})

			Convey("Then history grows by exactly one and the pending turn is cleared", func() {
				So(tr.Turns(), ShouldEqual, 1)
				So(tr.History(), ShouldHaveLength, 1)
				So(tr.Pending().Filled(), ShouldEqual, 0)
			})
		})

		Convey("When only two distinct kinds arrive", func() {
			tr.Record(ctx, model.KindTTSFirstByte, 0.2)
			_, ok := tr.Record(ctx, model.KindEndOfUtterance, 0.1)

			Convey("Then no turn completes and both slots stay pending", func() {
				So(ok, ShouldBeFalse)
				So(tr.Turns(), ShouldEqual, 0)
				p := tr.Pending()
				So(p.Filled(), ShouldEqual, 2)
				So(*p.TTSTTFBMs, ShouldAlmostEqual, 200, 1e-9)
				So(*p.EOUMs, ShouldAlmostEqual, 100, 1e-9)
				So(p.LLMTTFTMs, ShouldBeNil)
			})
		})

		Convey("When a kind repeats within a pending turn", func() {
			_, okA := tr.Record(ctx, model.KindEndOfUtterance, 0.100)
			_, okB := tr.Record(ctx, model.KindEndOfUtterance, 0.250)
			tr.Record(ctx, model.KindLLMFirstToken, 0.300)
			turn, ok := tr.Record(ctx, model.KindTTSFirstByte, 0.150)

			Convey("Then the later value wins and the repeat does not complete a turn", func() {
				So(okA, ShouldBeFalse)
				So(okB, ShouldBeFalse)
				So(ok, ShouldBeTrue)
				So(turn.EOUMs, ShouldAlmostEqual, 250, 1e-9)
				So(turn.TotalMs, ShouldAlmostEqual, 700, 1e-9)
				So(tr.Turns(), ShouldEqual, 1)
			})
		})

		Convey("When several turns complete", func() {
			for i := 0; i < 3; i++ {
				tr.Record(ctx, model.KindLLMFirstToken, 0.3)
				tr.Record(ctx, model.KindTTSFirstByte, 0.1)
				tr.Record(ctx, model.KindEndOfUtterance, 0.1)
			}

			Convey("Then indexes are 1-based and monotonically increasing", func() {
				history := tr.History()
				So(history, ShouldHaveLength, 3)
				for i, turn := range history {
					So(turn.Index, ShouldEqual, i+1)
				}
			})
		})

		Convey("When values are zero or negative", func() {
			tr.Record(ctx, model.KindEndOfUtterance, 0)
			tr.Record(ctx, model.KindLLMFirstToken, -0.05)
			turn, ok := tr.Record(ctx, model.KindTTSFirstByte, 0.1)

			Convey("Then they are recorded as-is", func() {
				So(ok, ShouldBeTrue)
				So(turn.EOUMs, ShouldEqual, 0)
				So(turn.LLMTTFTMs, ShouldAlmostEqual, -50, 1e-9)
				So(turn.TotalMs, ShouldAlmostEqual, 50, 1e-9)
			})
		})

		Convey("When an unrecognized kind is recorded", func() {
			_, ok := tr.Record(ctx, model.KindUnknown, 1)

			Convey("Then the pending turn is untouched", func() {
				So(ok, ShouldBeFalse)
				So(tr.Pending().Filled(), ShouldEqual, 0)
			})
		})

		Convey("When history is read and mutated by the caller", func() {
			tr.Record(ctx, model.KindEndOfUtterance, 0.1)
			tr.Record(ctx, model.KindLLMFirstToken, 0.1)
			tr.Record(ctx, model.KindTTSFirstByte, 0.1)
			h := tr.History()
			h[0].TotalMs = 9999

			Convey("Then the tracker history is unaffected", func() {
				So(tr.History()[0].TotalMs, ShouldAlmostEqual, 300, 1e-9)
			})
		})
	})
}

func TestTracker_OnTurnAndLogging(t *testing.T) {
	Convey("Given a tracker with a buffered logger and turn callback", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithWriter(&buf)), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		var seen []model.CompletedTurn
		tr := latency.New(latency.WithOnTurn(func(turn model.CompletedTurn) {
			seen = append(seen, turn)
		}))
		ctx := context.Background()

		tr.Record(ctx, model.KindEndOfUtterance, 0.12)
		tr.Record(ctx, model.KindLLMFirstToken, 0.3)
		tr.Record(ctx, model.KindTTSFirstByte, 0.15)

		Convey("Then the callback sees the completed turn", func() {
			So(seen, ShouldHaveLength, 1)
			So(seen[0].Index, ShouldEqual, 1)
		})

		Convey("Then each value and the total are logged with 0-decimal ms", func() {
			out := buf.String()
			So(strings.Count(out, "metric recorded"), ShouldEqual, 3)
			So(out, ShouldContainSubstring, "latency=120ms")
			So(out, ShouldContainSubstring, "latency=300ms")
			So(out, ShouldContainSubstring, "latency=150ms")
			So(out, ShouldContainSubstring, "total=570ms")
		})
	})
}

func TestTracker_Concurrency(t *testing.T) {
	Convey("Given a tracker fed from several goroutines", t, func() {
		tr := latency.New(latency.WithLogger(logger.Discard()))
		ctx := context.Background()
		var wg sync.WaitGroup
		for _, kind := range model.Kinds {
			wg.Add(1)
			go func(k model.Kind) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					tr.Record(ctx, k, 0.1)
				}
			}(kind)
		}
		wg.Wait()

		Convey("Then history length and pending slots stay consistent", func() {
			turns := tr.Turns()
			So(turns, ShouldBeBetweenOrEqual, 1, 100)
			So(tr.History(), ShouldHaveLength, turns)
			So(tr.Pending().Filled(), ShouldBeLessThan, 3)
			for _, turn := range tr.History() {
				So(turn.TotalMs, ShouldAlmostEqual, 300, 1e-9)
			}
		})
	})
}
