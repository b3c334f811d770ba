package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
	types "github.com/okian/turnlat/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewSummaryView(t *testing.T) {
	Convey("Given a session with no completed turns", t, func() {
		view := types.NewSummaryView("call-1", latency.Summary{}, false)

		Convey("Then the view carries the no-turns message and no summary", func() {
			So(view.Turns, ShouldEqual, 0)
			So(view.Message, ShouldEqual, types.NoTurnsMessage)
			So(view.Summary, ShouldBeNil)

			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"session_id":"call-1","turns":0,"message":"no turns recorded"}`)
		})
	})

	Convey("Given a session with completed turns", t, func() {
		s, ok := latency.Summarize([]model.CompletedTurn{{Index: 1, EOUMs: 120, LLMTTFTMs: 300, TTSTTFBMs: 150, TotalMs: 570}})
		view := types.NewSummaryView("call-2", s, ok)

		Convey("Then the summary is embedded without a message", func() {
			So(view.Turns, ShouldEqual, 1)
			So(view.Message, ShouldBeEmpty)
			So(view.Summary, ShouldNotBeNil)
			So(view.Summary.Verdict, ShouldEqual, latency.VerdictGood)
		})
	})
}

func TestTurnsViewJSON(t *testing.T) {
	Convey("Given a turns view with a partial turn", t, func() {
		eou := 120.0
		view := types.TurnsView{
			SessionID: "call-3",
			Turns:     []model.CompletedTurn{},
			Pending:   latency.Pending{EOUMs: &eou},
		}

		Convey("Then absent slots encode as null", func() {
			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"pending":{"eou_ms":120,"llm_ttft_ms":null,"tts_ttfb_ms":null}`)
		})
	})
}
