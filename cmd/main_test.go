package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	service "github.com/okian/turnlat/internal/app"
	"github.com/okian/turnlat/internal/config"
	"github.com/okian/turnlat/internal/domain/ingest"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("TURNLAT_ADDR", ":8080")
			_ = os.Setenv("TURNLAT_QUEUE_SIZE", "1000")
			_ = os.Setenv("TURNLAT_LANE_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("TURNLAT_ADDR")
				_ = os.Unsetenv("TURNLAT_QUEUE_SIZE")
				_ = os.Unsetenv("TURNLAT_LANE_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.LaneCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When building the service from config", func() {
			cfg := config.New(context.Background())
			cfg.LaneCount = 2
			cfg.QueueSize = 64
			svc := newService(cfg, logger.Get())

			convey.Convey("Then the service reflects the configured options", func() {
				stats := svc.GetStats()
				convey.So(stats["laneCount"], convey.ShouldEqual, 2)
				convey.So(stats["queueSize"], convey.ShouldEqual, 64)
				convey.So(stats["autoOpenSessions"], convey.ShouldBeTrue)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func TestHandlerEndToEnd(t *testing.T) {
	convey.Convey("Given a started service behind the full handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.LaneCount = 2
		cfg.QueueSize = 128
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		ts := httptest.NewServer(newHandler(ctx, svc))
		defer ts.Close()

		post := func(body string) int {
			resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			return resp.StatusCode
		}

		convey.Convey("When one turn is posted out of order", func() {
			convey.So(post(`{"session_id":"call-1","type":"tts_ttfb","value":0.15}`), convey.ShouldEqual, http.StatusAccepted)
			convey.So(post(`{"session_id":"call-1","type":"eou","value":0.12}`), convey.ShouldEqual, http.StatusAccepted)
			convey.So(post(`{"session_id":"call-1","type":"llm_ttft","value":0.3}`), convey.ShouldEqual, http.StatusAccepted)

			resp, err := http.Get(ts.URL + "/sessions/call-1/summary")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]any
			convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)

			convey.Convey("Then the summary reports the paired turn", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(body["turns"], convey.ShouldEqual, float64(1))
				summary := body["summary"].(map[string]any)
				total := summary["total"].(map[string]any)
				convey.So(total["p90_ms"], convey.ShouldAlmostEqual, 570, 1e-6)
				convey.So(summary["verdict"], convey.ShouldEqual, "good")
			})
		})

		convey.Convey("When the docs and health routes are requested", func() {
			for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs", "/stats"} {
				resp, err := http.Get(ts.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When an unknown session is closed", func() {
			req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/missing", nil)
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it is reported as not found", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestServiceBeforeStart(t *testing.T) {
	convey.Convey("Given an unstarted service", t, func() {
		svc := service.New()

		convey.Convey("Then ingest reports it is not started", func() {
			v := 0.1
			_, err := svc.Ingest(context.Background(), ingest.RawEvent{SessionID: "s", Type: "eou", Value: &v})
			convey.So(err, convey.ShouldEqual, service.ErrNotStarted)
		})
	})
}
