// Package replay rebuilds per-session turn latency summaries from recorded
// JSON-lines event files.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/okian/turnlat/internal/domain/ingest"
	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/report"
	"github.com/okian/turnlat/pkg/logger"
)

const maxLineBytes = 1 << 20

// Stats counts what happened to each input line.
type Stats struct {
	Lines     int
	Accepted  int
	Ignored   int
	Dropped   int
	Malformed int
	Turns     int
}

// Result is the replayed outcome of one session.
type Result struct {
	SessionID string
	Summary   latency.Summary
	HasData   bool
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLogger sets the logger used for per-line warnings.
func WithLogger(l logger.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.log = l
		}
	}
}

// Replayer feeds recorded events into one tracker per session, in file order.
// It is not safe for concurrent use.
type Replayer struct {
	log      logger.Logger
	trackers map[string]*latency.Tracker
	order    []string
	stats    Stats
}

// New creates an empty Replayer.
func New(opts ...Option) *Replayer {
	r := &Replayer{
		log:      logger.Get().Named("replay"),
		trackers: make(map[string]*latency.Tracker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feed reads JSON-lines RawEvents from in. Blank lines are skipped and
// malformed lines are counted and logged, never fatal.
func (r *Replayer) Feed(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		r.stats.Lines++

		var raw ingest.RawEvent
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			r.stats.Malformed++
			r.log.Warn(ctx, "skipping undecodable line", logger.Int("line", line), logger.Error(err))
			continue
		}
		r.apply(ctx, line, raw)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	return nil
}

func (r *Replayer) apply(ctx context.Context, line int, raw ingest.RawEvent) {
	ev, outcome, err := ingest.Classify(raw)
	if err != nil {
		r.stats.Malformed++
		r.log.Warn(ctx, "skipping malformed event", logger.Int("line", line), logger.Error(err))
		return
	}
	switch outcome {
	case ingest.Ignored:
		r.stats.Ignored++
		return
	case ingest.Dropped:
		r.stats.Dropped++
		return
	}

	tr := r.tracker(ev.SessionID)
	failed := ingest.Guard(ctx, r.log, "replay", func() error {
		if _, done := tr.Record(ctx, ev.Kind, *ev.Seconds); done {
			r.stats.Turns++
		}
		return nil
	})
	if failed {
		r.stats.Malformed++
		return
	}
	r.stats.Accepted++
}

func (r *Replayer) tracker(sessionID string) *latency.Tracker {
	tr, ok := r.trackers[sessionID]
	if !ok {
		tr = latency.New(latency.WithLogger(r.log.With(logger.String("session", sessionID))))
		r.trackers[sessionID] = tr
		r.order = append(r.order, sessionID)
	}
	return tr
}

// Stats returns the line counters so far.
func (r *Replayer) Stats() Stats {
	return r.stats
}

// Results returns one summary per session in first-seen order.
func (r *Replayer) Results() []Result {
	out := make([]Result, 0, len(r.order))
	for _, sid := range r.order {
		s, ok := r.trackers[sid].Summary()
		out = append(out, Result{SessionID: sid, Summary: s, HasData: ok})
	}
	return out
}

// Render writes every session summary to w.
func (r *Replayer) Render(w io.Writer, opts report.Options) error {
	for _, res := range r.Results() {
		if err := report.Write(w, res.SessionID, res.Summary, res.HasData, opts); err != nil {
			return err
		}
	}
	return nil
}
