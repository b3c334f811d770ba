// Package ingest is the boundary between metric event producers and the
// latency tracker: it classifies raw events once and contains failures so
// metrics handling never interrupts a conversation session.
package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/okian/turnlat/pkg/metrics"
)

// RawEvent is the wire shape of a metric event.
type RawEvent struct {
	EventID   string   `json:"event_id"`
	SessionID string   `json:"session_id"`
	Type      string   `json:"type"`
	Value     *float64 `json:"value"` // seconds; null when the producer had no measurement
	TS        string   `json:"ts,omitempty"`
}

// Outcome tells the caller what to do with a classified event.
type Outcome int

// Outcomes of Classify.
const (
	Accepted Outcome = iota // record it
	Ignored                 // unrecognized kind
	Dropped                 // null duration
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Ignored:
		return "ignored"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// DropReason is the metrics label for events that are not recorded.
func (o Outcome) DropReason() string {
	switch o {
	case Ignored:
		return "unknown_kind"
	case Dropped:
		return "null_value"
	default:
		return ""
	}
}

// Classify turns a raw event into a typed MetricEvent. Unrecognized kinds
// are Ignored and null values Dropped before any other check; neither is an
// error. Structural problems (no session, bad timestamp, non-finite value) wrap ErrMalformed.
func Classify(raw RawEvent) (model.MetricEvent, Outcome, error) {
	kind := model.ParseKind(raw.Type)
	if !kind.Valid() {
		return model.MetricEvent{}, Ignored, nil
	}

	sessionID := strings.TrimSpace(raw.SessionID)
	if raw.Value == nil {
		// Null values are dropped whatever the rest of the envelope holds.
		return model.MetricEvent{EventID: raw.EventID, SessionID: sessionID, Kind: kind}, Dropped, nil
	}
	if sessionID == "" {
		return model.MetricEvent{}, Ignored, fmt.Errorf("%w: %w", ErrMalformed, ErrMissingSession)
	}

	var ts time.Time
	if s := strings.TrimSpace(raw.TS); s != "" {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return model.MetricEvent{}, Ignored, fmt.Errorf("%w: invalid ts; must be RFC3339", ErrMalformed)
		}
		ts = parsed
	}

	ev := model.MetricEvent{
		EventID:   raw.EventID,
		SessionID: sessionID,
		Kind:      kind,
		TS:        ts,
	}
	if math.IsNaN(*raw.Value) || math.IsInf(*raw.Value, 0) {
		return model.MetricEvent{}, Ignored, fmt.Errorf("%w: value must be finite", ErrMalformed)
	}
	v := *raw.Value
	ev.Seconds = &v
	return ev, Accepted, nil
}

// Guard runs fn and swallows any error or panic it produces, logging a
// warning and counting it under op. It reports whether fn failed.
func Guard(ctx context.Context, log logger.Logger, op string, fn func() error) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			log.Warn(ctx, "metric handling panicked; event discarded", logger.String("op", op), logger.Any("panic", r))
			metrics.RecordIngestFailure(op)
		}
	}()
	if err := fn(); err != nil {
		log.Warn(ctx, "metric handling failed; event discarded", logger.String("op", op), logger.Error(err))
		metrics.RecordIngestFailure(op)
		return true
	}
	return false
}
