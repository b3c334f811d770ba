// Package latency correlates end-of-utterance, LLM first-token and TTS
// first-byte timings into per-turn totals and summarizes them.
//
// Events are paired by kind, not by turn identity: the tracker assumes the
// three metrics of one turn arrive before any metric of the next turn. If a
// source interleaves turns the values are silently mispaired. Keying the
// pending turn by a source-supplied turn id would fix this once one exists.
package latency

import (
	"context"
	"sync"

	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/okian/turnlat/pkg/metrics"
)

const msPerSecond = 1000

// pendingTurn holds at most one millisecond value per kind.
type pendingTurn struct {
	values [len(model.Kinds)]float64
	filled [len(model.Kinds)]bool
}

func slot(kind model.Kind) int {
	return int(kind - model.KindEndOfUtterance)
}

// set stores ms for kind and reports whether it replaced an earlier value.
func (p *pendingTurn) set(kind model.Kind, ms float64) bool {
	i := slot(kind)
	overwrote := p.filled[i]
	p.values[i] = ms
	p.filled[i] = true
	return overwrote
}

// complete returns the unnumbered turn when every slot is filled. It does not
// modify p; the caller appends the turn and clears p under the same lock.
func (p *pendingTurn) complete() (model.CompletedTurn, bool) {
	for _, ok := range p.filled {
		if !ok {
			return model.CompletedTurn{}, false
		}
	}
	turn := model.CompletedTurn{
		EOUMs:     p.values[slot(model.KindEndOfUtterance)],
		LLMTTFTMs: p.values[slot(model.KindLLMFirstToken)],
		TTSTTFBMs: p.values[slot(model.KindTTSFirstByte)],
	}
	turn.TotalMs = turn.EOUMs + turn.LLMTTFTMs + turn.TTSTTFBMs
	return turn, true
}

func (p *pendingTurn) clear() {
	*p = pendingTurn{}
}

// Pending is a snapshot of the current partial turn. Nil means absent.
type Pending struct {
	EOUMs     *float64 `json:"eou_ms"`
	LLMTTFTMs *float64 `json:"llm_ttft_ms"`
	TTSTTFBMs *float64 `json:"tts_ttfb_ms"`
}

// Filled returns how many slots hold a value.
func (p Pending) Filled() int {
	n := 0
	for _, v := range []*float64{p.EOUMs, p.LLMTTFTMs, p.TTSTTFBMs} {
		if v != nil {
			n++
		}
	}
	return n
}

// Tracker accumulates metric events for one session. All methods are safe
// for concurrent use; mutations are serialized under one lock.
type Tracker struct {
	mu      sync.Mutex
	pending pendingTurn
	history []model.CompletedTurn

	logger logger.Logger
	onTurn func(model.CompletedTurn)
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		logger: logger.Get().Named("latency"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stores seconds (converted to milliseconds) in the slot for kind,
// replacing any earlier value of the same kind in the pending turn. When
// this fills the last empty slot the turn is appended to the history and
// returned with ok == true. Values are not validated.
func (t *Tracker) Record(ctx context.Context, kind model.Kind, seconds float64) (model.CompletedTurn, bool) {
	if !kind.Valid() {
		t.logger.Debug(ctx, "ignoring unrecognized metric kind", logger.Int("kind", int(kind)))
		return model.CompletedTurn{}, false
	}
	ms := seconds * msPerSecond

	t.mu.Lock()
	overwrote := t.pending.set(kind, ms)
	turn, done := t.pending.complete()
	if done {
		turn.Index = len(t.history) + 1
		t.history = append(t.history, turn)
		t.pending.clear()
	}
	t.mu.Unlock()

	t.logger.Info(ctx, "metric recorded", logger.String("metric", kind.Label()), logger.Millis("latency", ms))
	metrics.RecordMetricLatency(kind.String(), ms)
	if overwrote {
		t.logger.Debug(ctx, "pending slot overwritten", logger.String("metric", kind.String()))
		metrics.RecordSlotOverwrite(kind.String())
	}
	if !done {
		return model.CompletedTurn{}, false
	}

	t.logger.Info(ctx, "turn completed", logger.Int("turn", turn.Index), logger.Millis("total", turn.TotalMs))
	metrics.RecordTurnCompleted(turn.TotalMs)
	if t.onTurn != nil {
		t.onTurn(turn)
	}
	return turn, true
}

// Turns returns the number of completed turns.
func (t *Tracker) Turns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// History returns a copy of the completed turns in completion order.
func (t *Tracker) History() []model.CompletedTurn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.CompletedTurn, len(t.history))
	copy(out, t.history)
	return out
}

// Pending returns a snapshot of the partial turn.
func (t *Tracker) Pending() Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	var p Pending
	for _, kind := range model.Kinds {
		i := slot(kind)
		if !t.pending.filled[i] {
			continue
		}
		v := t.pending.values[i]
		switch kind {
		case model.KindEndOfUtterance:
			p.EOUMs = &v
		case model.KindLLMFirstToken:
			p.LLMTTFTMs = &v
		case model.KindTTSFirstByte:
			p.TTSTTFBMs = &v
		}
	}
	return p
}

// Summary computes statistics over the completed turns. ok is false when no
// turn has completed yet.
func (t *Tracker) Summary() (Summary, bool) {
	return Summarize(t.History())
}
