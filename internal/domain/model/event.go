// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Kind identifies which latency a metric event carries. It is decided once at
// the event-source boundary; nothing downstream inspects payload shapes.
type Kind int

// Recognized metric kinds. KindUnknown is never recorded.
const (
	KindUnknown Kind = iota
	KindEndOfUtterance
	KindLLMFirstToken
	KindTTSFirstByte
)

// Kinds lists the recorded kinds in slot order.
var Kinds = [...]Kind{KindEndOfUtterance, KindLLMFirstToken, KindTTSFirstByte}

// String returns the canonical wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEndOfUtterance:
		return "eou"
	case KindLLMFirstToken:
		return "llm_ttft"
	case KindTTSFirstByte:
		return "tts_ttfb"
	default:
		return "unknown"
	}
}

// Label returns a human-readable name used in log lines and reports.
func (k Kind) Label() string {
	switch k {
	case KindEndOfUtterance:
		return "End of Utterance"
	case KindLLMFirstToken:
		return "LLM (TTFT)"
	case KindTTSFirstByte:
		return "TTS (TTFB)"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is one of the recorded kinds.
func (k Kind) Valid() bool {
	return k >= KindEndOfUtterance && k <= KindTTSFirstByte
}

// ParseKind maps canonical names and the agent SDK metric type names to a Kind.
// Matching is case-insensitive; anything else yields KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eou", "end_of_utterance", "eoumetrics", "eou_metrics":
		return KindEndOfUtterance
	case "llm_ttft", "llm", "ttft", "llmmetrics", "llm_metrics":
		return KindLLMFirstToken
	case "tts_ttfb", "tts", "ttfb", "ttsmetrics", "tts_metrics":
		return KindTTSFirstByte
	default:
		return KindUnknown
	}
}

// MetricEvent is one classified timing event emitted by a session collaborator.
type MetricEvent struct {
	EventID   string    // optional producer id, carried for logging only
	SessionID string    // conversation session the event belongs to
	Kind      Kind      // classified metric kind
	Seconds   *float64  // duration in seconds; nil when the producer sent null
	TS        time.Time // producer timestamp, zero when absent
}

// CompletedTurn is an immutable record of one fully measured conversation turn.
type CompletedTurn struct {
	Index     int     `json:"index"`
	EOUMs     float64 `json:"eou_ms"`
	LLMTTFTMs float64 `json:"llm_ttft_ms"`
	TTSTTFBMs float64 `json:"tts_ttfb_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// Value returns the turn's latency for kind in milliseconds.
func (t CompletedTurn) Value(kind Kind) float64 {
	switch kind {
	case KindEndOfUtterance:
		return t.EOUMs
	case KindLLMFirstToken:
		return t.LLMTTFTMs
	case KindTTSFirstByte:
		return t.TTSTTFBMs
	default:
		return 0
	}
}
