package latency

import (
	"math"
	"sort"

	"github.com/okian/turnlat/internal/domain/model"
)

// Verdict thresholds over the P90 of turn totals, in milliseconds.
const (
	excellentBelowMs = 500
	goodBelowMs      = 800
)

// Verdict is a coarse rating of end-to-end turn latency.
type Verdict string

// Verdicts.
const (
	VerdictExcellent         Verdict = "excellent"
	VerdictGood              Verdict = "good"
	VerdictNeedsOptimization Verdict = "needs optimization"
)

// Assess rates a P90 total latency.
func Assess(p90Ms float64) Verdict {
	switch {
	case p90Ms < excellentBelowMs:
		return VerdictExcellent
	case p90Ms < goodBelowMs:
		return VerdictGood
	default:
		return VerdictNeedsOptimization
	}
}

// SeriesStats describes one latency series in milliseconds.
type SeriesStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_ms"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P99   float64 `json:"p99_ms"`
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
}

// Summary holds per-series statistics across all completed turns.
type Summary struct {
	Turns   int         `json:"turns"`
	EOU     SeriesStats `json:"eou"`
	LLMTTFT SeriesStats `json:"llm_ttft"`
	TTSTTFB SeriesStats `json:"tts_ttfb"`
	Total   SeriesStats `json:"total"`
	Verdict Verdict     `json:"verdict"`
}

// NamedSeries pairs a series with its display name.
type NamedSeries struct {
	Name  string
	Stats SeriesStats
}

// Series returns the four series in report order.
func (s Summary) Series() []NamedSeries {
	return []NamedSeries{
		{Name: model.KindEndOfUtterance.Label(), Stats: s.EOU},
		{Name: model.KindLLMFirstToken.Label(), Stats: s.LLMTTFT},
		{Name: model.KindTTSFirstByte.Label(), Stats: s.TTSTTFB},
		{Name: "Total Latency", Stats: s.Total},
	}
}

// Percentile selects the nearest-rank value at p from an ascending slice:
// index floor(n*p), clamped to the last element.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Describe computes statistics for values. ok is false for an empty series.
func Describe(values []float64) (SeriesStats, bool) {
	n := len(values)
	if n == 0 {
		return SeriesStats{}, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return SeriesStats{
		Count: n,
		Mean:  sum / float64(n),
		P50:   Percentile(sorted, 0.50),
		P90:   Percentile(sorted, 0.90),
		P99:   Percentile(sorted, 0.99),
		Min:   sorted[0],
		Max:   sorted[n-1],
	}, true
}

// Summarize computes a Summary over turns without modifying them. ok is
// false when turns is empty.
func Summarize(turns []model.CompletedTurn) (Summary, bool) {
	if len(turns) == 0 {
		return Summary{}, false
	}
	eou := make([]float64, len(turns))
	llm := make([]float64, len(turns))
	tts := make([]float64, len(turns))
	total := make([]float64, len(turns))
	for i, turn := range turns {
		eou[i] = turn.EOUMs
		llm[i] = turn.LLMTTFTMs
		tts[i] = turn.TTSTTFBMs
		total[i] = turn.TotalMs
	}

	s := Summary{Turns: len(turns)}
	s.EOU, _ = Describe(eou)
	s.LLMTTFT, _ = Describe(llm)
	s.TTSTTFB, _ = Describe(tts)
	s.Total, _ = Describe(total)
	s.Verdict = Assess(s.Total.P90)
	return s, true
}
