package loadgen

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/turnlat/internal/domain/ingest"
	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
)

// Latency ranges for synthetic events, in seconds.
const (
	eouMin      = 0.05
	eouRange    = 0.25
	llmMin      = 0.15
	llmRange    = 0.45
	ttsMin      = 0.08
	ttsRange    = 0.22
	slowTurnPct = 0.05 // share of turns with a slow LLM
	slowLLMAdd  = 0.6
)

// Plan is one synthetic session: the events to post, in order, and what the
// server should report once they are all recorded.
type Plan struct {
	SessionID     string
	Events        []ingest.RawEvent
	ExpectedTurns int
	ExpectedTotal float64 // sum of turn totals, ms
}

// Generate builds one Plan per session. Latency draws and intra-turn order
// are reproducible for a given seed; ids are random.
func Generate(ctx context.Context, cfg Config) []Plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	plans := make([]Plan, cfg.Sessions)
	for i := range plans {
		plans[i] = generatePlan(ctx, cfg, rng)
	}
	logger.Get().Info(ctx, "generated sessions",
		logger.Int("sessions", cfg.Sessions),
		logger.Int("turnsPerSession", cfg.Turns),
		logger.Any("shuffle", cfg.Shuffle),
		logger.Float64("nullRate", cfg.NullRate))
	return plans
}

func generatePlan(ctx context.Context, cfg Config, rng *rand.Rand) Plan {
	sid := uuid.NewString()
	events := make([]ingest.RawEvent, 0, cfg.Turns*len(model.Kinds))
	for turn := 0; turn < cfg.Turns; turn++ {
		kinds := model.Kinds
		if cfg.Shuffle {
			rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })
		}
		slow := rng.Float64() < slowTurnPct
		for _, k := range kinds {
			ev := ingest.RawEvent{
				EventID:   uuid.NewString(),
				SessionID: sid,
				Type:      k.String(),
				TS:        time.Now().UTC().Format(time.RFC3339Nano),
			}
			if rng.Float64() >= cfg.NullRate {
				v := drawSeconds(rng, k, slow)
				ev.Value = &v
			}
			events = append(events, ev)
		}
	}

	turns, total := expect(ctx, events)
	return Plan{SessionID: sid, Events: events, ExpectedTurns: turns, ExpectedTotal: total}
}

func drawSeconds(rng *rand.Rand, k model.Kind, slow bool) float64 {
	switch k {
	case model.KindEndOfUtterance:
		return eouMin + rng.Float64()*eouRange
	case model.KindLLMFirstToken:
		v := llmMin + rng.Float64()*llmRange
		if slow {
			v += slowLLMAdd
		}
		return v
	default:
		return ttsMin + rng.Float64()*ttsRange
	}
}

// expect runs events through a local tracker the same way the server does,
// so null values shift pairing exactly as they will remotely.
func expect(ctx context.Context, events []ingest.RawEvent) (int, float64) {
	tr := latency.New(latency.WithLogger(logger.Discard()))
	total := 0.0
	for _, raw := range events {
		ev, outcome, err := ingest.Classify(raw)
		if err != nil || outcome != ingest.Accepted {
			continue
		}
		if turn, ok := tr.Record(ctx, ev.Kind, *ev.Seconds); ok {
			total += turn.TotalMs
		}
	}
	return tr.Turns(), total
}
