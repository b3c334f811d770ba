package loadgen

import (
	"fmt"
	"math"

	"github.com/okian/turnlat/internal/adapters/repository"
)

// Totals are compared after a JSON round trip.
const totalTolerance = 1e-6

// Verify checks a server report against the plan that produced it.
func Verify(plan Plan, rep repository.Report) error {
	if rep.SessionID != plan.SessionID {
		return fmt.Errorf("%w: report for %q, want %q", ErrMismatch, rep.SessionID, plan.SessionID)
	}
	if len(rep.Turns) != plan.ExpectedTurns {
		return fmt.Errorf("%w: %d turns, want %d", ErrMismatch, len(rep.Turns), plan.ExpectedTurns)
	}
	if rep.HasData != (plan.ExpectedTurns > 0) {
		return fmt.Errorf("%w: has_data=%t with %d expected turns", ErrMismatch, rep.HasData, plan.ExpectedTurns)
	}
	if rep.HasData && rep.Summary.Turns != plan.ExpectedTurns {
		return fmt.Errorf("%w: summary counts %d turns, want %d", ErrMismatch, rep.Summary.Turns, plan.ExpectedTurns)
	}

	sum := 0.0
	for i, turn := range rep.Turns {
		if turn.Index != i+1 {
			return fmt.Errorf("%w: turn %d has index %d", ErrMismatch, i+1, turn.Index)
		}
		parts := turn.EOUMs + turn.LLMTTFTMs + turn.TTSTTFBMs
		if math.Abs(parts-turn.TotalMs) > totalTolerance {
			return fmt.Errorf("%w: turn %d total %.3f != sum of parts %.3f", ErrMismatch, turn.Index, turn.TotalMs, parts)
		}
		sum += turn.TotalMs
	}
	if math.Abs(sum-plan.ExpectedTotal) > totalTolerance*float64(len(rep.Turns)+1) {
		return fmt.Errorf("%w: total %.3fms, want %.3fms", ErrMismatch, sum, plan.ExpectedTotal)
	}
	return nil
}
