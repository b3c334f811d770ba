// Package report renders latency summaries for the log stream and terminals.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/pkg/logger"
)

const ruleWidth = 70

// NoTurnsMessage is reported when a session closes without a complete turn.
const NoTurnsMessage = "no complete turns recorded"

// Log writes the summary block for one session to log. Each section is a
// separate line so the block survives line-oriented log shipping.
func Log(ctx context.Context, log logger.Logger, sessionID string, s latency.Summary, ok bool) {
	session := logger.String("session", sessionID)
	if !ok {
		log.Info(ctx, NoTurnsMessage, session)
		return
	}

	log.Info(ctx, "turn latency results", session, logger.Int("turns", s.Turns))
	for _, series := range s.Series() {
		st := series.Stats
		log.Info(ctx, series.Name, session,
			logger.Millis("avg", st.Mean),
			logger.Millis("p50", st.P50),
			logger.Millis("p90", st.P90),
			logger.Millis("p99", st.P99),
			logger.Millis("min", st.Min),
			logger.Millis("max", st.Max),
		)
	}
	log.Info(ctx, "turn latency verdict", session,
		logger.Millis("p90_total", s.Total.P90),
		logger.Millis("p99_total", s.Total.P99),
		logger.String("status", string(s.Verdict)),
	)
}

// Options controls Write.
type Options struct {
	Color bool
}

// Write renders the summary block as plain text.
func Write(w io.Writer, sessionID string, s latency.Summary, ok bool, opts Options) error {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "TURN LATENCY RESULTS  session=%s\n", sessionID)
	b.WriteString(rule + "\n")
	if !ok {
		b.WriteString(NoTurnsMessage + "\n")
		b.WriteString(rule + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Total Turns: %d\n", s.Turns)
	for _, series := range s.Series() {
		st := series.Stats
		fmt.Fprintf(&b, "\n%s:\n", series.Name)
		fmt.Fprintf(&b, "  Average: %.0fms\n", st.Mean)
		fmt.Fprintf(&b, "  P50:     %.0fms\n", st.P50)
		fmt.Fprintf(&b, "  P90:     %.0fms\n", st.P90)
		fmt.Fprintf(&b, "  P99:     %.0fms\n", st.P99)
		fmt.Fprintf(&b, "  Min:     %.0fms\n", st.Min)
		fmt.Fprintf(&b, "  Max:     %.0fms\n", st.Max)
	}
	fmt.Fprintf(&b, "\nP90 Total Latency: %.0fms\n", s.Total.P90)
	fmt.Fprintf(&b, "P99 Total Latency: %.0fms\n", s.Total.P99)
	fmt.Fprintf(&b, "Status: %s\n", verdictText(s.Verdict, opts.Color))
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func verdictText(v latency.Verdict, colored bool) string {
	var text string
	var c *color.Color
	switch v {
	case latency.VerdictExcellent:
		text, c = "EXCELLENT - sub-500ms", color.New(color.FgGreen, color.Bold)
	case latency.VerdictGood:
		text, c = "GOOD - sub-800ms", color.New(color.FgYellow, color.Bold)
	default:
		text, c = "needs further optimization", color.New(color.FgRed, color.Bold)
	}
	if !colored {
		return text
	}
	c.EnableColor()
	return c.Sprint(text)
}
