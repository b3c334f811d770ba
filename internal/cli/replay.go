package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/turnlat/internal/replay"
	"github.com/okian/turnlat/internal/report"
	"github.com/okian/turnlat/pkg/logger"
)

var noColor bool

// replayCmd rebuilds session summaries from JSON-lines event files.
var replayCmd = &cobra.Command{
	Use:   "replay [files...]",
	Short: "Summarize turn latency from recorded JSON-lines events",
	Long: `Reads JSON-lines events ({"session_id","type","value","ts"}) from the given
files, or stdin when none are given or a file is "-", and prints one latency
summary per session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r := replay.New()

		if len(args) == 0 {
			args = []string{"-"}
		}
		for _, name := range args {
			if err := feedFile(cmd, r, name); err != nil {
				return err
			}
		}

		st := r.Stats()
		logger.Get().Info(ctx, "replay finished",
			logger.Int("lines", st.Lines),
			logger.Int("accepted", st.Accepted),
			logger.Int("ignored", st.Ignored),
			logger.Int("dropped", st.Dropped),
			logger.Int("malformed", st.Malformed),
			logger.Int("turns", st.Turns))

		return r.Render(cmd.OutOrStdout(), report.Options{Color: !noColor})
	},
}

func feedFile(cmd *cobra.Command, r *replay.Replayer, name string) error {
	if name == "-" {
		return r.Feed(cmd.Context(), cmd.InOrStdin())
	}
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	if err := r.Feed(cmd.Context(), f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func init() {
	replayCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored verdicts")
	rootCmd.AddCommand(replayCmd)
}
