package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/turnlat/internal/loadgen"
)

const defaultRunTimeout = 10 * time.Minute

var (
	lgConfig  = loadgen.DefaultConfig()
	lgTimeout time.Duration
)

// loadgenCmd drives synthetic voice sessions against a running server.
var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Post synthetic sessions to a running server and verify the reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), lgTimeout)
		defer cancel()
		_, err := loadgen.Run(ctx, lgConfig)
		return err
	},
}

func init() {
	f := loadgenCmd.Flags()
	f.StringVar(&lgConfig.BaseURL, "url", lgConfig.BaseURL, "base URL of the service")
	f.IntVar(&lgConfig.Sessions, "sessions", lgConfig.Sessions, "number of synthetic sessions")
	f.IntVar(&lgConfig.Turns, "turns", lgConfig.Turns, "turns per session")
	f.IntVar(&lgConfig.Workers, "workers", lgConfig.Workers, "sessions driven concurrently")
	f.DurationVar(&lgConfig.Timeout, "timeout", lgConfig.Timeout, "HTTP request timeout")
	f.BoolVar(&lgConfig.Shuffle, "shuffle", false, "randomize event order inside each turn")
	f.Float64Var(&lgConfig.NullRate, "null-rate", 0, "probability that an event carries a null value")
	f.Uint64Var(&lgConfig.Seed, "seed", lgConfig.Seed, "seed for latency draws")
	f.BoolVar(&lgConfig.Verbose, "verbose", false, "log every verified session")
	f.DurationVar(&lgTimeout, "run-timeout", defaultRunTimeout, "overall run timeout")
	rootCmd.AddCommand(loadgenCmd)
}
