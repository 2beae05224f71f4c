// Package cli implements the algotrader command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/rustyeddy/algotrader/internal/logging"
	"github.com/spf13/cobra"
)

// RootConfig holds the persistent flags every subcommand sees.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	logger *slog.Logger
}

// Logger returns the logger built from the flags.
func (rc *RootConfig) Logger() *slog.Logger {
	if rc.logger != nil {
		return rc.logger
	}
	return slog.Default()
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "algotrader",
		Short: "Algotrader: pipeline-driven equity backtesting",
		Long: `Algotrader runs daily equity backtests.

Each session it filters the market through the configured term pipelines,
drops restricted assets, sizes orders and fills them against intraday bars.

Examples:
  algotrader config init -o backtest.yaml
  algotrader run --config backtest.yaml
  algotrader journal --db ./algotrader.sqlite day 2024-01-03`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "text", "Log format: text|json")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(rc.LogLevel, rc.LogFormat, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		rc.logger = logger
		return nil
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newConfigCmd(rc),
		newTermsCmd(rc),
		newJournalCmd(rc),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
