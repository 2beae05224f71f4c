package cli

import (
	"fmt"

	"github.com/rustyeddy/algotrader/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage backtest configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate the file given by --config

Examples:
  algotrader config init -o backtest.yaml
  algotrader config validate --config backtest.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  algotrader run --config %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "backtest.yaml", "output config file path")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid: %s\n", rc.ConfigPath)
			fmt.Fprintf(out, "  Account:   %s (%.2f)\n", cfg.Account.ID, cfg.Account.Cash)
			fmt.Fprintf(out, "  Period:    %s .. %s\n", cfg.Backtest.Start, cfg.Backtest.End)
			fmt.Fprintf(out, "  Pipelines: %d\n", len(cfg.Pipelines))
			fmt.Fprintf(out, "  Journal:   %s\n", cfg.Journal.Type)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
