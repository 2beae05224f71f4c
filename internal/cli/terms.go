package cli

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/algotrader/backtest"
	"github.com/rustyeddy/algotrader/term"
	"github.com/spf13/cobra"
)

func newTermsCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "List term logics and describe the configured pipelines",
		Long: `List every registered term logic. With --config, also build the
configured pipelines against the data files and print their term graphs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logics: %s\n", strings.Join(term.Logics(), ", "))
			if rc.ConfigPath == "" {
				return nil
			}

			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			m, err := backtest.LoadMarket(cfg)
			if err != nil {
				return err
			}
			deps := m.Deps()
			deps.Logger = rc.Logger()
			bt, err := backtest.Build(cfg, deps)
			if err != nil {
				return err
			}
			defer bt.Close()

			fmt.Fprintln(out, "Pipelines:")
			for _, line := range bt.Describe() {
				fmt.Fprintf(out, "  %s\n", line)
			}
			fmt.Fprintf(out, "Interned terms: %d\n", bt.Terms.Len())
			return nil
		},
	}
}
