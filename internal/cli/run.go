package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/algotrader/backtest"
	"github.com/rustyeddy/algotrader/config"
	"github.com/rustyeddy/algotrader/journal"
	"github.com/rustyeddy/algotrader/pkg/id"
	"github.com/spf13/cobra"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		name        string
		notes       []string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest from a config file",
		Long: `Run a backtest over [backtest.start, backtest.end] using the pipelines,
restrictions, controls and execution settings of the config file.

Example:
  algotrader run --config backtest.yaml --name momentum-q1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			logger := rc.Logger()

			m, err := backtest.LoadMarket(cfg)
			if err != nil {
				return err
			}

			j, sq, err := openJournal(cfg.Journal)
			if err != nil {
				return fmt.Errorf("create journal: %w", err)
			}
			defer j.Close()

			reg := prometheus.NewRegistry()
			deps := m.Deps()
			deps.Journal = j
			deps.Logger = logger
			deps.Registry = reg

			bt, err := backtest.Build(cfg, deps)
			if err != nil {
				return err
			}
			defer bt.Close()

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, reg, logger)
				defer stop()
				logger.Info("serving metrics", "addr", metricsAddr)
			}

			runID := id.New()
			logger.Info("backtest starting",
				"run_id", runID,
				"start", cfg.Backtest.Start,
				"end", cfg.Backtest.End,
				"pipelines", len(bt.Pipelines),
			)

			res, err := bt.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}

			backtest.PrintResult(cmd.OutOrStdout(), runID, res)

			if name == "" {
				name = cfg.Pipelines[0].Name
			}
			run := res.Run(runID, name, bt.Describe())
			run.Notes = notes
			if sq != nil {
				if err := sq.RecordRun(run); err != nil {
					return fmt.Errorf("record run: %w", err)
				}
			}
			if cfg.Journal.OrgPath != "" {
				if err := run.WriteOrgFile(cfg.Journal.OrgPath); err != nil {
					return err
				}
				logger.Info("org report written", "path", cfg.Journal.OrgPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Run name (defaults to the first pipeline's name)")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "Note for the org report (repeatable)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

func loadConfig(rc *RootConfig) (*config.Config, error) {
	if rc.ConfigPath == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.LoadFromFile(rc.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openJournal returns the configured journal. The SQLite handle is also
// returned so the caller can record the run summary.
func openJournal(jc config.JournalConfig) (journal.Journal, *journal.SQLite, error) {
	switch jc.Type {
	case "csv":
		j, err := journal.NewCSV(jc.TransactionsFile, jc.EquityFile)
		return j, nil, err
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath)
		return j, j, err
	}
	return journal.Nop{}, nil, nil
}

// serveMetrics exposes reg on addr until the returned stop is called. Listen
// failures are logged; the backtest still runs.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
