package cli

import (
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/journal"
	"github.com/spf13/cobra"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the SQLite journal",
		Long: `Query transactions and run summaries recorded in a SQLite journal.

Subcommands:
  transaction - Show one transaction by ID
  day         - List the transactions of one session
  run         - Show a run summary as an Org report

Examples:
  algotrader journal transaction 01HNB8ZQ5S7XKJ3V2C4M6P8R0T
  algotrader journal day 2024-01-03
  algotrader journal run 01HNB90A1B2C3D4E5F6G7H8J9K`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./algotrader.sqlite", "path to SQLite journal DB")

	open := func() (*journal.SQLite, error) {
		j, err := journal.NewSQLite(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	transactionCmd := &cobra.Command{
		Use:   "transaction <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTransaction(args[0])
			if err != nil {
				return fmt.Errorf("get transaction: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTransactionOrg(rec))
			return nil
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List the transactions of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := dayBounds(args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListTransactionsBetween(start, end)
			if err != nil {
				return fmt.Errorf("query transactions: %w", err)
			}
			rc.Logger().Debug("journal day", "day", args[0], "transactions", len(recs))
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTransactionsOrg(recs))
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			return run.WriteOrg(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(transactionCmd, dayCmd, runCmd)
	return cmd
}

// dayBounds returns [day, day+24h) in UTC, the zone fills are stamped in.
func dayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return t, t.Add(24 * time.Hour), nil
}
