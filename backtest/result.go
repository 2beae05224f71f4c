package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/algotrader/journal"
)

// Result is a lightweight summary of a backtest run.
type Result struct {
	Start    time.Time
	End      time.Time
	Sessions int

	Transactions      int
	Rejections        int
	AccountViolations int

	StartCash  float64
	EndValue   float64
	Cash       float64
	RealizedPL float64
	MaxDDPct   float64
	Holdings   int
}

func (r Result) NetPL() float64 { return r.EndValue - r.StartCash }

func (r Result) ReturnPct() float64 {
	if r.StartCash == 0 {
		return 0
	}
	return r.NetPL() / r.StartCash * 100
}

// Run converts the result into a journal run summary.
func (r Result) Run(runID, name string, pipelines []string) journal.Run {
	return journal.Run{
		RunID:        runID,
		Name:         name,
		Created:      time.Now().UTC(),
		Start:        r.Start,
		End:          r.End,
		Sessions:     r.Sessions,
		Transactions: r.Transactions,
		Rejections:   r.Rejections,
		StartCash:    r.StartCash,
		EndValue:     r.EndValue,
		MaxDDPct:     r.MaxDDPct,
		Pipelines:    pipelines,
	}
}

func PrintResult(w io.Writer, runID string, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", runID)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.DateOnly))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.DateOnly))
	fmt.Fprintf(w, "Sessions:      %d\n", r.Sessions)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Activity")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Transactions:  %d\n", r.Transactions)
	fmt.Fprintf(w, "Rejections:    %d\n", r.Rejections)
	if r.AccountViolations > 0 {
		fmt.Fprintf(w, "Account Viol.: %d\n", r.AccountViolations)
	}
	fmt.Fprintf(w, "Holdings:      %d\n", r.Holdings)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Value:   %.2f\n", r.StartCash)
	fmt.Fprintf(w, "End Value:     %.2f\n", r.EndValue)
	fmt.Fprintf(w, "Cash:          %.2f\n", r.Cash)
	fmt.Fprintf(w, "Realized P/L:  %.2f\n", r.RealizedPL)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL())
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct())
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	}
	fmt.Fprintln(w)
}
