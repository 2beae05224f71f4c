package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/sim"
)

// Runner drives the broker over every session in [Start, End]:
//  1. broker.Implement books the session's transactions
//  2. the ledger is marked at the session close
//
// OnSession, when set, sees each session's report after revaluation.
type Runner struct {
	Broker   *broker.Broker
	Ledger   *sim.Ledger
	Portal   market.DataPortal
	Calendar market.Calendar
	Start    time.Time
	End      time.Time

	OnSession func(broker.Report)
	Logger    *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) validate() error {
	switch {
	case r.Broker == nil:
		return errors.New("backtest: Broker is required")
	case r.Ledger == nil:
		return errors.New("backtest: Ledger is required")
	case r.Portal == nil:
		return errors.New("backtest: Portal is required")
	case r.Calendar == nil:
		return errors.New("backtest: Calendar is required")
	case r.End.Before(r.Start):
		return fmt.Errorf("backtest: end %s before start %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}

// Run executes the session loop and summarises it.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}

	start := r.Ledger.Portfolio()
	res := Result{
		Start:     r.Start,
		End:       r.End,
		StartCash: start.PortfolioValue,
		EndValue:  start.PortfolioValue,
		Cash:      start.Cash,
	}
	peak := start.PortfolioValue

	for _, dt := range r.Calendar.Sessions(r.Start, r.End) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		report, err := r.Broker.Implement(ctx, r.Ledger, dt)
		if err != nil {
			return res, fmt.Errorf("session %s: %w", dt.Format(time.DateOnly), err)
		}
		p, err := r.Ledger.Revalue(ctx, r.Portal, dt)
		if err != nil {
			return res, fmt.Errorf("session %s: %w", dt.Format(time.DateOnly), err)
		}

		res.Sessions++
		res.Transactions += len(report.Transactions())
		res.Rejections += len(report.Rejections())
		if report.AccountViolation != nil {
			res.AccountViolations++
		}
		res.EndValue = p.PortfolioValue
		res.Cash = p.Cash
		res.Holdings = len(p.Held())
		if p.PortfolioValue > peak {
			peak = p.PortfolioValue
		}
		if peak > 0 {
			if dd := (peak - p.PortfolioValue) / peak * 100; dd > res.MaxDDPct {
				res.MaxDDPct = dd
			}
		}

		r.logger().InfoContext(ctx, "session",
			"time", dt.Format(time.DateOnly),
			"transactions", len(report.Transactions()),
			"rejections", len(report.Rejections()),
			"value", p.PortfolioValue,
		)
		if r.OnSession != nil {
			r.OnSession(report)
		}
	}

	res.RealizedPL = r.Ledger.RealizedPL()
	return res, nil
}
