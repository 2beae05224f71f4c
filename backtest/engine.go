package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
	"github.com/rustyeddy/algotrader/restriction"
	"github.com/rustyeddy/algotrader/term"
)

// Engine computes a session's signals from the entry pipelines, the
// restrictions and an optional exit pipeline.
//
// The entry target is the eligible universe filtered by every entry pipeline
// in turn; an asset wanted by several pipelines keeps the position of its
// first appearance. Held assets leave the portfolio when the exit pipeline
// selects them or, with no exit pipeline, when they drop out of the target.
type Engine struct {
	Entry        []*term.Pipeline
	Exit         *term.Pipeline
	Restrictions restriction.Restriction
	Finder       market.AssetFinder

	// Universe limits the candidates; empty means every active asset.
	Universe []market.Asset

	// MaxHoldings caps the number of assets held after the session; zero
	// means no cap.
	MaxHoldings int

	// Rotate pairs each exit with an entry as a dual, so the entry is paid
	// for by the exit's proceeds.
	Rotate bool

	Logger *slog.Logger
}

var _ broker.SignalSource = (*Engine)(nil)

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Candidates returns the active, unrestricted assets for dt.
func (e *Engine) Candidates(ctx context.Context, dt time.Time) ([]market.Asset, error) {
	active, err := e.Finder.WasActive(ctx, dt)
	if err != nil {
		return nil, fmt.Errorf("active assets: %w", err)
	}
	if len(e.Universe) > 0 {
		active = market.Intersect(active, market.Sorted(e.Universe))
	}
	r := e.Restrictions
	if r == nil {
		r = restriction.NoRestriction{}
	}
	eligible, err := r.Eligible(ctx, active, dt)
	if err != nil {
		return nil, fmt.Errorf("restrictions: %w", err)
	}
	return eligible, nil
}

// Targets evaluates the entry pipelines over the candidates.
func (e *Engine) Targets(ctx context.Context, candidates []market.Asset, dt time.Time) ([]market.Asset, error) {
	var out []market.Asset
	seen := make(map[market.Asset]bool)
	for _, p := range e.Entry {
		got, err := p.Evaluate(ctx, dt, candidates)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", p.Name(), err)
		}
		for _, a := range got {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (e *Engine) ExecuteAlgorithm(ctx context.Context, p portfolio.Portfolio, dt time.Time) (broker.Signals, error) {
	candidates, err := e.Candidates(ctx, dt)
	if err != nil {
		return broker.Signals{}, err
	}
	targets, err := e.Targets(ctx, candidates, dt)
	if err != nil {
		return broker.Signals{}, err
	}

	held := p.Held()
	var exits []market.Asset
	if e.Exit != nil {
		if exits, err = e.Exit.Evaluate(ctx, dt, held); err != nil {
			return broker.Signals{}, fmt.Errorf("exit pipeline %s: %w", e.Exit.Name(), err)
		}
	} else {
		exits = market.Difference(held, market.Sorted(targets))
	}

	var sells []portfolio.Position
	for _, a := range exits {
		if pos, ok := p.Position(a); ok && pos.Amount != 0 {
			sells = append(sells, pos)
		}
	}

	var buys []market.Asset
	for _, a := range targets {
		if !market.Contains(held, a) {
			buys = append(buys, a)
		}
	}
	if e.MaxHoldings > 0 {
		room := e.MaxHoldings - len(held) + len(sells)
		if room < 0 {
			room = 0
		}
		if len(buys) > room {
			buys = buys[:room]
		}
	}

	signals := broker.Signals{Buys: buys, Sells: sells}
	if e.Rotate {
		signals = rotate(signals)
	}

	e.logger().DebugContext(ctx, "signals",
		"time", dt,
		"candidates", len(candidates),
		"targets", len(targets),
		"buys", len(signals.Buys),
		"sells", len(signals.Sells),
		"duals", len(signals.Duals),
	)
	return signals, nil
}

// rotate pairs sells and buys in order; the unpaired remainder stays as
// plain buys or sells.
func rotate(s broker.Signals) broker.Signals {
	n := min(len(s.Sells), len(s.Buys))
	out := broker.Signals{
		Buys:  s.Buys[n:],
		Sells: s.Sells[n:],
	}
	for i := 0; i < n; i++ {
		out.Duals = append(out.Duals, broker.Dual{Sell: s.Sells[i], Buy: s.Buys[i]})
	}
	return out
}
