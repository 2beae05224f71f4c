// Package broker turns signals into transactions and applies them to the
// ledger.
//
// The Blotter prices requests against intraday data, the Generator sizes and
// controls them, and the Broker runs one session: it partitions the signals
// into buys, sells and sell-then-buy duals, builds every transaction, and
// only then applies the batches to the ledger on a bounded worker pool.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
	"github.com/rustyeddy/algotrader/risk"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the size of the ledger apply pool.
const DefaultWorkers = 3

// Dual pairs an exit with an entry executed in one capital context.
type Dual struct {
	Sell portfolio.Position
	Buy  market.Asset
}

// Signals are one session's trading decisions.
type Signals struct {
	Buys  []market.Asset
	Sells []portfolio.Position
	Duals []Dual
}

// SignalSource computes the session's signals from the ledger state.
type SignalSource interface {
	ExecuteAlgorithm(ctx context.Context, p portfolio.Portfolio, dt time.Time) (Signals, error)
}

// Ledger is the portfolio store the broker reads exposure from and applies
// fills to. ProcessTransaction must be safe for concurrent use across
// assets.
type Ledger interface {
	Portfolio() portfolio.Portfolio
	Account() portfolio.Account
	ProcessTransaction(ctx context.Context, t Transaction) error
}

// Report is what one Implement call did.
type Report struct {
	Time             time.Time
	Signals          Signals
	Buys             Batch
	Sells            Batch
	Duals            Batch
	AccountViolation error
}

// Transactions lists every applied transaction.
func (r Report) Transactions() []Transaction {
	out := make([]Transaction, 0, len(r.Buys.Transactions)+len(r.Sells.Transactions)+len(r.Duals.Transactions))
	out = append(out, r.Buys.Transactions...)
	out = append(out, r.Sells.Transactions...)
	return append(out, r.Duals.Transactions...)
}

// Rejections lists every dropped order.
func (r Report) Rejections() []Rejection {
	var out []Rejection
	out = append(out, r.Buys.Rejections...)
	out = append(out, r.Sells.Rejections...)
	return append(out, r.Duals.Rejections...)
}

// Broker runs the allocation and execution cycle for a session.
type Broker struct {
	Source          SignalSource
	Generator       *Generator
	Capital         risk.CapitalModel
	AccountControls []risk.AccountControl
	Workers         int
	Logger          *slog.Logger
	Metrics         *Metrics
}

func (b *Broker) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Implement runs one session against ledger. Signal computation, controls
// and pricing finish before any transaction is applied.
func (b *Broker) Implement(ctx context.Context, ledger Ledger, dt time.Time) (Report, error) {
	start := time.Now()
	defer func() { b.Metrics.ObserveStep(time.Since(start)) }()

	report := Report{Time: dt}
	p := ledger.Portfolio()

	if err := risk.ValidateAccount(b.AccountControls, p, ledger.Account(), dt); err != nil {
		report.AccountViolation = err
		b.Metrics.IncAccountViolation()
		b.logger().WarnContext(ctx, "account control violated, skipping buys",
			"time", dt,
			"error", err,
		)
	}

	signals, err := b.Source.ExecuteAlgorithm(ctx, p, dt)
	if err != nil {
		return report, fmt.Errorf("execute algorithm: %w", err)
	}
	report.Signals = signals

	buys, sells, duals := map[market.Asset][]Transaction{}, map[market.Asset][]Transaction{}, map[market.Asset][]Transaction{}
	if report.AccountViolation == nil {
		if report.Buys, err = b.implementCapital(ctx, signals.Buys, p, dt, buys); err != nil {
			return report, err
		}
	}
	if report.Sells, err = b.implementPosition(ctx, signals.Sells, p, dt, sells); err != nil {
		return report, err
	}
	if report.AccountViolation == nil {
		if report.Duals, err = b.implementDuals(ctx, signals.Duals, p, dt, duals); err != nil {
			return report, err
		}
	}

	if err := b.apply(ctx, ledger, buys, sells, duals); err != nil {
		return report, err
	}
	return report, nil
}

func (b *Broker) implementCapital(ctx context.Context, assets []market.Asset, p portfolio.Portfolio, dt time.Time, into map[market.Asset][]Transaction) (Batch, error) {
	var out Batch
	if len(assets) == 0 {
		return out, nil
	}
	alloc, err := b.Capital.Compute(ctx, assets, p.Cash, dt)
	if err != nil {
		return out, fmt.Errorf("capital model: %w", err)
	}
	for _, a := range assets {
		capital, ok := alloc[a]
		if !ok || capital <= 0 {
			continue
		}
		batch, err := b.Generator.YieldCapital(ctx, a, capital, p, dt)
		if err != nil {
			return out, err
		}
		into[a] = append(into[a], batch.Transactions...)
		out.add(batch)
	}
	return out, nil
}

func (b *Broker) implementPosition(ctx context.Context, positions []portfolio.Position, p portfolio.Portfolio, dt time.Time, into map[market.Asset][]Transaction) (Batch, error) {
	var out Batch
	for _, pos := range positions {
		batch, err := b.Generator.YieldPosition(ctx, pos, p, dt)
		if err != nil {
			return out, err
		}
		into[pos.Asset] = append(into[pos.Asset], batch.Transactions...)
		out.add(batch)
	}
	return out, nil
}

func (b *Broker) implementDuals(ctx context.Context, duals []Dual, p portfolio.Portfolio, dt time.Time, into map[market.Asset][]Transaction) (Batch, error) {
	var out Batch
	for _, d := range duals {
		sell, buy, err := b.Generator.YieldInteractive(ctx, d.Sell, d.Buy, p, dt)
		if err != nil {
			return out, err
		}
		into[d.Sell.Asset] = append(into[d.Sell.Asset], sell.Transactions...)
		into[d.Buy] = append(into[d.Buy], buy.Transactions...)
		out.add(sell)
		out.add(buy)
	}
	return out, nil
}

// apply commits the batches on a pool of Workers goroutines. Transactions of
// one asset within a batch are applied in order by one goroutine.
func (b *Broker) apply(ctx context.Context, ledger Ledger, batches ...map[market.Asset][]Transaction) error {
	workers := b.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, batch := range batches {
		for asset, txns := range batch {
			if len(txns) == 0 {
				continue
			}
			asset, txns := asset, txns
			g.Go(func() error {
				for _, t := range txns {
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := ledger.ProcessTransaction(ctx, t); err != nil {
						return fmt.Errorf("apply %s %s: %w", asset, t.ID, err)
					}
					b.Metrics.IncTransaction(t.Side())
				}
				return nil
			})
		}
	}
	return g.Wait()
}
