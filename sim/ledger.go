// Package sim holds the in-memory ledger a backtest books its fills into.
package sim

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/journal"
	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
)

var ErrEmptyTransaction = errors.New("transaction has zero amount")

const shardCount = 16

type shard struct {
	mu        sync.Mutex
	positions map[market.Asset]portfolio.Position
}

// Ledger is a concurrent portfolio store. Positions are split across
// sharded mutexes so fills of different assets proceed in parallel; cash
// has its own mutex. Lock order is shard index ascending, then cash.
type Ledger struct {
	shards [shardCount]shard

	cashMu    sync.Mutex
	cash      float64
	startCash float64
	realized  float64
	now       time.Time

	journalMu sync.Mutex
	journal   journal.Journal

	Logger *slog.Logger
}

var _ broker.Ledger = (*Ledger)(nil)

// NewLedger starts a ledger with cash and no positions. A nil journal
// records nothing.
func NewLedger(cash float64, j journal.Journal) *Ledger {
	if j == nil {
		j = journal.Nop{}
	}
	l := &Ledger{cash: cash, startCash: cash, journal: j}
	for i := range l.shards {
		l.shards[i].positions = make(map[market.Asset]portfolio.Position)
	}
	return l
}

func (l *Ledger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Ledger) shardFor(a market.Asset) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(a))
	return &l.shards[h.Sum32()%shardCount]
}

// ProcessTransaction books t: it moves the position and the cash and then
// journals the fill. Safe for concurrent use.
func (l *Ledger) ProcessTransaction(ctx context.Context, t broker.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Amount == 0 {
		return fmt.Errorf("process %s: %w", t.ID, ErrEmptyTransaction)
	}

	s := l.shardFor(t.Asset)
	s.mu.Lock()
	pos, realized := applyFill(s.positions[t.Asset], t)
	if pos.Amount == 0 {
		delete(s.positions, t.Asset)
	} else {
		s.positions[t.Asset] = pos
	}

	l.cashMu.Lock()
	l.cash += t.CashFlow()
	l.realized += realized
	if t.Time.After(l.now) {
		l.now = t.Time
	}
	l.cashMu.Unlock()
	s.mu.Unlock()

	l.logger().DebugContext(ctx, "transaction booked",
		"id", t.ID,
		"asset", t.Asset,
		"amount", t.Amount,
		"price", t.Price,
		"realized", realized,
	)

	return l.record(func(j journal.Journal) error {
		return j.RecordTransaction(journal.TransactionRecord{
			ID:         t.ID,
			Asset:      string(t.Asset),
			Amount:     t.Amount,
			Price:      t.Price,
			Commission: t.Commission,
			CashFlow:   t.CashFlow(),
			RealizedPL: realized,
			Time:       t.Time,
		})
	})
}

func (l *Ledger) record(fn func(journal.Journal) error) error {
	l.journalMu.Lock()
	defer l.journalMu.Unlock()
	if err := fn(l.journal); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// Portfolio returns a consistent snapshot.
func (l *Ledger) Portfolio() portfolio.Portfolio {
	for i := range l.shards {
		l.shards[i].mu.Lock()
	}
	l.cashMu.Lock()
	defer func() {
		l.cashMu.Unlock()
		for i := range l.shards {
			l.shards[i].mu.Unlock()
		}
	}()

	p := portfolio.Portfolio{
		StartCash: l.startCash,
		Cash:      l.cash,
		Positions: make(map[market.Asset]portfolio.Position),
		Time:      l.now,
	}
	for i := range l.shards {
		for a, pos := range l.shards[i].positions {
			p.Positions[a] = pos
			p.PositionsValue += pos.Value()
		}
	}
	p.PortfolioValue = p.Cash + p.PositionsValue
	return p
}

func (l *Ledger) Account() portfolio.Account {
	return portfolio.NewAccount(l.Portfolio())
}

// RealizedPL is the profit booked by closing fills so far.
func (l *Ledger) RealizedPL() float64 {
	l.cashMu.Lock()
	defer l.cashMu.Unlock()
	return l.realized
}

// Revalue marks every position at the session close of dt and journals an
// equity snapshot. Assets without a bar on dt keep their last price.
func (l *Ledger) Revalue(ctx context.Context, portal market.DataPortal, dt time.Time) (portfolio.Portfolio, error) {
	held := l.Portfolio().Held()
	closes := make(map[market.Asset]float64, len(held))
	for _, a := range held {
		bars, err := portal.GetSpotValue(ctx, dt, a, market.Daily)
		if err != nil && !errors.Is(err, market.ErrNoData) {
			return portfolio.Portfolio{}, fmt.Errorf("revalue %s: %w", a, err)
		}
		if len(bars) == 0 {
			continue
		}
		closes[a] = bars[len(bars)-1].Close
	}

	for a, px := range closes {
		s := l.shardFor(a)
		s.mu.Lock()
		if pos, ok := s.positions[a]; ok {
			pos.LastSalePrice = px
			pos.LastSaleDate = dt
			s.positions[a] = pos
		}
		s.mu.Unlock()
	}

	l.cashMu.Lock()
	if dt.After(l.now) {
		l.now = dt
	}
	l.cashMu.Unlock()

	p := l.Portfolio()
	acct := portfolio.NewAccount(p)
	err := l.record(func(j journal.Journal) error {
		return j.RecordEquity(journal.EquitySnapshot{
			Time:           dt,
			Cash:           p.Cash,
			PositionsValue: p.PositionsValue,
			PortfolioValue: p.PortfolioValue,
			Leverage:       acct.Leverage,
		})
	})
	return p, err
}
