package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/pkg/id"
)

// errReject marks a per-order problem: the order is dropped and reported,
// other orders go on.
type errReject struct{ reason string }

func (e errReject) Error() string { return e.reason }

func reject(format string, args ...any) error {
	return errReject{reason: fmt.Sprintf(format, args...)}
}

// Blotter turns requests into transactions in two phases. Resolve fills in
// the missing time or price of each request from the intraday series; the
// trigger check then drops fills outside the execution band and applies
// slippage.
type Blotter struct {
	Portal     market.DataPortal
	Commission CommissionModel
	Slippage   SlippageModel
	Execution  ExecutionModel
	Logger     *slog.Logger
	Metrics    *Metrics
}

func NewBlotter(portal market.DataPortal, c CommissionModel, s SlippageModel, e ExecutionModel) *Blotter {
	return &Blotter{Portal: portal, Commission: c, Slippage: s, Execution: e}
}

func (b *Blotter) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// CreateTransactions prices every request for the session dt. Requests that
// cannot fill are returned as rejections. The error is non-nil only for
// failures that are not local to one order, such as an unknown order kind.
func (b *Blotter) CreateTransactions(ctx context.Context, reqs []Request, dt time.Time) ([]Transaction, []Rejection, error) {
	var (
		txns       []Transaction
		rejections []Rejection
	)
	for _, req := range reqs {
		txn, err := b.create(ctx, req, dt)
		if err == nil {
			txns = append(txns, txn)
			continue
		}
		var r errReject
		if !errors.As(err, &r) {
			return nil, nil, err
		}
		rej := Rejection{Request: req, Time: dt, Reason: r.reason}
		b.logger().DebugContext(ctx, "order rejected",
			"asset", req.Asset,
			"amount", req.Amount,
			"kind", req.Kind.String(),
			"time", dt,
			"reason", r.reason,
		)
		b.Metrics.IncRejection("blotter")
		rejections = append(rejections, rej)
	}
	return txns, rejections, nil
}

func (b *Blotter) create(ctx context.Context, req Request, dt time.Time) (Transaction, error) {
	if req.Amount == 0 {
		return Transaction{}, reject("zero amount")
	}
	order, err := b.resolve(ctx, req, dt)
	if err != nil {
		return Transaction{}, err
	}
	order, err = b.triggerCheck(ctx, order, dt)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:         id.At(order.Time),
		Asset:      order.Asset,
		Amount:     order.Amount,
		Price:      order.Price,
		Commission: b.Commission.Calculate(order),
		Time:       order.Time,
	}, nil
}

// resolve produces the canonical order for req.
func (b *Blotter) resolve(ctx context.Context, req Request, dt time.Time) (Order, error) {
	switch req.Kind {
	case KindMarket, KindPrice, KindTicker:
	default:
		return Order{}, fmt.Errorf("resolve %s: %w: %d", req.Asset, ErrUnknownOrderKind, int(req.Kind))
	}

	minutes, err := b.Portal.GetSpotValue(ctx, dt, req.Asset, market.Minute)
	if err != nil {
		if errors.Is(err, market.ErrNoData) {
			return Order{}, reject("no intraday data")
		}
		return Order{}, fmt.Errorf("resolve %s: %w", req.Asset, err)
	}
	if len(minutes) == 0 {
		return Order{}, reject("no intraday data")
	}

	o := Order{Asset: req.Asset, Amount: req.Amount, Kind: req.Kind}
	switch req.Kind {
	case KindMarket:
		o.Time, o.Price = minutes[0].Time, minutes[0].Close
	case KindPrice:
		at, ok := locate(minutes, req.Price, o.Direction())
		if !ok {
			return Order{}, reject("limit %g not reached", req.Price)
		}
		o.Time, o.Price = at, req.Price
	case KindTicker:
		bar, ok := barAt(minutes, req.At)
		if !ok {
			return Order{}, reject("no tick at or before %s", req.At.Format(time.RFC3339))
		}
		o.Time, o.Price = req.At, bar.Close
	}
	return o, nil
}

// locate finds the first tick a limit order would fill at: for a buy the
// first close at or below price, for a sell the first close at or above it.
func locate(minutes []market.Bar, price float64, direction int) (time.Time, bool) {
	for _, m := range minutes {
		if direction > 0 && m.Close <= price {
			return m.Time, true
		}
		if direction < 0 && m.Close >= price {
			return m.Time, true
		}
	}
	return time.Time{}, false
}

// barAt returns the last tick at or before t.
func barAt(minutes []market.Bar, t time.Time) (market.Bar, bool) {
	var (
		found market.Bar
		ok    bool
	)
	for _, m := range minutes {
		if m.Time.After(t) {
			break
		}
		found, ok = m, true
	}
	return found, ok
}

// triggerCheck drops fills whose price relative to the previous close is
// outside the open band (1 - stop, 1 + limit), then applies slippage.
func (b *Blotter) triggerCheck(ctx context.Context, o Order, dt time.Time) (Order, error) {
	_, preClose, err := b.Portal.GetOpenPct(ctx, []market.Asset{o.Asset}, dt)
	if err != nil {
		return Order{}, fmt.Errorf("trigger check %s: %w", o.Asset, err)
	}
	pc, ok := preClose[o.Asset]
	if !ok || pc <= 0 {
		return Order{}, reject("no previous close")
	}

	ratio := o.Price / pc
	upper := 1 + b.Execution.LimitRatio(o.Asset, dt)
	bottom := 1 - b.Execution.StopRatio(o.Asset, dt)
	if !(bottom < ratio && ratio < upper) {
		return Order{}, reject("price ratio %.4f outside (%.4f, %.4f)", ratio, bottom, upper)
	}
	o.Price *= 1 + b.Slippage.Factor(o)
	return o, nil
}
