package broker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
	"github.com/rustyeddy/algotrader/risk"
)

// Generator sizes orders, passes them through the trading controls and
// hands them to the blotter.
type Generator struct {
	Blotter  *Blotter
	Controls risk.TradingControl
	BoardLot int
}

func NewGenerator(b *Blotter, controls risk.TradingControl, boardLot int) *Generator {
	if controls == nil {
		controls = risk.NoControl{}
	}
	return &Generator{Blotter: b, Controls: controls, BoardLot: boardLot}
}

// Batch is the outcome of one generator call.
type Batch struct {
	Transactions []Transaction
	Rejections   []Rejection
}

func (b *Batch) add(o Batch) {
	b.Transactions = append(b.Transactions, o.Transactions...)
	b.Rejections = append(b.Rejections, o.Rejections...)
}

// YieldCapital buys as many board lots of asset as capital covers at the
// session's first tick, commission and slippage included.
func (g *Generator) YieldCapital(ctx context.Context, asset market.Asset, capital float64, p portfolio.Portfolio, dt time.Time) (Batch, error) {
	price, err := g.firstPrice(ctx, asset, dt)
	if err != nil {
		return g.rejected(MarketOrder(asset, 0), dt, err.Error()), nil
	}
	amount := g.affordable(asset, capital, price, dt)
	if amount <= 0 {
		return g.rejected(MarketOrder(asset, 0), dt, fmt.Sprintf("capital %.2f buys no lot at %g", capital, price)), nil
	}
	return g.submit(ctx, MarketOrder(asset, amount), p, dt)
}

// YieldPosition liquidates the whole position.
func (g *Generator) YieldPosition(ctx context.Context, pos portfolio.Position, p portfolio.Portfolio, dt time.Time) (Batch, error) {
	if pos.Amount == 0 {
		return Batch{}, nil
	}
	return g.submit(ctx, MarketOrder(pos.Asset, -pos.Amount), p, dt)
}

// YieldInteractive sells pos and spends the proceeds on asset in one
// capital context: the buy leg is funded only by what the sell leg raised.
func (g *Generator) YieldInteractive(ctx context.Context, pos portfolio.Position, asset market.Asset, p portfolio.Portfolio, dt time.Time) (sell, buy Batch, err error) {
	sell, err = g.YieldPosition(ctx, pos, p, dt)
	if err != nil {
		return Batch{}, Batch{}, err
	}
	proceeds := 0.0
	for _, t := range sell.Transactions {
		proceeds += t.CashFlow()
	}
	if proceeds <= 0 {
		return sell, Batch{}, nil
	}
	buy, err = g.YieldCapital(ctx, asset, proceeds, p, dt)
	return sell, buy, err
}

// submit runs the controls and the blotter for one request. Control
// failures reject the order; only blotter errors are returned.
func (g *Generator) submit(ctx context.Context, req Request, p portfolio.Portfolio, dt time.Time) (Batch, error) {
	amount, err := g.Controls.Validate(ctx, req.Asset, req.Amount, p, dt)
	if err != nil {
		g.Blotter.Metrics.IncRejection("control")
		return g.rejected(req, dt, err.Error()), nil
	}
	if amount > 0 {
		amount = g.roundLot(amount)
	} else {
		amount = math.Ceil(amount)
	}
	if amount == 0 {
		return g.rejected(req, dt, "amount clipped to zero"), nil
	}
	req.Amount = amount

	txns, rejections, err := g.Blotter.CreateTransactions(ctx, []Request{req}, dt)
	if err != nil {
		return Batch{}, err
	}
	return Batch{Transactions: txns, Rejections: rejections}, nil
}

func (g *Generator) rejected(req Request, dt time.Time, reason string) Batch {
	return Batch{Rejections: []Rejection{{Request: req, Time: dt, Reason: reason}}}
}

func (g *Generator) firstPrice(ctx context.Context, asset market.Asset, dt time.Time) (float64, error) {
	minutes, err := g.Blotter.Portal.GetSpotValue(ctx, dt, asset, market.Minute)
	if err != nil {
		return 0, err
	}
	if len(minutes) == 0 || minutes[0].Close <= 0 {
		return 0, fmt.Errorf("no price for %s", asset)
	}
	return minutes[0].Close, nil
}

// affordable is the largest lot multiple whose cost with slippage and
// commission stays within capital.
func (g *Generator) affordable(asset market.Asset, capital, price float64, dt time.Time) float64 {
	lot := float64(g.lot())
	amount := risk.Shares(capital, price, g.BoardLot)
	for amount > 0 {
		o := Order{Asset: asset, Amount: amount, Price: price, Time: dt}
		o.Price *= 1 + g.Blotter.Slippage.Factor(o)
		if amount*o.Price+g.Blotter.Commission.Calculate(o) <= capital {
			return amount
		}
		amount -= lot
	}
	return 0
}

func (g *Generator) roundLot(amount float64) float64 {
	lot := float64(g.lot())
	return math.Floor(amount/lot) * lot
}

func (g *Generator) lot() int {
	if g.BoardLot <= 0 {
		return 1
	}
	return g.BoardLot
}
