// Package portfolio defines the read-only views of the ledger that controls,
// capital models and the broker reason about. The ledger itself owns the
// mutable state; everything here is a snapshot value.
package portfolio

import (
	"math"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// Position is the holding of a single asset.
type Position struct {
	Asset         market.Asset
	Amount        float64 // shares; negative for shorts
	CostBasis     float64 // average price paid per share, commission included
	LastSalePrice float64
	LastSaleDate  time.Time
}

// Value marks the position at its last sale price.
func (p Position) Value() float64 {
	return p.Amount * p.LastSalePrice
}

// Portfolio is a point-in-time snapshot of the ledger.
type Portfolio struct {
	StartCash      float64
	Cash           float64
	PositionsValue float64
	PortfolioValue float64
	Positions      map[market.Asset]Position
	Time           time.Time
}

// Position returns the holding for asset, if any.
func (p Portfolio) Position(asset market.Asset) (Position, bool) {
	pos, ok := p.Positions[asset]
	return pos, ok
}

// Weights returns each position's value as a fraction of the portfolio value.
func (p Portfolio) Weights() map[market.Asset]float64 {
	out := make(map[market.Asset]float64, len(p.Positions))
	if p.PortfolioValue == 0 {
		return out
	}
	for a, pos := range p.Positions {
		out[a] = pos.Value() / p.PortfolioValue
	}
	return out
}

// Holding returns the marked value of the asset held, or zero.
func (p Portfolio) Holding(asset market.Asset) float64 {
	w, ok := p.Weights()[asset]
	if !ok {
		return 0
	}
	return w * p.PortfolioValue
}

// Held lists the assets with a non-zero position, sorted.
func (p Portfolio) Held() []market.Asset {
	out := make([]market.Asset, 0, len(p.Positions))
	for a, pos := range p.Positions {
		if pos.Amount != 0 {
			out = append(out, a)
		}
	}
	return market.Sorted(out)
}

// Account carries the whole-account risk figures account controls check.
type Account struct {
	Cash           float64
	NetLiquidation float64
	GrossExposure  float64
	NetExposure    float64
	Leverage       float64 // gross exposure / net liquidation
	NetLeverage    float64 // net exposure / net liquidation
	BuyingPower    float64
	Time           time.Time
}

// NewAccount derives the account figures from a portfolio snapshot.
func NewAccount(p Portfolio) Account {
	var gross, net float64
	for _, pos := range p.Positions {
		v := pos.Value()
		gross += math.Abs(v)
		net += v
	}
	a := Account{
		Cash:           p.Cash,
		NetLiquidation: p.PortfolioValue,
		GrossExposure:  gross,
		NetExposure:    net,
		BuyingPower:    p.Cash,
		Time:           p.Time,
	}
	if p.PortfolioValue != 0 {
		a.Leverage = gross / p.PortfolioValue
		a.NetLeverage = net / p.PortfolioValue
	}
	return a
}
