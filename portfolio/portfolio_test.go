package portfolio

import (
	"testing"

	"github.com/rustyeddy/algotrader/market"
	"github.com/stretchr/testify/assert"
)

func testPortfolio() Portfolio {
	return Portfolio{
		Cash:           600,
		PositionsValue: 400,
		PortfolioValue: 1000,
		Positions: map[market.Asset]Position{
			"B":    {Asset: "B", Amount: 30, LastSalePrice: 10},
			"A":    {Asset: "A", Amount: 20, LastSalePrice: 10},
			"FLAT": {Asset: "FLAT", Amount: 0, LastSalePrice: 5},
		},
	}
}

func TestPortfolio_Views(t *testing.T) {
	p := testPortfolio()

	assert.Equal(t, []market.Asset{"A", "B"}, p.Held())
	assert.InDelta(t, 0.3, p.Weights()["B"], 1e-9)
	assert.InDelta(t, 200, p.Holding("A"), 1e-9)
	assert.Equal(t, 0.0, p.Holding("Z"))

	pos, ok := p.Position("B")
	assert.True(t, ok)
	assert.Equal(t, 300.0, pos.Value())

	assert.Empty(t, Portfolio{}.Weights())
}

func TestNewAccount(t *testing.T) {
	p := testPortfolio()
	p.Positions["S"] = Position{Asset: "S", Amount: -10, LastSalePrice: 10}
	p.PositionsValue = 400 - 100
	p.Cash = 700

	a := NewAccount(p)
	assert.Equal(t, 600.0, a.GrossExposure)
	assert.Equal(t, 400.0, a.NetExposure)
	assert.InDelta(t, 0.6, a.Leverage, 1e-9)
	assert.InDelta(t, 0.4, a.NetLeverage, 1e-9)
	assert.Equal(t, 700.0, a.BuyingPower)

	assert.Zero(t, NewAccount(Portfolio{}).Leverage)
}
