package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
)

// TradingControl admits, clips or rejects one proposed order. It never
// changes the ledger.
type TradingControl interface {
	Validate(ctx context.Context, asset market.Asset, amount float64, p portfolio.Portfolio, dt time.Time) (float64, error)
	String() string
}

// Compile-time interface checks.
var (
	_ TradingControl = (*MaxOrderSize)(nil)
	_ TradingControl = (*MaxPositionSize)(nil)
	_ TradingControl = LongOnly{}
	_ TradingControl = NoControl{}
	_ TradingControl = (*UnionControl)(nil)
)

// MaxOrderSize caps a buy at MaxNotional times the asset's mean daily volume
// over the trailing Window sessions.
type MaxOrderSize struct {
	Policy
	Portal      market.DataPortal
	MaxNotional float64
	Window      int
}

func (c *MaxOrderSize) Validate(ctx context.Context, asset market.Asset, amount float64, _ portfolio.Portfolio, dt time.Time) (float64, error) {
	win, err := c.Portal.GetWindow(ctx, []market.Asset{asset}, dt, c.Window, market.Daily)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c, err)
	}
	mean, err := market.Mean(win[asset], market.Volume)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", c, asset, err)
	}
	threshold := mean * c.MaxNotional
	if amount <= threshold {
		return amount, nil
	}
	if err := c.handleViolation(ctx, asset, amount, dt, c); err != nil {
		return 0, err
	}
	return threshold, nil
}

func (c *MaxOrderSize) String() string {
	return fmt.Sprintf("MaxOrderSize(max_notional=%g, window=%d)", c.MaxNotional, c.Window)
}

// MaxPositionSize caps the value held in one asset at MaxFraction of the
// portfolio value. An order that would exceed it is scaled down to
// floor(amount * available / capital). Sells only reduce exposure and pass
// through unchanged.
type MaxPositionSize struct {
	Policy
	Portal      market.DataPortal
	MaxFraction float64
}

func (c *MaxPositionSize) Validate(ctx context.Context, asset market.Asset, amount float64, p portfolio.Portfolio, dt time.Time) (float64, error) {
	if amount <= 0 {
		return amount, nil
	}
	holding := p.Holding(asset)
	available := p.PortfolioValue*c.MaxFraction - holding

	spot, err := c.Portal.GetSpotValue(ctx, dt, asset, market.Daily)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c, err)
	}
	if len(spot) == 0 {
		return 0, fmt.Errorf("%s: %s: %w", c, asset, market.ErrNoData)
	}
	capital := amount*spot[len(spot)-1].Close + holding
	if available >= capital {
		return amount, nil
	}
	if err := c.handleViolation(ctx, asset, amount, dt, c); err != nil {
		return 0, err
	}
	if capital <= 0 {
		return 0, nil
	}
	return math.Max(0, math.Floor(amount*available/capital)), nil
}

func (c *MaxPositionSize) String() string {
	return fmt.Sprintf("MaxPositionSize(max_fraction=%g)", c.MaxFraction)
}

// LongOnly rejects any order that would leave a short position. It never
// clips.
type LongOnly struct {
	Policy
}

func (c LongOnly) Validate(ctx context.Context, asset market.Asset, amount float64, p portfolio.Portfolio, dt time.Time) (float64, error) {
	pos, _ := p.Position(asset)
	if pos.Amount+amount >= 0 {
		return amount, nil
	}
	fail := c.Policy
	fail.OnError = Fail
	return amount, fail.handleViolation(ctx, asset, amount, dt, c)
}

func (LongOnly) String() string { return "LongOnly()" }

// NoControl admits every order unchanged.
type NoControl struct{}

func (NoControl) Validate(_ context.Context, _ market.Asset, amount float64, _ portfolio.Portfolio, _ time.Time) (float64, error) {
	return amount, nil
}

func (NoControl) String() string { return "NoControl()" }

// UnionControl threads the amount through each control in order, each one
// seeing the amount the previous one admitted. The first rejection stops the
// fold.
type UnionControl struct {
	controls []TradingControl
}

// Union combines controls; nil members are dropped.
func Union(controls ...TradingControl) *UnionControl {
	u := &UnionControl{}
	for _, c := range controls {
		if c != nil {
			u.controls = append(u.controls, c)
		}
	}
	return u
}

func (u *UnionControl) Validate(ctx context.Context, asset market.Asset, amount float64, p portfolio.Portfolio, dt time.Time) (float64, error) {
	for _, c := range u.controls {
		var err error
		amount, err = c.Validate(ctx, asset, amount, p, dt)
		if err != nil {
			return 0, err
		}
	}
	return amount, nil
}

func (u *UnionControl) String() string {
	parts := make([]string, len(u.controls))
	for i, c := range u.controls {
		parts[i] = c.String()
	}
	return "UnionControl(" + strings.Join(parts, ", ") + ")"
}
