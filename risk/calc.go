package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// CapitalModel splits available cash across the assets to buy.
type CapitalModel interface {
	Compute(ctx context.Context, assets []market.Asset, cash float64, dt time.Time) (map[market.Asset]float64, error)
}

var (
	_ CapitalModel = EqualAllocation{}
	_ CapitalModel = FixedAllocation{}
)

// EqualAllocation gives every asset the same share of cash. MaxAssets > 0
// divides by at least that many slots, keeping cash back for later entries.
type EqualAllocation struct {
	MaxAssets int
}

func (m EqualAllocation) Compute(_ context.Context, assets []market.Asset, cash float64, _ time.Time) (map[market.Asset]float64, error) {
	out := make(map[market.Asset]float64, len(assets))
	if len(assets) == 0 || cash <= 0 {
		return out, nil
	}
	slots := len(assets)
	if m.MaxAssets > slots {
		slots = m.MaxAssets
	}
	each := cash / float64(slots)
	for _, a := range assets {
		out[a] = each
	}
	return out, nil
}

// FixedAllocation gives each asset Amount, scaled down pro rata when cash
// does not cover all of them.
type FixedAllocation struct {
	Amount float64
}

func (m FixedAllocation) Compute(_ context.Context, assets []market.Asset, cash float64, _ time.Time) (map[market.Asset]float64, error) {
	if m.Amount <= 0 {
		return nil, fmt.Errorf("fixed allocation: amount must be positive, got %g", m.Amount)
	}
	out := make(map[market.Asset]float64, len(assets))
	if len(assets) == 0 || cash <= 0 {
		return out, nil
	}
	each := m.Amount
	if need := each * float64(len(assets)); need > cash {
		each = cash / float64(len(assets))
	}
	for _, a := range assets {
		out[a] = each
	}
	return out, nil
}

// Shares converts capital into a whole number of board lots at price.
// lot <= 0 means single shares.
func Shares(capital, price float64, lot int) float64 {
	if capital <= 0 || price <= 0 {
		return 0
	}
	if lot <= 0 {
		lot = 1
	}
	lots := math.Floor(capital / price / float64(lot))
	return lots * float64(lot)
}
