package sim

import (
	"math"

	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/portfolio"
)

// UnrealizedPL marks pos at price against its cost basis.
func UnrealizedPL(pos portfolio.Position, price float64) float64 {
	return pos.Amount * (price - pos.CostBasis)
}

// applyFill books t against pos and returns the new position and the PL
// realized by the part of t that reduced pos. Commission is carried in the
// cost basis of the opening part and charged to PL for the closing part.
func applyFill(pos portfolio.Position, t broker.Transaction) (portfolio.Position, float64) {
	pos.Asset = t.Asset
	pos.LastSalePrice = t.Price
	pos.LastSaleDate = t.Time

	if pos.Amount == 0 || sameSign(pos.Amount, t.Amount) {
		total := pos.Amount*pos.CostBasis + t.Value() + t.Commission
		pos.Amount += t.Amount
		pos.CostBasis = total / pos.Amount
		return pos, 0
	}

	closed := math.Min(math.Abs(t.Amount), math.Abs(pos.Amount))
	share := closed / math.Abs(t.Amount)
	direction := math.Copysign(1, pos.Amount)
	realized := direction*closed*(t.Price-pos.CostBasis) - t.Commission*share

	pos.Amount += t.Amount
	switch {
	case pos.Amount == 0:
		pos.CostBasis = 0
	case !sameSign(pos.Amount, direction):
		// flipped: the remainder opens at the fill price
		pos.CostBasis = (pos.Amount*t.Price + t.Commission*(1-share)) / pos.Amount
	}
	return pos, realized
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}
