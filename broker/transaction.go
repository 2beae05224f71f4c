package broker

import (
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// Transaction is a priced, commission-adjusted fill. It is a value; nothing
// changes it after the blotter creates it.
type Transaction struct {
	ID         string
	Asset      market.Asset
	Amount     float64
	Price      float64
	Commission float64
	Time       time.Time
}

// Value is the signed traded value, excluding commission.
func (t Transaction) Value() float64 {
	return t.Amount * t.Price
}

// CashFlow is the change in cash the fill causes.
func (t Transaction) CashFlow() float64 {
	return -t.Value() - t.Commission
}

// Side is "buy" or "sell".
func (t Transaction) Side() string {
	if t.Amount < 0 {
		return "sell"
	}
	return "buy"
}
