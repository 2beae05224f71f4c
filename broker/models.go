package broker

import (
	"math"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/shopspring/decimal"
)

// CommissionModel prices the fee of a resolved order.
type CommissionModel interface {
	Calculate(o Order) float64
}

// SlippageModel returns the factor applied as price *= 1 + factor.
type SlippageModel interface {
	Factor(o Order) float64
}

// ExecutionModel bounds the fill price relative to the previous close: a fill
// must satisfy 1 - stop < price/prevClose < 1 + limit.
type ExecutionModel interface {
	LimitRatio(asset market.Asset, dt time.Time) float64
	StopRatio(asset market.Asset, dt time.Time) float64
}

// RatioCommission charges Rate of the traded value, at least Min, rounded to
// the cent.
type RatioCommission struct {
	Rate float64
	Min  float64
}

func (c RatioCommission) Calculate(o Order) float64 {
	value := decimal.NewFromFloat(math.Abs(o.Amount)).Mul(decimal.NewFromFloat(o.Price))
	fee := value.Mul(decimal.NewFromFloat(c.Rate))
	if floor := decimal.NewFromFloat(c.Min); fee.LessThan(floor) {
		fee = floor
	}
	return fee.Round(2).InexactFloat64()
}

// FixedSlippage moves buys up and sells down by Rate.
type FixedSlippage struct {
	Rate float64
}

func (s FixedSlippage) Factor(o Order) float64 {
	return float64(o.Direction()) * s.Rate
}

// FixedExecution uses the same limit and stop ratios for every asset.
type FixedExecution struct {
	Limit float64
	Stop  float64
}

func (e FixedExecution) LimitRatio(market.Asset, time.Time) float64 { return e.Limit }
func (e FixedExecution) StopRatio(market.Asset, time.Time) float64  { return e.Stop }
