package indicators

import (
	"fmt"
	"math"
)

// HLC is one bar's high, low and close.
type HLC struct {
	High, Low, Close float64
}

// ZipHLC pairs three aligned series, skipping rows with a missing value.
func ZipHLC(high, low, close []float64) []HLC {
	n := min(len(high), len(low), len(close))
	out := make([]HLC, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(high[i]) || math.IsNaN(low[i]) || math.IsNaN(close[i]) {
			continue
		}
		out = append(out, HLC{High: high[i], Low: low[i], Close: close[i]})
	}
	return out
}

// ATR calculates the Average True Range for the given period: the SMA of
// the first period true ranges, then Wilder smoothing.
func ATR(bars []HLC, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period+1, len(bars))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(bars[i], bars[i-1])
	}
	atr := sum / float64(period)

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRange(bars[i], bars[i-1])) / float64(period)
	}
	return atr, nil
}

// trueRange is the largest of high-low and the gaps to the previous close.
func trueRange(current, previous HLC) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
