// Package indicators computes rolling statistics over price series.
package indicators

import (
	"fmt"
	"math"
)

// MA calculates the Simple Moving Average of the last period values.
// NaN values inside the window are an error.
func MA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			return 0, fmt.Errorf("missing value at %d", i)
		}
		sum += values[i]
	}
	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average for the given period, seeded
// with the SMA of the first period values.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}

	if math.IsNaN(ema) {
		return 0, fmt.Errorf("missing values in series")
	}
	return ema, nil
}

// Return is the simple return from the first to the last non-NaN value.
func Return(values []float64) (float64, bool) {
	first, last := math.NaN(), math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(first) {
			first = v
		}
		last = v
	}
	if math.IsNaN(first) || first == 0 {
		return 0, false
	}
	return last/first - 1, true
}

// MeanValid averages the non-NaN values.
func MeanValid(values []float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
