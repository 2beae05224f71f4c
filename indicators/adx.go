package indicators

import (
	"fmt"
	"math"
)

// ADX implements Wilder's Average Directional Index (trend strength).
// Usage:
//
//	adx := indicators.NewADX(14)
//	for _, b := range bars {
//		if v, ok := adx.Update(b); ok && v >= 20 { ... }
//	}
type ADX struct {
	Period int

	prev     HLC
	havePrev bool

	// Wilder-smoothed values after warmup
	tr    float64
	pdm   float64
	mdm   float64
	adx   float64
	dxSum float64

	// bars processed, including the first seed
	count int
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{Period: period}
}

func (a *ADX) Value() float64 { return a.adx }
func (a *ADX) Ready() bool    { return a.ready }

// Update consumes the next bar and returns (adx, ready). Ready needs
// 2*Period bars after the seed: Period to initialise the smoothed TR/+DM/-DM
// and Period DX values to initialise the ADX.
func (a *ADX) Update(b HLC) (float64, bool) {
	if !a.havePrev {
		a.prev = b
		a.havePrev = true
		a.count = 1
		return 0, false
	}

	upMove := b.High - a.prev.High
	downMove := a.prev.Low - b.Low
	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}
	tr := trueRange(b, a.prev)

	a.prev = b
	a.count++

	p := float64(a.Period)
	if a.count <= a.Period+1 {
		a.tr += tr
		a.pdm += pdm
		a.mdm += mdm
		if a.count == a.Period+1 {
			a.tr /= p
			a.pdm /= p
			a.mdm /= p
		}
		return 0, false
	}

	a.tr = (a.tr*(p-1) + tr) / p
	a.pdm = (a.pdm*(p-1) + pdm) / p
	a.mdm = (a.mdm*(p-1) + mdm) / p

	var dx float64
	if a.tr > 0 {
		pdi := 100 * a.pdm / a.tr
		mdi := 100 * a.mdm / a.tr
		if den := pdi + mdi; den > 0 {
			dx = 100 * math.Abs(pdi-mdi) / den
		}
	}

	if !a.ready {
		a.dxSum += dx
		if a.count == 2*a.Period+1 {
			a.adx = a.dxSum / p
			a.ready = true
			return a.adx, true
		}
		return 0, false
	}

	a.adx = (a.adx*(p-1) + dx) / p
	return a.adx, true
}

// ADXOf runs a fresh ADX over bars and returns the final value.
func ADXOf(bars []HLC, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	a := NewADX(period)
	var (
		v  float64
		ok bool
	)
	for _, b := range bars {
		v, ok = a.Update(b)
	}
	if !ok {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", 2*period+1, len(bars))
	}
	return v, nil
}
