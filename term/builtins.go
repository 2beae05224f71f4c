package term

import (
	"fmt"
	"math"

	"github.com/rustyeddy/algotrader/indicators"
	"github.com/rustyeddy/algotrader/market"
)

func init() {
	RegisterLogic("universe", newUniverse)
	RegisterLogic("momentum", newMomentum)
	RegisterLogic("volume_rank", newVolumeRank)
	RegisterLogic("ma_above", newMAAbove)
	RegisterLogic("price_range", newPriceRange)
	RegisterLogic("top_n", newTopN)
	RegisterLogic("atr_below", newATRBelow)
	RegisterLogic("adx_above", newADXAbove)
	RegisterLogic("ema_cross", newEMACross)
}

// universe passes the mask through unchanged.
type universe struct{}

func newUniverse(Params) (Logic, error) { return universe{}, nil }

func (universe) Columns() []market.Field { return nil }
func (universe) Window() int             { return 0 }
func (universe) Compute(_ Inputs, mask []market.Asset) (any, error) {
	return append([]market.Asset(nil), mask...), nil
}

// momentum scores each asset by its close-to-close return over window
// sessions.
type momentum struct {
	window int
}

func newMomentum(p Params) (Logic, error) {
	w, err := p.Int("window", 20)
	if err != nil {
		return nil, err
	}
	if w < 1 {
		return nil, fmt.Errorf("momentum: window must be >= 1, got %d", w)
	}
	return momentum{window: w}, nil
}

func (m momentum) Columns() []market.Field { return []market.Field{market.Close} }
func (m momentum) Window() int             { return m.window + 1 }
func (m momentum) Compute(in Inputs, mask []market.Asset) (any, error) {
	closes := in[market.Close]
	out := make(map[market.Asset]float64, len(mask))
	for _, a := range mask {
		if r, ok := indicators.Return(closes.Series(a)); ok {
			out[a] = r
		}
	}
	return out, nil
}

// volumeRank scores assets by mean daily volume.
type volumeRank struct {
	window int
	min    float64
}

func newVolumeRank(p Params) (Logic, error) {
	w, err := p.Int("window", 20)
	if err != nil {
		return nil, err
	}
	if w < 1 {
		return nil, fmt.Errorf("volume_rank: window must be >= 1, got %d", w)
	}
	minVol, err := p.Float("min", 0)
	if err != nil {
		return nil, err
	}
	return volumeRank{window: w, min: minVol}, nil
}

func (v volumeRank) Columns() []market.Field { return []market.Field{market.Volume} }
func (v volumeRank) Window() int             { return v.window }
func (v volumeRank) Compute(in Inputs, mask []market.Asset) (any, error) {
	vols := in[market.Volume]
	out := make(map[market.Asset]float64, len(mask))
	for _, a := range mask {
		mean, ok := indicators.MeanValid(vols.Series(a))
		if !ok || mean < v.min {
			continue
		}
		out[a] = mean
	}
	return out, nil
}

// maAbove flags assets whose last close is above their moving average.
type maAbove struct {
	window int
	ema    bool
}

func newMAAbove(p Params) (Logic, error) {
	w, err := p.Int("window", 20)
	if err != nil {
		return nil, err
	}
	if w < 1 {
		return nil, fmt.Errorf("ma_above: window must be >= 1, got %d", w)
	}
	kind, err := p.String("kind", "sma")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "sma", "ema":
	default:
		return nil, fmt.Errorf("ma_above: kind must be sma or ema, got %q", kind)
	}
	return maAbove{window: w, ema: kind == "ema"}, nil
}

func (m maAbove) Columns() []market.Field { return []market.Field{market.Close} }
func (m maAbove) Window() int             { return m.window }
func (m maAbove) Compute(in Inputs, mask []market.Asset) (any, error) {
	closes := in[market.Close]
	out := make(map[market.Asset]bool, len(mask))
	for _, a := range mask {
		series := closes.Series(a)
		last, ok := closes.Last(a)
		if !ok {
			out[a] = false
			continue
		}
		var avg float64
		var err error
		if m.ema {
			avg, err = indicators.EMA(series, m.window)
		} else {
			avg, err = indicators.MA(series, m.window)
		}
		out[a] = err == nil && last > avg
	}
	return out, nil
}

// priceRange flags assets whose last close is within [min, max]; max <= 0
// means unbounded.
type priceRange struct {
	min, max float64
}

func newPriceRange(p Params) (Logic, error) {
	lo, err := p.Float("min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := p.Float("max", 0)
	if err != nil {
		return nil, err
	}
	if hi > 0 && hi < lo {
		return nil, fmt.Errorf("price_range: max %v below min %v", hi, lo)
	}
	return priceRange{min: lo, max: hi}, nil
}

func (r priceRange) Columns() []market.Field { return []market.Field{market.Close} }
func (r priceRange) Window() int             { return 1 }
func (r priceRange) Compute(in Inputs, mask []market.Asset) (any, error) {
	closes := in[market.Close]
	out := make(map[market.Asset]bool, len(mask))
	for _, a := range mask {
		last, ok := closes.Last(a)
		out[a] = ok && last >= r.min && (r.max <= 0 || last <= r.max)
	}
	return out, nil
}

func hlcColumns() []market.Field { return []market.Field{market.High, market.Low, market.Close} }

func hlcSeries(in Inputs, a market.Asset) []indicators.HLC {
	return indicators.ZipHLC(in[market.High].Series(a), in[market.Low].Series(a), in[market.Close].Series(a))
}

// atrBelow flags assets whose ATR over window, as a fraction of the last
// close, is at most max.
type atrBelow struct {
	window int
	max    float64
}

func newATRBelow(p Params) (Logic, error) {
	w, err := p.Int("window", 14)
	if err != nil {
		return nil, err
	}
	if w < 1 {
		return nil, fmt.Errorf("atr_below: window must be >= 1, got %d", w)
	}
	m, err := p.Float("max", 0.05)
	if err != nil {
		return nil, err
	}
	if m <= 0 {
		return nil, fmt.Errorf("atr_below: max must be positive, got %v", m)
	}
	return atrBelow{window: w, max: m}, nil
}

func (r atrBelow) Columns() []market.Field { return hlcColumns() }
func (r atrBelow) Window() int             { return r.window + 1 }
func (r atrBelow) Compute(in Inputs, mask []market.Asset) (any, error) {
	out := make(map[market.Asset]bool, len(mask))
	for _, a := range mask {
		bars := hlcSeries(in, a)
		atr, err := indicators.ATR(bars, r.window)
		if err != nil || bars[len(bars)-1].Close <= 0 {
			out[a] = false
			continue
		}
		out[a] = atr/bars[len(bars)-1].Close <= r.max
	}
	return out, nil
}

// adxAbove flags assets trending with an ADX of at least min.
type adxAbove struct {
	window int
	min    float64
}

func newADXAbove(p Params) (Logic, error) {
	w, err := p.Int("window", 14)
	if err != nil {
		return nil, err
	}
	if w < 1 {
		return nil, fmt.Errorf("adx_above: window must be >= 1, got %d", w)
	}
	m, err := p.Float("min", 20)
	if err != nil {
		return nil, err
	}
	return adxAbove{window: w, min: m}, nil
}

func (d adxAbove) Columns() []market.Field { return hlcColumns() }
func (d adxAbove) Window() int             { return 2*d.window + 1 }
func (d adxAbove) Compute(in Inputs, mask []market.Asset) (any, error) {
	out := make(map[market.Asset]bool, len(mask))
	for _, a := range mask {
		v, err := indicators.ADXOf(hlcSeries(in, a), d.window)
		out[a] = err == nil && v >= d.min
	}
	return out, nil
}

// emaCross compares a fast and a slow EMA of the close. In "above" mode it
// flags assets whose fast EMA is over the slow one; "bull" and "bear" flag
// only a cross on the last bar:
//   - bull: diff goes from <= 0 to > 0
//   - bear: diff goes from >= 0 to < 0
type emaCross struct {
	fast, slow int
	mode       string
}

func newEMACross(p Params) (Logic, error) {
	fast, err := p.Int("fast", 20)
	if err != nil {
		return nil, err
	}
	slow, err := p.Int("slow", 50)
	if err != nil {
		return nil, err
	}
	if fast < 1 || slow <= fast {
		return nil, fmt.Errorf("ema_cross: require 0 < fast < slow (got %d/%d)", fast, slow)
	}
	mode, err := p.String("mode", "above")
	if err != nil {
		return nil, err
	}
	switch mode {
	case "above", "bull", "bear":
	default:
		return nil, fmt.Errorf("ema_cross: mode must be above, bull or bear, got %q", mode)
	}
	return emaCross{fast: fast, slow: slow, mode: mode}, nil
}

func (e emaCross) Columns() []market.Field { return []market.Field{market.Close} }
func (e emaCross) Window() int             { return e.slow + 1 }
func (e emaCross) Compute(in Inputs, mask []market.Asset) (any, error) {
	closes := in[market.Close]
	out := make(map[market.Asset]bool, len(mask))
	for _, a := range mask {
		series := validValues(closes.Series(a))
		diff, ok := e.diff(series)
		if !ok {
			out[a] = false
			continue
		}
		if e.mode == "above" {
			out[a] = diff > 0
			continue
		}
		prev, ok := e.diff(series[:len(series)-1])
		if !ok {
			out[a] = false
			continue
		}
		if e.mode == "bull" {
			out[a] = diff > 0 && prev <= 0
		} else {
			out[a] = diff < 0 && prev >= 0
		}
	}
	return out, nil
}

func (e emaCross) diff(values []float64) (float64, bool) {
	fast, err := indicators.EMA(values, e.fast)
	if err != nil {
		return 0, false
	}
	slow, err := indicators.EMA(values, e.slow)
	if err != nil {
		return 0, false
	}
	return fast - slow, true
}

func validValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// topN keeps the first n assets of the (already ranked) mask.
type topN struct {
	n int
}

func newTopN(p Params) (Logic, error) {
	n, err := p.Int("n", 10)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("top_n: n must be >= 1, got %d", n)
	}
	return topN{n: n}, nil
}

func (t topN) Columns() []market.Field { return nil }
func (t topN) Window() int             { return 0 }
func (t topN) Compute(_ Inputs, mask []market.Asset) (any, error) {
	if len(mask) > t.n {
		mask = mask[:t.n]
	}
	return append([]market.Asset(nil), mask...), nil
}
