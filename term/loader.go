package term

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// Array is a point-in-time column: one value per (date, asset), NaN where
// the asset had no observation or was masked out.
type Array struct {
	Dates  []time.Time
	Values map[market.Asset][]float64
}

// Series returns the values of asset aligned to Dates.
func (a Array) Series(asset market.Asset) []float64 {
	return a.Values[asset]
}

// Last returns the latest non-NaN value of asset.
func (a Array) Last(asset market.Asset) (float64, bool) {
	s := a.Values[asset]
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}

// Inputs are the loaded columns handed to a logic.
type Inputs map[market.Field]Array

// Mask marks, per (date, asset), whether the asset was alive. Its shape is
// len(dates) x len(assets).
type Mask [][]bool

// FullMask is a mask with every cell set.
func FullMask(dates, assets int) Mask {
	m := make(Mask, dates)
	for i := range m {
		row := make([]bool, assets)
		for j := range row {
			row[j] = true
		}
		m[i] = row
	}
	return m
}

// Loader is the data-loading collaborator of the term graph.
type Loader interface {
	DomainValidator

	// LoadAdjustedArray returns, per column, a point-in-time array over
	// dates x assets.
	LoadAdjustedArray(ctx context.Context, domain Domain, columns []market.Field, dates []time.Time, assets []market.Asset, mask Mask) (map[market.Field]Array, error)
}

// Compile-time interface check.
var _ Loader = (*PortalLoader)(nil)

// PortalLoader serves daily columns out of a market.DataPortal.
type PortalLoader struct {
	Portal market.DataPortal

	// Domains lists the supported domains; empty accepts any.
	Domains []Domain
}

func (l *PortalLoader) ValidateDomain(d Domain) error {
	if len(l.Domains) == 0 || d == GenericDomain {
		return nil
	}
	for _, ok := range l.Domains {
		if ok == d {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedDomain, d)
}

func (l *PortalLoader) LoadAdjustedArray(ctx context.Context, domain Domain, columns []market.Field, dates []time.Time, assets []market.Asset, mask Mask) (map[market.Field]Array, error) {
	if err := l.ValidateDomain(domain); err != nil {
		return nil, err
	}
	out := make(map[market.Field]Array, len(columns))
	if len(dates) == 0 {
		for _, c := range columns {
			out[c] = Array{Values: map[market.Asset][]float64{}}
		}
		return out, nil
	}

	end := dates[len(dates)-1]
	window, err := l.Portal.GetWindow(ctx, assets, end, len(dates), market.Daily)
	if err != nil {
		return nil, fmt.Errorf("load adjusted array: %w", err)
	}

	pos := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		pos[market.Day(d)] = i
	}

	for _, c := range columns {
		arr := Array{Dates: dates, Values: make(map[market.Asset][]float64, len(assets))}
		for j, a := range assets {
			vals := make([]float64, len(dates))
			for i := range vals {
				vals[i] = math.NaN()
			}
			for _, b := range window[a] {
				i, ok := pos[market.Day(b.Time)]
				if !ok {
					continue
				}
				if mask != nil && (i >= len(mask) || j >= len(mask[i]) || !mask[i][j]) {
					continue
				}
				v, err := b.Value(c)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			arr.Values[a] = vals
		}
		out[c] = arr
	}
	return out, nil
}
