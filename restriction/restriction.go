// Package restriction filters the tradeable universe at an instant.
//
// A Restriction maps a candidate asset set to its eligible subset. Variants
// combine with Union, whose result is the intersection of every member's
// eligible set.
package restriction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// ErrNotSupported is returned by restrictions that are declared but have no
// implementation. Callers must not treat it as "nothing restricted".
var ErrNotSupported = errors.New("restriction not supported")

// Restriction returns the members of assets that may trade at dt, in the
// order given.
type Restriction interface {
	Eligible(ctx context.Context, assets []market.Asset, dt time.Time) ([]market.Asset, error)
}

// NoRestriction makes every asset eligible. It is the identity of Union.
type NoRestriction struct{}

func (NoRestriction) Eligible(_ context.Context, assets []market.Asset, _ time.Time) ([]market.Asset, error) {
	return append([]market.Asset(nil), assets...), nil
}

// Static bars a fixed set of assets regardless of dt.
type Static struct {
	restricted []market.Asset
}

// NewStatic returns a restriction barring the given assets.
func NewStatic(restricted ...market.Asset) *Static {
	return &Static{restricted: append([]market.Asset(nil), restricted...)}
}

func (s *Static) Eligible(_ context.Context, assets []market.Asset, _ time.Time) ([]market.Asset, error) {
	return market.Difference(assets, s.restricted), nil
}

// Halt models the intraday circuit-breaker halts of newly listed boards.
type Halt struct{}

func (Halt) Eligible(context.Context, []market.Asset, time.Time) ([]market.Asset, error) {
	return nil, fmt.Errorf("intraday halt: %w", ErrNotSupported)
}

// AfterHours models the fixed-price session after the close.
type AfterHours struct{}

func (AfterHours) Eligible(context.Context, []market.Asset, time.Time) ([]market.Asset, error) {
	return nil, fmt.Errorf("after-hours fixed price: %w", ErrNotSupported)
}
