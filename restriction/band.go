package restriction

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// DefaultThreshold is the open-vs-previous-close move at which an asset is
// treated as locked at its daily price limit.
const DefaultThreshold = 0.0990

// Band bars assets whose open already moved Threshold or more above the
// previous close. Assets without a quote on dt are barred as well.
type Band struct {
	Portal    market.DataPortal
	Threshold float64
}

// NewBand returns a Band with the default threshold.
func NewBand(portal market.DataPortal) *Band {
	return &Band{Portal: portal, Threshold: DefaultThreshold}
}

func (b *Band) Eligible(ctx context.Context, assets []market.Asset, dt time.Time) ([]market.Asset, error) {
	openPct, _, err := b.Portal.GetOpenPct(ctx, assets, dt)
	if err != nil {
		return nil, fmt.Errorf("band: open pct: %w", err)
	}
	threshold := b.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	out := make([]market.Asset, 0, len(assets))
	for _, a := range assets {
		if pct, ok := openPct[a]; ok && pct < threshold {
			out = append(out, a)
		}
	}
	return out, nil
}
