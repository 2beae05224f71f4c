package market

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoData        = errors.New("no data")
	ErrNotASession   = errors.New("not a trading session")
	ErrOutOfCalendar = errors.New("offset outside calendar")
)

// DataPortal is the market-data collaborator. Implementations own storage and
// adjustment; the core only reads through it.
type DataPortal interface {
	// GetWindow returns, per asset, the lookback bars ending at dt (inclusive).
	GetWindow(ctx context.Context, assets []Asset, dt time.Time, lookback int, freq Frequency) (map[Asset][]Bar, error)

	// GetSpotValue returns the bars of asset for the session dt. For Minute
	// this is the intraday series; for Daily a single bar.
	GetSpotValue(ctx context.Context, dt time.Time, asset Asset, freq Frequency) ([]Bar, error)

	// GetOpenPct returns the open-vs-previous-close move and the previous close
	// for each asset that has a quote on dt.
	GetOpenPct(ctx context.Context, assets []Asset, dt time.Time) (openPct, preClose map[Asset]float64, err error)
}

// AssetFinder answers lifecycle questions about the instrument universe.
type AssetFinder interface {
	// WasActive returns the assets tradeable (listed, not suspended) on dt.
	WasActive(ctx context.Context, dt time.Time) ([]Asset, error)

	// Lifetime returns assets listed on or before start and not delisted
	// on or before end.
	Lifetime(ctx context.Context, start, end time.Time) ([]Asset, error)
}

// Calendar is the trading-calendar collaborator.
type Calendar interface {
	IsSession(dt time.Time) bool

	// Offset moves n sessions from dt; negative n moves backwards. dt itself
	// need not be a session, in which case counting starts from the nearest
	// session in the direction of travel.
	Offset(dt time.Time, n int) (time.Time, error)

	// Sessions lists the sessions in [start, end].
	Sessions(start, end time.Time) []time.Time
}
