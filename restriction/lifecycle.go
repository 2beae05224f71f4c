package restriction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// Default lifecycle window, in sessions.
const (
	DefaultBack    = 66
	DefaultForward = 30
)

// Lifecycle bars suspended assets, assets listed fewer than Back sessions
// ago and assets delisting within Forward sessions.
type Lifecycle struct {
	Finder   market.AssetFinder
	Calendar market.Calendar
	Back     int
	Forward  int
}

// NewLifecycle returns a Lifecycle with the default window.
func NewLifecycle(finder market.AssetFinder, cal market.Calendar) *Lifecycle {
	return &Lifecycle{Finder: finder, Calendar: cal, Back: DefaultBack, Forward: DefaultForward}
}

func (l *Lifecycle) Eligible(ctx context.Context, assets []market.Asset, dt time.Time) ([]market.Asset, error) {
	start, err := l.bound(dt, -l.Back)
	if err != nil {
		return nil, err
	}
	end, err := l.bound(dt, l.Forward)
	if err != nil {
		return nil, err
	}

	active, err := l.Finder.WasActive(ctx, dt)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: active assets: %w", err)
	}
	alive, err := l.Finder.Lifetime(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: lifetime: %w", err)
	}
	return market.Intersect(market.Intersect(assets, active), alive), nil
}

// bound offsets dt by n sessions. Past either end of the calendar it falls
// back to calendar days at five sessions per week.
func (l *Lifecycle) bound(dt time.Time, n int) (time.Time, error) {
	t, err := l.Calendar.Offset(dt, n)
	if err == nil {
		return t, nil
	}
	if errors.Is(err, market.ErrOutOfCalendar) {
		return market.Day(dt).AddDate(0, 0, n*7/5), nil
	}
	return time.Time{}, fmt.Errorf("lifecycle: window bound: %w", err)
}
