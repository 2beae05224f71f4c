package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time interface checks.
var (
	_ DataPortal  = (*MemoryPortal)(nil)
	_ AssetFinder = (*MemoryFinder)(nil)
)

// Intraday times used when a session has no recorded minute bars and the
// series is synthesized from the daily bar.
const (
	SessionOpenMinute  = 9*60 + 30
	SessionCloseMinute = 15 * 60
)

// MemoryPortal is an in-memory DataPortal for tests and CSV-driven runs.
type MemoryPortal struct {
	mu      sync.RWMutex
	daily   map[Asset][]Bar
	minutes map[Asset]map[time.Time][]Bar
}

func NewMemoryPortal() *MemoryPortal {
	return &MemoryPortal{
		daily:   make(map[Asset][]Bar),
		minutes: make(map[Asset]map[time.Time][]Bar),
	}
}

// AddDaily appends daily bars for asset, keeping them sorted by day.
func (p *MemoryPortal) AddDaily(asset Asset, bars ...Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range bars {
		b.Time = Day(b.Time)
		p.daily[asset] = append(p.daily[asset], b)
	}
	s := p.daily[asset]
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
}

// AddMinutes appends intraday bars for asset, grouped by session day.
func (p *MemoryPortal) AddMinutes(asset Asset, bars ...Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	days, ok := p.minutes[asset]
	if !ok {
		days = make(map[time.Time][]Bar)
		p.minutes[asset] = days
	}
	for _, b := range bars {
		d := Day(b.Time)
		days[d] = append(days[d], b)
	}
	for d, s := range days {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
		days[d] = s
	}
}

// Assets lists every asset with daily data, sorted.
func (p *MemoryPortal) Assets() []Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Asset, 0, len(p.daily))
	for a := range p.daily {
		out = append(out, a)
	}
	return Sorted(out)
}

// Days lists every day with at least one daily bar, sorted.
func (p *MemoryPortal) Days() []time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, bars := range p.daily {
		for _, b := range bars {
			if _, ok := seen[b.Time]; ok {
				continue
			}
			seen[b.Time] = struct{}{}
			out = append(out, b.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (p *MemoryPortal) GetWindow(_ context.Context, assets []Asset, dt time.Time, lookback int, freq Frequency) (map[Asset][]Bar, error) {
	if lookback < 0 {
		lookback = -lookback
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Asset][]Bar, len(assets))
	for _, a := range assets {
		var bars []Bar
		switch freq {
		case Daily:
			bars = p.dailyUpTo(a, dt)
		case Minute:
			bars = p.minutesUpTo(a, dt)
		default:
			return nil, fmt.Errorf("get window: unsupported frequency %q", freq)
		}
		if len(bars) > lookback {
			bars = bars[len(bars)-lookback:]
		}
		out[a] = append([]Bar(nil), bars...)
	}
	return out, nil
}

func (p *MemoryPortal) GetSpotValue(_ context.Context, dt time.Time, asset Asset, freq Frequency) ([]Bar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	day := Day(dt)
	bar, ok := p.dailyOn(asset, day)
	switch freq {
	case Daily:
		if !ok {
			return nil, fmt.Errorf("spot %s %s: %w", asset, day.Format(time.DateOnly), ErrNoData)
		}
		return []Bar{bar}, nil
	case Minute:
		if m := p.minutes[asset][day]; len(m) > 0 {
			return append([]Bar(nil), m...), nil
		}
		if !ok {
			return nil, fmt.Errorf("spot %s %s: %w", asset, day.Format(time.DateOnly), ErrNoData)
		}
		return synthesizeMinutes(bar), nil
	}
	return nil, fmt.Errorf("get spot value: unsupported frequency %q", freq)
}

func (p *MemoryPortal) GetOpenPct(_ context.Context, assets []Asset, dt time.Time) (map[Asset]float64, map[Asset]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	day := Day(dt)
	openPct := make(map[Asset]float64, len(assets))
	preClose := make(map[Asset]float64, len(assets))
	for _, a := range assets {
		bars := p.dailyUpTo(a, day)
		n := len(bars)
		if n < 2 || !bars[n-1].Time.Equal(day) || bars[n-2].Close == 0 {
			continue
		}
		pc := bars[n-2].Close
		preClose[a] = pc
		openPct[a] = bars[n-1].Open/pc - 1
	}
	return openPct, preClose, nil
}

func (p *MemoryPortal) dailyUpTo(a Asset, dt time.Time) []Bar {
	bars := p.daily[a]
	day := Day(dt)
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time.After(day) })
	return bars[:i]
}

func (p *MemoryPortal) dailyOn(a Asset, day time.Time) (Bar, bool) {
	bars := p.dailyUpTo(a, day)
	if n := len(bars); n > 0 && bars[n-1].Time.Equal(day) {
		return bars[n-1], true
	}
	return Bar{}, false
}

func (p *MemoryPortal) minutesUpTo(a Asset, dt time.Time) []Bar {
	days := make([]time.Time, 0, len(p.minutes[a]))
	for d := range p.minutes[a] {
		if !d.After(Day(dt)) {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	cutoff := dt
	if dt.Equal(Day(dt)) {
		// a bare session day covers the whole session
		cutoff = Day(dt).Add(24*time.Hour - time.Nanosecond)
	}
	var out []Bar
	for _, d := range days {
		for _, b := range p.minutes[a][d] {
			if !b.Time.After(cutoff) {
				out = append(out, b)
			}
		}
	}
	return out
}

// synthesizeMinutes builds a two-tick intraday series (open, close) from a
// daily bar.
func synthesizeMinutes(b Bar) []Bar {
	day := Day(b.Time)
	open := day.Add(SessionOpenMinute * time.Minute)
	closeAt := day.Add(SessionCloseMinute * time.Minute)
	half := b.Volume / 2
	return []Bar{
		{Time: open, Open: b.Open, High: b.Open, Low: b.Open, Close: b.Open, Volume: half},
		{Time: closeAt, Open: b.Close, High: b.Close, Low: b.Close, Close: b.Close, Volume: b.Volume - half},
	}
}

// AssetInfo is the lifecycle metadata MemoryFinder serves.
type AssetInfo struct {
	Asset     Asset
	Listed    time.Time
	Delisted  time.Time // zero while still listed
	Suspended []time.Time
}

// MemoryFinder is an in-memory AssetFinder.
type MemoryFinder struct {
	mu     sync.RWMutex
	assets map[Asset]AssetInfo
}

func NewMemoryFinder(infos ...AssetInfo) *MemoryFinder {
	f := &MemoryFinder{assets: make(map[Asset]AssetInfo, len(infos))}
	for _, in := range infos {
		f.Add(in)
	}
	return f
}

func (f *MemoryFinder) Add(in AssetInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in.Listed = Day(in.Listed)
	if !in.Delisted.IsZero() {
		in.Delisted = Day(in.Delisted)
	}
	for i, s := range in.Suspended {
		in.Suspended[i] = Day(s)
	}
	f.assets[in.Asset] = in
}

func (f *MemoryFinder) WasActive(_ context.Context, dt time.Time) ([]Asset, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	day := Day(dt)
	var out []Asset
	for a, in := range f.assets {
		if in.Listed.After(day) {
			continue
		}
		if !in.Delisted.IsZero() && !day.Before(in.Delisted) {
			continue
		}
		if suspendedOn(in, day) {
			continue
		}
		out = append(out, a)
	}
	return Sorted(out), nil
}

func (f *MemoryFinder) Lifetime(_ context.Context, start, end time.Time) ([]Asset, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, e := Day(start), Day(end)
	var out []Asset
	for a, in := range f.assets {
		if in.Listed.After(s) {
			continue
		}
		if !in.Delisted.IsZero() && !in.Delisted.After(e) {
			continue
		}
		out = append(out, a)
	}
	return Sorted(out), nil
}

func suspendedOn(in AssetInfo, day time.Time) bool {
	for _, s := range in.Suspended {
		if s.Equal(day) {
			return true
		}
	}
	return false
}
