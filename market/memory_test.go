package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyBar(day time.Time, open, close, volume float64) Bar {
	return Bar{Time: day, Open: open, High: close, Low: open, Close: close, Volume: volume}
}

func TestMemoryPortal_GetWindow(t *testing.T) {
	p := NewMemoryPortal()
	p.AddDaily("A",
		dailyBar(date(2024, 1, 4), 12, 13, 300),
		dailyBar(date(2024, 1, 2), 10, 11, 100),
		dailyBar(date(2024, 1, 3), 11, 12, 200),
	)
	ctx := context.Background()

	w, err := p.GetWindow(ctx, []Asset{"A", "B"}, date(2024, 1, 3), 5, Daily)
	require.NoError(t, err)
	require.Len(t, w["A"], 2)
	assert.Equal(t, date(2024, 1, 2), w["A"][0].Time)
	assert.Equal(t, 12.0, w["A"][1].Close)
	assert.Empty(t, w["B"])

	w, err = p.GetWindow(ctx, []Asset{"A"}, date(2024, 1, 4), 1, Daily)
	require.NoError(t, err)
	require.Len(t, w["A"], 1)
	assert.Equal(t, 300.0, w["A"][0].Volume)

	_, err = p.GetWindow(ctx, []Asset{"A"}, date(2024, 1, 4), 1, "weekly")
	assert.Error(t, err)
}

func TestMemoryPortal_GetSpotValue(t *testing.T) {
	p := NewMemoryPortal()
	day := date(2024, 1, 2)
	p.AddDaily("A", dailyBar(day, 10, 11, 100))
	p.AddMinutes("B",
		Bar{Time: day.Add(10 * time.Hour), Close: 21},
		Bar{Time: day.Add(9*time.Hour + 30*time.Minute), Close: 20},
	)
	ctx := context.Background()

	bars, err := p.GetSpotValue(ctx, day, "A", Daily)
	require.NoError(t, err)
	assert.Equal(t, 11.0, bars[0].Close)

	// no minute data: open and close ticks from the daily bar
	bars, err = p.GetSpotValue(ctx, day, "A", Minute)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Close)
	assert.Equal(t, 11.0, bars[1].Close)
	assert.True(t, bars[0].Time.Before(bars[1].Time))

	bars, err = p.GetSpotValue(ctx, day, "B", Minute)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 20.0, bars[0].Close)

	_, err = p.GetSpotValue(ctx, day, "C", Daily)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMemoryPortal_GetOpenPct(t *testing.T) {
	p := NewMemoryPortal()
	p.AddDaily("A", dailyBar(date(2024, 1, 2), 10, 10, 1), dailyBar(date(2024, 1, 3), 11, 11, 1))
	p.AddDaily("B", dailyBar(date(2024, 1, 3), 5, 5, 1))

	pct, pre, err := p.GetOpenPct(context.Background(), []Asset{"A", "B"}, date(2024, 1, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, pct["A"], 1e-9)
	assert.Equal(t, 10.0, pre["A"])
	_, ok := pct["B"]
	assert.False(t, ok, "no previous close")
}

func TestMemoryFinder(t *testing.T) {
	f := NewMemoryFinder(
		AssetInfo{Asset: "A", Listed: date(2020, 1, 1)},
		AssetInfo{Asset: "B", Listed: date(2020, 1, 1), Suspended: []time.Time{date(2024, 1, 3)}},
		AssetInfo{Asset: "C", Listed: date(2020, 1, 1), Delisted: date(2024, 1, 10)},
		AssetInfo{Asset: "D", Listed: date(2024, 1, 2)},
	)
	ctx := context.Background()

	active, err := f.WasActive(ctx, date(2024, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, []Asset{"A", "C", "D"}, active)

	alive, err := f.Lifetime(ctx, date(2023, 12, 1), date(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []Asset{"A", "B"}, alive)
}
