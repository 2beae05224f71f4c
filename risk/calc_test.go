package risk

import (
	"testing"

	"github.com/rustyeddy/algotrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualAllocation(t *testing.T) {
	t.Parallel()

	got, err := EqualAllocation{}.Compute(ctx, []market.Asset{"A", "B"}, 1000, now)
	require.NoError(t, err)
	assert.Equal(t, map[market.Asset]float64{"A": 500, "B": 500}, got)

	got, err = EqualAllocation{MaxAssets: 4}.Compute(ctx, []market.Asset{"A", "B"}, 1000, now)
	require.NoError(t, err)
	assert.Equal(t, 250.0, got["A"])

	got, err = EqualAllocation{}.Compute(ctx, nil, 1000, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFixedAllocation(t *testing.T) {
	t.Parallel()

	got, err := FixedAllocation{Amount: 300}.Compute(ctx, []market.Asset{"A", "B"}, 1000, now)
	require.NoError(t, err)
	assert.Equal(t, 300.0, got["B"])

	got, err = FixedAllocation{Amount: 800}.Compute(ctx, []market.Asset{"A", "B"}, 1000, now)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got["A"])

	_, err = FixedAllocation{}.Compute(ctx, []market.Asset{"A"}, 1000, now)
	assert.Error(t, err)
}

func TestShares(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		capital float64
		price   float64
		lot     int
		want    float64
	}{
		{"exact lots", 10_000, 12.5, 100, 800},
		{"floored to lot", 10_000, 13, 100, 700},
		{"single shares", 1000, 30, 0, 33},
		{"less than a lot", 500, 10, 100, 0},
		{"no price", 1000, 0, 100, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Shares(tt.capital, tt.price, tt.lot))
		})
	}
}
