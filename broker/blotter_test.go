package broker

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/algotrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx  = context.Background()
	day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day1 = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
)

func minute(h, m int) time.Time {
	return day1.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// testPortal: every asset closed at 8 on day0. On day1 A has real minute
// ticks, the others only a daily bar.
func testPortal(t *testing.T) *market.MemoryPortal {
	t.Helper()
	p := market.NewMemoryPortal()
	for _, a := range []market.Asset{"A", "B", "C", "D"} {
		p.AddDaily(a, market.Bar{Time: day0, Open: 8, Close: 8, Volume: 1000})
	}
	p.AddDaily("A", market.Bar{Time: day1, Open: 8.2, Close: 7.8, Volume: 1000})
	p.AddMinutes("A",
		market.Bar{Time: minute(9, 30), Close: 8.2},
		market.Bar{Time: minute(10, 0), Close: 8.0},
		market.Bar{Time: minute(11, 0), Close: 7.8},
	)
	p.AddDaily("B", market.Bar{Time: day1, Open: 10, Close: 10, Volume: 1000}) // ratio 1.25
	p.AddDaily("C", market.Bar{Time: day1, Open: 6, Close: 6, Volume: 1000})   // ratio 0.75
	p.AddDaily("D", market.Bar{Time: day1, Open: 9, Close: 9, Volume: 1000})
	return p
}

func testBlotter(t *testing.T) *Blotter {
	t.Helper()
	return NewBlotter(testPortal(t),
		RatioCommission{Rate: 0.001, Min: 5},
		FixedSlippage{Rate: 0.01},
		FixedExecution{Limit: 0.25, Stop: 0.25},
	)
}

func TestBlotter_MarketOrderFillsAtFirstTick(t *testing.T) {
	b := testBlotter(t)

	txns, rejections, err := b.CreateTransactions(ctx, []Request{MarketOrder("A", 100), MarketOrder("D", -100)}, day1)
	require.NoError(t, err)
	require.Empty(t, rejections)
	require.Len(t, txns, 2)

	buy := txns[0]
	assert.Equal(t, market.Asset("A"), buy.Asset)
	assert.Equal(t, minute(9, 30), buy.Time)
	assert.InDelta(t, 8.2*1.01, buy.Price, 1e-9)
	assert.Equal(t, 5.0, buy.Commission)
	assert.NotEmpty(t, buy.ID)

	sell := txns[1]
	// synthesized open tick, slippage moves sells down
	assert.Equal(t, day1.Add(9*time.Hour+30*time.Minute), sell.Time)
	assert.InDelta(t, 9*0.99, sell.Price, 1e-9)
	assert.Equal(t, "sell", sell.Side())
}

func TestBlotter_TriggerBandIsOpen(t *testing.T) {
	b := testBlotter(t)
	b.Slippage = FixedSlippage{}

	tests := []struct {
		name  string
		req   Request
		fills bool
	}{
		{"at upper bound", MarketOrder("B", 100), false},
		{"at lower bound", MarketOrder("C", 100), false},
		{"inside band", MarketOrder("D", 100), true},
		{"limit inside band", PriceOrder("B", -100, 9.96), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, rejections, err := b.CreateTransactions(ctx, []Request{tt.req}, day1)
			require.NoError(t, err)
			if tt.fills {
				assert.Len(t, txns, 1)
				assert.Empty(t, rejections)
				return
			}
			assert.Empty(t, txns)
			require.Len(t, rejections, 1)
			assert.Contains(t, rejections[0].Reason, "outside")
			assert.Equal(t, tt.req, rejections[0].Request)
		})
	}
}

func TestBlotter_PriceOrderDirectionalSearch(t *testing.T) {
	b := testBlotter(t)
	b.Slippage = FixedSlippage{}

	tests := []struct {
		name     string
		amount   float64
		limit    float64
		wantTime time.Time
		fills    bool
	}{
		{"buy waits for the price to fall", 100, 7.9, minute(11, 0), true},
		{"buy at first tick", 100, 8.5, minute(9, 30), true},
		{"sell fills on first tick above", -100, 8.1, minute(9, 30), true},
		{"buy limit never reached", 100, 7.0, time.Time{}, false},
		{"sell limit never reached", -100, 9.0, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, rejections, err := b.CreateTransactions(ctx, []Request{PriceOrder("A", tt.amount, tt.limit)}, day1)
			require.NoError(t, err)
			if !tt.fills {
				assert.Empty(t, txns)
				require.Len(t, rejections, 1)
				assert.Contains(t, rejections[0].Reason, "not reached")
				return
			}
			require.Len(t, txns, 1)
			assert.Equal(t, tt.wantTime, txns[0].Time)
			assert.Equal(t, tt.limit, txns[0].Price)
		})
	}
}

func TestBlotter_TickerOrderLooksUpPrice(t *testing.T) {
	b := testBlotter(t)
	b.Slippage = FixedSlippage{}

	txns, _, err := b.CreateTransactions(ctx, []Request{TickerOrder("A", 100, minute(10, 30))}, day1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, 8.0, txns[0].Price)
	assert.Equal(t, minute(10, 30), txns[0].Time)

	_, rejections, err := b.CreateTransactions(ctx, []Request{TickerOrder("A", 100, minute(9, 0))}, day1)
	require.NoError(t, err)
	require.Len(t, rejections, 1)
}

func TestBlotter_Failures(t *testing.T) {
	b := testBlotter(t)

	_, _, err := b.CreateTransactions(ctx, []Request{MarketOrder("D", 100), {Kind: Kind(9), Asset: "D", Amount: 1}}, day1)
	assert.ErrorIs(t, err, ErrUnknownOrderKind)

	txns, rejections, err := b.CreateTransactions(ctx, []Request{MarketOrder("Z", 100), MarketOrder("D", 0)}, day1)
	require.NoError(t, err)
	assert.Empty(t, txns)
	require.Len(t, rejections, 2)
	assert.Equal(t, "no intraday data", rejections[0].Reason)
	assert.Equal(t, "zero amount", rejections[1].Reason)

	// first day of data: no previous close
	_, rejections, err = b.CreateTransactions(ctx, []Request{MarketOrder("D", 100)}, day0)
	require.NoError(t, err)
	require.Len(t, rejections, 1)
	assert.Equal(t, "no previous close", rejections[0].Reason)
}

func TestRatioCommission(t *testing.T) {
	t.Parallel()

	c := RatioCommission{Rate: 0.0003, Min: 5}
	tests := []struct {
		name  string
		order Order
		want  float64
	}{
		{"minimum", Order{Amount: 100, Price: 10}, 5},
		{"ratio", Order{Amount: -100000, Price: 10.01}, 300.3},
		{"rounded to cent", Order{Amount: 33333, Price: 1.5}, 15},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.Calculate(tt.order))
		})
	}
}
