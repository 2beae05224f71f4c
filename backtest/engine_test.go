package backtest

import (
	"testing"

	"github.com/rustyeddy/algotrader/broker"
	"github.com/rustyeddy/algotrader/market"
	"github.com/rustyeddy/algotrader/portfolio"
	"github.com/rustyeddy/algotrader/restriction"
	"github.com/rustyeddy/algotrader/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topPipeline selects the first n candidates.
func topPipeline(t *testing.T, reg *term.Registry, name string, n int) *term.Pipeline {
	t.Helper()
	u, err := reg.Builder("universe").Build()
	require.NoError(t, err)
	top, err := reg.Builder("top_n").Params(term.Params{"n": n}).DependsOn(u).Build()
	require.NoError(t, err)
	p, err := term.NewPipeline(name, top, &term.PortalLoader{Portal: market.NewMemoryPortal()}, market.WeekdayCalendar(day1, day5))
	require.NoError(t, err)
	return p
}

func testEngine(t *testing.T) (*Engine, *term.Registry) {
	t.Helper()
	var infos []market.AssetInfo
	for _, a := range []market.Asset{"A", "B", "C", "D", "E"} {
		infos = append(infos, market.AssetInfo{Asset: a, Listed: day1})
	}
	reg := term.NewRegistry(term.NopDomainValidator{})
	return &Engine{
		Entry:  []*term.Pipeline{topPipeline(t, reg, "top3", 3)},
		Finder: market.NewMemoryFinder(infos...),
	}, reg
}

func holding(assets ...market.Asset) portfolio.Portfolio {
	p := portfolio.Portfolio{Positions: make(map[market.Asset]portfolio.Position)}
	for _, a := range assets {
		p.Positions[a] = portfolio.Position{Asset: a, Amount: 100, CostBasis: 10, LastSalePrice: 10}
	}
	return p
}

func sold(s broker.Signals) []market.Asset {
	var out []market.Asset
	for _, pos := range s.Sells {
		out = append(out, pos.Asset)
	}
	return out
}

func TestEngine_Candidates(t *testing.T) {
	e, _ := testEngine(t)
	e.Universe = []market.Asset{"E", "B", "A", "Z"}
	e.Restrictions = restriction.NewStatic("B")

	got, err := e.Candidates(ctx, day5)
	require.NoError(t, err)
	assert.Equal(t, []market.Asset{"A", "E"}, got)
}

func TestEngine_TargetsUnionKeepsFirstAppearance(t *testing.T) {
	e, reg := testEngine(t)
	e.Entry = []*term.Pipeline{topPipeline(t, reg, "top1", 1), topPipeline(t, reg, "top3", 3)}

	got, err := e.Targets(ctx, []market.Asset{"C", "A", "B", "D"}, day5)
	require.NoError(t, err)
	assert.Equal(t, []market.Asset{"C", "A", "B"}, got)
}

func TestEngine_ExecuteAlgorithm(t *testing.T) {
	tests := []struct {
		name      string
		held      []market.Asset
		max       int
		rotate    bool
		exit      bool
		wantBuys  []market.Asset
		wantSells []market.Asset
		wantDuals []broker.Dual
	}{
		{
			name:      "drop out of target",
			held:      []market.Asset{"C", "E"},
			wantBuys:  []market.Asset{"A", "B"},
			wantSells: []market.Asset{"E"},
		},
		{
			name:      "max holdings caps new buys",
			held:      []market.Asset{"C", "D"},
			max:       2,
			wantBuys:  []market.Asset{"A"},
			wantSells: []market.Asset{"D"},
		},
		{
			name:      "full book buys nothing",
			held:      []market.Asset{"A", "B", "C"},
			max:       3,
			wantBuys:  nil,
			wantSells: nil,
		},
		{
			name:   "rotate pairs exits with entries",
			held:   []market.Asset{"D", "E"},
			rotate: true,
			wantBuys: []market.Asset{"C"},
			wantDuals: []broker.Dual{
				{Sell: holding("D").Positions["D"], Buy: "A"},
				{Sell: holding("E").Positions["E"], Buy: "B"},
			},
		},
		{
			name:      "exit pipeline decides the sells",
			held:      []market.Asset{"D", "E"},
			exit:      true,
			wantBuys:  []market.Asset{"A", "B", "C"},
			wantSells: []market.Asset{"D"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, reg := testEngine(t)
			e.MaxHoldings = tt.max
			e.Rotate = tt.rotate
			if tt.exit {
				e.Exit = topPipeline(t, reg, "exit", 1)
			}

			s, err := e.ExecuteAlgorithm(ctx, holding(tt.held...), day5)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBuys, s.Buys)
			assert.Equal(t, tt.wantSells, sold(s))
			assert.Equal(t, tt.wantDuals, s.Duals)
		})
	}
}
