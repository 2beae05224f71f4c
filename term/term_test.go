package term

import (
	"errors"
	"testing"

	"github.com/rustyeddy/algotrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawLogic returns whatever shape its "shape" param names, so tests can
// drive postprocess with any output.
type rawLogic struct{ shape string }

func (rawLogic) Columns() []market.Field { return nil }
func (rawLogic) Window() int             { return 0 }
func (r rawLogic) Compute(_ Inputs, mask []market.Asset) (any, error) {
	switch r.shape {
	case "scores":
		out := make(map[market.Asset]float64, len(mask))
		for i, a := range mask {
			out[a] = float64(i)
		}
		return out, nil
	case "flags":
		out := make(map[market.Asset]bool, len(mask))
		for i, a := range mask {
			out[a] = i%2 == 0
		}
		return out, nil
	case "int":
		return 42, nil
	}
	return mask, nil
}

func init() {
	RegisterLogic("test-raw", func(p Params) (Logic, error) {
		shape, err := p.String("shape", "assets")
		if err != nil {
			return nil, err
		}
		return rawLogic{shape: shape}, nil
	})
}

type denyDomain struct{ deny Domain }

func (d denyDomain) ValidateDomain(dom Domain) error {
	if dom == d.deny {
		return ErrUnsupportedDomain
	}
	return nil
}

func mustBuild(t *testing.T, b *Builder) *Term {
	t.Helper()
	term, err := b.Build()
	require.NoError(t, err)
	return term
}

func TestBuild_IdenticalIdentitySharesInstance(t *testing.T) {
	reg := NewRegistry(nil)

	u1 := mustBuild(t, reg.Builder("universe"))
	u2 := mustBuild(t, reg.Builder("Universe"))
	assert.Same(t, u1, u2)
	assert.Equal(t, 2, reg.Refs(u1))

	m1 := mustBuild(t, reg.Builder("momentum").Params(Params{"window": 20}).Output(TypeScores).DependsOn(u1))
	m2 := mustBuild(t, reg.Builder("momentum").Params(Params{"window": 20.0}).Output(TypeScores).DependsOn(u2))
	assert.Same(t, m1, m2)
	assert.Equal(t, 2, reg.Len())
}

func TestBuild_AnyIdentityFieldChangeIsDistinct(t *testing.T) {
	reg := NewRegistry(nil)
	u := mustBuild(t, reg.Builder("universe"))
	base := mustBuild(t, reg.Builder("momentum").Params(Params{"window": 20}).Output(TypeScores).DependsOn(u))

	other := mustBuild(t, reg.Builder("universe").Params(Params{"tag": "x"}))

	variants := map[string]*Builder{
		"params": reg.Builder("momentum").Params(Params{"window": 10}).Output(TypeScores).DependsOn(u),
		"output": reg.Builder("momentum").Params(Params{"window": 20}).Output(TypeAssets).DependsOn(u),
		"logic":  reg.Builder("volume_rank").Params(Params{"window": 20}).Output(TypeScores).DependsOn(u),
		"domain": reg.Builder("momentum").Params(Params{"window": 20, "domain": "cn"}).Output(TypeScores).DependsOn(u),
		"deps":   reg.Builder("momentum").Params(Params{"window": 20}).Output(TypeScores).DependsOn(other),
	}
	for name, b := range variants {
		t.Run(name, func(t *testing.T) {
			got := mustBuild(t, b)
			assert.NotSame(t, base, got)
			assert.NotEqual(t, base.Key(), got.Key())
		})
	}
}

func TestBuild_ConstructionFailures(t *testing.T) {
	reg := NewRegistry(denyDomain{deny: "XX"})
	u := mustBuild(t, reg.Builder("universe"))
	cn := mustBuild(t, reg.Builder("universe").Params(Params{"domain": "CN"}))
	foreign := mustBuild(t, NewRegistry(nil).Builder("universe"))
	before := reg.Len()

	tests := []struct {
		name   string
		b      *Builder
		target error
	}{
		{"unknown logic", reg.Builder("nope"), ErrUnknownLogic},
		{"bad params", reg.Builder("momentum").Params(Params{"window": 0}), ErrConstruction},
		{"bad param type", reg.Builder("momentum").Params(Params{"window": "ten"}), ErrConstruction},
		{"invalid output", reg.Builder("universe").Output("matrix"), ErrConstruction},
		{"nil dependency", reg.Builder("top_n").DependsOn(u, nil), ErrConstruction},
		{"foreign dependency", reg.Builder("top_n").DependsOn(foreign), ErrConstruction},
		{"domain conflict", reg.Builder("top_n").Params(Params{"domain": "US"}).DependsOn(cn), ErrConstruction},
		{"unsupported domain", reg.Builder("universe").Params(Params{"domain": "xx"}), ErrUnsupportedDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, err := tt.b.Build()
			require.Error(t, err)
			assert.Nil(t, term)
			assert.ErrorIs(t, err, ErrConstruction)
			assert.ErrorIs(t, err, tt.target)
		})
	}
	assert.Equal(t, before, reg.Len())
	assert.Equal(t, 1, reg.Refs(u))
}

func TestBuild_InheritsDependencyDomain(t *testing.T) {
	reg := NewRegistry(nil)
	cn := mustBuild(t, reg.Builder("universe").Params(Params{"domain": "cn"}))
	top := mustBuild(t, reg.Builder("top_n").DependsOn(cn))
	assert.Equal(t, Domain("CN"), top.Domain())

	generic := mustBuild(t, reg.Builder("universe"))
	assert.Equal(t, GenericDomain, generic.Domain())
}

func TestRelease_EvictsAtZeroAndReleasesDependencies(t *testing.T) {
	reg := NewRegistry(nil)
	u := mustBuild(t, reg.Builder("universe"))
	m := mustBuild(t, reg.Builder("momentum").Output(TypeScores).DependsOn(u))
	assert.Equal(t, 2, reg.Refs(u))

	reg.Release(m)
	assert.Equal(t, 0, reg.Refs(m))
	assert.Equal(t, 1, reg.Refs(u))
	assert.Equal(t, 1, reg.Len())

	// After eviction the same identity is a fresh instance.
	m2 := mustBuild(t, reg.Builder("momentum").Output(TypeScores).DependsOn(u))
	assert.NotSame(t, m, m2)

	reg.Release(m2)
	reg.Release(u)
	assert.Equal(t, 0, reg.Len())

	// Releasing an evicted term is a no-op.
	reg.Release(u)
	assert.Equal(t, 0, reg.Len())
}

func TestTerm_IsNotMutableThroughGetters(t *testing.T) {
	reg := NewRegistry(nil)
	u := mustBuild(t, reg.Builder("universe"))
	p := Params{"window": 5}
	m := mustBuild(t, reg.Builder("momentum").Params(p).Output(TypeScores).DependsOn(u))

	p["window"] = 99
	got := m.Params()
	got["window"] = 50
	deps := m.Dependencies()
	deps[0] = nil

	w, err := m.Params().Int("window", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, w)
	assert.Same(t, u, m.Dependencies()[0])
}

func TestCompute_Postprocess(t *testing.T) {
	reg := NewRegistry(nil)
	mask := []market.Asset{"A", "B", "C"}

	tests := []struct {
		name   string
		shape  string
		output OutputType
		want   []market.Asset
		err    bool
	}{
		{"assets as assets", "assets", TypeAssets, []market.Asset{"A", "B", "C"}, false},
		{"scores ranked", "scores", TypeScores, []market.Asset{"C", "B", "A"}, false},
		{"scores as assets", "scores", TypeAssets, []market.Asset{"C", "B", "A"}, false},
		{"flags as bool", "flags", TypeBool, []market.Asset{"A", "C"}, false},
		{"flags as assets", "flags", TypeAssets, []market.Asset{"A", "C"}, false},
		{"assets as scores", "assets", TypeScores, []market.Asset{"A", "B", "C"}, false},
		{"scores as bool", "scores", TypeBool, nil, true},
		{"assets as bool", "assets", TypeBool, nil, true},
		{"int as assets", "int", TypeAssets, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := mustBuild(t, reg.Builder("test_raw").Params(Params{"shape": tt.shape}).Output(tt.output))
			res, err := term.Compute(nil, mask)
			if tt.err {
				var mismatch *TypeMismatchError
				require.True(t, errors.As(err, &mismatch))
				assert.ErrorIs(t, err, ErrTypeMismatch)
				assert.Equal(t, tt.output, mismatch.Want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.output, res.Type)
			assert.Equal(t, tt.want, res.Assets)
		})
	}
}

func TestCompute_IsRepeatable(t *testing.T) {
	reg := NewRegistry(nil)
	term := mustBuild(t, reg.Builder("test_raw").Params(Params{"shape": "scores"}).Output(TypeScores))
	mask := []market.Asset{"X", "Y"}

	first, err := term.Compute(nil, mask)
	require.NoError(t, err)
	second, err := term.Compute(nil, mask)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTerm_StringAndDownsample(t *testing.T) {
	reg := NewRegistry(nil)
	u := mustBuild(t, reg.Builder("universe"))
	m := mustBuild(t, reg.Builder("momentum").Output(TypeScores).DependsOn(u))
	v := mustBuild(t, reg.Builder("volume_rank").DependsOn(u))
	top := mustBuild(t, reg.Builder("top_n").DependsOn(m, v))

	assert.Equal(t, "top_n(momentum(universe), volume_rank(universe))", top.String())

	_, err := top.Downsample(market.Minute)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestLookupLogic_ListsRegistered(t *testing.T) {
	_, err := LookupLogic("missing")
	require.ErrorIs(t, err, ErrUnknownLogic)
	assert.Contains(t, err.Error(), "momentum")

	assert.Subset(t, Logics(), []string{"universe", "momentum", "volume_rank", "ma_above", "price_range", "top_n", "atr_below", "adx_above", "ema_cross"})
}

func TestParseOutputType(t *testing.T) {
	got, err := ParseOutputType("")
	require.NoError(t, err)
	assert.Equal(t, TypeAssets, got)

	got, err = ParseOutputType("bool")
	require.NoError(t, err)
	assert.Equal(t, TypeBool, got)

	_, err = ParseOutputType("frame")
	assert.Error(t, err)
}
