package term

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/algotrader/market"
)

// OutputType is the declared type of a term's result.
type OutputType string

const (
	// TypeAssets is an ordered asset sequence.
	TypeAssets OutputType = "assets"
	// TypeScores maps assets to a numeric score; higher ranks first.
	TypeScores OutputType = "scores"
	// TypeBool maps assets to a pass/fail flag.
	TypeBool OutputType = "bool"
)

// ParseOutputType accepts the config spelling of an output type. An empty
// string means TypeAssets.
func ParseOutputType(s string) (OutputType, error) {
	switch OutputType(s) {
	case "":
		return TypeAssets, nil
	case TypeAssets, TypeScores, TypeBool:
		return OutputType(s), nil
	}
	return "", fmt.Errorf("unknown output type %q", s)
}

// Result is a post-processed term output. Assets is always populated with the
// ordered membership; Scores or Flags carry the typed payload.
type Result struct {
	Type   OutputType
	Assets []market.Asset
	Scores map[market.Asset]float64
	Flags  map[market.Asset]bool
}

// postprocess coerces raw logic output to the declared type. Boolean terms
// must already produce flags; no numeric output is silently cast to bool.
func (t *Term) postprocess(raw any, mask []market.Asset) (Result, error) {
	mismatch := func() error {
		return &TypeMismatchError{Term: t.String(), Want: t.dtype, Got: fmt.Sprintf("%T", raw)}
	}

	switch t.dtype {
	case TypeBool:
		flags, ok := raw.(map[market.Asset]bool)
		if !ok {
			return Result{}, mismatch()
		}
		return Result{Type: TypeBool, Assets: flagged(flags, mask), Flags: flags}, nil

	case TypeScores:
		switch v := raw.(type) {
		case map[market.Asset]float64:
			return Result{Type: TypeScores, Assets: ranked(v), Scores: v}, nil
		case []market.Asset:
			scores := make(map[market.Asset]float64, len(v))
			for i, a := range v {
				scores[a] = float64(len(v) - i)
			}
			return Result{Type: TypeScores, Assets: append([]market.Asset(nil), v...), Scores: scores}, nil
		}
		return Result{}, mismatch()

	case TypeAssets:
		switch v := raw.(type) {
		case []market.Asset:
			return Result{Type: TypeAssets, Assets: append([]market.Asset(nil), v...)}, nil
		case map[market.Asset]float64:
			return Result{Type: TypeAssets, Assets: ranked(v)}, nil
		case map[market.Asset]bool:
			return Result{Type: TypeAssets, Assets: flagged(v, mask)}, nil
		}
		return Result{}, mismatch()
	}
	return Result{}, mismatch()
}

// ranked orders assets by descending score, ties by asset.
func ranked(scores map[market.Asset]float64) []market.Asset {
	out := make([]market.Asset, 0, len(scores))
	for a := range scores {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := scores[out[i]], scores[out[j]]
		if si != sj {
			return si > sj
		}
		return out[i] < out[j]
	})
	return out
}

// flagged returns the true members in mask order, then any others sorted.
func flagged(flags map[market.Asset]bool, mask []market.Asset) []market.Asset {
	out := make([]market.Asset, 0, len(flags))
	seen := make(map[market.Asset]struct{}, len(flags))
	for _, a := range mask {
		if flags[a] {
			out = append(out, a)
			seen[a] = struct{}{}
		}
	}
	var rest []market.Asset
	for a, ok := range flags {
		if _, dup := seen[a]; ok && !dup {
			rest = append(rest, a)
		}
	}
	return append(out, market.Sorted(rest)...)
}
