package restriction

import (
	"context"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// UnionRestriction bars an asset when any member bars it.
type UnionRestriction struct {
	members []Restriction
}

// Union combines restrictions. No-op members are dropped and nested unions
// are flattened; zero remaining members give NoRestriction and a single one
// is returned as is.
func Union(rs ...Restriction) Restriction {
	var members []Restriction
	for _, r := range rs {
		switch v := r.(type) {
		case nil, NoRestriction, *NoRestriction:
		case *UnionRestriction:
			members = append(members, v.members...)
		default:
			members = append(members, r)
		}
	}
	switch len(members) {
	case 0:
		return NoRestriction{}
	case 1:
		return members[0]
	}
	return &UnionRestriction{members: members}
}

// Or is Union(a, b).
func Or(a, b Restriction) Restriction { return Union(a, b) }

// Members returns the flattened members in evaluation order.
func (u *UnionRestriction) Members() []Restriction {
	return append([]Restriction(nil), u.members...)
}

// Eligible evaluates every member against the full candidate set, in order,
// and keeps the assets all of them allow.
func (u *UnionRestriction) Eligible(ctx context.Context, assets []market.Asset, dt time.Time) ([]market.Asset, error) {
	out := append([]market.Asset(nil), assets...)
	for _, r := range u.members {
		ok, err := r.Eligible(ctx, assets, dt)
		if err != nil {
			return nil, err
		}
		out = market.Intersect(out, ok)
	}
	return out, nil
}
