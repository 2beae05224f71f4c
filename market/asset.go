// Package market holds the instrument and bar types shared by the simulation
// core, together with the narrow collaborator interfaces (data portal,
// asset finder, trading calendar) the core consumes.
package market

import "sort"

// Asset identifies a tradeable instrument by its sid, e.g. "600000" or "AAPL".
type Asset string

// Intersect returns the members of a that are also in b, in a's order.
func Intersect(a, b []Asset) []Asset {
	in := make(map[Asset]struct{}, len(b))
	for _, x := range b {
		in[x] = struct{}{}
	}
	out := make([]Asset, 0, len(a))
	seen := make(map[Asset]struct{}, len(a))
	for _, x := range a {
		if _, ok := in[x]; !ok {
			continue
		}
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

// Difference returns the members of a not present in b, in a's order.
func Difference(a, b []Asset) []Asset {
	ex := make(map[Asset]struct{}, len(b))
	for _, x := range b {
		ex[x] = struct{}{}
	}
	out := make([]Asset, 0, len(a))
	for _, x := range a {
		if _, ok := ex[x]; !ok {
			out = append(out, x)
		}
	}
	return out
}

// Contains reports whether x is a member of set.
func Contains(set []Asset, x Asset) bool {
	for _, a := range set {
		if a == x {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy of assets.
func Sorted(assets []Asset) []Asset {
	out := append([]Asset(nil), assets...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
