// Package term implements the dependency graph that computes trading
// signals.
//
// A Term is an immutable node identified by (domain, logic, params, output
// type, dependencies). Terms are only ever produced by a Builder against a
// Registry, which hands out the same *Term for identical identities and
// reclaims it once every holder has released it. A Pipeline evaluates a root
// term's graph bottom-up for one date, intersecting sibling outputs level by
// level to form the next level's mask.
package term

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/algotrader/market"
)

// Identity is the structural identity of a term. Dependencies are referenced
// by their own identity keys, so equal identities imply equal subgraphs.
type Identity struct {
	Domain Domain
	Logic  string
	Params string
	Output OutputType
	Deps   []string
}

// Key renders the identity as a single comparable string.
func (id Identity) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|[%s]", id.Domain, id.Logic, id.Params, id.Output, strings.Join(id.Deps, ";"))
}

// Term is a node of the signal graph. It has no exported fields and no
// setters; the values fixed at construction are read through getters.
type Term struct {
	reg    *Registry
	key    string
	domain Domain
	logic  string
	impl   Logic
	params Params
	dtype  OutputType
	deps   []*Term
}

func (t *Term) Domain() Domain         { return t.domain }
func (t *Term) LogicName() string      { return t.logic }
func (t *Term) OutputType() OutputType { return t.dtype }
func (t *Term) Key() string            { return t.key }

// Params returns a copy of the term's params.
func (t *Term) Params() Params { return t.params.clone() }

// Dependencies returns the term's direct inputs in declaration order.
func (t *Term) Dependencies() []*Term { return append([]*Term(nil), t.deps...) }

// Columns and Window expose what the term's logic needs loaded.
func (t *Term) Columns() []market.Field { return append([]market.Field(nil), t.impl.Columns()...) }
func (t *Term) Window() int             { return t.impl.Window() }

// Compute runs the term's logic against one date's inputs and mask, then
// coerces the output to the declared type.
func (t *Term) Compute(in Inputs, mask []market.Asset) (Result, error) {
	raw, err := t.impl.Compute(in, mask)
	if err != nil {
		return Result{}, fmt.Errorf("compute %s: %w", t, err)
	}
	return t.postprocess(raw, mask)
}

// Downsample would make a lower-frequency copy of the term.
func (t *Term) Downsample(freq market.Frequency) (*Term, error) {
	return nil, fmt.Errorf("downsample %s to %s: %w", t, freq, ErrNotImplemented)
}

// String renders the term and its inputs, e.g. "top_n(momentum(universe))".
func (t *Term) String() string {
	if len(t.deps) == 0 {
		return t.logic
	}
	parts := make([]string, len(t.deps))
	for i, d := range t.deps {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s(%s)", t.logic, strings.Join(parts, ", "))
}
