package term

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// Pipeline evaluates the graph below a root term for one date at a time.
type Pipeline struct {
	name   string
	root   *Term
	loader Loader
	cal    market.Calendar
	levels [][]*Term
}

// NewPipeline checks every term of root's graph against the loader's domains
// and orders the graph into levels. A term's level is the longest dependency
// path down to a leaf.
func NewPipeline(name string, root *Term, loader Loader, cal market.Calendar) (*Pipeline, error) {
	if root == nil {
		return nil, constructionErr("pipeline %s: nil root", name)
	}
	if loader == nil || cal == nil {
		return nil, constructionErr("pipeline %s: loader and calendar are required", name)
	}

	level := make(map[*Term]int)
	var order []*Term
	var visit func(t *Term) int
	visit = func(t *Term) int {
		if l, ok := level[t]; ok {
			return l
		}
		l := 0
		for _, d := range t.deps {
			if dl := visit(d) + 1; dl > l {
				l = dl
			}
		}
		level[t] = l
		order = append(order, t)
		return l
	}
	top := visit(root)

	levels := make([][]*Term, top+1)
	for _, t := range order {
		if err := loader.ValidateDomain(t.domain); err != nil {
			return nil, wrapConstruction(t.String(), err)
		}
		levels[level[t]] = append(levels[level[t]], t)
	}
	return &Pipeline{name: name, root: root, loader: loader, cal: cal, levels: levels}, nil
}

func (p *Pipeline) Name() string { return p.name }
func (p *Pipeline) Root() *Term  { return p.root }

// Levels returns the terms grouped by level, leaves first.
func (p *Pipeline) Levels() [][]*Term {
	out := make([][]*Term, len(p.levels))
	for i, l := range p.levels {
		out[i] = append([]*Term(nil), l...)
	}
	return out
}

// Evaluate runs the graph for dt over universe and returns the root's
// ordered assets. Level 0 sees the universe as its mask; every later level
// sees the intersection of the previous level's outputs.
func (p *Pipeline) Evaluate(ctx context.Context, dt time.Time, universe []market.Asset) ([]market.Asset, error) {
	mask := market.Intersect(universe, universe)
	for _, terms := range p.levels {
		outs := make([][]market.Asset, 0, len(terms))
		for _, t := range terms {
			in, err := p.load(ctx, t, dt, mask)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: %w", p.name, err)
			}
			res, err := t.Compute(in, mask)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: %w", p.name, err)
			}
			outs = append(outs, market.Intersect(res.Assets, mask))
		}
		mask = combine(outs)
	}
	return mask, nil
}

// load fetches the columns t reads over its lookback window ending at dt.
func (p *Pipeline) load(ctx context.Context, t *Term, dt time.Time, mask []market.Asset) (Inputs, error) {
	cols := t.impl.Columns()
	w := t.impl.Window()
	if len(cols) == 0 || w == 0 {
		return Inputs{}, nil
	}
	start := dt
	if w > 1 {
		s, err := p.cal.Offset(dt, -(w - 1))
		if err != nil {
			return nil, fmt.Errorf("window for %s: %w", t, err)
		}
		start = s
	}
	dates := p.cal.Sessions(start, dt)
	arrays, err := p.loader.LoadAdjustedArray(ctx, t.domain, cols, dates, mask, FullMask(len(dates), len(mask)))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t, err)
	}
	return Inputs(arrays), nil
}

// combine intersects sibling outputs. Members are ordered by the sum of
// their positions across siblings, ties keeping the first sibling's order.
func combine(outs [][]market.Asset) []market.Asset {
	switch len(outs) {
	case 0:
		return nil
	case 1:
		return outs[0]
	}
	rank := make(map[market.Asset]int)
	seen := make(map[market.Asset]int)
	for _, o := range outs {
		for i, a := range o {
			rank[a] += i
			seen[a]++
		}
	}
	out := make([]market.Asset, 0, len(outs[0]))
	for _, a := range outs[0] {
		if seen[a] == len(outs) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}
