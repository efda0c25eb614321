package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// shape is one footprint a room may be packed with.
type shape struct {
	w, h float64
}

// shapes lists the footprints room rv can take at its smallest admissible
// size, compact first. Rooms on a width grid get one shape per candidate;
// other rooms get their minimum size stretched to the aspect range.
func (f *Formulation) shapes(rv *roomVars) []shape {
	if rv.grid != nil {
		out := make([]shape, 0, len(rv.grid))
		for _, c := range rv.grid {
			out = append(out, shape{w: c.width, h: c.hMin})
		}
		sort.SliceStable(out, func(i, j int) bool {
			ai, aj := out[i].w*out[i].h, out[j].w*out[j].h
			if math.Abs(ai-aj) > packEps {
				return ai < aj
			}
			return out[i].w < out[j].w
		})
		return out
	}

	r := rv.spec
	w, h := math.Max(r.MinWidth, 0), math.Max(r.MinHeight, 0)
	if r.MinAspect > 0 && w < r.MinAspect*h {
		w = r.MinAspect * h
	}
	if r.MaxAspect > 0 && w > r.MaxAspect*h {
		h = w / r.MaxAspect
	}
	if w > rv.maxW+packEps || h > rv.maxH+packEps {
		return nil
	}
	return []shape{{w: w, h: h}}
}

// shapeStrategy picks the order in which a room's shapes are tried.
type shapeStrategy int

const (
	shapeBestFit shapeStrategy = iota // Shape that wastes the least free area
	shapeCompact                      // Smallest area first
	shapeWide                         // Widest first
	shapeTall                         // Narrowest first
)

var shapeStrategies = []shapeStrategy{shapeBestFit, shapeCompact, shapeWide, shapeTall}

func orderShapes(mp *maxRectsPacker, shapes []shape, strategy shapeStrategy) []shape {
	out := append([]shape(nil), shapes...)
	switch strategy {
	case shapeBestFit:
		fit := make([]float64, len(out))
		for i, s := range out {
			fit[i] = mp.bestFit(s.w, s.h)
		}
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			fa, fb := fit[idx[a]], fit[idx[b]]
			if (fa < 0) != (fb < 0) {
				return fb < 0
			}
			return fa < fb
		})
		sorted := make([]shape, len(out))
		for i, k := range idx {
			sorted[i] = out[k]
		}
		return sorted
	case shapeWide:
		sort.SliceStable(out, func(i, j int) bool { return out[i].w > out[j].w })
	case shapeTall:
		sort.SliceStable(out, func(i, j int) bool { return out[i].w < out[j].w })
	}
	return out
}

// packOrder packs the rooms in the given order, trying the shapes pick
// returns for each, and counts the rooms placed.
func (f *Formulation) packOrder(order []int, pick func(mp *maxRectsPacker, room int) []shape) (model.Layout, int) {
	b := f.inst.Boundary
	mp := newMaxRectsPacker(b.Width, b.Height, f.inst.Spacing)
	l := model.NewLayout(b)
	placed := 0
	for _, i := range order {
		for _, s := range pick(mp, i) {
			if ok, x, y := mp.insert(s.w, s.h); ok {
				l.Place(f.rooms[i].spec.ID, model.Rect{X: x, Y: y, Width: s.w, Height: s.h})
				placed++
				break
			}
		}
	}
	return l, placed
}

// greedyOrder sorts rooms by smallest footprint, largest first.
func (f *Formulation) greedyOrder(shapes [][]shape) []int {
	order := make([]int, len(f.rooms))
	for i := range order {
		order[i] = i
	}
	area := func(i int) float64 {
		if len(shapes[i]) == 0 {
			return 0
		}
		return shapes[i][0].w * shapes[i][0].h
	}
	sort.SliceStable(order, func(a, b int) bool { return area(order[a]) > area(order[b]) })
	return order
}

// heuristicScore rates a complete layout in the objective's minimization
// sense, so strategies can be compared before the oracle runs.
func (f *Formulation) heuristicScore(l model.Layout) float64 {
	switch f.kind {
	case model.ObjectiveUnusedArea:
		return l.UnusedArea()
	case model.ObjectivePerimeter:
		return l.TotalPerimeter()
	case model.ObjectiveAdjacency:
		return -l.AdjacencyScore(f.inst, f.minContact)
	case model.ObjectiveEnvelope:
		return l.Envelope().Perimeter()
	}
	return 0
}

// greedyLayout tries every shape strategy on the largest-first order and
// keeps the best complete layout.
func (f *Formulation) greedyLayout() (model.Layout, bool) {
	shapes := make([][]shape, len(f.rooms))
	for i := range f.rooms {
		shapes[i] = f.shapes(&f.rooms[i])
	}
	order := f.greedyOrder(shapes)

	var best model.Layout
	bestScore := math.Inf(1)
	found := false
	for _, strategy := range shapeStrategies {
		l, placed := f.packOrder(order, func(mp *maxRectsPacker, i int) []shape {
			return orderShapes(mp, shapes[i], strategy)
		})
		if placed < len(f.rooms) {
			continue
		}
		if score := f.heuristicScore(l); !found || score < bestScore-packEps {
			best, bestScore, found = l, score, true
		}
	}
	return best, found
}

// warmStartLayout returns a complete non-overlapping layout at minimum room
// sizes, from the greedy packer or, failing that, the genetic search.
func (f *Formulation) warmStartLayout(cfg GeneticConfig, seed int64) (model.Layout, bool) {
	if l, ok := f.greedyLayout(); ok {
		return l, true
	}
	return newGeneticPacker(f, cfg, seed).optimize()
}

// assign converts a layout into a full assignment of the model variables:
// placement values, grid selectors, the separation each pair satisfies,
// touch indicators where rooms already touch, and the envelope.
func (f *Formulation) assign(l model.Layout) ([]float64, error) {
	vals := make([]float64, f.model.NumVars())
	p := f.inst.Spacing
	rects := make([]model.Rect, len(f.rooms))
	for i := range f.rooms {
		rv := &f.rooms[i]
		r, ok := l.Rooms[rv.spec.ID]
		if !ok {
			return nil, fmt.Errorf("room %q is not placed", rv.spec.ID)
		}
		rects[i] = r
		vals[rv.x], vals[rv.y], vals[rv.w], vals[rv.h] = r.X, r.Y, r.Width, r.Height
		if rv.grid == nil {
			continue
		}
		k := -1
		for idx, c := range rv.grid {
			if math.Abs(c.width-r.Width) <= gridEps*math.Max(1, c.width) {
				k = idx
				break
			}
		}
		if k < 0 {
			return nil, fmt.Errorf("room %q width %g is not a grid candidate", rv.spec.ID, r.Width)
		}
		vals[rv.grid[k].z] = 1
		vals[rv.grid[k].u] = r.Height
	}

	for _, pv := range f.pairs {
		a, b := rects[pv.i], rects[pv.j]
		s, ok := separationOf(a, b, p)
		if !ok {
			return nil, fmt.Errorf("rooms %q and %q are not separated", f.rooms[pv.i].spec.ID, f.rooms[pv.j].spec.ID)
		}
		vals[pv.sep[s]] = 1
		if pv.hasTouch && touching(a, b, s, p, pv.contactX, pv.contactY) {
			vals[pv.touch[s]] = 1
		}
	}

	if f.hasEnvelope {
		env := l.Envelope()
		vals[f.envW], vals[f.envH] = env.Width, env.Height
	}
	return vals, nil
}

// separationOf returns the first separation that a and b satisfy with gap
// at least p.
func separationOf(a, b model.Rect, p float64) (Separation, bool) {
	switch {
	case a.Right()+p <= b.X+packEps:
		return LeftOf, true
	case b.Right()+p <= a.X+packEps:
		return RightOf, true
	case a.Top()+p <= b.Y+packEps:
		return Below, true
	case b.Top()+p <= a.Y+packEps:
		return Above, true
	}
	return 0, false
}

// touching reports whether a and b, separated by s, face each other across
// a gap of at most p with enough shared edge.
func touching(a, b model.Rect, s Separation, p, contactX, contactY float64) bool {
	lead, lag := a, b
	if s == RightOf || s == Above {
		lead, lag = b, a
	}
	if s.horizontal() {
		gap := lag.X - lead.Right()
		overlap := math.Min(a.Top(), b.Top()) - math.Max(a.Y, b.Y)
		return gap <= p+packEps && overlap >= contactY-packEps &&
			a.Height >= contactY-packEps && b.Height >= contactY-packEps
	}
	gap := lag.Y - lead.Top()
	overlap := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	return gap <= p+packEps && overlap >= contactX-packEps &&
		a.Width >= contactX-packEps && b.Width >= contactX-packEps
}
