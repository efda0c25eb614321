package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// snap rounds v to model.Tolerance.
func snap(v float64) float64 {
	s := math.Round(v/model.Tolerance) * model.Tolerance
	if s == 0 {
		return 0 // avoid -0 in output
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// snapEdges snaps both ends of [lo, lo+size] to model.Tolerance and clamps
// them into [0, limit]. Rooms that share an edge in the assignment share it
// exactly after decoding.
func snapEdges(lo, size, limit float64) (float64, float64) {
	a := clamp(snap(lo), 0, limit)
	b := clamp(snap(lo+size), a, limit)
	return a, b
}

// decode reads placements out of an oracle assignment. Room edges are
// snapped to model.Tolerance and clamped into the boundary.
func (f *Formulation) decode(values []float64) (model.Layout, error) {
	if len(values) != f.model.NumVars() {
		return model.Layout{}, fmt.Errorf("assignment has %d values, model has %d variables", len(values), f.model.NumVars())
	}
	b := f.inst.Boundary
	l := model.NewLayout(b)
	for _, rv := range f.rooms {
		x0, x1 := snapEdges(values[rv.x], values[rv.w], b.Width)
		y0, y1 := snapEdges(values[rv.y], values[rv.h], b.Height)
		l.Place(rv.spec.ID, model.Rect{X: x0, Y: y0, Width: snap(x1 - x0), Height: snap(y1 - y0)})
	}
	return l, nil
}

// PairSeparation is the relative position a solve chose for two rooms.
type PairSeparation struct {
	Room       string
	Other      string
	Separation Separation
	Touching   bool
}

// separations reports, per pair, the separation binary set in values and
// whether its touch indicator is on.
func (f *Formulation) separations(values []float64) []PairSeparation {
	out := make([]PairSeparation, 0, len(f.pairs))
	for _, pv := range f.pairs {
		ps := PairSeparation{Room: f.rooms[pv.i].spec.ID, Other: f.rooms[pv.j].spec.ID}
		best := -1.0
		for _, s := range separations {
			if v := values[pv.sep[s]]; v > best {
				best, ps.Separation = v, s
			}
		}
		ps.Touching = pv.hasTouch && values[pv.touch[ps.Separation]] > 0.5
		out = append(out, ps)
	}
	return out
}
