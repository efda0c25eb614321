package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/RoomPlan/internal/model"
)

const gridEps = 1e-9

// widthGrid lists candidate widths from lo to hi at the given step, both
// ends included. When the step yields more than maxN points the grid is
// respaced evenly to exactly maxN.
func widthGrid(lo, hi, step float64, maxN int) []float64 {
	if hi-lo < gridEps {
		return []float64{lo}
	}
	n := int(math.Floor((hi-lo)/step+gridEps)) + 1
	if n > maxN || (n == maxN && lo+float64(n-1)*step < hi-gridEps) {
		out := make([]float64, maxN)
		for k := range out {
			out[k] = lo + (hi-lo)*float64(k)/float64(maxN-1)
		}
		out[maxN-1] = hi
		return out
	}
	out := make([]float64, 0, n+1)
	for k := 0; k < n; k++ {
		out = append(out, lo+float64(k)*step)
	}
	if out[len(out)-1] < hi-gridEps {
		out = append(out, hi)
	}
	return out
}

// heightRangeFor returns the heights room r may take at width c, honouring
// its target area and aspect range.
func heightRangeFor(r model.RoomSpec, c, minH, maxH float64) (float64, float64) {
	lo, hi := minH, maxH
	if r.TargetArea > 0 && c > 0 {
		lo = math.Max(lo, r.TargetArea/c)
	}
	if r.MaxAspect > 0 {
		lo = math.Max(lo, c/r.MaxAspect)
	}
	if r.MinAspect > 0 {
		hi = math.Min(hi, c/r.MinAspect)
	}
	return lo, hi
}

// feasibleWidths builds the width grid for room r. The grid spans the
// widths left open by the size bounds, the target area and the aspect range,
// so the narrowest admissible width is always a candidate. Candidates that
// admit no height meeting the target area and aspect range are dropped.
func feasibleWidths(r model.RoomSpec, b model.Boundary, step float64, maxN int) ([]gridCell, error) {
	minW, maxW := r.WidthRange(b)
	minH, maxH := r.HeightRange(b)
	field := "aspect"
	if r.TargetArea > 0 {
		field = "target_area"
	}

	lo, hi := minW, maxW
	if r.TargetArea > 0 && maxH > 0 {
		lo = math.Max(lo, r.TargetArea/maxH)
	}
	if r.MinAspect > 0 {
		lo = math.Max(lo, r.MinAspect*minH)
		if r.TargetArea > 0 {
			// h >= target/w and h <= w/MinAspect.
			lo = math.Max(lo, math.Sqrt(r.TargetArea*r.MinAspect))
		}
	}
	if r.MaxAspect > 0 {
		hi = math.Min(hi, r.MaxAspect*maxH)
	}
	if lo > hi+gridEps {
		return nil, &model.InvalidInstanceError{Room: r.ID, Field: field,
			Reason: fmt.Sprintf("needs width %g but at most %g fits", lo, hi)}
	}
	lo = math.Min(lo, hi)

	var cells []gridCell
	for _, c := range widthGrid(lo, hi, step, maxN) {
		hLo, hHi := heightRangeFor(r, c, minH, maxH)
		if hLo > hHi+gridEps {
			continue
		}
		cells = append(cells, gridCell{width: c, hMin: math.Min(hLo, hHi)})
	}
	if len(cells) == 0 {
		return nil, &model.InvalidInstanceError{Room: r.ID, Field: field,
			Reason: fmt.Sprintf("no width candidate in [%g, %g] satisfies the area and aspect bounds", lo, hi)}
	}
	return cells, nil
}
