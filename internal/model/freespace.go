package model

import (
	"sort"

	"github.com/google/uuid"
)

// FreeRegion is a maximal empty rectangle inside a solved layout's boundary.
// Regions may overlap each other.
type FreeRegion struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the area of the region.
func (f FreeRegion) Area() float64 {
	return f.Width * f.Height
}

// Rect returns the region as a Rect.
func (f FreeRegion) Rect() Rect {
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// DetectFreeRegions finds the maximal empty rectangles left in the layout.
// Regions narrower than minDimension in either direction are dropped.
func DetectFreeRegions(l Layout, minDimension float64) []FreeRegion {
	free := []Rect{{X: 0, Y: 0, Width: l.Boundary.Width, Height: l.Boundary.Height}}
	for _, id := range l.Order {
		room := l.Rooms[id]
		var next []Rect
		for _, f := range free {
			next = append(next, splitFree(f, room)...)
		}
		free = pruneContainedRects(next)
	}

	var regions []FreeRegion
	for _, f := range free {
		if f.Width < minDimension || f.Height < minDimension || f.Area() <= Tolerance {
			continue
		}
		regions = append(regions, FreeRegion{
			ID:     uuid.New().String()[:8],
			X:      f.X,
			Y:      f.Y,
			Width:  f.Width,
			Height: f.Height,
		})
	}

	// Largest first, then by position for stable output.
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Area() != regions[j].Area() {
			return regions[i].Area() > regions[j].Area()
		}
		if regions[i].Y != regions[j].Y {
			return regions[i].Y < regions[j].Y
		}
		return regions[i].X < regions[j].X
	})
	return regions
}

// LargestFreeRegion returns the biggest free region, if any.
func LargestFreeRegion(l Layout) (FreeRegion, bool) {
	regions := DetectFreeRegions(l, 0)
	if len(regions) == 0 {
		return FreeRegion{}, false
	}
	return regions[0], true
}

// splitFree returns the maximal sub-rectangles of f not covered by used.
func splitFree(f, used Rect) []Rect {
	if !f.Overlaps(used) {
		return []Rect{f}
	}
	var out []Rect
	if used.X > f.X+Tolerance {
		out = append(out, Rect{X: f.X, Y: f.Y, Width: used.X - f.X, Height: f.Height})
	}
	if used.Right() < f.Right()-Tolerance {
		out = append(out, Rect{X: used.Right(), Y: f.Y, Width: f.Right() - used.Right(), Height: f.Height})
	}
	if used.Y > f.Y+Tolerance {
		out = append(out, Rect{X: f.X, Y: f.Y, Width: f.Width, Height: used.Y - f.Y})
	}
	if used.Top() < f.Top()-Tolerance {
		out = append(out, Rect{X: f.X, Y: used.Top(), Width: f.Width, Height: f.Top() - used.Top()})
	}
	return out
}

// pruneContainedRects drops rects fully inside another. Of two identical
// rects the first is kept.
func pruneContainedRects(rects []Rect) []Rect {
	kept := make([]Rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !rectContains(b, a) {
				continue
			}
			if rectContains(a, b) && j > i {
				continue
			}
			contained = true
			break
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

func rectContains(outer, inner Rect) bool {
	return outer.X <= inner.X+Tolerance && outer.Y <= inner.Y+Tolerance &&
		outer.Right() >= inner.Right()-Tolerance && outer.Top() >= inner.Top()-Tolerance
}
