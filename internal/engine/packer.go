package engine

// maxRectsPacker places rectangles into a region by keeping the list of
// maximal free rectangles and splitting every one that a placement touches.
// Each placement reserves its size plus gap on the right and top, so two
// rooms never come closer than gap.
type maxRectsPacker struct {
	freeRects []rect
	gap       float64
}

type rect struct {
	x, y, w, h float64
}

const packEps = 1e-9

// newMaxRectsPacker covers a width x height region. The region is widened
// by gap so a room may end flush with the far edges.
func newMaxRectsPacker(width, height, gap float64) *maxRectsPacker {
	return &maxRectsPacker{
		freeRects: []rect{{0, 0, width + gap, height + gap}},
		gap:       gap,
	}
}

// insert places a w x h room in the free rectangle that wastes the least
// area, at that rectangle's lower-left corner.
func (mp *maxRectsPacker) insert(w, h float64) (bool, float64, float64) {
	bestIdx := -1
	bestAreaFit := float64(-1)
	wg := w + mp.gap
	hg := h + mp.gap

	for i, r := range mp.freeRects {
		if wg <= r.w+packEps && hg <= r.h+packEps {
			areaFit := r.w*r.h - w*h
			if bestIdx < 0 || areaFit < bestAreaFit {
				bestIdx = i
				bestAreaFit = areaFit
			}
		}
	}
	if bestIdx < 0 {
		return false, 0, 0
	}

	chosen := mp.freeRects[bestIdx]
	mp.splitAroundPlacement(rect{x: chosen.x, y: chosen.y, w: wg, h: hg})
	return true, chosen.x, chosen.y
}

// splitAroundPlacement replaces every free rectangle overlapping placed by
// the up to four maximal strips left around it.
func (mp *maxRectsPacker) splitAroundPlacement(placed rect) {
	var next []rect
	for _, r := range mp.freeRects {
		if !rectsOverlap(r, placed) {
			next = append(next, r)
			continue
		}
		if placed.x > r.x+packEps {
			next = append(next, rect{x: r.x, y: r.y, w: placed.x - r.x, h: r.h})
		}
		if placed.x+placed.w < r.x+r.w-packEps {
			next = append(next, rect{x: placed.x + placed.w, y: r.y, w: r.x + r.w - (placed.x + placed.w), h: r.h})
		}
		if placed.y > r.y+packEps {
			next = append(next, rect{x: r.x, y: r.y, w: r.w, h: placed.y - r.y})
		}
		if placed.y+placed.h < r.y+r.h-packEps {
			next = append(next, rect{x: r.x, y: placed.y + placed.h, w: r.w, h: r.y + r.h - (placed.y + placed.h)})
		}
	}
	mp.freeRects = pruneContained(next)
}

// bestFit returns the area a w x h room would waste without placing it, or
// -1 if it does not fit.
func (mp *maxRectsPacker) bestFit(w, h float64) float64 {
	wg := w + mp.gap
	hg := h + mp.gap
	best := float64(-1)
	for _, r := range mp.freeRects {
		if wg <= r.w+packEps && hg <= r.h+packEps {
			if fit := r.w*r.h - w*h; best < 0 || fit < best {
				best = fit
			}
		}
	}
	return best
}

// rectsOverlap reports a positive-area intersection; touching edges do not
// count.
func rectsOverlap(a, b rect) bool {
	return a.x < b.x+b.w-packEps && a.x+a.w > b.x+packEps &&
		a.y < b.y+b.h-packEps && a.y+a.h > b.y+packEps
}

func pruneContained(rects []rect) []rect {
	if len(rects) <= 1 {
		return rects
	}
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !containsRect(b, a) {
				continue
			}
			// Of two identical rectangles keep the first.
			if containsRect(a, b) && i < j {
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

func containsRect(outer, inner rect) bool {
	return outer.x <= inner.x+packEps && outer.y <= inner.y+packEps &&
		outer.x+outer.w >= inner.x+inner.w-packEps &&
		outer.y+outer.h >= inner.y+inner.h-packEps
}
