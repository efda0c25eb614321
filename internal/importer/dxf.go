package importer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/RoomPlan/internal/model"
)

type point struct{ X, Y float64 }

// outline is a closed polygon, optionally named by its DXF layer.
type outline struct {
	layer  string
	points []point
}

// segment represents a line segment between two 2D points, used for
// chaining disconnected LINE entities into closed outlines.
type segment struct {
	start, end point
	layer      string
}

// DXFOptions controls how outlines map onto the instance.
type DXFOptions struct {
	// BoundaryFromLargest turns the largest outline into the boundary when it
	// contains every other outline.
	BoundaryFromLargest bool
	// Tolerance joins LINE endpoints closer than this; 0 means 0.01.
	Tolerance float64
}

// ImportDXF reads closed LWPOLYLINEs and chains of LINEs/ARCs. Each outline
// becomes a room with its bounding box as fixed size. Outlines on a named
// layer (other than "0") take the layer name as room ID.
func ImportDXF(path string, opts DXFOptions) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}
	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var outlines []outline
	var segments []segment
	for _, ent := range entities {
		layer := layerName(ent)
		switch e := ent.(type) {
		case *entity.LwPolyline:
			o := lwPolylineToOutline(e)
			if len(o) >= 3 {
				outlines = append(outlines, outline{layer: layer, points: o})
			} else {
				result.Warnings = append(result.Warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
			}
		case *entity.Arc:
			pts := arcToPoints(e, 16)
			for i := 0; i+1 < len(pts); i++ {
				segments = append(segments, segment{start: pts[i], end: pts[i+1], layer: layer})
			}
		case *entity.Line:
			segments = append(segments, segment{
				start: point{e.Start[0], e.Start[1]},
				end:   point{e.End[0], e.End[1]},
				layer: layer,
			})
		}
	}

	tol := opts.Tolerance
	if tol <= 0 {
		tol = 0.01
	}
	outlines = append(outlines, chainSegments(segments, tol)...)
	if len(outlines) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	// Largest first for a stable order.
	sort.SliceStable(outlines, func(i, j int) bool {
		return polygonArea(outlines[i].points) > polygonArea(outlines[j].points)
	})

	if opts.BoundaryFromLargest && len(outlines) > 1 {
		outer := boundingBox(outlines[0].points)
		inside := true
		for _, o := range outlines[1:] {
			if !rectContainsRect(outer, boundingBox(o.points)) {
				inside = false
				break
			}
		}
		if inside {
			result.Boundary = &model.Boundary{Width: outer.Width, Height: outer.Height}
			outlines = outlines[1:]
		} else {
			result.Warnings = append(result.Warnings, "Largest outline does not contain the others, no boundary taken")
		}
	}

	seen := map[string]bool{}
	for i, o := range outlines {
		box := boundingBox(o.points)
		if box.Width < 0.01 || box.Height < 0.01 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", box.Width, box.Height))
			continue
		}
		id := o.layer
		if id == "" || id == "0" || seen[id] {
			id = fmt.Sprintf("dxf-%d", i+1)
		}
		seen[id] = true

		room := model.NewRoom(id, box.Width, box.Height)
		room.MaxWidth, room.MaxHeight = box.Width, box.Height
		if fill := polygonArea(o.points) / box.Area(); fill < 0.99 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Room %s is not rectangular (%.0f%% of its bounding box), using the bounding box", id, fill*100))
		}
		result.Rooms = append(result.Rooms, room)
	}
	return result
}

func layerName(e entity.Entity) string {
	l := e.Layer()
	if l == nil {
		return ""
	}
	return strings.TrimSpace(l.Name())
}

// lwPolylineToOutline converts a LWPOLYLINE into its vertex list. Bulges are
// replaced by interpolated arc points.
func lwPolylineToOutline(lw *entity.LwPolyline) []point {
	var out []point
	for i, v := range lw.Vertices {
		current := point{v[0], v[1]}
		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}
		if math.Abs(bulge) > 1e-9 {
			nv := lw.Vertices[(i+1)%len(lw.Vertices)]
			arc := bulgeArcPoints(current, point{nv[0], nv[1]}, bulge, 16)
			out = append(out, arc[:len(arc)-1]...)
			continue
		}
		out = append(out, current)
	}
	return out
}

// bulgeArcPoints generates points along an arc defined by two endpoints and a
// DXF bulge factor, the tangent of a quarter of the included angle.
func bulgeArcPoints(p1, p2 point, bulge float64, n int) []point {
	mx, my := (p1.X+p2.X)/2, (p1.Y+p2.Y)/2
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	chord := math.Hypot(dx, dy)
	if chord < 1e-9 {
		return []point{p1, p2}
	}

	sagitta := math.Abs(bulge) * chord / 2
	radius := (chord*chord/(4*sagitta) + sagitta) / 2
	perpX, perpY := -dy/chord, dx/chord
	if bulge > 0 {
		perpX, perpY = -perpX, -perpY
	}
	dist := radius - sagitta
	cx, cy := mx+perpX*dist, my+perpY*dist

	start := math.Atan2(p1.Y-cy, p1.X-cx)
	end := math.Atan2(p2.Y-cy, p2.X-cx)
	if bulge < 0 && end > start {
		end -= 2 * math.Pi
	}
	if bulge > 0 && end < start {
		end += 2 * math.Pi
	}

	pts := make([]point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + float64(i)/float64(n)*(end-start)
		pts = append(pts, point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	return pts
}

// arcToPoints converts an ARC entity to a polyline; DXF angles are degrees
// counter-clockwise.
func arcToPoints(a *entity.Arc, n int) []point {
	cx, cy, r := a.Circle.Center[0], a.Circle.Center[1], a.Circle.Radius
	start := a.Angle[0] * math.Pi / 180
	end := a.Angle[1] * math.Pi / 180
	if end <= start {
		end += 2 * math.Pi
	}
	pts := make([]point, n+1)
	for i := range pts {
		angle := start + float64(i)/float64(n)*(end-start)
		pts[i] = point{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}
	return pts
}

// chainSegments connects segments into closed outlines. Open chains are
// dropped.
func chainSegments(segs []segment, tolerance float64) []outline {
	used := make([]bool, len(segs))
	var out []outline

	for start := range segs {
		if used[start] {
			continue
		}
		used[start] = true
		chain := []point{segs[start].start, segs[start].end}

		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, seg := range segs {
				if used[i] {
					continue
				}
				switch {
				case pointsClose(tail, seg.start, tolerance):
					chain = append(chain, seg.end)
				case pointsClose(tail, seg.end, tolerance):
					chain = append(chain, seg.start)
				default:
					continue
				}
				used[i] = true
				extended = true
				break
			}
		}

		if len(chain) >= 4 && pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			out = append(out, outline{layer: segs[start].layer, points: chain[:len(chain)-1]})
		}
	}
	return out
}

func pointsClose(a, b point, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tolerance
}

// polygonArea is the shoelace area.
func polygonArea(pts []point) float64 {
	var area float64
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(area) / 2
}

func boundingBox(pts []point) model.Rect {
	if len(pts) == 0 {
		return model.Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return model.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func rectContainsRect(outer, inner model.Rect) bool {
	const tol = 1e-6
	return inner.X >= outer.X-tol && inner.Y >= outer.Y-tol &&
		inner.Right() <= outer.Right()+tol && inner.Top() <= outer.Top()+tol
}
