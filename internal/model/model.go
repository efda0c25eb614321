package model

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Tolerance is the numeric precision of decoded layouts. Coordinates are
// rounded to it and geometric checks allow it as slack.
const Tolerance = 1e-6

// Boundary is the outer rectangle every room must fit inside.
type Boundary struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Area returns the boundary area.
func (b Boundary) Area() float64 {
	return b.Width * b.Height
}

// RoomSpec describes one room to place. A zero MaxWidth or MaxHeight means
// the room may grow up to the boundary. Aspect ratios are width/height.
type RoomSpec struct {
	ID         string             `json:"id" toml:"id"`
	Label      string             `json:"label,omitempty" toml:"label,omitempty"`
	MinWidth   float64            `json:"min_width" toml:"min_width"`
	MaxWidth   float64            `json:"max_width,omitempty" toml:"max_width,omitempty"`
	MinHeight  float64            `json:"min_height" toml:"min_height"`
	MaxHeight  float64            `json:"max_height,omitempty" toml:"max_height,omitempty"`
	TargetArea float64            `json:"target_area,omitempty" toml:"target_area,omitempty"`
	MinAspect  float64            `json:"min_aspect,omitempty" toml:"min_aspect,omitempty"`
	MaxAspect  float64            `json:"max_aspect,omitempty" toml:"max_aspect,omitempty"`
	Adjacency  map[string]float64 `json:"adjacency,omitempty" toml:"adjacency,omitempty"`
	Color      string             `json:"color,omitempty" toml:"color,omitempty"` // Hex fill for drawings, e.g. "#a3c4f3"
}

func NewRoom(id string, minW, minH float64) RoomSpec {
	return RoomSpec{
		ID:        id,
		Label:     id,
		MinWidth:  minW,
		MinHeight: minH,
	}
}

// DisplayName returns the label, falling back to the identifier.
func (r RoomSpec) DisplayName() string {
	if r.Label != "" {
		return r.Label
	}
	return r.ID
}

// WidthRange returns the effective width bounds inside boundary b.
func (r RoomSpec) WidthRange(b Boundary) (float64, float64) {
	hi := b.Width
	if r.MaxWidth > 0 && r.MaxWidth < hi {
		hi = r.MaxWidth
	}
	return r.MinWidth, hi
}

// HeightRange returns the effective height bounds inside boundary b.
func (r RoomSpec) HeightRange(b Boundary) (float64, float64) {
	hi := b.Height
	if r.MaxHeight > 0 && r.MaxHeight < hi {
		hi = r.MaxHeight
	}
	return r.MinHeight, hi
}

// MinArea is the smallest area any placement of the room can have.
func (r RoomSpec) MinArea() float64 {
	return math.Max(r.TargetArea, r.MinWidth*r.MinHeight)
}

// Instance is one floor-planning problem.
type Instance struct {
	ID        string     `json:"id,omitempty" toml:"id,omitempty"`
	Name      string     `json:"name" toml:"name"`
	Boundary  Boundary   `json:"boundary" toml:"boundary"`
	Spacing   float64    `json:"spacing,omitempty" toml:"spacing,omitempty"`
	Rooms     []RoomSpec `json:"rooms" toml:"rooms"`
	Relations []Relation `json:"relations,omitempty" toml:"relations,omitempty"`
	// Rules holds constraint sentences not yet compiled into Relations.
	Rules []string `json:"rules,omitempty" toml:"rules,omitempty"`
}

func NewInstance(name string, width, height float64) Instance {
	return Instance{
		ID:       uuid.New().String()[:8],
		Name:     name,
		Boundary: Boundary{Width: width, Height: height},
		Rooms:    []RoomSpec{},
	}
}

// Room looks up a room by identifier.
func (in Instance) Room(id string) (RoomSpec, int, bool) {
	for i, r := range in.Rooms {
		if r.ID == id {
			return r, i, true
		}
	}
	return RoomSpec{}, -1, false
}

// RoomIDs returns the room identifiers in input order.
func (in Instance) RoomIDs() []string {
	ids := make([]string, len(in.Rooms))
	for i, r := range in.Rooms {
		ids[i] = r.ID
	}
	return ids
}

// AdjacencyWeight is the combined preference between rooms a and b, summing
// both directions.
func (in Instance) AdjacencyWeight(a, b string) float64 {
	var w float64
	if ra, _, ok := in.Room(a); ok {
		w += ra.Adjacency[b]
	}
	if rb, _, ok := in.Room(b); ok {
		w += rb.Adjacency[a]
	}
	return w
}

// Clone returns a deep copy so callers can edit rooms without aliasing.
func (in Instance) Clone() Instance {
	out := in
	out.Rooms = make([]RoomSpec, len(in.Rooms))
	for i, r := range in.Rooms {
		cp := r
		if r.Adjacency != nil {
			cp.Adjacency = make(map[string]float64, len(r.Adjacency))
			for k, v := range r.Adjacency {
				cp.Adjacency[k] = v
			}
		}
		out.Rooms[i] = cp
	}
	out.Relations = append([]Relation(nil), in.Relations...)
	out.Rules = append([]string(nil), in.Rules...)
	return out
}

// ObjectiveKind selects what the layout optimizes.
type ObjectiveKind string

const (
	ObjectiveUnusedArea ObjectiveKind = "minimize-unused-area"
	ObjectivePerimeter  ObjectiveKind = "minimize-total-perimeter"
	ObjectiveAdjacency  ObjectiveKind = "maximize-adjacency-score"
	ObjectiveEnvelope   ObjectiveKind = "minimize-envelope" // Perimeter of the box enclosing all rooms
)

// Objectives lists every supported objective.
func Objectives() []ObjectiveKind {
	return []ObjectiveKind{ObjectiveUnusedArea, ObjectivePerimeter, ObjectiveAdjacency, ObjectiveEnvelope}
}

func (k ObjectiveKind) Valid() bool {
	for _, o := range Objectives() {
		if o == k {
			return true
		}
	}
	return false
}

// Title is the human-readable name used in reports.
func (k ObjectiveKind) Title() string {
	switch k {
	case ObjectiveUnusedArea:
		return "Minimize Unused Area"
	case ObjectivePerimeter:
		return "Minimize Total Perimeter"
	case ObjectiveAdjacency:
		return "Maximize Adjacency"
	case ObjectiveEnvelope:
		return "Minimize Envelope"
	}
	return string(k)
}

// Maximize reports whether larger objective values are better.
func (k ObjectiveKind) Maximize() bool {
	return k == ObjectiveAdjacency
}

// ParseObjective accepts the canonical names plus short aliases.
func ParseObjective(s string) (ObjectiveKind, error) {
	switch s {
	case "unused", "unused-area", "area":
		return ObjectiveUnusedArea, nil
	case "perimeter":
		return ObjectivePerimeter, nil
	case "adjacency":
		return ObjectiveAdjacency, nil
	case "envelope", "compact":
		return ObjectiveEnvelope, nil
	}
	k := ObjectiveKind(s)
	if !k.Valid() {
		return "", &InvalidInstanceError{Field: "objective", Reason: "unknown objective " + s}
	}
	return k, nil
}

// Rect is a placed room rectangle with its bottom-left corner at (X, Y).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

func (r Rect) Right() float64     { return r.X + r.Width }
func (r Rect) Top() float64       { return r.Y + r.Height }
func (r Rect) Area() float64      { return r.Width * r.Height }
func (r Rect) Perimeter() float64 { return 2 * (r.Width + r.Height) }
func (r Rect) CenterX() float64   { return r.X + r.Width/2 }
func (r Rect) CenterY() float64   { return r.Y + r.Height/2 }

// OverlapArea returns the area shared by r and o.
func (r Rect) OverlapArea(o Rect) float64 {
	dx := math.Min(r.Right(), o.Right()) - math.Max(r.X, o.X)
	dy := math.Min(r.Top(), o.Top()) - math.Max(r.Y, o.Y)
	if dx <= Tolerance || dy <= Tolerance {
		return 0
	}
	return dx * dy
}

// Overlaps reports a positive-area intersection beyond Tolerance.
func (r Rect) Overlaps(o Rect) bool {
	return r.OverlapArea(o) > 0
}

// ContainsPoint reports whether (px, py) lies in r, edges included.
func (r Rect) ContainsPoint(px, py float64) bool {
	return px >= r.X-Tolerance && px <= r.Right()+Tolerance &&
		py >= r.Y-Tolerance && py <= r.Top()+Tolerance
}

// Within reports whether r lies inside boundary b.
func (r Rect) Within(b Boundary) bool {
	return r.X >= -Tolerance && r.Y >= -Tolerance &&
		r.Right() <= b.Width+Tolerance && r.Top() <= b.Height+Tolerance
}

// Layout maps room identifiers to placed rectangles.
type Layout struct {
	Boundary Boundary        `json:"boundary"`
	Order    []string        `json:"order"`
	Rooms    map[string]Rect `json:"rooms"`
}

func NewLayout(b Boundary) Layout {
	return Layout{Boundary: b, Rooms: map[string]Rect{}}
}

// Place records room id at rect r, keeping insertion order.
func (l *Layout) Place(id string, r Rect) {
	if l.Rooms == nil {
		l.Rooms = map[string]Rect{}
	}
	if _, ok := l.Rooms[id]; !ok {
		l.Order = append(l.Order, id)
	}
	l.Rooms[id] = r
}

// Rect returns the rectangle of room id.
func (l Layout) Rect(id string) (Rect, bool) {
	r, ok := l.Rooms[id]
	return r, ok
}

// UsedArea returns the summed room area.
func (l Layout) UsedArea() float64 {
	var area float64
	for _, r := range l.Rooms {
		area += r.Area()
	}
	return area
}

// UnusedArea returns boundary area not covered by any room.
func (l Layout) UnusedArea() float64 {
	unused := l.Boundary.Area() - l.UsedArea()
	if math.Abs(unused) < Tolerance {
		return 0
	}
	return unused
}

// Efficiency returns the usage percentage.
func (l Layout) Efficiency() float64 {
	total := l.Boundary.Area()
	if total == 0 {
		return 0
	}
	return l.UsedArea() / total * 100
}

// TotalPerimeter sums 2(w+h) over all rooms.
func (l Layout) TotalPerimeter() float64 {
	var p float64
	for _, r := range l.Rooms {
		p += r.Perimeter()
	}
	return p
}

// Envelope returns the smallest rectangle anchored at the origin that holds
// every room.
func (l Layout) Envelope() Rect {
	var env Rect
	for _, r := range l.Rooms {
		env.Width = math.Max(env.Width, r.Right())
		env.Height = math.Max(env.Height, r.Top())
	}
	return env
}

// OverlappingPairs lists room pairs sharing positive area.
func (l Layout) OverlappingPairs() [][2]string {
	var pairs [][2]string
	for i, a := range l.Order {
		for _, b := range l.Order[i+1:] {
			if l.Rooms[a].Overlaps(l.Rooms[b]) {
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	return pairs
}

// WithinBoundary reports whether every room lies inside the boundary.
func (l Layout) WithinBoundary() bool {
	for _, r := range l.Rooms {
		if !r.Within(l.Boundary) {
			return false
		}
	}
	return true
}

// Adjacent reports whether rooms a and b face each other across a gap of at
// most spacing with a shared edge projection of at least minContact.
func (l Layout) Adjacent(a, b string, spacing, minContact float64) bool {
	ra, okA := l.Rooms[a]
	rb, okB := l.Rooms[b]
	if !okA || !okB {
		return false
	}
	overlapY := math.Min(ra.Top(), rb.Top()) - math.Max(ra.Y, rb.Y)
	overlapX := math.Min(ra.Right(), rb.Right()) - math.Max(ra.X, rb.X)
	gapX := math.Max(rb.X-ra.Right(), ra.X-rb.Right())
	gapY := math.Max(rb.Y-ra.Top(), ra.Y-rb.Top())
	if gapX >= -Tolerance && gapX <= spacing+Tolerance && overlapY >= minContact-Tolerance {
		return true
	}
	return gapY >= -Tolerance && gapY <= spacing+Tolerance && overlapX >= minContact-Tolerance
}

// AdjacencyScore sums the instance's adjacency weights over adjacent pairs.
func (l Layout) AdjacencyScore(in Instance, minContact float64) float64 {
	var score float64
	ids := in.RoomIDs()
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			w := in.AdjacencyWeight(a, b)
			if w != 0 && l.Adjacent(a, b, in.Spacing, minContact) {
				score += w
			}
		}
	}
	return score
}

// SortedIDs returns room identifiers ordered by area descending, then id.
func (l Layout) SortedIDs() []string {
	ids := append([]string(nil), l.Order...)
	sort.SliceStable(ids, func(i, j int) bool {
		ai, aj := l.Rooms[ids[i]].Area(), l.Rooms[ids[j]].Area()
		if ai != aj {
			return ai > aj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ResultStatus tags the outcome of a solve.
type ResultStatus string

const (
	StatusSolved     ResultStatus = "solved"
	StatusInfeasible ResultStatus = "infeasible"
	StatusTimedOut   ResultStatus = "timed-out"
)

// SolveStats describes the work behind a result.
type SolveStats struct {
	Oracle      string        `json:"oracle"`
	Nodes       int           `json:"nodes"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Variables   int           `json:"variables"`
	Binaries    int           `json:"binaries"`
	Constraints int           `json:"constraints"`
	WarmStart   bool          `json:"warm_start"`
}

// LayoutResult is the outcome of one solve: solved with a layout, proven
// infeasible, or timed out without any feasible layout.
type LayoutResult struct {
	Status           ResultStatus  `json:"status"`
	Objective        ObjectiveKind `json:"objective_kind"`
	Layout           *Layout       `json:"layout,omitempty"`
	CertifiedOptimal bool          `json:"certified_optimal"`
	ObjectiveValue   float64       `json:"objective"`
	Bound            float64       `json:"bound"` // meaningful only when Gap >= 0
	Gap              float64       `json:"gap"`   // -1 when no finite bound is known
	Stats            SolveStats    `json:"stats"`
}

// Solved wraps a decoded layout.
func Solved(kind ObjectiveKind, layout Layout, certified bool) LayoutResult {
	return LayoutResult{Status: StatusSolved, Objective: kind, Layout: &layout, CertifiedOptimal: certified}
}

// Infeasible is the result for instances proven impossible.
func Infeasible(kind ObjectiveKind) LayoutResult {
	return LayoutResult{Status: StatusInfeasible, Objective: kind}
}

// TimedOutNoIncumbent is the result when the budget ran out before any
// feasible layout was found.
func TimedOutNoIncumbent(kind ObjectiveKind) LayoutResult {
	return LayoutResult{Status: StatusTimedOut, Objective: kind}
}

func (r LayoutResult) IsSolved() bool {
	return r.Status == StatusSolved && r.Layout != nil
}

// Err maps the non-solved variants onto sentinel errors.
func (r LayoutResult) Err() error {
	switch r.Status {
	case StatusInfeasible:
		return ErrInfeasible
	case StatusTimedOut:
		return ErrTimedOut
	}
	return nil
}

// Definitive reports whether re-solving could not change the outcome.
func (r LayoutResult) Definitive() bool {
	return r.Status == StatusInfeasible || (r.IsSolved() && r.CertifiedOptimal)
}
