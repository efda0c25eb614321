package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// RelationKind names a geometric constraint between rooms.
type RelationKind string

const (
	RelationLeftOf          RelationKind = "left-of"          // Room lies left of Other
	RelationBelow           RelationKind = "below"            // Room lies below Other
	RelationAlignHorizontal RelationKind = "align-horizontal" // Anchor of Room level with OtherAnchor of Other
	RelationAlignVertical   RelationKind = "align-vertical"
	RelationSymmetric       RelationKind = "symmetric"      // Centers mirror through Axis=Value
	RelationSimilar         RelationKind = "similar"        // Room dims are Value times Other dims
	RelationContainsPoint   RelationKind = "contains-point" // Room covers (X, Y)
)

// Anchor selects an edge or the center line of a room.
type Anchor string

const (
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
	AnchorCenter Anchor = "center"
)

// Relation is a constraint between one or two rooms.
type Relation struct {
	Kind        RelationKind `json:"kind" toml:"kind"`
	Room        string       `json:"room" toml:"room"`
	Other       string       `json:"other,omitempty" toml:"other,omitempty"`
	Anchor      Anchor       `json:"anchor,omitempty" toml:"anchor,omitempty"`
	OtherAnchor Anchor       `json:"other_anchor,omitempty" toml:"other_anchor,omitempty"`
	Axis        string       `json:"axis,omitempty" toml:"axis,omitempty"`
	Value       float64      `json:"value,omitempty" toml:"value,omitempty"`
	X           float64      `json:"x,omitempty" toml:"x,omitempty"`
	Y           float64      `json:"y,omitempty" toml:"y,omitempty"`
}

func (r Relation) pairwise() bool {
	return r.Kind != RelationContainsPoint
}

func horizontalAnchor(a Anchor) bool {
	return a == AnchorTop || a == AnchorBottom || a == AnchorCenter
}

func verticalAnchor(a Anchor) bool {
	return a == AnchorLeft || a == AnchorRight || a == AnchorCenter
}

// Validate checks the relation against the set of known room identifiers.
func (r Relation) Validate(known func(string) bool) error {
	fail := func(reason string) error {
		return &InvalidInstanceError{Room: r.Room, Field: "relation " + string(r.Kind), Reason: reason}
	}
	if !known(r.Room) {
		return fail("unknown room")
	}
	if r.pairwise() {
		if !known(r.Other) {
			return fail(fmt.Sprintf("unknown room %q", r.Other))
		}
		if r.Other == r.Room {
			return fail("relation needs two different rooms")
		}
	}
	switch r.Kind {
	case RelationLeftOf, RelationBelow:
	case RelationAlignHorizontal:
		if !horizontalAnchor(r.Anchor) || !horizontalAnchor(r.OtherAnchor) {
			return fail("horizontal alignment uses top, center or bottom")
		}
	case RelationAlignVertical:
		if !verticalAnchor(r.Anchor) || !verticalAnchor(r.OtherAnchor) {
			return fail("vertical alignment uses left, center or right")
		}
	case RelationSymmetric:
		if r.Axis != "x" && r.Axis != "y" {
			return fail("axis must be x or y")
		}
	case RelationSimilar:
		if !(r.Value > 0) || math.IsInf(r.Value, 0) {
			return fail("scale must be positive")
		}
	case RelationContainsPoint:
	default:
		return fail("unknown relation kind")
	}
	return nil
}

// AnchorValue returns the coordinate of anchor a on rect r. Center resolves
// along the axis implied by horizontal.
func AnchorValue(r Rect, a Anchor, horizontal bool) float64 {
	switch a {
	case AnchorLeft:
		return r.X
	case AnchorRight:
		return r.Right()
	case AnchorBottom:
		return r.Y
	case AnchorTop:
		return r.Top()
	}
	if horizontal {
		return r.CenterY()
	}
	return r.CenterX()
}

// Satisfied reports whether layout l honours the relation, with tolerance.
func (r Relation) Satisfied(l Layout, spacing float64) bool {
	const tol = 1e-5
	a, ok := l.Rooms[r.Room]
	if !ok {
		return false
	}
	b := l.Rooms[r.Other]
	switch r.Kind {
	case RelationLeftOf:
		return a.Right()+spacing <= b.X+tol
	case RelationBelow:
		return a.Top()+spacing <= b.Y+tol
	case RelationAlignHorizontal:
		return math.Abs(AnchorValue(a, r.Anchor, true)-AnchorValue(b, r.OtherAnchor, true)) <= tol
	case RelationAlignVertical:
		return math.Abs(AnchorValue(a, r.Anchor, false)-AnchorValue(b, r.OtherAnchor, false)) <= tol
	case RelationSymmetric:
		if r.Axis == "x" {
			return math.Abs(a.CenterX()+b.CenterX()-2*r.Value) <= tol
		}
		return math.Abs(a.CenterY()+b.CenterY()-2*r.Value) <= tol
	case RelationSimilar:
		return math.Abs(a.Width-r.Value*b.Width) <= tol && math.Abs(a.Height-r.Value*b.Height) <= tol
	case RelationContainsPoint:
		return a.ContainsPoint(r.X, r.Y)
	}
	return false
}

var bareID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)

// QuoteID returns id as it must appear in a constraint sentence.
func QuoteID(id string) string {
	if bareID.MatchString(id) {
		return id
	}
	return strconv.Quote(id)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// String renders the relation as a constraint sentence.
func (r Relation) String() string {
	switch r.Kind {
	case RelationLeftOf:
		return fmt.Sprintf("room %s is to the left of room %s", QuoteID(r.Room), QuoteID(r.Other))
	case RelationBelow:
		return fmt.Sprintf("room %s is to the bottom of room %s", QuoteID(r.Room), QuoteID(r.Other))
	case RelationAlignHorizontal:
		return fmt.Sprintf("%s of room %s aligns horizontally with %s of room %s", r.Anchor, QuoteID(r.Room), r.OtherAnchor, QuoteID(r.Other))
	case RelationAlignVertical:
		return fmt.Sprintf("%s of room %s aligns vertically with %s of room %s", r.Anchor, QuoteID(r.Room), r.OtherAnchor, QuoteID(r.Other))
	case RelationSymmetric:
		return fmt.Sprintf("room %s and room %s are symmetric through axis %s = %s", QuoteID(r.Room), QuoteID(r.Other), r.Axis, num(r.Value))
	case RelationSimilar:
		return fmt.Sprintf("room %s is %s-scaled translate of room %s", QuoteID(r.Room), num(r.Value), QuoteID(r.Other))
	case RelationContainsPoint:
		return fmt.Sprintf("room %s contains a point (%s, %s)", QuoteID(r.Room), num(r.X), num(r.Y))
	}
	return string(r.Kind)
}
