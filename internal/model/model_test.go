package model

import (
	"errors"
	"math"
	"testing"
)

func twoRoomInstance() Instance {
	in := NewInstance("pair", 10, 10)
	in.Rooms = []RoomSpec{NewRoom("a", 5, 5), NewRoom("b", 5, 5)}
	return in
}

func TestValidate_AcceptsSimpleInstance(t *testing.T) {
	if err := twoRoomInstance().Validate(); err != nil {
		t.Fatalf("expected valid instance, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Instance)
		field  string
	}{
		{"zero boundary", func(in *Instance) { in.Boundary.Width = 0 }, "boundary"},
		{"negative boundary", func(in *Instance) { in.Boundary.Height = -1 }, "boundary"},
		{"no rooms", func(in *Instance) { in.Rooms = nil }, "rooms"},
		{"duplicate id", func(in *Instance) { in.Rooms[1].ID = "a" }, ""},
		{"empty id", func(in *Instance) { in.Rooms[0].ID = "" }, "id"},
		{"min exceeds boundary", func(in *Instance) { in.Rooms[0].MinWidth = 11 }, "size"},
		{"min exceeds max", func(in *Instance) { in.Rooms[0].MaxWidth = 4 }, "width"},
		{"negative bound", func(in *Instance) { in.Rooms[0].MinHeight = -2 }, "min_height"},
		{"target too large", func(in *Instance) { in.Rooms[0].TargetArea = 101 }, "area"},
		{"target unreachable", func(in *Instance) {
			in.Rooms[0].MaxWidth = 6
			in.Rooms[0].MaxHeight = 6
			in.Rooms[0].TargetArea = 40
		}, "target_area"},
		{"aspect inverted", func(in *Instance) {
			in.Rooms[0].MinAspect = 2
			in.Rooms[0].MaxAspect = 1
		}, "aspect"},
		{"negative spacing", func(in *Instance) { in.Spacing = -0.1 }, "spacing"},
		{"self adjacency", func(in *Instance) { in.Rooms[0].Adjacency = map[string]float64{"a": 1} }, "adjacency"},
		{"unknown adjacency", func(in *Instance) { in.Rooms[0].Adjacency = map[string]float64{"zzz": 1} }, "adjacency"},
		{"unknown relation room", func(in *Instance) {
			in.Relations = []Relation{{Kind: RelationLeftOf, Room: "a", Other: "zzz"}}
		}, "relation left-of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := twoRoomInstance()
			tt.mutate(&in)
			err := in.Validate()
			var invalid *InvalidInstanceError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidInstanceError, got %v", err)
			}
			if tt.field != "" && invalid.Field != tt.field {
				t.Errorf("expected field %q, got %q (%v)", tt.field, invalid.Field, err)
			}
		})
	}
}

func TestValidate_SumOfAreasAboveBoundaryIsNotInvalid(t *testing.T) {
	in := NewInstance("crowded", 10, 10)
	for _, id := range []string{"a", "b", "c"} {
		in.Rooms = append(in.Rooms, RoomSpec{ID: id, TargetArea: 40})
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected crowded instance to validate, got %v", err)
	}
}

func TestRoomSpec_Ranges(t *testing.T) {
	b := Boundary{Width: 10, Height: 8}
	r := RoomSpec{ID: "r", MinWidth: 2, MaxWidth: 0, MinHeight: 1, MaxHeight: 20}

	lo, hi := r.WidthRange(b)
	if lo != 2 || hi != 10 {
		t.Errorf("expected width range [2,10], got [%g,%g]", lo, hi)
	}
	lo, hi = r.HeightRange(b)
	if lo != 1 || hi != 8 {
		t.Errorf("expected height range [1,8], got [%g,%g]", lo, hi)
	}

	r.TargetArea = 1
	if r.MinArea() != 2 {
		t.Errorf("expected min area 2, got %g", r.MinArea())
	}
}

func TestParseObjective(t *testing.T) {
	cases := map[string]ObjectiveKind{
		"unused":                   ObjectiveUnusedArea,
		"minimize-total-perimeter": ObjectivePerimeter,
		"adjacency":                ObjectiveAdjacency,
		"compact":                  ObjectiveEnvelope,
	}
	for in, want := range cases {
		got, err := ParseObjective(in)
		if err != nil || got != want {
			t.Errorf("ParseObjective(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseObjective("fastest"); !IsInvalidInstance(err) {
		t.Errorf("expected invalid objective error, got %v", err)
	}
	if !ObjectiveAdjacency.Maximize() || ObjectivePerimeter.Maximize() {
		t.Error("only the adjacency objective is maximized")
	}
	for _, k := range Objectives() {
		if k.Title() == string(k) {
			t.Errorf("objective %s has no title", k)
		}
	}
}

func TestRect_Overlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 5, Height: 5}
	touching := Rect{X: 5, Y: 0, Width: 5, Height: 5}
	crossing := Rect{X: 4, Y: 4, Width: 2, Height: 2}

	if a.Overlaps(touching) {
		t.Error("rects sharing an edge must not overlap")
	}
	if !a.Overlaps(crossing) {
		t.Error("expected overlap")
	}
	if got := a.OverlapArea(crossing); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected overlap area 1, got %g", got)
	}
}

func TestLayout_Metrics(t *testing.T) {
	l := NewLayout(Boundary{Width: 10, Height: 10})
	l.Place("a", Rect{X: 0, Y: 0, Width: 10, Height: 5})
	l.Place("b", Rect{X: 0, Y: 5, Width: 10, Height: 5})

	if l.UnusedArea() != 0 {
		t.Errorf("expected no unused area, got %g", l.UnusedArea())
	}
	if l.Efficiency() != 100 {
		t.Errorf("expected 100%% efficiency, got %g", l.Efficiency())
	}
	if l.TotalPerimeter() != 60 {
		t.Errorf("expected perimeter 60, got %g", l.TotalPerimeter())
	}
	if !l.WithinBoundary() {
		t.Error("expected layout within boundary")
	}
	if len(l.OverlappingPairs()) != 0 {
		t.Errorf("expected no overlaps, got %v", l.OverlappingPairs())
	}
	env := l.Envelope()
	if env.Width != 10 || env.Height != 10 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestLayout_PlaceKeepsOrder(t *testing.T) {
	l := NewLayout(Boundary{Width: 4, Height: 4})
	l.Place("b", Rect{Width: 1, Height: 1})
	l.Place("a", Rect{X: 2, Width: 1, Height: 1})
	l.Place("b", Rect{X: 1, Width: 1, Height: 1})

	if len(l.Order) != 2 || l.Order[0] != "b" || l.Order[1] != "a" {
		t.Errorf("unexpected order %v", l.Order)
	}
	if l.Rooms["b"].X != 1 {
		t.Error("expected replacement of existing room")
	}
}

func TestLayout_AdjacencyScore(t *testing.T) {
	in := NewInstance("adj", 10, 10)
	in.Rooms = []RoomSpec{
		{ID: "a", Adjacency: map[string]float64{"b": 2}},
		{ID: "b", Adjacency: map[string]float64{"a": 1}},
		{ID: "c", Adjacency: map[string]float64{"a": 5}},
	}
	l := NewLayout(in.Boundary)
	l.Place("a", Rect{X: 0, Y: 0, Width: 4, Height: 4})
	l.Place("b", Rect{X: 4, Y: 1, Width: 3, Height: 3})
	l.Place("c", Rect{X: 8, Y: 8, Width: 1, Height: 1})

	if got := l.AdjacencyScore(in, 1); got != 3 {
		t.Errorf("expected score 3, got %g", got)
	}
	if l.Adjacent("a", "b", 0, 3.5) {
		t.Error("contact of 3 must not satisfy a 3.5 minimum")
	}
}

func TestLayoutResult_Variants(t *testing.T) {
	solved := Solved(ObjectivePerimeter, NewLayout(Boundary{Width: 1, Height: 1}), true)
	if !solved.IsSolved() || solved.Err() != nil || !solved.Definitive() {
		t.Error("expected definitive solved result")
	}
	if !errors.Is(Infeasible(ObjectivePerimeter).Err(), ErrInfeasible) {
		t.Error("expected ErrInfeasible")
	}
	timedOut := TimedOutNoIncumbent(ObjectivePerimeter)
	if !errors.Is(timedOut.Err(), ErrTimedOut) || timedOut.Definitive() || timedOut.Layout != nil {
		t.Error("timed-out result must carry no layout and not be definitive")
	}
}

func TestInstance_CloneIsDeep(t *testing.T) {
	in := twoRoomInstance()
	in.Rooms[0].Adjacency = map[string]float64{"b": 1}
	cp := in.Clone()
	cp.Rooms[0].Adjacency["b"] = 9
	cp.Rooms[1].MinWidth = 1

	if in.Rooms[0].Adjacency["b"] != 1 || in.Rooms[1].MinWidth != 5 {
		t.Error("clone must not alias the original")
	}
	if in.AdjacencyWeight("a", "b") != 1 || in.AdjacencyWeight("b", "a") != 1 {
		t.Error("adjacency weight must be symmetric")
	}
}

func TestInvalidInstanceError_Message(t *testing.T) {
	err := &InvalidInstanceError{Room: "k", Field: "size", Reason: "too big"}
	if err.Error() != `invalid instance: room "k" size: too big` {
		t.Errorf("unexpected message %q", err.Error())
	}
	unavailable := &OracleUnavailableError{Driver: "x", Err: ErrTimedOut}
	if !errors.Is(unavailable, ErrTimedOut) || !IsOracleUnavailable(unavailable) {
		t.Error("expected wrapped error to unwrap")
	}
}
