package dsl

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// EditKind names a change to a room's own bounds.
type EditKind string

const (
	EditWidth     EditKind = "width"      // Fix the width
	EditHeight    EditKind = "height"     // Fix the height
	EditMinArea   EditKind = "min-area"   // Raise the target area
	EditMinAspect EditKind = "min-aspect" // Raise the minimum width/height ratio
	EditMaxAspect EditKind = "max-aspect" // Lower the maximum width/height ratio
	EditAdjacency EditKind = "adjacency"  // Set the adjacency weight to Other
)

// RoomEdit changes a room's bounds.
type RoomEdit struct {
	Kind  EditKind
	Room  string
	Other string
	Value float64
}

// Rule is one compiled sentence: either a relation or a room edit.
type Rule struct {
	Text     string
	Relation *model.Relation
	Edit     *RoomEdit
}

func anchorOf(s string) model.Anchor {
	switch strings.ToLower(s) {
	case "middle", "center":
		return model.AnchorCenter
	}
	return model.Anchor(strings.ToLower(s))
}

func (s *Sentence) compile() (Rule, error) {
	if a := s.Align; a != nil {
		kind := model.RelationAlignHorizontal
		if strings.EqualFold(a.Direction, "vertically") {
			kind = model.RelationAlignVertical
		}
		rel := model.Relation{
			Kind:        kind,
			Room:        string(a.Room.ID),
			Other:       string(a.Other.ID),
			Anchor:      anchorOf(a.Anchor),
			OtherAnchor: anchorOf(a.OtherAnchor),
		}
		return Rule{Relation: &rel}, nil
	}

	r := s.About
	room := string(r.Room.ID)
	switch {
	case r.Pair != nil:
		other := string(r.Pair.Other.ID)
		if r.Pair.Aligned != nil {
			anchor := strings.ToLower(*r.Pair.Aligned)
			kind := model.RelationAlignHorizontal
			if anchor == "left" || anchor == "right" || anchor == "middle" {
				kind = model.RelationAlignVertical
			}
			rel := model.Relation{Kind: kind, Room: room, Other: other, Anchor: anchorOf(anchor), OtherAnchor: anchorOf(anchor)}
			return Rule{Relation: &rel}, nil
		}
		sym := r.Pair.Symmetric
		rel := model.Relation{Kind: model.RelationSymmetric, Room: room, Other: other, Axis: strings.ToLower(sym.Axis), Value: sym.Value}
		return Rule{Relation: &rel}, nil

	case r.Has != nil:
		h := r.Has
		switch {
		case h.Width != nil:
			return Rule{Edit: &RoomEdit{Kind: EditWidth, Room: room, Value: *h.Width}}, nil
		case h.Height != nil:
			return Rule{Edit: &RoomEdit{Kind: EditHeight, Room: room, Value: *h.Height}}, nil
		case h.Area != nil:
			return Rule{Edit: &RoomEdit{Kind: EditMinArea, Room: room, Value: *h.Area}}, nil
		}
		kind := EditMinAspect
		if strings.EqualFold(h.Aspect.Bound, "most") {
			kind = EditMaxAspect
		}
		return Rule{Edit: &RoomEdit{Kind: kind, Room: room, Value: h.Aspect.Value}}, nil

	case r.Is != nil:
		is := r.Is
		switch {
		case is.Position != nil:
			kind := model.RelationLeftOf
			if side := strings.ToLower(is.Position.Side); side == "below" || side == "bottom" {
				kind = model.RelationBelow
			}
			rel := model.Relation{Kind: kind, Room: room, Other: string(is.Position.Other.ID)}
			return Rule{Relation: &rel}, nil
		case is.Similar != nil:
			rel := model.Relation{Kind: model.RelationSimilar, Room: room, Other: string(is.Similar.Other.ID), Value: is.Similar.Scale}
			return Rule{Relation: &rel}, nil
		case is.Scaled != nil:
			rel := model.Relation{Kind: model.RelationSimilar, Room: room, Other: string(is.Scaled.Other.ID), Value: is.Scaled.Scale}
			return Rule{Relation: &rel}, nil
		}
		weight := 1.0
		if is.Adjacent.Weight != nil {
			weight = *is.Adjacent.Weight
		}
		return Rule{Edit: &RoomEdit{Kind: EditAdjacency, Room: room, Other: string(is.Adjacent.Other.ID), Value: weight}}, nil

	case r.Contains != nil:
		rel := model.Relation{Kind: model.RelationContainsPoint, Room: room, X: r.Contains.X, Y: r.Contains.Y}
		return Rule{Relation: &rel}, nil
	}
	return Rule{}, fmt.Errorf("empty sentence")
}

func rulesError(text string, err error) error {
	return &model.InvalidInstanceError{Field: "rules", Reason: fmt.Sprintf("%q: %v", strings.TrimSpace(text), err)}
}

// Parse compiles a single sentence.
func Parse(sentence string) (Rule, error) {
	rules, err := ParseAll(sentence)
	if err != nil {
		return Rule{}, err
	}
	if len(rules) != 1 {
		return Rule{}, rulesError(sentence, fmt.Errorf("expected one sentence, found %d", len(rules)))
	}
	return rules[0], nil
}

// ParseAll compiles every sentence in text.
func ParseAll(text string) ([]Rule, error) {
	script, err := ParseScript(text)
	if err != nil {
		return nil, rulesError(text, err)
	}
	lines := strings.Split(text, "\n")
	rules := make([]Rule, 0, len(script.Sentences))
	for _, s := range script.Sentences {
		rule, err := s.compile()
		if err != nil {
			return nil, rulesError(text, err)
		}
		if s.Pos.Line > 0 && s.Pos.Line <= len(lines) {
			rule.Text = strings.TrimSpace(lines[s.Pos.Line-1])
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Apply returns a copy of inst with the sentences applied. Edits must name
// known rooms; relations are checked later by Instance.Validate.
func Apply(inst model.Instance, sentences ...string) (model.Instance, error) {
	out := inst.Clone()
	for _, text := range sentences {
		rules, err := ParseAll(text)
		if err != nil {
			return model.Instance{}, err
		}
		for _, rule := range rules {
			if rule.Relation != nil {
				out.Relations = append(out.Relations, *rule.Relation)
				continue
			}
			if err := applyEdit(&out, *rule.Edit); err != nil {
				return model.Instance{}, err
			}
		}
	}
	return out, nil
}

// Compile applies inst.Rules and clears them, so compiling twice is a
// no-op.
func Compile(inst model.Instance) (model.Instance, error) {
	out, err := Apply(inst, inst.Rules...)
	if err != nil {
		return model.Instance{}, err
	}
	out.Rules = nil
	return out, nil
}

func applyEdit(inst *model.Instance, e RoomEdit) error {
	_, idx, ok := inst.Room(e.Room)
	if !ok {
		return &model.InvalidInstanceError{Room: e.Room, Field: "rules", Reason: "unknown room"}
	}
	r := &inst.Rooms[idx]
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return &model.InvalidInstanceError{Room: e.Room, Field: string(e.Kind), Reason: "must be a finite number"}
	}
	positive := func() error {
		if e.Value <= 0 {
			return &model.InvalidInstanceError{Room: e.Room, Field: string(e.Kind), Reason: fmt.Sprintf("must be positive, got %g", e.Value)}
		}
		return nil
	}

	switch e.Kind {
	case EditWidth:
		if err := positive(); err != nil {
			return err
		}
		r.MinWidth, r.MaxWidth = e.Value, e.Value
	case EditHeight:
		if err := positive(); err != nil {
			return err
		}
		r.MinHeight, r.MaxHeight = e.Value, e.Value
	case EditMinArea:
		if err := positive(); err != nil {
			return err
		}
		r.TargetArea = math.Max(r.TargetArea, e.Value)
	case EditMinAspect:
		if err := positive(); err != nil {
			return err
		}
		r.MinAspect = math.Max(r.MinAspect, e.Value)
	case EditMaxAspect:
		if err := positive(); err != nil {
			return err
		}
		if r.MaxAspect == 0 || e.Value < r.MaxAspect {
			r.MaxAspect = e.Value
		}
	case EditAdjacency:
		if _, _, ok := inst.Room(e.Other); !ok {
			return &model.InvalidInstanceError{Room: e.Room, Field: "rules", Reason: fmt.Sprintf("unknown room %q", e.Other)}
		}
		if r.Adjacency == nil {
			r.Adjacency = map[string]float64{}
		}
		r.Adjacency[e.Other] = e.Value
	}
	return nil
}

// String renders an edit as a sentence that parses back to it.
func (e RoomEdit) String() string {
	room := model.QuoteID(e.Room)
	switch e.Kind {
	case EditWidth:
		return fmt.Sprintf("room %s has width of %g", room, e.Value)
	case EditHeight:
		return fmt.Sprintf("room %s has height of %g", room, e.Value)
	case EditMinArea:
		return fmt.Sprintf("room %s has area of at least %g", room, e.Value)
	case EditMinAspect:
		return fmt.Sprintf("room %s has aspect ratio of at least %g", room, e.Value)
	case EditMaxAspect:
		return fmt.Sprintf("room %s has aspect ratio of at most %g", room, e.Value)
	case EditAdjacency:
		return fmt.Sprintf("room %s is adjacent to room %s with weight %g", room, model.QuoteID(e.Other), e.Value)
	}
	return string(e.Kind)
}
