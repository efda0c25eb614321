package engine

import (
	"github.com/piwi3910/RoomPlan/internal/mip"
	"github.com/piwi3910/RoomPlan/internal/model"
)

func (f *Formulation) roomByID(id string) *roomVars {
	for i := range f.rooms {
		if f.rooms[i].spec.ID == id {
			return &f.rooms[i]
		}
	}
	return nil
}

// anchorExpr is the coordinate of anchor a on room rv. Center resolves to
// the vertical center line for horizontal alignment and the horizontal one
// otherwise.
func anchorExpr(rv *roomVars, a model.Anchor, horizontal bool) mip.Expr {
	switch a {
	case model.AnchorLeft:
		return mip.Sum(mip.T(rv.x, 1))
	case model.AnchorRight:
		return mip.Sum(mip.T(rv.x, 1), mip.T(rv.w, 1))
	case model.AnchorBottom:
		return mip.Sum(mip.T(rv.y, 1))
	case model.AnchorTop:
		return mip.Sum(mip.T(rv.y, 1), mip.T(rv.h, 1))
	}
	if horizontal {
		return mip.Sum(mip.T(rv.y, 1), mip.T(rv.h, 0.5))
	}
	return mip.Sum(mip.T(rv.x, 1), mip.T(rv.w, 0.5))
}

// addRelation emits the rows for one relation. Relations were validated
// with the instance, so both rooms exist.
func (f *Formulation) addRelation(rel model.Relation) {
	m := f.model
	a := f.roomByID(rel.Room)
	b := f.roomByID(rel.Other)
	p := f.inst.Spacing
	name := rel.String()

	switch rel.Kind {
	case model.RelationLeftOf:
		m.AddLE(name, mip.Sum(mip.T(a.x, 1), mip.T(a.w, 1), mip.T(b.x, -1)), -p)

	case model.RelationBelow:
		m.AddLE(name, mip.Sum(mip.T(a.y, 1), mip.T(a.h, 1), mip.T(b.y, -1)), -p)

	case model.RelationAlignHorizontal, model.RelationAlignVertical:
		horizontal := rel.Kind == model.RelationAlignHorizontal
		e := anchorExpr(a, rel.Anchor, horizontal).PlusExpr(anchorExpr(b, rel.OtherAnchor, horizontal), -1)
		m.AddEQ(name, e, 0)

	case model.RelationSymmetric:
		var e mip.Expr
		if rel.Axis == "x" {
			e = mip.Sum(mip.T(a.x, 1), mip.T(a.w, 0.5), mip.T(b.x, 1), mip.T(b.w, 0.5))
		} else {
			e = mip.Sum(mip.T(a.y, 1), mip.T(a.h, 0.5), mip.T(b.y, 1), mip.T(b.h, 0.5))
		}
		m.AddEQ(name, e, 2*rel.Value)

	case model.RelationSimilar:
		m.AddEQ(name+" (width)", mip.Sum(mip.T(a.w, 1), mip.T(b.w, -rel.Value)), 0)
		m.AddEQ(name+" (height)", mip.Sum(mip.T(a.h, 1), mip.T(b.h, -rel.Value)), 0)

	case model.RelationContainsPoint:
		m.AddLE(name+" (left)", mip.Sum(mip.T(a.x, 1)), rel.X)
		m.AddGE(name+" (right)", mip.Sum(mip.T(a.x, 1), mip.T(a.w, 1)), rel.X)
		m.AddLE(name+" (bottom)", mip.Sum(mip.T(a.y, 1)), rel.Y)
		m.AddGE(name+" (top)", mip.Sum(mip.T(a.y, 1), mip.T(a.h, 1)), rel.Y)
	}
}
