package model

import (
	"fmt"
	"math"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the instance for input errors that make it malformed or
// impossible regardless of how rooms are arranged. Instances that are only
// infeasible as a whole (too many rooms for the boundary) pass.
func (in Instance) Validate() error {
	b := in.Boundary
	if !finite(b.Width) || !finite(b.Height) || b.Width <= 0 || b.Height <= 0 {
		return &InvalidInstanceError{Field: "boundary", Reason: fmt.Sprintf("dimensions must be positive, got %gx%g", b.Width, b.Height)}
	}
	if !finite(in.Spacing) || in.Spacing < 0 {
		return &InvalidInstanceError{Field: "spacing", Reason: "must be zero or positive"}
	}
	if len(in.Rooms) == 0 {
		return &InvalidInstanceError{Field: "rooms", Reason: "at least one room is required"}
	}

	seen := make(map[string]bool, len(in.Rooms))
	for _, r := range in.Rooms {
		if r.ID == "" {
			return &InvalidInstanceError{Field: "id", Reason: "room identifier is empty"}
		}
		if seen[r.ID] {
			return &InvalidInstanceError{Room: r.ID, Reason: "duplicate room identifier"}
		}
		seen[r.ID] = true
	}

	for _, r := range in.Rooms {
		if err := r.validate(b); err != nil {
			return err
		}
		for other := range r.Adjacency {
			if other == r.ID {
				return &InvalidInstanceError{Room: r.ID, Field: "adjacency", Reason: "room cannot be adjacent to itself"}
			}
			if !seen[other] {
				return &InvalidInstanceError{Room: r.ID, Field: "adjacency", Reason: fmt.Sprintf("unknown room %q", other)}
			}
		}
	}

	for _, rel := range in.Relations {
		if err := rel.Validate(func(id string) bool { return seen[id] }); err != nil {
			return err
		}
	}
	return nil
}

func (r RoomSpec) validate(b Boundary) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"min_width", r.MinWidth}, {"max_width", r.MaxWidth},
		{"min_height", r.MinHeight}, {"max_height", r.MaxHeight},
		{"target_area", r.TargetArea}, {"min_aspect", r.MinAspect}, {"max_aspect", r.MaxAspect},
	}
	for _, f := range fields {
		if !finite(f.value) || f.value < 0 {
			return &InvalidInstanceError{Room: r.ID, Field: f.name, Reason: "must be a non-negative number"}
		}
	}
	if r.MaxWidth > 0 && r.MaxWidth < r.MinWidth {
		return &InvalidInstanceError{Room: r.ID, Field: "width", Reason: fmt.Sprintf("min %g exceeds max %g", r.MinWidth, r.MaxWidth)}
	}
	if r.MaxHeight > 0 && r.MaxHeight < r.MinHeight {
		return &InvalidInstanceError{Room: r.ID, Field: "height", Reason: fmt.Sprintf("min %g exceeds max %g", r.MinHeight, r.MaxHeight)}
	}
	if r.MinWidth > b.Width+Tolerance || r.MinHeight > b.Height+Tolerance {
		return &InvalidInstanceError{Room: r.ID, Field: "size", Reason: fmt.Sprintf("minimum %gx%g exceeds boundary %gx%g", r.MinWidth, r.MinHeight, b.Width, b.Height)}
	}

	_, maxW := r.WidthRange(b)
	_, maxH := r.HeightRange(b)
	if r.MinArea() > b.Area()+Tolerance {
		return &InvalidInstanceError{Room: r.ID, Field: "area", Reason: fmt.Sprintf("minimum area %g exceeds boundary area %g", r.MinArea(), b.Area())}
	}
	if r.TargetArea > maxW*maxH+Tolerance {
		return &InvalidInstanceError{Room: r.ID, Field: "target_area", Reason: fmt.Sprintf("target %g unreachable within %gx%g", r.TargetArea, maxW, maxH)}
	}

	if r.MinAspect > 0 && r.MaxAspect > 0 && r.MinAspect > r.MaxAspect {
		return &InvalidInstanceError{Room: r.ID, Field: "aspect", Reason: fmt.Sprintf("min %g exceeds max %g", r.MinAspect, r.MaxAspect)}
	}
	if r.MinAspect > 0 && r.MinAspect*r.MinHeight > maxW+Tolerance {
		return &InvalidInstanceError{Room: r.ID, Field: "aspect", Reason: "minimum aspect cannot be met within the width bounds"}
	}
	if r.MaxAspect > 0 && r.MinWidth > r.MaxAspect*maxH+Tolerance {
		return &InvalidInstanceError{Room: r.ID, Field: "aspect", Reason: "maximum aspect cannot be met within the height bounds"}
	}
	return nil
}
