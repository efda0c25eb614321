package model

// AreaBudget compares what the rooms need with what the boundary offers.
type AreaBudget struct {
	Rooms            int     `json:"rooms"`
	BoundaryArea     float64 `json:"boundary_area"`
	MinRoomArea      float64 `json:"min_room_area"`     // Sum of per-room minimum areas
	MaxRoomArea      float64 `json:"max_room_area"`     // Sum of per-room maximum areas
	SpacingAllowance float64 `json:"spacing_allowance"` // Extra area consumed by gaps between rooms
	Slack            float64 `json:"slack"`             // Boundary area left after minimums and spacing
	MinUtilization   float64 `json:"min_utilization"`   // Percent of the boundary the minimums occupy
	Fits             bool    `json:"fits"`              // False means the instance is certainly infeasible
}

// CalculateAreaBudget sums room area requirements for an instance. A budget
// that does not fit proves infeasibility; one that fits proves nothing, since
// rooms may still fail to pack.
func CalculateAreaBudget(in Instance) AreaBudget {
	budget := AreaBudget{
		Rooms:        len(in.Rooms),
		BoundaryArea: in.Boundary.Area(),
	}
	p := in.Spacing
	for _, r := range in.Rooms {
		budget.MinRoomArea += r.MinArea()
		_, maxW := r.WidthRange(in.Boundary)
		_, maxH := r.HeightRange(in.Boundary)
		budget.MaxRoomArea += maxW * maxH
		if p > 0 {
			budget.SpacingAllowance += (r.MinWidth+r.MinHeight)*p + p*p
		}
	}
	budget.Slack = budget.BoundaryArea - budget.MinRoomArea - budget.SpacingAllowance
	if budget.BoundaryArea > 0 {
		budget.MinUtilization = budget.MinRoomArea / budget.BoundaryArea * 100
	}
	budget.Fits = budget.MinRoomArea <= budget.BoundaryArea+Tolerance
	return budget
}
