package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/RoomPlan/internal/model"
)

func TestWidthGrid(t *testing.T) {
	tests := []struct {
		name         string
		lo, hi, step float64
		maxN         int
		want         []float64
	}{
		{"single point", 3, 3, 1, 12, []float64{3}},
		{"unit steps", 0, 4, 1, 12, []float64{0, 1, 2, 3, 4}},
		{"end appended", 2.5, 5, 1, 12, []float64{2.5, 3.5, 4.5, 5}},
		{"exactly max", 0, 11, 1, 12, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"respaced", 0, 10, 1, 3, []float64{0, 5, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := widthGrid(tt.lo, tt.hi, tt.step, tt.maxN)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestWidthGrid_CapAlwaysKeepsEnds(t *testing.T) {
	got := widthGrid(1, 100, 0.5, 12)
	require.Len(t, got, 12)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 100.0, got[11])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestHeightRangeFor(t *testing.T) {
	r := model.RoomSpec{ID: "A", TargetArea: 12, MinAspect: 0.5, MaxAspect: 2}
	lo, hi := heightRangeFor(r, 4, 1, 10)
	assert.Equal(t, 3.0, lo) // 12/4
	assert.Equal(t, 8.0, hi) // 4/0.5

	lo, hi = heightRangeFor(r, 10, 1, 10)
	assert.Equal(t, 5.0, lo) // 10/2
	assert.Equal(t, 10.0, hi)
}

func TestFeasibleWidths_TargetArea(t *testing.T) {
	r := model.RoomSpec{ID: "A", TargetArea: 40}
	cells, err := feasibleWidths(r, model.Boundary{Width: 10, Height: 10}, 1, 12)
	require.NoError(t, err)
	require.Len(t, cells, 7)

	assert.Equal(t, 4.0, cells[0].width)
	assert.Equal(t, 10.0, cells[0].hMin)
	assert.Equal(t, 5.0, cells[1].width)
	assert.Equal(t, 8.0, cells[1].hMin)
	assert.Equal(t, 10.0, cells[6].width)
	assert.Equal(t, 4.0, cells[6].hMin)

	// Every candidate can reach the target within the boundary height.
	for _, c := range cells {
		assert.GreaterOrEqual(t, c.width*10, 40.0)
	}
}

func TestFeasibleWidths_AspectPrunes(t *testing.T) {
	// A square room in a 5x3 boundary cannot be wider than 3.
	r := model.RoomSpec{ID: "sq", MinWidth: 2, MinHeight: 2, MinAspect: 1, MaxAspect: 1}
	cells, err := feasibleWidths(r, model.Boundary{Width: 5, Height: 3}, 1, 12)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, 2.0, cells[0].width)
	assert.Equal(t, 2.0, cells[0].hMin)
	assert.Equal(t, 3.0, cells[1].width)
	assert.Equal(t, 3.0, cells[1].hMin)
}

func TestFeasibleWidths_Unreachable(t *testing.T) {
	r := model.RoomSpec{ID: "flat", TargetArea: 40, MaxHeight: 2}
	_, err := feasibleWidths(r, model.Boundary{Width: 10, Height: 10}, 1, 12)
	require.Error(t, err)

	var invalid *model.InvalidInstanceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "flat", invalid.Room)
	assert.Equal(t, "target_area", invalid.Field)
}

func TestFeasibleWidths_NoCandidate(t *testing.T) {
	// A room four times wider than tall cannot hold area 9 in a 4x4
	// boundary.
	r := model.RoomSpec{ID: "x", TargetArea: 9, MinAspect: 4}
	_, err := feasibleWidths(r, model.Boundary{Width: 4, Height: 4}, 1, 12)
	require.Error(t, err)
	assert.True(t, model.IsInvalidInstance(err))
}

func TestFeasibleWidths_NarrowAspectWindow(t *testing.T) {
	// Aspect 1.5 with heights in [3, 3.1] leaves widths [4.5, 4.65], which
	// falls between unit grid points.
	r := model.RoomSpec{ID: "A", MinHeight: 3, MaxHeight: 3.1, MinAspect: 1.5, MaxAspect: 1.5}
	cells, err := feasibleWidths(r, model.Boundary{Width: 10, Height: 10}, 1, 12)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.InDelta(t, 4.5, cells[0].width, 1e-12)
	assert.InDelta(t, 3, cells[0].hMin, 1e-9)
	assert.InDelta(t, 4.65, cells[1].width, 1e-12)
	assert.InDelta(t, 3.1, cells[1].hMin, 1e-9)
}

func TestFeasibleWidths_AspectField(t *testing.T) {
	r := model.RoomSpec{ID: "wide", MinHeight: 2, MinAspect: 4}
	_, err := feasibleWidths(r, model.Boundary{Width: 4, Height: 4}, 1, 12)

	var invalid *model.InvalidInstanceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "wide", invalid.Room)
	assert.Equal(t, "aspect", invalid.Field)
}
