package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/RoomPlan/internal/model"
)

func assertValidLayout(t *testing.T, l model.Layout, rooms int) {
	t.Helper()
	assert.Len(t, l.Rooms, rooms)
	assert.True(t, l.WithinBoundary(), "rooms outside boundary: %+v", l.Rooms)
	assert.Empty(t, l.OverlappingPairs())
}

func TestShapes(t *testing.T) {
	inst := squareInstance([2]float64{2, 3})
	inst.Rooms[0].MaxAspect = 0.5

	f, err := Build(inst, model.ObjectivePerimeter)
	require.NoError(t, err)
	// Width 2 needs height 4 to stay within aspect 0.5.
	assert.Equal(t, []shape{{w: 2, h: 4}}, f.shapes(&f.rooms[0]))

	g, err := Build(squareInstance([2]float64{8, 8}), model.ObjectiveUnusedArea)
	require.NoError(t, err)
	s := g.shapes(&g.rooms[0])
	require.Len(t, s, 3)
	assert.Equal(t, shape{w: 8, h: 8}, s[0], "compact first")
}

func TestGreedyLayout(t *testing.T) {
	f, err := Build(squareInstance([2]float64{5, 5}, [2]float64{3, 4}, [2]float64{2, 6}), model.ObjectivePerimeter)
	require.NoError(t, err)

	l, ok := f.greedyLayout()
	require.True(t, ok)
	assertValidLayout(t, l, 3)
	assert.Equal(t, 5.0, l.Rooms["A"].Width)
	assert.Equal(t, 4.0, l.Rooms["B"].Height)
}

func TestGreedyLayout_DoesNotFit(t *testing.T) {
	f, err := Build(squareInstance([2]float64{6, 6}, [2]float64{6, 6}), model.ObjectivePerimeter)
	require.NoError(t, err)

	_, ok := f.greedyLayout()
	assert.False(t, ok)
	_, ok = f.warmStartLayout(DefaultGeneticConfig(), 1)
	assert.False(t, ok)
}

func TestAssign_IsFeasibleHint(t *testing.T) {
	for _, kind := range model.Objectives() {
		t.Run(string(kind), func(t *testing.T) {
			inst := squareInstance([2]float64{5, 5}, [2]float64{5, 3}, [2]float64{3, 3})
			inst.Spacing = 0.5
			inst.Rooms[0].Adjacency = map[string]float64{"B": 1}

			f, err := Build(inst, kind)
			require.NoError(t, err)
			l, ok := f.warmStartLayout(DefaultGeneticConfig(), 7)
			require.True(t, ok)
			assertValidLayout(t, l, 3)

			vals, err := f.assign(l)
			require.NoError(t, err)
			assert.Empty(t, f.Model().Violations(vals, 1e-6))
		})
	}
}

func TestAssign_MissingRoom(t *testing.T) {
	f, err := Build(squareInstance([2]float64{2, 2}, [2]float64{2, 2}), model.ObjectivePerimeter)
	require.NoError(t, err)

	l := model.NewLayout(f.Instance().Boundary)
	l.Place("A", model.Rect{Width: 2, Height: 2})
	_, err = f.assign(l)
	assert.Error(t, err)
}

func TestAssign_OverlapRejected(t *testing.T) {
	f, err := Build(squareInstance([2]float64{2, 2}, [2]float64{2, 2}), model.ObjectivePerimeter)
	require.NoError(t, err)

	l := model.NewLayout(f.Instance().Boundary)
	l.Place("A", model.Rect{Width: 2, Height: 2})
	l.Place("B", model.Rect{X: 1, Y: 1, Width: 2, Height: 2})
	_, err = f.assign(l)
	assert.Error(t, err)
}

func TestSeparationOf(t *testing.T) {
	a := model.Rect{X: 0, Y: 0, Width: 2, Height: 2}
	tests := []struct {
		name string
		b    model.Rect
		p    float64
		want Separation
		ok   bool
	}{
		{"left", model.Rect{X: 3, Y: 0, Width: 2, Height: 2}, 1, LeftOf, true},
		{"right", model.Rect{X: -4, Y: 0, Width: 2, Height: 2}, 0, RightOf, true},
		{"below", model.Rect{X: 0, Y: 2, Width: 2, Height: 2}, 0, Below, true},
		{"above", model.Rect{X: 0, Y: -3, Width: 2, Height: 2}, 1, Above, true},
		{"too close", model.Rect{X: 2.5, Y: 0, Width: 2, Height: 2}, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := separationOf(a, tt.b, tt.p)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTouching(t *testing.T) {
	a := model.Rect{X: 0, Y: 0, Width: 2, Height: 2}
	b := model.Rect{X: 2, Y: 1, Width: 2, Height: 2}
	assert.True(t, touching(a, b, LeftOf, 0, 1, 1))
	assert.False(t, touching(a, b, LeftOf, 0, 1, 1.5), "shared edge too short")

	far := model.Rect{X: 3, Y: 0, Width: 2, Height: 2}
	assert.False(t, touching(a, far, LeftOf, 0, 1, 1))
	assert.True(t, touching(a, far, LeftOf, 1, 1, 1), "gap within spacing")
}
