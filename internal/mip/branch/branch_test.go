package branch

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/RoomPlan/internal/mip"
)

func knapsack() (*mip.Model, []mip.Var) {
	m := mip.NewModel("knapsack")
	a, b, c := m.AddBinary("a"), m.AddBinary("b"), m.AddBinary("c")
	m.AddLE("weight", mip.Sum(mip.T(a, 2), mip.T(b, 3), mip.T(c, 1)), 5)
	m.SetObjective(mip.Maximize, mip.Sum(mip.T(a, 5), mip.T(b, 4), mip.T(c, 3)))
	return m, []mip.Var{a, b, c}
}

func TestSolveLinearProgram(t *testing.T) {
	m := mip.NewModel("lp")
	x := m.AddContinuous("x", 0, 10)
	y := m.AddContinuous("y", 0, 10)
	m.AddLE("r1", mip.Sum(mip.T(x, 1), mip.T(y, 2)), 4)
	m.AddLE("r2", mip.Sum(mip.T(x, 3), mip.T(y, 1)), 6)
	m.SetObjective(mip.Maximize, mip.Sum(mip.T(x, 1), mip.T(y, 1)))

	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	assert.InDelta(t, 2.8, res.Objective, 1e-9)
	assert.InDelta(t, 1.6, res.Values[x], 1e-9)
	assert.InDelta(t, 1.2, res.Values[y], 1e-9)
	assert.Equal(t, 1, res.Nodes)
}

func TestSolveKnapsack(t *testing.T) {
	m, v := knapsack()
	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	assert.InDelta(t, 9, res.Objective, 1e-9)
	assert.Equal(t, 1.0, res.Values[v[0]])
	assert.Equal(t, 1.0, res.Values[v[1]])
	assert.Equal(t, 0.0, res.Values[v[2]])
	assert.Equal(t, 0.0, res.Gap)
	assert.True(t, m.Feasible(res.Values, 1e-9))
}

func TestSolveIntegerRoundsUp(t *testing.T) {
	m := mip.NewModel("int")
	x := m.AddVar("x", 0, 10, mip.Integer)
	m.AddGE("floor", mip.Sum(mip.T(x, 1)), 2.5)
	m.SetObjective(mip.Minimize, mip.Sum(mip.T(x, 1)))

	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	assert.Equal(t, 3.0, res.Values[x])
}

func TestSolveEqualityWithNegativeRHS(t *testing.T) {
	m := mip.NewModel("eq")
	x := m.AddContinuous("x", 0, 5)
	y := m.AddContinuous("y", 0, 5)
	m.AddEQ("diff", mip.Sum(mip.T(x, 1), mip.T(y, -1)), -2)
	m.SetObjective(mip.Minimize, mip.Sum(mip.T(y, 1)))

	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	assert.InDelta(t, 0, res.Values[x], 1e-9)
	assert.InDelta(t, 2, res.Values[y], 1e-9)
}

func TestSolveNegativeLowerBound(t *testing.T) {
	m := mip.NewModel("shift")
	x := m.AddContinuous("x", -5, 5)
	y := m.AddVar("y", -3, 3, mip.Integer)
	m.AddGE("link", mip.Sum(mip.T(x, 1), mip.T(y, 1)), -6.5)
	m.SetObjective(mip.Minimize, mip.Sum(mip.T(x, 1), mip.T(y, 2)).PlusConst(10))

	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	// y = -3 costs 2 per unit, so x takes the remaining -3.5.
	assert.Equal(t, -3.0, res.Values[y])
	assert.InDelta(t, -3.5, res.Values[x], 1e-9)
	assert.InDelta(t, 10-3.5-6, res.Objective, 1e-9)
}

func TestSolveInfeasible(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		m := mip.NewModel("pair")
		a, b := m.AddBinary("a"), m.AddBinary("b")
		m.AddGE("too-many", mip.Sum(mip.T(a, 1), mip.T(b, 1)), 3)
		res, err := New().Solve(context.Background(), m, mip.Params{})
		require.NoError(t, err)
		assert.Equal(t, mip.StatusInfeasible, res.Status)
		assert.False(t, res.HasSolution())
	})

	t.Run("bounds", func(t *testing.T) {
		m := mip.NewModel("bounds")
		x := m.AddContinuous("x", 0, 1)
		m.AddEQ("five", mip.Sum(mip.T(x, 1)), 5)
		res, err := New().Solve(context.Background(), m, mip.Params{})
		require.NoError(t, err)
		assert.Equal(t, mip.StatusInfeasible, res.Status)
	})

	t.Run("fractional integer range", func(t *testing.T) {
		m := mip.NewModel("empty")
		m.AddVar("x", 0.2, 0.8, mip.Integer)
		res, err := New().Solve(context.Background(), m, mip.Params{})
		require.NoError(t, err)
		assert.Equal(t, mip.StatusInfeasible, res.Status)
	})
}

func TestSolveUnbounded(t *testing.T) {
	m := mip.NewModel("ray")
	x := m.AddContinuous("x", 0, math.Inf(1))
	m.SetObjective(mip.Maximize, mip.Sum(mip.T(x, 1)))
	res, err := New().Solve(context.Background(), m, mip.Params{})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusUnbounded, res.Status)
}

func TestSolveHint(t *testing.T) {
	m, _ := knapsack()

	res, err := New().Solve(context.Background(), m, mip.Params{Hint: []float64{1, 0, 1}})
	require.NoError(t, err)
	assert.True(t, res.UsedHint)
	assert.Equal(t, mip.StatusOptimal, res.Status)
	assert.InDelta(t, 9, res.Objective, 1e-9)

	res, err = New().Solve(context.Background(), m, mip.Params{Hint: []float64{1, 1, 1}})
	require.NoError(t, err)
	assert.False(t, res.UsedHint, "overweight hint must be rejected")
	assert.InDelta(t, 9, res.Objective, 1e-9)
}

func TestSolveGapTolerance(t *testing.T) {
	m, _ := knapsack()
	res, err := New().Solve(context.Background(), m, mip.Params{
		Hint:         []float64{1, 0, 1},
		GapTolerance: 0.5,
	})
	require.NoError(t, err)
	// The root relaxation (about 10.67) is within half of the hint value,
	// so search stops without improving it.
	assert.Equal(t, mip.StatusGapReached, res.Status)
	assert.InDelta(t, 8, res.Objective, 1e-9)
	assert.Greater(t, res.Gap, 0.0)
	assert.LessOrEqual(t, res.Gap, 0.5)
	assert.Greater(t, res.Bound, res.Objective)
}

func TestSolveCancelledContext(t *testing.T) {
	m, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Solve(ctx, m, mip.Params{Hint: []float64{1, 0, 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveTimeLimitKeepsIncumbent(t *testing.T) {
	m, _ := knapsack()

	res, err := New().Solve(context.Background(), m, mip.Params{TimeLimit: time.Nanosecond})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusTimeLimit, res.Status)
	assert.False(t, res.HasSolution())

	res, err = New().Solve(context.Background(), m, mip.Params{TimeLimit: time.Nanosecond, Hint: []float64{1, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusTimeLimit, res.Status)
	assert.True(t, res.HasSolution())
	assert.InDelta(t, 8, res.Objective, 1e-9)
}

func TestSolveNodeLimit(t *testing.T) {
	m, _ := knapsack()
	res, err := New().Solve(context.Background(), m, mip.Params{NodeLimit: 1})
	require.NoError(t, err)
	assert.Equal(t, mip.StatusNodeLimit, res.Status)
	assert.Equal(t, 1, res.Nodes)
}

func TestSolveRejectsBadInput(t *testing.T) {
	m := mip.NewModel("bad")
	m.AddContinuous("x", 2, 1)
	_, err := New().Solve(context.Background(), m, mip.Params{})
	assert.Error(t, err)

	good, _ := knapsack()
	_, err = New().Solve(context.Background(), good, mip.Params{GapTolerance: -1})
	assert.Error(t, err)
}

func TestSolveDeterministic(t *testing.T) {
	build := func() *mip.Model {
		m := mip.NewModel("assign")
		var vs []mip.Var
		for i := 0; i < 6; i++ {
			vs = append(vs, m.AddBinary(""))
		}
		m.AddEQ("pick-two", mip.Sum(mip.T(vs[0], 1), mip.T(vs[1], 1), mip.T(vs[2], 1),
			mip.T(vs[3], 1), mip.T(vs[4], 1), mip.T(vs[5], 1)), 2)
		m.AddLE("cap", mip.Sum(mip.T(vs[0], 3), mip.T(vs[1], 2.5), mip.T(vs[2], 2),
			mip.T(vs[3], 1.5), mip.T(vs[4], 1), mip.T(vs[5], 0.5)), 3.7)
		m.SetObjective(mip.Maximize, mip.Sum(mip.T(vs[0], 3), mip.T(vs[1], 3), mip.T(vs[2], 3),
			mip.T(vs[3], 3), mip.T(vs[4], 3), mip.T(vs[5], 3)))
		return m
	}
	first, err := New().Solve(context.Background(), build(), mip.Params{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := New().Solve(context.Background(), build(), mip.Params{})
		require.NoError(t, err)
		assert.Equal(t, first.Values, again.Values)
		assert.Equal(t, first.Nodes, again.Nodes)
	}
	assert.Equal(t, mip.StatusOptimal, first.Status)
	assert.InDelta(t, 6, first.Objective, 1e-9)
}

func TestRegisteredDriver(t *testing.T) {
	assert.Contains(t, mip.Drivers(), DriverName)

	env, err := mip.Open(DriverName)
	require.NoError(t, err)
	defer env.Close()

	m, _ := knapsack()
	res, err := env.Solve(context.Background(), m, mip.NewParams(mip.WithTimeLimit(0)))
	require.NoError(t, err)
	assert.InDelta(t, 9, res.Objective, 1e-9)
}

func TestRelaxationDegenerateRows(t *testing.T) {
	m := mip.NewModel("degenerate")
	x := m.AddContinuous("x", 0, 4)
	y := m.AddContinuous("y", 0, 4)
	// Duplicate equality rows leave a redundant artificial behind.
	m.AddEQ("e1", mip.Sum(mip.T(x, 1), mip.T(y, 1)), 4)
	m.AddEQ("e2", mip.Sum(mip.T(x, 2), mip.T(y, 2)), 8)
	m.AddLE("zero", mip.Sum(mip.T(x, 1), mip.T(y, -1)), 0)

	lb := []float64{0, 0}
	ub := []float64{4, 4}
	lp, err := solveRelaxation(context.Background(), m, []float64{-1, 0}, lb, ub)
	require.NoError(t, err)
	assert.Equal(t, lpOptimal, lp.status)
	assert.InDelta(t, 2, lp.x[x], 1e-9)
	assert.InDelta(t, 2, lp.x[y], 1e-9)
	assert.InDelta(t, -2, lp.obj, 1e-9)
}

func TestRelaxationFixedVariables(t *testing.T) {
	m := mip.NewModel("fixed")
	x := m.AddContinuous("x", 0, 10)
	y := m.AddContinuous("y", 0, 10)
	m.AddLE("sum", mip.Sum(mip.T(x, 1), mip.T(y, 1)), 7)

	lp, err := solveRelaxation(context.Background(), m, []float64{0, -1}, []float64{3, 0}, []float64{3, 10})
	require.NoError(t, err)
	assert.Equal(t, lpOptimal, lp.status)
	assert.Equal(t, 3.0, lp.x[x])
	assert.InDelta(t, 4, lp.x[y], 1e-9)

	lp, err = solveRelaxation(context.Background(), m, []float64{0, -1}, []float64{8, 0}, []float64{8, 0})
	require.NoError(t, err)
	assert.Equal(t, lpInfeasible, lp.status)
}
