package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/RoomPlan/internal/model"
)

func TestBuildDefaultScenarios(t *testing.T) {
	cfg := model.DefaultAppConfig().Solver
	scenarios := BuildDefaultScenarios(cfg)

	require.Len(t, scenarios, 6)
	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, model.ObjectiveUnusedArea, scenarios[0].Objective)
	assert.Equal(t, 10*time.Second, scenarios[0].TimeLimit)

	seen := map[model.ObjectiveKind]bool{}
	for _, s := range scenarios[:4] {
		seen[s.Objective] = true
	}
	assert.Len(t, seen, 4, "every objective appears once")

	assert.Equal(t, "Gap 5%", scenarios[4].Name)
	assert.Equal(t, 0.05, scenarios[4].Gap)
	assert.Equal(t, 5*time.Second, scenarios[5].TimeLimit)
}

func TestBuildDefaultScenarios_WithGap(t *testing.T) {
	cfg := model.DefaultAppConfig().Solver
	cfg.Objective = model.ObjectivePerimeter
	cfg.GapTolerance = 0.1
	cfg.TimeLimit = model.Duration(time.Second)

	scenarios := BuildDefaultScenarios(cfg)
	require.Len(t, scenarios, 5, "no half-time scenario under two seconds")
	assert.Equal(t, model.ObjectivePerimeter, scenarios[0].Objective)
	last := scenarios[len(scenarios)-1]
	assert.Equal(t, "Certified Optimum", last.Name)
	assert.Equal(t, 0.0, last.Gap)
	assert.Equal(t, 2*time.Second, last.TimeLimit)
}

func TestCompareScenarios(t *testing.T) {
	inst := squareInstance([2]float64{5, 5}, [2]float64{5, 5})
	scenarios := []ComparisonScenario{
		{Name: "area", Objective: model.ObjectiveUnusedArea, TimeLimit: 10 * time.Second},
		{Name: "perimeter", Objective: model.ObjectivePerimeter, TimeLimit: 10 * time.Second},
		{Name: "broken", Objective: model.ObjectivePerimeter, TimeLimit: 0},
	}

	results := newTestSolver(t).CompareScenarios(context.Background(), inst, scenarios)
	require.Len(t, results, 3)

	assert.True(t, results[0].Solved())
	assert.InDelta(t, 0, results[0].UnusedArea, 1e-6)
	assert.InDelta(t, 100, results[0].Efficiency, 1e-6)

	assert.True(t, results[1].Solved())
	assert.InDelta(t, 40, results[1].TotalPerimeter, 1e-6)
	assert.InDelta(t, 50, results[1].UnusedArea, 1e-6)

	assert.False(t, results[2].Solved())
	assert.True(t, model.IsInvalidInstance(results[2].Err))

	ranked := RankResults(results)
	assert.Equal(t, "area", ranked[0].Scenario.Name)
	assert.Equal(t, "perimeter", ranked[1].Scenario.Name)
	assert.Equal(t, "broken", ranked[2].Scenario.Name)
	assert.Equal(t, "area", results[0].Scenario.Name, "input order unchanged")
}

func TestRankResults(t *testing.T) {
	layout := model.NewLayout(model.Boundary{Width: 1, Height: 1})
	solved := func(name string, certified bool, eff, per float64) ComparisonResult {
		return ComparisonResult{
			Scenario:       ComparisonScenario{Name: name},
			Result:         model.Solved(model.ObjectivePerimeter, layout, certified),
			Efficiency:     eff,
			TotalPerimeter: per,
		}
	}
	results := []ComparisonResult{
		{Scenario: ComparisonScenario{Name: "timed-out"}, Result: model.TimedOutNoIncumbent(model.ObjectivePerimeter)},
		solved("loose", false, 90, 10),
		solved("tight", true, 80, 10),
		solved("dense", true, 90, 12),
		solved("lean", true, 90, 8),
		{Scenario: ComparisonScenario{Name: "failed"}, Err: errors.New("boom")},
	}

	var names []string
	for _, r := range RankResults(results) {
		names = append(names, r.Scenario.Name)
	}
	assert.Equal(t, []string{"lean", "dense", "tight", "loose", "timed-out", "failed"}, names)
}
