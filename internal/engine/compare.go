package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// ComparisonScenario defines a named objective and budget to compare.
type ComparisonScenario struct {
	Name      string
	Objective model.ObjectiveKind
	TimeLimit time.Duration
	Gap       float64
}

// ComparisonResult holds the solve result and layout statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario       ComparisonScenario
	Result         model.LayoutResult
	Err            error
	UnusedArea     float64
	Efficiency     float64
	TotalPerimeter float64
	AdjacencyScore float64
	EnvelopeArea   float64
}

// Solved reports whether the scenario produced a layout.
func (c ComparisonResult) Solved() bool {
	return c.Err == nil && c.Result.IsSolved()
}

// CompareScenarios solves inst once per scenario and returns the results in
// scenario order. A failing scenario records its error and does not stop the
// others.
func (s *Solver) CompareScenarios(ctx context.Context, inst model.Instance, scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		cr := ComparisonResult{Scenario: scenario}
		res, err := s.SolveInstance(ctx, inst, scenario.Objective, scenario.TimeLimit, scenario.Gap)
		if err != nil {
			cr.Err = err
			results = append(results, cr)
			continue
		}
		cr.Result = res
		if res.IsSolved() {
			l := *res.Layout
			cr.UnusedArea = l.UnusedArea()
			cr.Efficiency = l.Efficiency()
			cr.TotalPerimeter = l.TotalPerimeter()
			cr.AdjacencyScore = l.AdjacencyScore(inst, s.minContact())
			cr.EnvelopeArea = l.Envelope().Area()
		}
		results = append(results, cr)
	}
	return results
}

func (s *Solver) minContact() float64 {
	cfg := defaultBuildConfig()
	for _, opt := range s.build {
		opt(&cfg)
	}
	return cfg.minContact
}

// BuildDefaultScenarios generates comparison scenarios from the configured
// solver settings: the settings themselves, then every other objective, then
// a budget variation.
func BuildDefaultScenarios(cfg model.SolverConfig) []ComparisonScenario {
	timeLimit := cfg.TimeLimit.Std()
	if timeLimit <= 0 {
		timeLimit = model.DefaultAppConfig().Solver.TimeLimit.Std()
	}
	base := cfg.Objective
	if !base.Valid() {
		base = model.ObjectiveUnusedArea
	}

	scenarios := []ComparisonScenario{
		{
			Name:      "Current Settings",
			Objective: base,
			TimeLimit: timeLimit,
			Gap:       cfg.GapTolerance,
		},
	}

	for _, kind := range model.Objectives() {
		if kind == base {
			continue
		}
		scenarios = append(scenarios, ComparisonScenario{
			Name:      kind.Title(),
			Objective: kind,
			TimeLimit: timeLimit,
			Gap:       cfg.GapTolerance,
		})
	}

	// Scenario: certify when the current settings accept a gap, otherwise
	// see how much a 5% gap saves.
	if cfg.GapTolerance > 0 {
		scenarios = append(scenarios, ComparisonScenario{
			Name:      "Certified Optimum",
			Objective: base,
			TimeLimit: 2 * timeLimit,
			Gap:       0,
		})
	} else {
		scenarios = append(scenarios, ComparisonScenario{
			Name:      "Gap 5%",
			Objective: base,
			TimeLimit: timeLimit,
			Gap:       0.05,
		})
	}

	// Scenario: half the time budget
	if timeLimit >= 2*time.Second {
		scenarios = append(scenarios, ComparisonScenario{
			Name:      fmt.Sprintf("Time %s (half)", timeLimit/2),
			Objective: base,
			TimeLimit: timeLimit / 2,
			Gap:       cfg.GapTolerance,
		})
	}

	return scenarios
}

// RankResults orders results best first: solved before unsolved, certified
// before uncertified, then by efficiency and total perimeter. The input is
// not modified.
func RankResults(results []ComparisonResult) []ComparisonResult {
	ranked := append([]ComparisonResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Solved() != b.Solved() {
			return a.Solved()
		}
		if !a.Solved() {
			return false
		}
		if a.Result.CertifiedOptimal != b.Result.CertifiedOptimal {
			return a.Result.CertifiedOptimal
		}
		if a.Efficiency != b.Efficiency {
			return a.Efficiency > b.Efficiency
		}
		return a.TotalPerimeter < b.TotalPerimeter
	})
	return ranked
}
