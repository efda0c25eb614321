package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/mip"
	"github.com/piwi3910/RoomPlan/internal/model"
)

// Solver submits formulations to an oracle and decodes the outcome.
type Solver struct {
	oracle    mip.Oracle
	logger    *zap.Logger
	warmStart bool
	seed      int64
	genetic   GeneticConfig
	build     []BuildOption
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) SolverOption {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWarmStart toggles the packing heuristic that seeds the oracle with a
// first incumbent.
func WithWarmStart(enabled bool) SolverOption {
	return func(s *Solver) { s.warmStart = enabled }
}

// WithSeed seeds the genetic fallback of the warm start.
func WithSeed(seed int64) SolverOption {
	return func(s *Solver) { s.seed = seed }
}

// WithGeneticConfig replaces the genetic fallback parameters.
func WithGeneticConfig(cfg GeneticConfig) SolverOption {
	return func(s *Solver) { s.genetic = cfg }
}

// WithBuildOptions sets the options SolveInstance builds with.
func WithBuildOptions(opts ...BuildOption) SolverOption {
	return func(s *Solver) { s.build = append(s.build, opts...) }
}

// NewSolver creates a solver over oracle, usually a *mip.Environment.
func NewSolver(oracle mip.Oracle, opts ...SolverOption) *Solver {
	s := &Solver{
		oracle:    oracle,
		logger:    zap.NewNop(),
		warmStart: true,
		seed:      42,
		genetic:   DefaultGeneticConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OptionsFromConfig maps the solver section of the app config onto solver
// options.
func OptionsFromConfig(cfg model.SolverConfig) []SolverOption {
	return []SolverOption{
		WithWarmStart(cfg.WarmStart),
		WithSeed(cfg.Seed),
		WithBuildOptions(BuildOptionsFromConfig(cfg)...),
	}
}

// SolveInstance builds inst for kind and solves it.
func (s *Solver) SolveInstance(ctx context.Context, inst model.Instance, kind model.ObjectiveKind, timeLimit time.Duration, gap float64) (model.LayoutResult, error) {
	if err := validateBudget(timeLimit, gap); err != nil {
		return model.LayoutResult{}, err
	}
	f, err := Build(inst, kind, s.build...)
	if err != nil {
		return model.LayoutResult{}, err
	}
	return s.Solve(ctx, f, timeLimit, gap)
}

func validateBudget(timeLimit time.Duration, gap float64) error {
	if timeLimit <= 0 {
		return &model.InvalidInstanceError{Field: "time_limit", Reason: fmt.Sprintf("must be positive, got %s", timeLimit)}
	}
	if !(gap >= 0) {
		return &model.InvalidInstanceError{Field: "gap_tolerance", Reason: fmt.Sprintf("must be zero or positive, got %g", gap)}
	}
	return nil
}

// Solve makes one blocking oracle call for f within timeLimit and maps the
// outcome onto a LayoutResult. gap is the relative optimality gap at which
// search may stop; zero asks for a certified optimum. f is released
// afterwards and cannot be solved again.
func (s *Solver) Solve(ctx context.Context, f *Formulation, timeLimit time.Duration, gap float64) (model.LayoutResult, error) {
	if f == nil {
		return model.LayoutResult{}, &model.InvalidInstanceError{Field: "formulation", Reason: "is nil"}
	}
	if err := validateBudget(timeLimit, gap); err != nil {
		return model.LayoutResult{}, err
	}
	if s.oracle == nil {
		return model.LayoutResult{}, &model.OracleUnavailableError{Err: mip.ErrUnavailable}
	}
	if err := f.acquire(); err != nil {
		return model.LayoutResult{}, err
	}
	defer f.release()

	kind := f.kind
	dims := f.Stats()
	logger := s.logger.With(
		zap.String("instance", f.inst.Name),
		zap.String("objective", string(kind)),
		zap.String("oracle", s.oracle.Name()))

	opts := []mip.Option{mip.WithTimeLimit(timeLimit), mip.WithGapTolerance(gap)}
	if s.warmStart {
		if hint, ok := s.hint(f, logger); ok {
			opts = append(opts, mip.WithHint(hint))
		}
	}

	logger.Info("solving",
		zap.Int("rooms", len(f.rooms)),
		zap.Int("variables", dims.Variables),
		zap.Int("binaries", dims.Binaries),
		zap.Int("constraints", dims.Constraints),
		zap.Duration("time_limit", timeLimit),
		zap.Float64("gap_tolerance", gap))

	start := time.Now()
	res, err := s.oracle.Solve(ctx, f.model, mip.NewParams(opts...))
	if err != nil {
		if errors.Is(err, mip.ErrUnavailable) {
			return model.LayoutResult{}, &model.OracleUnavailableError{Driver: s.oracle.Name(), Err: err}
		}
		return model.LayoutResult{}, fmt.Errorf("failed to solve %s: %w", f.model.Name, err)
	}
	elapsed := res.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(start)
	}

	stats := model.SolveStats{
		Oracle:      s.oracle.Name(),
		Nodes:       res.Nodes,
		Elapsed:     elapsed,
		Variables:   dims.Variables,
		Binaries:    dims.Binaries,
		Constraints: dims.Constraints,
		WarmStart:   res.UsedHint,
	}

	var out model.LayoutResult
	switch res.Status {
	case mip.StatusOptimal, mip.StatusGapReached:
		if !res.HasSolution() {
			return model.LayoutResult{}, fmt.Errorf("oracle %s reported %s without an assignment", s.oracle.Name(), res.Status)
		}
		out, err = s.solved(f, res, res.Status == mip.StatusOptimal)
	case mip.StatusTimeLimit, mip.StatusNodeLimit, mip.StatusIncomplete:
		if res.HasSolution() {
			out, err = s.solved(f, res, false)
		} else {
			out = model.TimedOutNoIncumbent(kind)
		}
	case mip.StatusInfeasible:
		out = model.Infeasible(kind)
	default:
		return model.LayoutResult{}, fmt.Errorf("oracle %s returned unexpected status %s", s.oracle.Name(), res.Status)
	}
	if err != nil {
		return model.LayoutResult{}, err
	}
	out.Stats = stats

	logger.Info("solve finished",
		zap.String("status", string(out.Status)),
		zap.Stringer("oracle_status", res.Status),
		zap.Bool("certified", out.CertifiedOptimal),
		zap.Float64("objective", out.ObjectiveValue),
		zap.Float64("gap", out.Gap),
		zap.Int("nodes", res.Nodes),
		zap.Bool("warm_start", res.UsedHint),
		zap.Duration("elapsed", elapsed))
	return out, nil
}

// solved decodes an incumbent. Runs before f is released.
func (s *Solver) solved(f *Formulation, res mip.Result, certified bool) (model.LayoutResult, error) {
	layout, err := f.decode(res.Values)
	if err != nil {
		return model.LayoutResult{}, fmt.Errorf("failed to decode solution: %w", err)
	}
	out := model.Solved(f.kind, layout, certified)
	out.ObjectiveValue = res.Objective
	out.Bound = res.Bound
	out.Gap = res.Gap
	if math.IsInf(out.Gap, 0) || math.IsNaN(out.Gap) {
		out.Gap = -1
	}
	if math.IsInf(out.Bound, 0) || math.IsNaN(out.Bound) {
		out.Bound = 0
	}
	if certified {
		out.Gap = 0
	}

	if ce := s.logger.Check(zap.DebugLevel, "pair separations"); ce != nil {
		touching := 0
		for _, ps := range f.separations(res.Values) {
			if ps.Touching {
				touching++
			}
		}
		ce.Write(zap.Int("pairs", len(f.pairs)), zap.Int("touching", touching))
	}
	return out, nil
}

// hint packs the rooms at minimum size and turns the packing into a full
// assignment.
func (s *Solver) hint(f *Formulation, logger *zap.Logger) ([]float64, bool) {
	layout, ok := f.warmStartLayout(s.genetic, s.seed)
	if !ok {
		logger.Debug("warm start found no complete packing")
		return nil, false
	}
	vals, err := f.assign(layout)
	if err != nil {
		logger.Debug("warm start layout not representable", zap.Error(err))
		return nil, false
	}
	return vals, true
}
