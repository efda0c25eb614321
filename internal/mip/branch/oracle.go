// Package branch is the bundled mip oracle: a dense two-phase simplex for
// relaxations under a deterministic depth-first branch and bound.
//
// Importing the package registers it with mip under the driver name
// "branch":
//
//	import _ "github.com/piwi3910/RoomPlan/internal/mip/branch"
//
// It is exact for the small models produced by floor plan instances (a few
// hundred variables). Larger models should use a dedicated engine.
package branch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/mip"
)

// DriverName is the name the oracle registers under.
const DriverName = "branch"

func init() {
	mip.Register(DriverName, func() (mip.Oracle, error) {
		return New(), nil
	})
}

// Oracle solves mip models by branch and bound. It keeps no state between
// solves and is safe for concurrent use.
type Oracle struct {
	logger *zap.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithLogger routes search diagnostics to l at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an oracle.
func New(opts ...Option) *Oracle {
	o := &Oracle{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns DriverName.
func (o *Oracle) Name() string {
	return DriverName
}

// Solve runs branch and bound until the tree is exhausted, the gap
// tolerance is met, or a limit is hit. When the time limit expires the
// incumbent found so far is returned. When ctx itself is cancelled or
// reaches its deadline, Solve returns ctx.Err() wrapped.
func (o *Oracle) Solve(ctx context.Context, m *mip.Model, p mip.Params) (mip.Result, error) {
	if err := m.Validate(); err != nil {
		return mip.Result{}, fmt.Errorf("invalid model: %w", err)
	}
	if p.GapTolerance < 0 {
		return mip.Result{}, fmt.Errorf("gap tolerance must be non-negative, got %g", p.GapTolerance)
	}
	start := time.Now()
	searchCtx := ctx
	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, p.TimeLimit)
		defer cancel()
	}

	s := newSearch(m, p, o.logger.With(zap.String("model", m.Name)))
	s.run(searchCtx)
	if err := ctx.Err(); err != nil {
		return mip.Result{}, fmt.Errorf("search interrupted after %d nodes: %w", s.nodes, err)
	}
	res := s.result()
	res.Elapsed = time.Since(start)

	o.logger.Debug("branch and bound finished",
		zap.String("model", m.Name),
		zap.Stringer("status", res.Status),
		zap.Int("nodes", res.Nodes),
		zap.Float64("objective", res.Objective),
		zap.Float64("bound", res.Bound),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}
