package mip

import (
	"context"
	"time"
)

// Status is the outcome reported by an oracle.
type Status int

const (
	StatusUnknown Status = iota
	// StatusOptimal means the incumbent is proven optimal.
	StatusOptimal
	// StatusGapReached means search stopped with the incumbent within the
	// requested gap tolerance of the best bound.
	StatusGapReached
	// StatusTimeLimit means the time limit hit first. Values may hold an
	// incumbent.
	StatusTimeLimit
	// StatusNodeLimit means the node limit hit first. Values may hold an
	// incumbent.
	StatusNodeLimit
	// StatusIncomplete means search ran out of nodes it could resolve
	// without proving anything. Values may hold an incumbent.
	StatusIncomplete
	// StatusInfeasible means no assignment satisfies the model.
	StatusInfeasible
	// StatusUnbounded means the objective is unbounded.
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusGapReached:
		return "gap-reached"
	case StatusTimeLimit:
		return "time-limit"
	case StatusNodeLimit:
		return "node-limit"
	case StatusIncomplete:
		return "incomplete"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// Params is the budget and guidance for one solve.
type Params struct {
	// TimeLimit bounds wall-clock search time. Zero means no limit.
	TimeLimit time.Duration
	// GapTolerance is the relative gap |incumbent-bound|/|incumbent| at
	// which search may stop. Zero asks for proven optimality.
	GapTolerance float64
	// Hint is an optional full assignment tried as the first incumbent.
	Hint []float64
	// NodeLimit bounds the number of search nodes. Zero means no limit.
	NodeLimit int
}

// Option configures Params.
type Option func(*Params)

// WithTimeLimit sets the time limit.
func WithTimeLimit(d time.Duration) Option {
	return func(p *Params) { p.TimeLimit = d }
}

// WithGapTolerance sets the relative optimality gap tolerance.
func WithGapTolerance(gap float64) Option {
	return func(p *Params) { p.GapTolerance = gap }
}

// WithHint sets a warm-start assignment.
func WithHint(values []float64) Option {
	return func(p *Params) { p.Hint = values }
}

// WithNodeLimit caps the number of search nodes.
func WithNodeLimit(n int) Option {
	return func(p *Params) { p.NodeLimit = n }
}

// NewParams applies options over zero Params.
func NewParams(opts ...Option) Params {
	var p Params
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Result is what an oracle returns.
type Result struct {
	Status Status
	// Values holds the incumbent assignment, nil when none was found.
	Values    []float64
	Objective float64
	// Bound is the best proven bound on the objective.
	Bound    float64
	Gap      float64
	Nodes    int
	Elapsed  time.Duration
	UsedHint bool
}

// HasSolution returns true if the result carries an assignment.
func (r Result) HasSolution() bool {
	return len(r.Values) > 0
}

// Oracle solves mixed-integer models. Implementations must not retain or
// mutate the model after Solve returns.
type Oracle interface {
	Name() string
	Solve(ctx context.Context, m *Model, p Params) (Result, error)
}
