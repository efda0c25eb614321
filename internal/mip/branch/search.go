package branch

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/mip"
)

const (
	intTol = 1e-6
	// Assignments are accepted as incumbents within this tolerance.
	acceptTol = 1e-6
	// Gaps at or below this are treated as zero.
	zeroGap = 1e-9
)

type node struct {
	lb, ub []float64
	bound  float64 // LP value of the parent, a lower bound for the subtree
	depth  int
}

// search is one depth-first branch and bound run. Objective values are
// kept in minimization space without the constant term.
type search struct {
	m      *mip.Model
	p      mip.Params
	logger *zap.Logger

	sign float64
	cost []float64

	incumbent []float64
	incObj    float64
	usedHint  bool

	stack []node
	nodes int
	// Bounds of subtrees dropped without proof, either pruned within the gap
	// tolerance or abandoned after a numerical failure.
	lostBound float64
	failures  int
	stop      mip.Status
}

func newSearch(m *mip.Model, p mip.Params, logger *zap.Logger) *search {
	s := &search{
		m:         m,
		p:         p,
		logger:    logger,
		sign:      1,
		cost:      make([]float64, len(m.Vars)),
		incObj:    math.Inf(1),
		lostBound: math.Inf(1),
	}
	if m.Objective.Direction == mip.Maximize {
		s.sign = -1
	}
	for _, t := range m.Objective.Expr.Terms {
		s.cost[t.Var] += s.sign * t.Coef
	}
	return s
}

func (s *search) dot(x []float64) float64 {
	var v float64
	for j, c := range s.cost {
		v += c * x[j]
	}
	return v
}

func (s *search) run(ctx context.Context) {
	s.tryHint()
	root, ok := s.rootNode()
	if !ok {
		return
	}
	s.stack = append(s.stack, root)

	for len(s.stack) > 0 {
		if ctx.Err() != nil {
			s.stop = mip.StatusTimeLimit
			return
		}
		if s.p.NodeLimit > 0 && s.nodes >= s.p.NodeLimit {
			s.stop = mip.StatusNodeLimit
			return
		}
		nd := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if s.prune(nd.bound) {
			continue
		}

		s.nodes++
		lp, err := solveRelaxation(ctx, s.m, s.cost, nd.lb, nd.ub)
		if err != nil {
			if ctx.Err() != nil {
				s.stack = append(s.stack, nd)
				s.stop = mip.StatusTimeLimit
				return
			}
			s.failures++
			s.lostBound = math.Min(s.lostBound, nd.bound)
			s.logger.Debug("node relaxation failed",
				zap.Int("node", s.nodes),
				zap.Int("depth", nd.depth),
				zap.Error(err))
			continue
		}
		switch lp.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			s.stop = mip.StatusUnbounded
			return
		}
		if s.prune(lp.obj) {
			continue
		}

		j := s.branchVar(lp.x)
		if j < 0 {
			if s.offer(lp.x, lp.obj) && s.gapClosed() {
				return
			}
			continue
		}
		s.branch(nd, j, lp.x[j], lp.obj)

		if s.nodes%500 == 0 {
			s.logger.Debug("search progress",
				zap.Int("nodes", s.nodes),
				zap.Int("open", len(s.stack)),
				zap.Float64("incumbent", s.incObj),
				zap.Float64("bound", s.globalBound()))
		}
	}
}

// tryHint adopts the hint as the first incumbent when it is feasible after
// rounding its integer entries.
func (s *search) tryHint() {
	if len(s.p.Hint) != len(s.m.Vars) {
		return
	}
	vals := s.rounded(s.p.Hint)
	if !s.m.Feasible(vals, acceptTol) {
		s.logger.Debug("warm start rejected", zap.Strings("violations", s.m.Violations(vals, acceptTol)))
		return
	}
	s.incumbent = vals
	s.incObj = s.dot(vals)
	s.usedHint = true
}

func (s *search) rootNode() (node, bool) {
	n := len(s.m.Vars)
	nd := node{lb: make([]float64, n), ub: make([]float64, n), bound: math.Inf(-1)}
	for j, v := range s.m.Vars {
		lo, hi := v.Lower, v.Upper
		if v.Type != mip.Continuous {
			lo, hi = math.Ceil(lo-intTol), math.Floor(hi+intTol)
		}
		if lo > hi {
			return node{}, false
		}
		nd.lb[j], nd.ub[j] = lo, hi
	}
	return nd, true
}

// prune reports whether a subtree with the given bound cannot improve the
// incumbent enough to matter.
func (s *search) prune(bound float64) bool {
	if math.IsInf(s.incObj, 1) {
		return false
	}
	if bound >= s.incObj-zeroGap*math.Max(1, math.Abs(s.incObj)) {
		return true
	}
	if s.p.GapTolerance > 0 && bound >= s.incObj-s.p.GapTolerance*math.Abs(s.incObj) {
		s.lostBound = math.Min(s.lostBound, bound)
		return true
	}
	return false
}

// branchVar returns the most fractional integer variable, lowest index on
// ties, or -1 when x is integral.
func (s *search) branchVar(x []float64) int {
	best, bestScore := -1, intTol
	for j, v := range s.m.Vars {
		if v.Type == mip.Continuous {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if score := math.Min(f, 1-f); score > bestScore {
			best, bestScore = j, score
		}
	}
	return best
}

// branch pushes both children so that the nearer rounding is explored first.
func (s *search) branch(parent node, j int, xj, bound float64) {
	down := node{lb: parent.lb, ub: append([]float64(nil), parent.ub...), bound: bound, depth: parent.depth + 1}
	down.ub[j] = math.Floor(xj)
	up := node{lb: append([]float64(nil), parent.lb...), ub: parent.ub, bound: bound, depth: parent.depth + 1}
	up.lb[j] = math.Ceil(xj)

	if xj-math.Floor(xj) >= 0.5 {
		s.stack = append(s.stack, down, up)
	} else {
		s.stack = append(s.stack, up, down)
	}
}

func (s *search) rounded(x []float64) []float64 {
	vals := append([]float64(nil), x...)
	for j, v := range s.m.Vars {
		if v.Type != mip.Continuous {
			vals[j] = math.Round(vals[j])
		}
		vals[j] = math.Min(math.Max(vals[j], v.Lower), v.Upper)
	}
	return vals
}

// offer records an integral LP solution as incumbent when it improves.
func (s *search) offer(x []float64, bound float64) bool {
	vals := s.rounded(x)
	if !s.m.Feasible(vals, acceptTol) {
		s.failures++
		s.lostBound = math.Min(s.lostBound, bound)
		s.logger.Debug("integral relaxation rejected after rounding",
			zap.Strings("violations", s.m.Violations(vals, acceptTol)))
		return false
	}
	z := s.dot(vals)
	if z >= s.incObj {
		return false
	}
	s.incumbent, s.incObj = vals, z
	s.logger.Debug("new incumbent", zap.Int("node", s.nodes), zap.Float64("objective", s.sign*z))
	return true
}

// gapClosed checks the stopping rule after an incumbent improves.
func (s *search) gapClosed() bool {
	if s.p.GapTolerance <= 0 {
		return false
	}
	return relGap(s.incObj, s.globalBound()) <= s.p.GapTolerance
}

// globalBound is the smallest bound over unexplored or unproven subtrees.
func (s *search) globalBound() float64 {
	b := s.lostBound
	for _, nd := range s.stack {
		b = math.Min(b, nd.bound)
	}
	if math.IsInf(b, 1) && !math.IsInf(s.incObj, 1) {
		return s.incObj
	}
	return math.Min(b, s.incObj)
}

func relGap(inc, bound float64) float64 {
	if math.IsInf(inc, 1) {
		return math.Inf(1)
	}
	diff := inc - bound
	if diff <= zeroGap*math.Max(1, math.Abs(inc)) {
		return 0
	}
	return diff / math.Max(math.Abs(inc), 1e-10)
}

func (s *search) result() mip.Result {
	res := mip.Result{Nodes: s.nodes, UsedHint: s.usedHint}
	if s.stop == mip.StatusUnbounded {
		res.Status = mip.StatusUnbounded
		return res
	}
	c0 := s.m.Objective.Expr.Constant
	bound := s.globalBound()
	if !math.IsInf(bound, 0) {
		res.Bound = s.sign*bound + c0
	}

	if s.incumbent == nil {
		switch {
		case s.stop != mip.StatusUnknown:
			res.Status = s.stop
		case s.failures > 0 && !math.IsInf(s.lostBound, 1):
			res.Status = mip.StatusIncomplete
		default:
			res.Status = mip.StatusInfeasible
		}
		res.Gap = math.Inf(1)
		return res
	}

	res.Values = s.incumbent
	res.Objective = s.m.ObjectiveValue(s.incumbent)
	res.Gap = relGap(s.incObj, bound)
	switch {
	case res.Gap == 0:
		res.Status = mip.StatusOptimal
	case res.Gap <= s.p.GapTolerance:
		res.Status = mip.StatusGapReached
	case s.stop != mip.StatusUnknown:
		res.Status = s.stop
	default:
		res.Status = mip.StatusIncomplete
	}
	return res
}
