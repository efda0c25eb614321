package branch

import (
	"context"
	"errors"
	"math"

	"github.com/piwi3910/RoomPlan/internal/mip"
)

const (
	pivotTol = 1e-9
	costTol  = 1e-9
	feasTol  = 1e-7
	// Consecutive degenerate pivots before switching to Bland's rule.
	blandAfter = 30
)

var errIterationLimit = errors.New("simplex iteration limit reached")

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

type lpResult struct {
	status     lpStatus
	x          []float64 // one value per model variable
	obj        float64   // cost · x
	iterations int
}

// stdRow is a constraint after shifting variables to their lower bounds:
// coef · x' + slack*s = rhs with x', s >= 0.
type stdRow struct {
	coef  []float64
	slack float64
	rhs   float64
}

// tableau is a dense simplex tableau. Each row ends with its right-hand
// side; obj holds reduced costs and, last, the negated objective value.
type tableau struct {
	rows       [][]float64
	obj        []float64
	basis      []int
	width      int
	enterLimit int // columns at or past this index never enter the basis
	iterations int
}

// solveRelaxation solves min cost·x subject to the model rows and the node
// bounds lb <= x <= ub, ignoring integrality. Fixed variables are removed
// before the tableau is built.
func solveRelaxation(ctx context.Context, m *mip.Model, cost, lb, ub []float64) (lpResult, error) {
	n := len(m.Vars)
	col := make([]int, n)
	var free []int
	for j := 0; j < n; j++ {
		if ub[j] < lb[j]-feasTol {
			return lpResult{status: lpInfeasible}, nil
		}
		if ub[j]-lb[j] <= pivotTol {
			col[j] = -1
			continue
		}
		col[j] = len(free)
		free = append(free, j)
	}
	nf := len(free)

	rows := make([]stdRow, 0, len(m.Constraints)+nf)
	for _, c := range m.Constraints {
		rhs := c.RHS
		coef := make([]float64, nf)
		active := false
		for _, t := range c.Terms {
			rhs -= t.Coef * lb[t.Var]
			if k := col[t.Var]; k >= 0 && t.Coef != 0 {
				coef[k] += t.Coef
				active = true
			}
		}
		if !active {
			if !constantRowHolds(c.Sense, rhs) {
				return lpResult{status: lpInfeasible}, nil
			}
			continue
		}
		var slack float64
		switch c.Sense {
		case mip.LessEqual:
			slack = 1
		case mip.GreaterEqual:
			slack = -1
		}
		rows = append(rows, stdRow{coef: coef, slack: slack, rhs: rhs})
	}
	for k, j := range free {
		if math.IsInf(ub[j], 1) {
			continue
		}
		coef := make([]float64, nf)
		coef[k] = 1
		rows = append(rows, stdRow{coef: coef, slack: 1, rhs: ub[j] - lb[j]})
	}

	t := buildTableau(rows, nf)
	if t.enterLimit < t.width {
		if err := t.phaseOne(ctx); err != nil {
			return lpResult{}, err
		}
		if -t.obj[t.width] > feasTol*math.Max(1, maxAbsRHS(rows)) {
			return lpResult{status: lpInfeasible, iterations: t.iterations}, nil
		}
		t.evictArtificials()
	}

	colCost := make([]float64, t.width)
	for k, j := range free {
		colCost[k] = cost[j]
	}
	t.setObjective(colCost)
	unbounded, err := t.iterate(ctx)
	if err != nil {
		return lpResult{}, err
	}
	if unbounded {
		return lpResult{status: lpUnbounded, iterations: t.iterations}, nil
	}

	x := make([]float64, n)
	copy(x, lb)
	for i, b := range t.basis {
		if b < nf {
			x[free[b]] += t.rows[i][t.width]
		}
	}
	var obj float64
	for j := range x {
		x[j] = math.Min(math.Max(x[j], lb[j]), ub[j])
		obj += cost[j] * x[j]
	}
	return lpResult{status: lpOptimal, x: x, obj: obj, iterations: t.iterations}, nil
}

func constantRowHolds(s mip.Sense, rhs float64) bool {
	switch s {
	case mip.LessEqual:
		return rhs >= -feasTol
	case mip.GreaterEqual:
		return rhs <= feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

func maxAbsRHS(rows []stdRow) float64 {
	var v float64
	for _, r := range rows {
		v = math.Max(v, math.Abs(r.rhs))
	}
	return v
}

// buildTableau lays out structural columns, then slacks, then artificials.
// Rows are sign-normalized so every right-hand side is non-negative; a row
// whose slack then has coefficient +1 starts with the slack basic, every
// other row gets an artificial.
func buildTableau(rows []stdRow, nf int) *tableau {
	ns, na := 0, 0
	for i := range rows {
		if rows[i].rhs < 0 {
			for k := range rows[i].coef {
				rows[i].coef[k] = -rows[i].coef[k]
			}
			rows[i].slack = -rows[i].slack
			rows[i].rhs = -rows[i].rhs
		}
		if rows[i].slack != 0 {
			ns++
		}
		if rows[i].slack != 1 {
			na++
		}
	}

	width := nf + ns + na
	t := &tableau{
		rows:       make([][]float64, len(rows)),
		basis:      make([]int, len(rows)),
		width:      width,
		enterLimit: nf + ns,
	}
	si, ai := nf, nf+ns
	for i, r := range rows {
		line := make([]float64, width+1)
		copy(line, r.coef)
		if r.slack != 0 {
			line[si] = r.slack
			if r.slack == 1 {
				t.basis[i] = si
			}
			si++
		}
		if r.slack != 1 {
			line[ai] = 1
			t.basis[i] = ai
			ai++
		}
		line[width] = r.rhs
		t.rows[i] = line
	}
	return t
}

// phaseOne minimizes the sum of artificials.
func (t *tableau) phaseOne(ctx context.Context) error {
	obj := make([]float64, t.width+1)
	for j := t.enterLimit; j < t.width; j++ {
		obj[j] = 1
	}
	for i, b := range t.basis {
		if b >= t.enterLimit {
			for j, v := range t.rows[i] {
				obj[j] -= v
			}
		}
	}
	t.obj = obj
	_, err := t.iterate(ctx)
	return err
}

// evictArtificials pivots zero-valued artificials out of the basis. Rows
// with no usable pivot are redundant and keep their artificial at zero.
func (t *tableau) evictArtificials() {
	for i, b := range t.basis {
		if b < t.enterLimit {
			continue
		}
		best, bestAbs := -1, pivotTol
		for j := 0; j < t.enterLimit; j++ {
			if a := math.Abs(t.rows[i][j]); a > bestAbs {
				best, bestAbs = j, a
			}
		}
		if best >= 0 {
			t.pivot(i, best)
		}
	}
}

// setObjective installs reduced costs for cost vector c given the current
// basis.
func (t *tableau) setObjective(c []float64) {
	obj := make([]float64, t.width+1)
	copy(obj, c)
	for i, b := range t.basis {
		cb := c[b]
		if cb == 0 {
			continue
		}
		for j, v := range t.rows[i] {
			obj[j] -= cb * v
		}
	}
	t.obj = obj
}

// iterate pivots until no column prices out. It reports true when the
// objective is unbounded below.
func (t *tableau) iterate(ctx context.Context) (bool, error) {
	maxIter := 50*(len(t.rows)+t.width) + 1000
	degenerate := 0
	for it := 0; ; it++ {
		if it >= maxIter {
			return false, errIterationLimit
		}
		if it&63 == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		bland := degenerate >= blandAfter
		enter := t.entering(bland)
		if enter < 0 {
			return false, nil
		}
		leave := t.leaving(enter, bland)
		if leave < 0 {
			return true, nil
		}
		if t.rows[leave][t.width] <= pivotTol {
			degenerate++
		} else {
			degenerate = 0
		}
		t.pivot(leave, enter)
		t.iterations++
	}
}

// entering picks the most negative reduced cost, or under Bland's rule the
// lowest-index negative one.
func (t *tableau) entering(bland bool) int {
	best, bestCost := -1, -costTol
	for j := 0; j < t.enterLimit; j++ {
		d := t.obj[j]
		if d >= -costTol {
			continue
		}
		if bland {
			return j
		}
		if d < bestCost {
			best, bestCost = j, d
		}
	}
	return best
}

// leaving runs the ratio test for column e. Ties go to the larger pivot
// element, or under Bland's rule to the lowest basic index.
func (t *tableau) leaving(e int, bland bool) int {
	best := -1
	var bestRatio, bestPivot float64
	for i, row := range t.rows {
		a := row[e]
		if a <= pivotTol {
			continue
		}
		ratio := math.Max(row[t.width], 0) / a
		switch {
		case best < 0 || ratio < bestRatio-1e-12:
		case ratio <= bestRatio+1e-12:
			if bland {
				if t.basis[i] >= t.basis[best] {
					continue
				}
			} else if a <= bestPivot {
				continue
			}
		default:
			continue
		}
		best, bestRatio, bestPivot = i, ratio, a
	}
	return best
}

func (t *tableau) pivot(r, e int) {
	pr := t.rows[r]
	inv := 1 / pr[e]
	nz := make([]int, 0, len(pr))
	for j := range pr {
		if pr[j] != 0 {
			pr[j] *= inv
			nz = append(nz, j)
		}
	}
	pr[e] = 1

	eliminate := func(row []float64) {
		f := row[e]
		if f == 0 {
			return
		}
		for _, j := range nz {
			row[j] -= f * pr[j]
		}
		row[e] = 0
	}
	for i, row := range t.rows {
		if i != r {
			eliminate(row)
		}
	}
	eliminate(t.obj)
	t.basis[r] = e
}
