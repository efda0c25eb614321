// Package mip holds a solver-neutral mixed-integer linear program and the
// narrow contract used to hand it to a solving engine.
//
// A model has the form:
//
//	Minimize (or Maximize): c · x + constant
//	Subject to:             a_i · x (<=, >=, =) b_i   for every constraint i
//	And:                    Lower_j <= x_j <= Upper_j
//
// with some x_j restricted to integer or binary values.
package mip

import (
	"fmt"
	"math"
	"sort"
)

// VarType is the domain of a variable.
type VarType int

const (
	Continuous VarType = iota
	Binary
	Integer
)

func (t VarType) String() string {
	switch t {
	case Binary:
		return "binary"
	case Integer:
		return "integer"
	default:
		return "continuous"
	}
}

// Var is a handle to a variable, its index in Model.Vars.
type Var int

// Variable is one column of the model.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Type  VarType
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// T builds a term.
func T(v Var, coef float64) Term {
	return Term{Var: v, Coef: coef}
}

// Expr is a linear expression: the sum of its terms plus a constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum builds an expression from terms.
func Sum(terms ...Term) Expr {
	return Expr{Terms: append([]Term(nil), terms...)}
}

// Plus returns a copy of e with coef*v added.
func (e Expr) Plus(v Var, coef float64) Expr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	return Expr{Terms: append(terms, Term{Var: v, Coef: coef}), Constant: e.Constant}
}

// PlusExpr returns e + scale*o.
func (e Expr) PlusExpr(o Expr, scale float64) Expr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+len(o.Terms))
	copy(terms, e.Terms)
	for _, t := range o.Terms {
		terms = append(terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	return Expr{Terms: terms, Constant: e.Constant + scale*o.Constant}
}

// PlusConst returns a copy of e with c added to the constant.
func (e Expr) PlusConst(c float64) Expr {
	return Expr{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant + c}
}

// Eval computes the expression for a full assignment.
func (e Expr) Eval(values []float64) float64 {
	v := e.Constant
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

// normalized merges duplicate variables and drops zero coefficients,
// ordering terms by variable.
func (e Expr) normalized() []Term {
	acc := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	terms := make([]Term, 0, len(acc))
	for v, c := range acc {
		if c != 0 {
			terms = append(terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Var < terms[j].Var })
	return terms
}

// Sense is the relation of a constraint row to its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// Constraint is one row: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Activity returns the row value sum(Terms) for an assignment.
func (c Constraint) Activity(values []float64) float64 {
	var a float64
	for _, t := range c.Terms {
		a += t.Coef * values[t.Var]
	}
	return a
}

// Violation returns by how much the assignment breaks the row, zero if
// satisfied.
func (c Constraint) Violation(values []float64) float64 {
	a := c.Activity(values)
	switch c.Sense {
	case LessEqual:
		return math.Max(0, a-c.RHS)
	case GreaterEqual:
		return math.Max(0, c.RHS-a)
	default:
		return math.Abs(a - c.RHS)
	}
}

// Direction is the optimization direction.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// Objective is the expression to optimize.
type Objective struct {
	Direction Direction
	Expr      Expr
}

// Model is a mixed-integer linear program under construction.
type Model struct {
	Name        string
	Vars        []Variable
	Constraints []Constraint
	Objective   Objective
}

// NewModel creates an empty minimization model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVar adds a variable and returns its handle. Binary variables are
// clamped to [0, 1].
func (m *Model) AddVar(name string, lower, upper float64, t VarType) Var {
	if t == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	m.Vars = append(m.Vars, Variable{Name: name, Lower: lower, Upper: upper, Type: t})
	return Var(len(m.Vars) - 1)
}

// AddContinuous adds a continuous variable.
func (m *Model) AddContinuous(name string, lower, upper float64) Var {
	return m.AddVar(name, lower, upper, Continuous)
}

// AddBinary adds a 0/1 variable.
func (m *Model) AddBinary(name string) Var {
	return m.AddVar(name, 0, 1, Binary)
}

// AddConstraint adds e sense rhs. The expression constant moves to the
// right-hand side.
func (m *Model) AddConstraint(name string, e Expr, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{
		Name:  name,
		Terms: e.normalized(),
		Sense: sense,
		RHS:   rhs - e.Constant,
	})
}

// AddLE adds e <= rhs.
func (m *Model) AddLE(name string, e Expr, rhs float64) {
	m.AddConstraint(name, e, LessEqual, rhs)
}

// AddGE adds e >= rhs.
func (m *Model) AddGE(name string, e Expr, rhs float64) {
	m.AddConstraint(name, e, GreaterEqual, rhs)
}

// AddEQ adds e = rhs.
func (m *Model) AddEQ(name string, e Expr, rhs float64) {
	m.AddConstraint(name, e, Equal, rhs)
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(d Direction, e Expr) {
	m.Objective = Objective{Direction: d, Expr: Expr{Terms: e.normalized(), Constant: e.Constant}}
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int {
	return len(m.Vars)
}

// IsIntegral reports whether v must take an integer value.
func (m *Model) IsIntegral(v Var) bool {
	return m.Vars[v].Type != Continuous
}

// ObjectiveValue evaluates the objective for an assignment.
func (m *Model) ObjectiveValue(values []float64) float64 {
	return m.Objective.Expr.Eval(values)
}

// Validate checks the model structure: bounds ordered and finite below,
// term variables in range.
func (m *Model) Validate() error {
	n := Var(len(m.Vars))
	for i, v := range m.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %s: lower bound must be finite", v.Name)
		}
		if v.Lower > v.Upper {
			return fmt.Errorf("variable %d (%s): lower bound %g exceeds upper bound %g", i, v.Name, v.Lower, v.Upper)
		}
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("constraint %s: unknown variable %d", c.Name, t.Var)
			}
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %s: right-hand side must be finite", c.Name)
		}
	}
	for _, t := range m.Objective.Expr.Terms {
		if t.Var < 0 || t.Var >= n {
			return fmt.Errorf("objective: unknown variable %d", t.Var)
		}
	}
	return nil
}

// Violations lists every bound, integrality and constraint breach larger
// than tol. An empty result means the assignment is feasible.
func (m *Model) Violations(values []float64, tol float64) []string {
	if len(values) != len(m.Vars) {
		return []string{fmt.Sprintf("assignment has %d values, model has %d variables", len(values), len(m.Vars))}
	}
	var out []string
	for i, v := range m.Vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			out = append(out, fmt.Sprintf("%s = %g outside [%g, %g]", v.Name, x, v.Lower, v.Upper))
		}
		if v.Type != Continuous && math.Abs(x-math.Round(x)) > tol {
			out = append(out, fmt.Sprintf("%s = %g is not integral", v.Name, x))
		}
	}
	for _, c := range m.Constraints {
		scale := math.Max(1, math.Abs(c.RHS))
		if viol := c.Violation(values); viol > tol*scale {
			out = append(out, fmt.Sprintf("%s violated by %g", c.Name, viol))
		}
	}
	return out
}

// Feasible reports whether the assignment satisfies the model within tol.
func (m *Model) Feasible(values []float64, tol float64) bool {
	return len(m.Violations(values, tol)) == 0
}

// Stats summarizes the model size.
type Stats struct {
	Variables   int
	Binaries    int
	Integers    int
	Constraints int
	Nonzeros    int
}

// Stats returns the model dimensions.
func (m *Model) Stats() Stats {
	s := Stats{Variables: len(m.Vars), Constraints: len(m.Constraints)}
	for _, v := range m.Vars {
		switch v.Type {
		case Binary:
			s.Binaries++
		case Integer:
			s.Integers++
		}
	}
	for _, c := range m.Constraints {
		s.Nonzeros += len(c.Terms)
	}
	return s
}

// VarByName returns the first variable with the given name.
func (m *Model) VarByName(name string) (Var, bool) {
	for i, v := range m.Vars {
		if v.Name == name {
			return Var(i), true
		}
	}
	return -1, false
}
