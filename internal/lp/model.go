// Package lp is the boundary to the external linear-programming solver.
//
// Callers build a Model (continuous variables with bounds, tagged linear
// constraints, one linear objective), hand it to Solve, and read primal values
// by variable handle and dual values by constraint tag. Nothing in this
// package knows about markets; it is swappable across solver back-ends.
//
// Dual sign convention, fixed once for the whole repository: duals are
// reported for the minimized form of the problem and for the constraint row
// exactly as written. Dual(tag) is therefore d(minimized objective)/d(rhs).
// The clearing builders arrange every balance row so that this number is
// directly the market price; see internal/prices.
package lp

import (
	"fmt"
	"math"
)

type Sense int

const (
	Minimize Sense = iota
	Maximize
)

type Op int

const (
	Eq Op = iota
	Le
	Ge
)

// Var is an opaque variable handle issued by AddVariable.
type Var int

// Term is one coefficient·variable entry of a linear expression.
type Term struct {
	Var   Var
	Coeff float64
}

type constraint struct {
	tag   string
	terms []Term
	op    Op
	rhs   float64
}

// Model is a linear program under construction. The zero value is not usable;
// call NewModel.
type Model struct {
	names       []string
	lower       []float64
	upper       []float64
	constraints []constraint
	objective   []Term
	sense       Sense
}

func NewModel() *Model {
	return &Model{}
}

// AddVariable declares a continuous variable with the given bounds.
// Use math.Inf for unbounded sides.
func (m *Model) AddVariable(name string, lower, upper float64) Var {
	m.names = append(m.names, name)
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	return Var(len(m.names) - 1)
}

// AddConstraint declares a linear constraint. A non-empty tag makes the
// constraint's dual value retrievable from the solution.
func (m *Model) AddConstraint(tag string, terms []Term, op Op, rhs float64) {
	m.constraints = append(m.constraints, constraint{
		tag:   tag,
		terms: append([]Term(nil), terms...),
		op:    op,
		rhs:   rhs,
	})
}

func (m *Model) SetObjective(terms []Term, sense Sense) {
	m.objective = append([]Term(nil), terms...)
	m.sense = sense
}

func (m *Model) NumVariables() int   { return len(m.names) }
func (m *Model) NumConstraints() int { return len(m.constraints) }

func (m *Model) validate() error {
	if len(m.names) == 0 {
		return fmt.Errorf("model has no variables")
	}
	for j := range m.names {
		if m.lower[j] > m.upper[j] {
			return fmt.Errorf("variable %q: lower bound %g exceeds upper bound %g", m.names[j], m.lower[j], m.upper[j])
		}
	}
	seen := make(map[string]bool)
	for _, c := range m.constraints {
		if c.tag != "" {
			if seen[c.tag] {
				return fmt.Errorf("duplicate constraint tag %q", c.tag)
			}
			seen[c.tag] = true
		}
		for _, t := range c.terms {
			if int(t.Var) < 0 || int(t.Var) >= len(m.names) {
				return fmt.Errorf("constraint %q references unknown variable %d", c.tag, t.Var)
			}
			if math.IsNaN(t.Coeff) || math.IsInf(t.Coeff, 0) {
				return fmt.Errorf("constraint %q has non-finite coefficient on %q", c.tag, m.names[t.Var])
			}
		}
	}
	for _, t := range m.objective {
		if int(t.Var) < 0 || int(t.Var) >= len(m.names) {
			return fmt.Errorf("objective references unknown variable %d", t.Var)
		}
	}
	return nil
}
