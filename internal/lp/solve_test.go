package lp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveMinimize(t *testing.T) {
	t.Run("should reach the binding constraint", func(t *testing.T) {
		m := NewModel()
		x := m.AddVariable("x", 0, 10)
		y := m.AddVariable("y", 0, 10)
		m.AddConstraint("floor", []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}}, Ge, 2)
		m.SetObjective([]Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}}, Minimize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.InDelta(t, 2.0, sol.Objective, 1e-8)
		assert.InDelta(t, 2.0, sol.Value(x)+sol.Value(y), 1e-8)
	})

	t.Run("should respect shifted lower bounds", func(t *testing.T) {
		m := NewModel()
		x := m.AddVariable("x", 3, 10)
		m.AddConstraint("cap", []Term{{Var: x, Coeff: 1}}, Le, 8)
		m.SetObjective([]Term{{Var: x, Coeff: 1}}, Minimize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, sol.Value(x), 1e-8)
		assert.InDelta(t, 3.0, sol.Objective, 1e-8)
	})

	t.Run("objective counts shifted bounds once", func(t *testing.T) {
		// Welfare shape with a raised generator floor: the optimum is
		// g = d = 80 and the objective must be 30*80 - 10*80, not that
		// minus the floor's cost contribution.
		m := NewModel()
		g := m.AddVariable("g", 20, 100)
		d := m.AddVariable("d", 0, 80)
		m.AddConstraint("balance", []Term{{Var: g, Coeff: 1}, {Var: d, Coeff: -1}}, Eq, 0)
		m.SetObjective([]Term{{Var: d, Coeff: 30}, {Var: g, Coeff: -10}}, Maximize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		assert.InDelta(t, 80.0, sol.Value(g), 1e-8)
		assert.InDelta(t, 1600.0, sol.Objective, 1e-8)
	})
}

func TestSolveMaximize(t *testing.T) {
	m := NewModel()
	x := m.AddVariable("x", 0, 2)
	y := m.AddVariable("y", 0, 10)
	m.AddConstraint("budget", []Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}}, Le, 4)
	m.SetObjective([]Term{{Var: x, Coeff: 3}, {Var: y, Coeff: 2}}, Maximize)

	sol, err := Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2.0, sol.Value(x), 1e-8)
	assert.InDelta(t, 2.0, sol.Value(y), 1e-8)
	assert.InDelta(t, 10.0, sol.Objective, 1e-8)
}

func TestSolveFreeVariable(t *testing.T) {
	m := NewModel()
	inf := math.Inf(1)
	y := m.AddVariable("y", -inf, inf)
	m.AddConstraint("pin", []Term{{Var: y, Coeff: 1}}, Eq, -3)
	m.SetObjective([]Term{{Var: y, Coeff: 1}}, Minimize)

	sol, err := Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, -3.0, sol.Value(y), 1e-8)
	assert.InDelta(t, -3.0, sol.Objective, 1e-8)
}

func TestDuals(t *testing.T) {
	t.Run("marginal unit sets the dual of the balance row", func(t *testing.T) {
		// Two supply variables, demand pinned at 150: the expensive one
		// is marginal, so the balance dual is its cost.
		m := NewModel()
		g1 := m.AddVariable("g1", 0, 100)
		g2 := m.AddVariable("g2", 0, 100)
		m.AddConstraint("balance", []Term{{Var: g1, Coeff: 1}, {Var: g2, Coeff: 1}}, Eq, 150)
		m.SetObjective([]Term{{Var: g1, Coeff: 10}, {Var: g2, Coeff: 20}}, Minimize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		require.True(t, sol.HasDuals)

		assert.InDelta(t, 100.0, sol.Value(g1), 1e-8)
		assert.InDelta(t, 50.0, sol.Value(g2), 1e-8)

		d, ok := sol.Dual("balance")
		require.True(t, ok)
		assert.InDelta(t, 20.0, d, 1e-6)
	})

	t.Run("maximized problems report duals of the minimized form", func(t *testing.T) {
		// Welfare-style objective: max 30d - 10g1 - 20g2 with the balance
		// written generation minus demand. The dual is the clearing price.
		m := NewModel()
		g1 := m.AddVariable("g1", 0, 100)
		g2 := m.AddVariable("g2", 0, 100)
		d := m.AddVariable("d", 0, 150)
		m.AddConstraint("balance", []Term{
			{Var: g1, Coeff: 1}, {Var: g2, Coeff: 1}, {Var: d, Coeff: -1},
		}, Eq, 0)
		m.SetObjective([]Term{
			{Var: d, Coeff: 30}, {Var: g1, Coeff: -10}, {Var: g2, Coeff: -20},
		}, Maximize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		require.True(t, sol.HasDuals)
		assert.InDelta(t, 2500.0, sol.Objective, 1e-6)

		price, ok := sol.Dual("balance")
		require.True(t, ok)
		assert.InDelta(t, 20.0, price, 1e-6)
	})
}

func TestSolveInfeasible(t *testing.T) {
	m := NewModel()
	x := m.AddVariable("x", 0, 1)
	m.AddConstraint("floor", []Term{{Var: x, Coeff: 1}}, Ge, 2)
	m.SetObjective([]Term{{Var: x, Coeff: 1}}, Minimize)

	sol, err := Solve(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolveUnbounded(t *testing.T) {
	m := NewModel()
	x := m.AddVariable("x", 0, math.Inf(1))
	m.SetObjective([]Term{{Var: x, Coeff: 1}}, Maximize)

	sol, err := Solve(context.Background(), m)
	require.Error(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestZeroRowDetection(t *testing.T) {
	t.Run("contradictory empty row is infeasible", func(t *testing.T) {
		m := NewModel()
		x := m.AddVariable("x", 0, 1)
		m.AddConstraint("empty", nil, Eq, 5)
		m.SetObjective([]Term{{Var: x, Coeff: 1}}, Minimize)

		sol, err := Solve(context.Background(), m)
		require.Error(t, err)
		assert.Equal(t, StatusInfeasible, sol.Status)
	})

	t.Run("satisfied empty row is dropped", func(t *testing.T) {
		m := NewModel()
		x := m.AddVariable("x", 0, 1)
		m.AddConstraint("empty", nil, Le, 5)
		m.AddConstraint("pin", []Term{{Var: x, Coeff: 1}}, Eq, 1)
		m.SetObjective([]Term{{Var: x, Coeff: 1}}, Minimize)

		sol, err := Solve(context.Background(), m)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sol.Value(x), 1e-8)
	})
}

func TestModelValidation(t *testing.T) {
	t.Run("rejects crossed bounds", func(t *testing.T) {
		m := NewModel()
		m.AddVariable("x", 5, 1)
		sol, err := Solve(context.Background(), m)
		require.Error(t, err)
		assert.Equal(t, StatusSolverError, sol.Status)
	})

	t.Run("rejects duplicate tags", func(t *testing.T) {
		m := NewModel()
		x := m.AddVariable("x", 0, 1)
		m.AddConstraint("t", []Term{{Var: x, Coeff: 1}}, Le, 1)
		m.AddConstraint("t", []Term{{Var: x, Coeff: 1}}, Ge, 0)
		sol, err := Solve(context.Background(), m)
		require.Error(t, err)
		assert.Equal(t, StatusSolverError, sol.Status)
	})
}
