package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

type Status string

const (
	StatusOptimal     Status = "OPTIMAL"
	StatusInfeasible  Status = "INFEASIBLE"
	StatusUnbounded   Status = "UNBOUNDED"
	StatusSolverError Status = "SOLVER_ERROR"
)

// simplexTol is the pivot tolerance handed to the simplex back-end.
const simplexTol = 1e-10

// Solution is the terminal outcome of one solve.
type Solution struct {
	Status    Status
	Objective float64 // in the model's own sense

	values []float64
	duals  map[string]float64
	// HasDuals is false when the primal solved but dual recovery failed;
	// callers fall back to primal-based price heuristics.
	HasDuals bool
}

func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) < 0 || int(v) >= len(s.values) {
		return 0
	}
	return s.values[v]
}

// Dual returns the dual value of the tagged constraint, with respect to the
// minimized objective and the row as written (see package comment).
func (s *Solution) Dual(tag string) (float64, bool) {
	if s == nil || !s.HasDuals {
		return 0, false
	}
	d, ok := s.duals[tag]
	return d, ok
}

// Solve submits the model to the simplex back-end. The returned error is nil
// only for StatusOptimal. Cancellation or deadline expiry on ctx abandons the
// solve and reports StatusSolverError; the worker goroutine holds no
// resources beyond CPU.
func Solve(ctx context.Context, m *Model) (*Solution, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	type outcome struct {
		sol *Solution
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		sol, err := solve(m)
		ch <- outcome{sol, err}
	}()

	select {
	case <-ctx.Done():
		return &Solution{Status: StatusSolverError}, fmt.Errorf("solve aborted: %w", ctx.Err())
	case out := <-ch:
		return out.sol, out.err
	}
}

func solve(m *Model) (*Solution, error) {
	if err := m.validate(); err != nil {
		return &Solution{Status: StatusSolverError}, fmt.Errorf("invalid model: %w", err)
	}

	sf, err := toStandardForm(m)
	if err != nil {
		return &Solution{Status: StatusSolverError}, err
	}
	if sf.infeasible {
		return &Solution{Status: StatusInfeasible}, fmt.Errorf("problem is infeasible")
	}
	if sf.unbounded {
		return &Solution{Status: StatusUnbounded}, fmt.Errorf("problem is unbounded")
	}

	var zFull []float64
	if len(sf.rows) == 0 {
		// Pure box problem: every remaining column was pruned at its
		// optimal value of zero.
		zFull = make([]float64, sf.nStd)
	} else {
		c, a, b := sf.dense()
		_, z, err := lp.Simplex(c, a, b, simplexTol, nil)
		if err != nil {
			switch {
			case errors.Is(err, lp.ErrInfeasible):
				return &Solution{Status: StatusInfeasible}, fmt.Errorf("problem is infeasible: %w", err)
			case errors.Is(err, lp.ErrUnbounded):
				return &Solution{Status: StatusUnbounded}, fmt.Errorf("problem is unbounded: %w", err)
			default:
				return &Solution{Status: StatusSolverError}, fmt.Errorf("simplex failed: %w", err)
			}
		}
		zFull = sf.expand(z)
	}

	sol := &Solution{
		Status: StatusOptimal,
		values: make([]float64, m.NumVariables()),
	}
	for j, vm := range sf.vars {
		x := vm.shift
		switch vm.kind {
		case varShifted:
			x += zFull[vm.p]
		case varMirrored:
			x -= zFull[vm.p]
		case varFree:
			x += zFull[vm.p] - zFull[vm.n]
		}
		sol.values[j] = x
	}

	// sol.values are in the model's own space, so summing c·x here already
	// carries the bound shifts.
	objVal := 0.0
	for _, t := range m.objective {
		objVal += t.Coeff * sol.values[t.Var]
	}
	sol.Objective = objVal

	if duals, ok := sf.recoverDuals(); ok {
		sol.duals = duals
		sol.HasDuals = true
	}
	return sol, nil
}

const (
	varShifted = iota
	varMirrored
	varFree
)

type varMap struct {
	kind  int
	p, n  int
	shift float64
}

type sparseRow struct {
	coeffs map[int]float64
	rhs    float64
	tag    string
}

type standardForm struct {
	vars     []varMap
	rows     []sparseRow
	c     []float64 // minimized cost over std columns
	nStd  int
	sigma float64

	infeasible bool
	unbounded  bool

	// keep maps compressed (pruned) column index -> original std index.
	keep []int
}

// toStandardForm rewrites the model as min c·z, A z = b, z >= 0.
// Bounded variables are shifted (or mirrored) onto [0, u-l] with an explicit
// slack row for finite upper bounds; free variables split into z+ - z-.
func toStandardForm(m *Model) (*standardForm, error) {
	sf := &standardForm{sigma: 1}
	if m.sense == Maximize {
		sf.sigma = -1
	}

	next := 0
	sf.vars = make([]varMap, m.NumVariables())
	for j := 0; j < m.NumVariables(); j++ {
		l, u := m.lower[j], m.upper[j]
		switch {
		case !math.IsInf(l, -1):
			sf.vars[j] = varMap{kind: varShifted, p: next, shift: l}
			next++
		case !math.IsInf(u, 1):
			sf.vars[j] = varMap{kind: varMirrored, p: next, shift: u}
			next++
		default:
			sf.vars[j] = varMap{kind: varFree, p: next, n: next + 1}
			next += 2
		}
	}

	addRow := func(tag string, coeffs map[int]float64, rhs float64) {
		sf.rows = append(sf.rows, sparseRow{coeffs: coeffs, rhs: rhs, tag: tag})
	}

	for _, con := range m.constraints {
		coeffs := make(map[int]float64)
		rhs := con.rhs
		for _, t := range con.terms {
			vm := sf.vars[t.Var]
			rhs -= t.Coeff * vm.shift
			switch vm.kind {
			case varShifted:
				coeffs[vm.p] += t.Coeff
			case varMirrored:
				coeffs[vm.p] -= t.Coeff
			case varFree:
				coeffs[vm.p] += t.Coeff
				coeffs[vm.n] -= t.Coeff
			}
		}
		// A row with every coefficient zero cannot enter the basis;
		// decide it here instead of handing it to the solver.
		allZero := true
		for _, v := range coeffs {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			switch {
			case con.op == Eq && math.Abs(rhs) > 1e-9:
				sf.infeasible = true
			case con.op == Le && rhs < -1e-9:
				sf.infeasible = true
			case con.op == Ge && rhs > 1e-9:
				sf.infeasible = true
			}
			continue
		}
		switch con.op {
		case Le:
			coeffs[next] = 1
			next++
		case Ge:
			coeffs[next] = -1
			next++
		}
		addRow(con.tag, coeffs, rhs)
	}

	// Finite upper bounds of shifted variables become explicit rows.
	for j := 0; j < m.NumVariables(); j++ {
		vm := sf.vars[j]
		if vm.kind != varShifted || math.IsInf(m.upper[j], 1) {
			continue
		}
		coeffs := map[int]float64{vm.p: 1, next: 1}
		next++
		addRow("", coeffs, m.upper[j]-m.lower[j])
	}

	sf.nStd = next

	sf.c = make([]float64, sf.nStd)
	for _, t := range m.objective {
		vm := sf.vars[t.Var]
		switch vm.kind {
		case varShifted:
			sf.c[vm.p] += sf.sigma * t.Coeff
		case varMirrored:
			sf.c[vm.p] -= sf.sigma * t.Coeff
		case varFree:
			sf.c[vm.p] += sf.sigma * t.Coeff
			sf.c[vm.n] -= sf.sigma * t.Coeff
		}
	}

	// Prune columns that appear in no row: cost-improving ones make the
	// problem unbounded, the rest sit at zero.
	used := make([]bool, sf.nStd)
	for _, r := range sf.rows {
		for idx, v := range r.coeffs {
			if v != 0 {
				used[idx] = true
			}
		}
	}
	for idx := 0; idx < sf.nStd; idx++ {
		if used[idx] {
			sf.keep = append(sf.keep, idx)
		} else if sf.c[idx] < 0 {
			sf.unbounded = true
		}
	}

	return sf, nil
}

// dense materializes the compressed cost vector, constraint matrix and rhs.
func (sf *standardForm) dense() ([]float64, *mat.Dense, []float64) {
	col := make(map[int]int, len(sf.keep))
	for k, idx := range sf.keep {
		col[idx] = k
	}
	nr, nc := len(sf.rows), len(sf.keep)
	a := mat.NewDense(nr, nc, nil)
	b := make([]float64, nr)
	for i, r := range sf.rows {
		b[i] = r.rhs
		for idx, v := range r.coeffs {
			if k, ok := col[idx]; ok {
				a.Set(i, k, v)
			}
		}
	}
	c := make([]float64, nc)
	for k, idx := range sf.keep {
		c[k] = sf.c[idx]
	}
	return c, a, b
}

// expand scatters a compressed solution vector back over all std columns.
func (sf *standardForm) expand(z []float64) []float64 {
	full := make([]float64, sf.nStd)
	for k, idx := range sf.keep {
		full[idx] = z[k]
	}
	return full
}

// recoverDuals solves the explicit dual program of the standard form with the
// same simplex back-end. The dual of min{c z : A z = b, z >= 0} is
// max{b y : A' y <= c} with y free; y_i is the sensitivity of the minimized
// objective to row i's rhs. The back-end only reports primal points, and the
// dual of an LP is itself an LP, so no solver internals are required.
func (sf *standardForm) recoverDuals() (map[string]float64, bool) {
	nr, nc := len(sf.rows), len(sf.keep)
	if nr == 0 {
		return map[string]float64{}, true
	}

	// Columns of the dual standard form: y+ (nr), y- (nr), slack (nc).
	nd := 2*nr + nc
	cD := make([]float64, nd)
	aD := mat.NewDense(nc, nd, nil)
	bD := make([]float64, nc)

	col := make(map[int]int, len(sf.keep))
	for k, idx := range sf.keep {
		col[idx] = k
	}
	for i, r := range sf.rows {
		cD[i] = -r.rhs
		cD[nr+i] = r.rhs
		for idx, v := range r.coeffs {
			if k, ok := col[idx]; ok {
				aD.Set(k, i, v)
				aD.Set(k, nr+i, -v)
			}
		}
	}
	for k, idx := range sf.keep {
		aD.Set(k, 2*nr+k, 1)
		bD[k] = sf.c[idx]
	}

	_, y, err := lp.Simplex(cD, aD, bD, simplexTol, nil)
	if err != nil {
		return nil, false
	}

	duals := make(map[string]float64)
	for i, r := range sf.rows {
		if r.tag == "" {
			continue
		}
		duals[r.tag] = y[i] - y[nr+i]
	}
	return duals, true
}
