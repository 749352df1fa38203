// Package clearing translates a market data snapshot and a variant tag into a
// linear program. Builders never solve; they return the model plus the index
// maps the price extractor needs to read primal values and duals back out.
package clearing

import (
	"fmt"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// Variant tags for the supported market designs.
const (
	VariantPlain     = "plain"
	VariantNodal     = "nodal"
	VariantZonal     = "zonal"
	VariantReserve   = "reserve"
	VariantJoint     = "joint"
	VariantBalancing = "balancing"
)

// Formulation is an unsolved market LP together with the handle maps needed
// to interpret its solution.
type Formulation struct {
	Variant string
	Model   *lp.Model

	// Primal variable handles.
	GenVars      map[string]lp.Var // generator id -> dispatch
	LoadVars     map[string]lp.Var // load id -> served demand
	AngleVars    map[string]lp.Var // bus id -> voltage angle (nodal)
	FlowVars     map[string]lp.Var // Line.Key() -> signed flow (nodal)
	ZoneFlowVars map[string]lp.Var // "A->B" oriented pair -> net exchange
	ReserveUp    map[string]lp.Var // generator id -> committed upward MW
	ReserveDown  map[string]lp.Var
	BalanceUp    map[string]lp.Var // generator id -> balancing activation
	BalanceDown  map[string]lp.Var
	CurtailVar   lp.Var
	HasCurtail   bool

	// Constraint tags for dual lookup.
	BalanceTag      string            // plain/balancing/joint system balance
	BusBalanceTags  map[string]string // bus id -> nodal balance tag
	ZoneBalanceTags map[string]string // zone id -> zonal balance tag
	ReserveUpTag    string
	ReserveDownTag  string

	// RealizedGen is the post-deviation output per generator that the
	// balancing stage corrected against (balancing variant only).
	RealizedGen map[string]float64
}

// InfeasibleError reports a solver-infeasible clearing problem together with
// the variant and scenario that produced it.
type InfeasibleError struct {
	Variant  string
	Scenario string
	Err      error
}

func (e *InfeasibleError) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf("%s clearing is infeasible: %v", e.Variant, e.Err)
	}
	return fmt.Sprintf("%s clearing is infeasible under scenario %q: %v", e.Variant, e.Scenario, e.Err)
}

func (e *InfeasibleError) Unwrap() error { return e.Err }

// UnboundedError reports an unbounded clearing problem. This is a modeling
// bug (a missing bound), fatal for the scenario.
type UnboundedError struct {
	Variant  string
	Scenario string
	Err      error
}

func (e *UnboundedError) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf("%s clearing is unbounded: %v", e.Variant, e.Err)
	}
	return fmt.Sprintf("%s clearing is unbounded under scenario %q: %v", e.Variant, e.Scenario, e.Err)
}

func (e *UnboundedError) Unwrap() error { return e.Err }

// effectiveCapacity is zero for out-of-service units so that every variant
// carries a variable for every generator and extraction stays uniform.
func effectiveCapacity(g model.Generator) float64 {
	if !g.InService {
		return 0
	}
	return g.Capacity
}

// welfareObjective is the shared max Σ bid·Pd − Σ offer·Pg objective.
func welfareObjective(sys *model.System, f *Formulation) []lp.Term {
	terms := make([]lp.Term, 0, len(sys.Loads)+len(sys.Generators))
	for _, d := range sys.Loads {
		terms = append(terms, lp.Term{Var: f.LoadVars[d.ID], Coeff: d.Bid})
	}
	for _, g := range sys.Generators {
		terms = append(terms, lp.Term{Var: f.GenVars[g.ID], Coeff: -g.Offer})
	}
	return terms
}

// addParticipantVars declares the dispatch and consumption variables shared
// by every energy-market variant.
func addParticipantVars(sys *model.System, f *Formulation) {
	for _, g := range sys.Generators {
		f.GenVars[g.ID] = f.Model.AddVariable("pg:"+g.ID, 0, effectiveCapacity(g))
	}
	for _, d := range sys.Loads {
		f.LoadVars[d.ID] = f.Model.AddVariable("pd:"+d.ID, 0, d.MaxDemand)
	}
}

func newFormulation(variant string) *Formulation {
	return &Formulation{
		Variant:         variant,
		Model:           lp.NewModel(),
		GenVars:         map[string]lp.Var{},
		LoadVars:        map[string]lp.Var{},
		AngleVars:       map[string]lp.Var{},
		FlowVars:        map[string]lp.Var{},
		ZoneFlowVars:    map[string]lp.Var{},
		ReserveUp:       map[string]lp.Var{},
		ReserveDown:     map[string]lp.Var{},
		BalanceUp:       map[string]lp.Var{},
		BalanceDown:     map[string]lp.Var{},
		BusBalanceTags:  map[string]string{},
		ZoneBalanceTags: map[string]string{},
	}
}
