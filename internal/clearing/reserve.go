package clearing

import (
	"fmt"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// ReserveConfig parameterizes reserve procurement. UpFraction and
// DownFraction are targets as fractions of total maximum demand. CoOptimize
// selects the single-LP design (energy and reserves cleared together) instead
// of the sequential reserve-then-energy design; both share the same variable
// bounds and aggregate target constraints.
type ReserveConfig struct {
	UpFraction   float64
	DownFraction float64
	CoOptimize   bool
}

// reserveCapacityShare caps each unit's commitment per direction.
const reserveCapacityShare = 0.5

// ReserveCommitment is the outcome of the procurement stage consumed by the
// sequential day-ahead stage.
type ReserveCommitment struct {
	Up   map[string]float64
	Down map[string]float64
	Cost float64
}

func validateReserveTargets(sys *model.System, cfg ReserveConfig) error {
	if cfg.UpFraction < 0 || cfg.DownFraction < 0 {
		return &model.ConstructionError{Entity: "reserve", Reason: "negative reserve target fraction"}
	}
	flexCap := 0.0
	for _, g := range sys.FlexibleGenerators() {
		flexCap += g.Capacity
	}
	demand := sys.TotalMaxDemand()
	if cfg.UpFraction*demand > flexCap || cfg.DownFraction*demand > flexCap {
		// Targets beyond even the full flexible fleet are a data error.
		// Targets within the fleet but beyond the per-unit capacity share
		// are left to the LP, which reports them as infeasible.
		return &model.ConstructionError{
			Entity: "reserve",
			Reason: fmt.Sprintf("reserve target exceeds total flexible capacity %.1f MW", flexCap),
		}
	}
	return nil
}

// addReserveVars declares commitment variables and the aggregate target rows
// shared by the sequential and co-optimized designs.
func addReserveVars(sys *model.System, f *Formulation, cfg ReserveConfig) {
	flex := sys.FlexibleGenerators()
	upTerms := make([]lp.Term, 0, len(flex))
	downTerms := make([]lp.Term, 0, len(flex))
	for _, g := range flex {
		share := reserveCapacityShare * g.Capacity
		up := f.Model.AddVariable("rup:"+g.ID, 0, share)
		down := f.Model.AddVariable("rdn:"+g.ID, 0, share)
		f.ReserveUp[g.ID] = up
		f.ReserveDown[g.ID] = down
		upTerms = append(upTerms, lp.Term{Var: up, Coeff: 1})
		downTerms = append(downTerms, lp.Term{Var: down, Coeff: 1})
	}

	demand := sys.TotalMaxDemand()
	f.ReserveUpTag = "reserve_up"
	f.ReserveDownTag = "reserve_down"
	f.Model.AddConstraint(f.ReserveUpTag, upTerms, lp.Eq, cfg.UpFraction*demand)
	f.Model.AddConstraint(f.ReserveDownTag, downTerms, lp.Eq, cfg.DownFraction*demand)
}

// BuildReserve formulates reserve procurement. With cfg.CoOptimize false this
// is the first stage of the sequential (European-style) design: flexible
// units only, minimizing procurement cost against the aggregate targets.
// With cfg.CoOptimize true it is the single (U.S.-style) LP clearing energy
// and reserves together.
func BuildReserve(sys *model.System, cfg ReserveConfig) (*Formulation, error) {
	if err := validateReserveTargets(sys, cfg); err != nil {
		return nil, err
	}
	if cfg.CoOptimize {
		return buildJoint(sys, cfg)
	}

	f := newFormulation(VariantReserve)
	addReserveVars(sys, f, cfg)

	var obj []lp.Term
	for _, g := range sys.FlexibleGenerators() {
		obj = append(obj,
			lp.Term{Var: f.ReserveUp[g.ID], Coeff: g.Offer},
			lp.Term{Var: f.ReserveDown[g.ID], Coeff: g.Offer},
		)
	}
	f.Model.SetObjective(obj, lp.Minimize)
	return f, nil
}

// BuildDayAheadWithReserve formulates the second sequential stage: the plain
// day-ahead market with each flexible unit's range tightened by its
// commitment: upper bound reduced by committed upward reserve, lower bound
// raised to committed downward reserve.
func BuildDayAheadWithReserve(sys *model.System, commitment ReserveCommitment) (*Formulation, error) {
	f := newFormulation(VariantReserve)

	for _, g := range sys.Generators {
		lo := commitment.Down[g.ID]
		hi := effectiveCapacity(g) - commitment.Up[g.ID]
		if hi < lo {
			return nil, &model.ConstructionError{
				Entity: g.ID,
				Reason: fmt.Sprintf("reserve commitment leaves empty dispatch range [%.1f, %.1f]", lo, hi),
			}
		}
		f.GenVars[g.ID] = f.Model.AddVariable("pg:"+g.ID, lo, hi)
	}
	for _, d := range sys.Loads {
		f.LoadVars[d.ID] = f.Model.AddVariable("pd:"+d.ID, 0, d.MaxDemand)
	}

	terms := make([]lp.Term, 0, len(sys.Generators)+len(sys.Loads))
	for _, g := range sys.Generators {
		terms = append(terms, lp.Term{Var: f.GenVars[g.ID], Coeff: 1})
	}
	for _, d := range sys.Loads {
		terms = append(terms, lp.Term{Var: f.LoadVars[d.ID], Coeff: -1})
	}
	f.BalanceTag = "balance"
	f.Model.AddConstraint(f.BalanceTag, terms, lp.Eq, 0)

	f.Model.SetObjective(welfareObjective(sys, f), lp.Maximize)
	return f, nil
}

// buildJoint is the co-optimized design: one LP with energy and reserve
// variables, reserve feasibility coupling per flexible unit, the aggregate
// targets, and the system balance.
func buildJoint(sys *model.System, cfg ReserveConfig) (*Formulation, error) {
	f := newFormulation(VariantJoint)
	addParticipantVars(sys, f)
	addReserveVars(sys, f, cfg)

	for _, g := range sys.FlexibleGenerators() {
		// Pg + Rup <= capacity
		f.Model.AddConstraint("", []lp.Term{
			{Var: f.GenVars[g.ID], Coeff: 1},
			{Var: f.ReserveUp[g.ID], Coeff: 1},
		}, lp.Le, effectiveCapacity(g))
		// Pg - Rdn >= 0
		f.Model.AddConstraint("", []lp.Term{
			{Var: f.GenVars[g.ID], Coeff: 1},
			{Var: f.ReserveDown[g.ID], Coeff: -1},
		}, lp.Ge, 0)
	}

	terms := make([]lp.Term, 0, len(sys.Generators)+len(sys.Loads))
	for _, g := range sys.Generators {
		terms = append(terms, lp.Term{Var: f.GenVars[g.ID], Coeff: 1})
	}
	for _, d := range sys.Loads {
		terms = append(terms, lp.Term{Var: f.LoadVars[d.ID], Coeff: -1})
	}
	f.BalanceTag = "balance"
	f.Model.AddConstraint(f.BalanceTag, terms, lp.Eq, 0)

	obj := welfareObjective(sys, f)
	for _, g := range sys.FlexibleGenerators() {
		obj = append(obj,
			lp.Term{Var: f.ReserveUp[g.ID], Coeff: -g.Offer},
			lp.Term{Var: f.ReserveDown[g.ID], Coeff: -g.Offer},
		)
	}
	f.Model.SetObjective(obj, lp.Maximize)
	return f, nil
}
