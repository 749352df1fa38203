package clearing

import (
	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// BuildPlain formulates the copper-plate market: welfare maximization under a
// single system balance, no network.
//
// Balance rows throughout this package are written supply-minus-withdrawals,
// so their duals (of the minimized objective) are directly the clearing
// prices; see the lp package comment.
func BuildPlain(sys *model.System) (*Formulation, error) {
	f := newFormulation(VariantPlain)
	addParticipantVars(sys, f)

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
