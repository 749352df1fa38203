package clearing

import (
	"math"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// BuildNodal formulates DC optimal power flow: welfare maximization with
// voltage angles, flow definitions F = B·(θi − θj) and thermal limits, and
// one balance constraint per bus.
//
// Flow variables are oriented from the lexicographically smaller endpoint
// toward the larger one, matching Line.Key(). The slack bus angle is pinned
// to zero: angles only carry meaning as differences, and without the pin the
// program is under-determined in θ.
func BuildNodal(sys *model.System) (*Formulation, error) {
	f := newFormulation(VariantNodal)
	addParticipantVars(sys, f)

	inf := math.Inf(1)
	for _, b := range sys.Buses {
		lo, hi := -inf, inf
		if b.ID == sys.SlackBus() {
			lo, hi = 0, 0
		}
		f.AngleVars[b.ID] = f.Model.AddVariable("theta:"+b.ID, lo, hi)
	}

	// inflow[bus] collects signed flow terms entering each bus balance.
	inflow := make(map[string][]lp.Term, len(sys.Buses))

	for _, l := range sys.Lines {
		key := l.Key()
		from, to := l.From, l.To
		if to < from {
			from, to = to, from
		}

		fv := f.Model.AddVariable("flow:"+key, -l.Capacity, l.Capacity)
		f.FlowVars[key] = fv

		// F - B·(θ_from - θ_to) = 0
		b := l.Susceptance()
		f.Model.AddConstraint("flowdef:"+key, []lp.Term{
			{Var: fv, Coeff: 1},
			{Var: f.AngleVars[from], Coeff: -b},
			{Var: f.AngleVars[to], Coeff: b},
		}, lp.Eq, 0)

		inflow[from] = append(inflow[from], lp.Term{Var: fv, Coeff: -1})
		inflow[to] = append(inflow[to], lp.Term{Var: fv, Coeff: 1})
	}

	for _, b := range sys.Buses {
		var terms []lp.Term
		for _, g := range sys.GeneratorsAtBus(b.ID) {
			terms = append(terms, lp.Term{Var: f.GenVars[g.ID], Coeff: 1})
		}
		for _, d := range sys.LoadsAtBus(b.ID) {
			terms = append(terms, lp.Term{Var: f.LoadVars[d.ID], Coeff: -1})
		}
		terms = append(terms, inflow[b.ID]...)

		tag := "bus:" + b.ID
		f.BusBalanceTags[b.ID] = tag
		f.Model.AddConstraint(tag, terms, lp.Eq, 0)
	}

	f.Model.SetObjective(welfareObjective(sys, f), lp.Maximize)
	return f, nil
}
