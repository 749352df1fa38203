package clearing

import (
	"math"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// BuildZonal formulates the zonal market: participant variables as in the
// plain market, balance aggregated per zone, and a single net-exchange
// variable per zone pair bounded by ATC in each direction.
//
// One variable carries both directions of a pair: the exchange A->B (A the
// lexicographically smaller zone) is bounded above by ATC(A,B) and below by
// -ATC(B,A), which is exactly the F(A,B) = -F(B,A) link.
func BuildZonal(sys *model.System) (*Formulation, error) {
	if len(sys.Zones) == 0 {
		return nil, &model.ConstructionError{Entity: "zonal", Reason: "system defines no zones"}
	}

	f := newFormulation(VariantZonal)
	addParticipantVars(sys, f)

	inf := math.Inf(1)
	// export[zone] collects signed exchange terms leaving each zone.
	export := make(map[string][]lp.Term, len(sys.Zones))

	seen := map[string]bool{}
	for _, pair := range sys.ZonePairs() {
		a, b := pair[0], pair[1]
		if b < a {
			a, b = b, a
		}
		key := a + "->" + b
		if seen[key] {
			continue
		}
		seen[key] = true

		hi, okAB := sys.Transfer(a, b)
		lo, okBA := sys.Transfer(b, a)
		upper, lower := inf, -inf
		if okAB {
			upper = hi
		}
		if okBA {
			lower = -lo
		}
		v := f.Model.AddVariable("exchange:"+key, lower, upper)
		f.ZoneFlowVars[key] = v

		export[a] = append(export[a], lp.Term{Var: v, Coeff: 1})
		export[b] = append(export[b], lp.Term{Var: v, Coeff: -1})
	}

	for _, z := range sys.Zones {
		var terms []lp.Term
		for _, busID := range z.Buses {
			for _, g := range sys.GeneratorsAtBus(busID) {
				terms = append(terms, lp.Term{Var: f.GenVars[g.ID], Coeff: 1})
			}
			for _, d := range sys.LoadsAtBus(busID) {
				terms = append(terms, lp.Term{Var: f.LoadVars[d.ID], Coeff: -1})
			}
		}
		// Generation minus demand minus net export is zero.
		for _, t := range export[z.ID] {
			terms = append(terms, lp.Term{Var: t.Var, Coeff: -t.Coeff})
		}

		tag := "zone:" + z.ID
		f.ZoneBalanceTags[z.ID] = tag
		f.Model.AddConstraint(tag, terms, lp.Eq, 0)
	}

	f.Model.SetObjective(welfareObjective(sys, f), lp.Maximize)
	return f, nil
}
