// Package prices converts solver output into market results: clearing prices
// from constraint duals, congestion measures, and the zonal feasibility
// check.
//
// Sign convention, fixed here once for all callers: builders write every
// balance row as generation minus withdrawals, and the lp package reports
// duals of the minimized objective. Under that arrangement the dual of a
// balance row is directly the EUR/MWh clearing price, with no abs() anywhere
// downstream. Callers consume the normalized price, never a raw dual.
package prices

import (
	"math"

	"market-clearing/internal/clearing"
	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// dispatchTol is the volume below which a unit does not count as dispatched
// when detecting the marginal offer.
const dispatchTol = 1e-6

// priceTol absorbs solver noise when comparing prices across locations.
const priceTol = 1e-6

// Extract interprets a solved formulation as a MarketResult. The solution
// must be optimal; terminal failures are mapped by the caller before
// extraction.
func Extract(sys *model.System, f *clearing.Formulation, sol *lp.Solution) *model.MarketResult {
	r := &model.MarketResult{
		Variant:     f.Variant,
		Status:      model.StatusOptimal,
		Dispatch:    map[string]float64{},
		Consumption: map[string]float64{},
		Objective:   sol.Objective,
	}

	for id, v := range f.GenVars {
		r.Dispatch[id] = sol.Value(v)
	}
	for id, v := range f.LoadVars {
		r.Consumption[id] = sol.Value(v)
	}
	if len(f.FlowVars) > 0 {
		r.Flows = map[string]float64{}
		for key, v := range f.FlowVars {
			r.Flows[key] = sol.Value(v)
		}
	}
	if len(f.ZoneFlowVars) > 0 {
		r.ZoneFlows = map[string]float64{}
		for key, v := range f.ZoneFlowVars {
			r.ZoneFlows[key] = sol.Value(v)
		}
	}
	if len(f.ReserveUp) > 0 {
		r.ReserveUp = map[string]float64{}
		r.ReserveDown = map[string]float64{}
		for id, v := range f.ReserveUp {
			r.ReserveUp[id] = sol.Value(v)
		}
		for id, v := range f.ReserveDown {
			r.ReserveDown[id] = sol.Value(v)
		}
	}
	if len(f.BalanceUp) > 0 {
		r.BalancingUp = map[string]float64{}
		r.BalancingDown = map[string]float64{}
		for id, v := range f.BalanceUp {
			r.BalancingUp[id] = sol.Value(v)
		}
		for id, v := range f.BalanceDown {
			r.BalancingDown[id] = sol.Value(v)
		}
	}
	if f.HasCurtail {
		r.Curtailment = sol.Value(f.CurtailVar)
	}

	extractPrices(sys, f, sol, r)

	// Any formulation clearing demand has a welfare; the reserve procurement
	// and balancing stages have no load variables and report none.
	if len(f.LoadVars) > 0 {
		r.SocialWelfare = welfare(sys, r)
	}
	return r
}

// welfare recomputes Σ bid·served − Σ offer·dispatched from the extracted
// values; at optimality it reproduces the LP objective for pure energy
// variants, within solver tolerance.
func welfare(sys *model.System, r *model.MarketResult) float64 {
	w := 0.0
	for _, d := range sys.Loads {
		w += d.Bid * r.Consumption[d.ID]
	}
	for _, g := range sys.Generators {
		w -= g.Offer * r.Dispatch[g.ID]
	}
	return w
}

func extractPrices(sys *model.System, f *clearing.Formulation, sol *lp.Solution, r *model.MarketResult) {
	switch f.Variant {
	case clearing.VariantNodal:
		r.BusPrices = map[string]float64{}
		uniform := true
		var first float64
		for i, b := range sys.Buses {
			p, ok := priceFromDual(sys, sol, f.BusBalanceTags[b.ID], r)
			if !ok {
				r.Degenerate = true
			}
			r.BusPrices[b.ID] = p
			if i == 0 {
				first = p
			} else if math.Abs(p-first) > priceTol {
				uniform = false
			}
		}
		if uniform {
			r.SystemPrice = first
		}

	case clearing.VariantZonal:
		r.ZonePrices = map[string]float64{}
		for _, z := range sys.Zones {
			p, ok := priceFromDual(sys, sol, f.ZoneBalanceTags[z.ID], r)
			if !ok {
				r.Degenerate = true
			}
			r.ZonePrices[z.ID] = p
		}

	default:
		// Plain, reserve day-ahead, joint and balancing all clear at a
		// single system balance.
		if f.BalanceTag == "" {
			return
		}
		p, ok := priceFromDual(sys, sol, f.BalanceTag, r)
		if !ok {
			r.Degenerate = true
		}
		r.SystemPrice = p
	}
}

// priceFromDual reads a balance dual, falling back to the marginal accepted
// offer when the dual is unavailable or degenerate (zero at a tie with
// positive traded volume). Reporting ok=false flags the fallback.
func priceFromDual(sys *model.System, sol *lp.Solution, tag string, r *model.MarketResult) (float64, bool) {
	d, ok := sol.Dual(tag)
	if ok && (d != 0 || totalDispatch(r) <= dispatchTol) {
		return d, true
	}
	return MarginalOfferPrice(sys, r.Dispatch), false
}

func totalDispatch(r *model.MarketResult) float64 {
	total := 0.0
	for _, v := range r.Dispatch {
		total += v
	}
	return total
}

// MarginalOfferPrice is the uncongested-market heuristic: the maximum offer
// price among generators with strictly positive dispatch (the last accepted
// offer). Zero when nothing is dispatched.
func MarginalOfferPrice(sys *model.System, dispatch map[string]float64) float64 {
	price := 0.0
	for _, g := range sys.Generators {
		if dispatch[g.ID] > dispatchTol && g.Offer > price {
			price = g.Offer
		}
	}
	return price
}

// CongestionRent is Σ price·net-injection over all buses: the merchandising
// surplus collected by the network owner on a nodal result.
func CongestionRent(sys *model.System, r *model.MarketResult) float64 {
	rent := 0.0
	for _, b := range sys.Buses {
		inj := 0.0
		for _, g := range sys.GeneratorsAtBus(b.ID) {
			inj += r.Dispatch[g.ID]
		}
		for _, d := range sys.LoadsAtBus(b.ID) {
			inj -= r.Consumption[d.ID]
		}
		rent -= r.PriceAtBus(sys, b.ID) * inj
	}
	return rent
}
