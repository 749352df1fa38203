package clearing

import (
	"math"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// BalancingConfig parameterizes the real-time balancing stage.
//
// Deviations injects the realized deviation per generator in MW relative to
// the day-ahead schedule (an outage is the negative of the schedule, a wind
// surplus a positive delta). UpCost/DownCost are activation prices per
// generator, EUR/MWh; units without an entry fall back to their energy offer
// scaled by DefaultUpFactor/DefaultDownFactor.
type BalancingConfig struct {
	Deviations map[string]float64
	UpCost     map[string]float64
	DownCost   map[string]float64

	DefaultUpFactor   float64
	DefaultDownFactor float64

	// CurtailmentPenalty is the cost of shedding one MW of day-ahead
	// demand, EUR/MWh. Must exceed every activation cost or the LP sheds
	// load first.
	CurtailmentPenalty float64
}

// Regime factors for activation pricing relative to the energy offer, from
// the balancing-market convention of paying a premium for upward activation
// and a discount for downward.
const (
	defaultUpFactor   = 1.25
	defaultDownFactor = 0.85
)

func (c BalancingConfig) upCost(g model.Generator) float64 {
	if v, ok := c.UpCost[g.ID]; ok {
		return v
	}
	factor := c.DefaultUpFactor
	if factor == 0 {
		factor = defaultUpFactor
	}
	return factor * g.Offer
}

func (c BalancingConfig) downCost(g model.Generator) float64 {
	if v, ok := c.DownCost[g.ID]; ok {
		return v
	}
	factor := c.DefaultDownFactor
	if factor == 0 {
		factor = defaultDownFactor
	}
	return factor * g.Offer
}

// BuildBalancing formulates the balancing market against a day-ahead result
// and a realized deviation vector: minimize activation plus curtailment cost
// subject to restoring balance on the realized system. Only flexible,
// in-service units may be activated; headroom and footroom are taken
// relative to realized output.
func BuildBalancing(sys *model.System, dayAhead *model.MarketResult, cfg BalancingConfig) (*Formulation, error) {
	if dayAhead == nil {
		return nil, &model.ConstructionError{Entity: VariantBalancing, Reason: "day-ahead result is required"}
	}
	for id := range cfg.Deviations {
		if _, ok := sys.Generator(id); !ok {
			return nil, &model.ConstructionError{Entity: id, Reason: "deviation references unknown generator"}
		}
	}
	if cfg.CurtailmentPenalty <= 0 {
		return nil, &model.ConstructionError{Entity: VariantBalancing, Reason: "curtailment penalty must be > 0"}
	}

	f := newFormulation(VariantBalancing)
	f.RealizedGen = map[string]float64{}

	totalDemand := 0.0
	for _, d := range sys.Loads {
		totalDemand += dayAhead.Consumption[d.ID]
	}

	realizedTotal := 0.0
	var obj []lp.Term
	for _, g := range sys.Generators {
		realized := dayAhead.Dispatch[g.ID] + cfg.Deviations[g.ID]
		realized = math.Max(0, math.Min(realized, effectiveCapacity(g)))
		f.RealizedGen[g.ID] = realized
		realizedTotal += realized

		headroom := 0.0
		footroom := 0.0
		if g.Flexible && g.InService {
			headroom = effectiveCapacity(g) - realized
			footroom = realized
		}
		up := f.Model.AddVariable("up:"+g.ID, 0, headroom)
		down := f.Model.AddVariable("dn:"+g.ID, 0, footroom)
		f.BalanceUp[g.ID] = up
		f.BalanceDown[g.ID] = down

		obj = append(obj,
			lp.Term{Var: up, Coeff: cfg.upCost(g)},
			lp.Term{Var: down, Coeff: cfg.downCost(g)},
		)
	}

	curt := f.Model.AddVariable("curtailment", 0, totalDemand)
	f.CurtailVar = curt
	f.HasCurtail = true
	obj = append(obj, lp.Term{Var: curt, Coeff: cfg.CurtailmentPenalty})

	// Realized generation plus net activation plus shed demand must meet
	// the day-ahead demand: Σ up - Σ down + curt = demand - Σ realized.
	terms := make([]lp.Term, 0, 2*len(sys.Generators)+1)
	for _, g := range sys.Generators {
		terms = append(terms,
			lp.Term{Var: f.BalanceUp[g.ID], Coeff: 1},
			lp.Term{Var: f.BalanceDown[g.ID], Coeff: -1},
		)
	}
	terms = append(terms, lp.Term{Var: curt, Coeff: 1})
	f.BalanceTag = "balance"
	f.Model.AddConstraint(f.BalanceTag, terms, lp.Eq, totalDemand-realizedTotal)

	f.Model.SetObjective(obj, lp.Minimize)
	return f, nil
}

// SystemImbalance is the realized-minus-scheduled total, MW. Positive means
// the system is in surplus, negative in deficit.
func SystemImbalance(dayAhead *model.MarketResult, realized map[string]float64) float64 {
	total := 0.0
	for id, r := range realized {
		total += r - dayAhead.Dispatch[id]
	}
	return total
}
