// Package offering optimizes a wind producer's day-ahead offer curve against
// a set of wind/price scenarios under one-price or two-price imbalance
// settlement, optionally trading expected revenue against CVaR.
package offering

import (
	"context"
	"fmt"
	"math"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

type Scheme string

const (
	OnePrice Scheme = "one"
	TwoPrice Scheme = "two"
)

// Scenario is one equiprobable realization over the bidding horizon.
type Scenario struct {
	// Wind is realized production, MW per period.
	Wind []float64
	// DayAheadPrice is EUR/MWh per period.
	DayAheadPrice []float64
	// Surplus is the system imbalance direction per period: true when the
	// system as a whole is in surplus.
	Surplus []bool
}

// Config parameterizes the offering problem.
type Config struct {
	// Capacity bounds each period's offer, MW.
	Capacity float64
	Scheme   Scheme

	// SurplusFactor and DeficitFactor scale the day-ahead price into the
	// balancing price for system surplus and deficit periods. Zero values
	// select the 0.85 / 1.25 convention.
	SurplusFactor float64
	DeficitFactor float64

	// Beta weighs CVaR against expected revenue (0 = risk neutral,
	// 1 = fully risk averse). Alpha is the CVaR confidence level;
	// zero selects 0.90.
	Beta  float64
	Alpha float64
}

// Strategy is an optimized offer curve with its in-sample metrics.
type Strategy struct {
	Offers          []float64
	ExpectedRevenue float64
	CVaR            float64
}

func (c Config) factors(surplus bool) (excess, deficit float64) {
	sf, df := c.SurplusFactor, c.DeficitFactor
	if sf == 0 {
		sf = 0.85
	}
	if df == 0 {
		df = 1.25
	}
	// The side that relieves the system imbalance trades at the day-ahead
	// price under two-price settlement; under one-price both sides trade
	// at the balancing price.
	if c.Scheme == OnePrice {
		if surplus {
			return sf, sf
		}
		return df, df
	}
	if surplus {
		return sf, 1.0
	}
	return 1.0, df
}

func validate(scenarios []Scenario, cfg Config) (periods int, err error) {
	if len(scenarios) == 0 {
		return 0, &model.ConstructionError{Entity: "offering", Reason: "no scenarios"}
	}
	if cfg.Capacity <= 0 {
		return 0, &model.ConstructionError{Entity: "offering", Reason: "capacity must be > 0"}
	}
	if cfg.Scheme != OnePrice && cfg.Scheme != TwoPrice {
		return 0, &model.ConstructionError{Entity: "offering", Reason: fmt.Sprintf("unknown scheme %q", cfg.Scheme)}
	}
	if cfg.Beta < 0 || cfg.Beta > 1 {
		return 0, &model.ConstructionError{Entity: "offering", Reason: "beta must be in [0, 1]"}
	}
	periods = len(scenarios[0].Wind)
	for i, s := range scenarios {
		if len(s.Wind) != periods || len(s.DayAheadPrice) != periods || len(s.Surplus) != periods {
			return 0, &model.ConstructionError{Entity: fmt.Sprintf("scenario %d", i), Reason: "inconsistent horizon lengths"}
		}
	}
	return periods, nil
}

// Optimize solves the stochastic offering LP: offer quantities per period,
// per-scenario imbalance split into excess and deficit parts, expected
// revenue objective, and (for Beta > 0) the VaR/auxiliary CVaR structure.
func Optimize(ctx context.Context, scenarios []Scenario, cfg Config) (*Strategy, error) {
	periods, err := validate(scenarios, cfg)
	if err != nil {
		return nil, err
	}

	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = 0.90
	}

	m := lp.NewModel()
	nS := len(scenarios)
	prob := 1.0 / float64(nS)

	offers := make([]lp.Var, periods)
	for t := 0; t < periods; t++ {
		offers[t] = m.AddVariable(fmt.Sprintf("offer:%d", t), 0, cfg.Capacity)
	}

	// exc/def decompose the imbalance wind - offer per scenario-period.
	exc := make([][]lp.Var, nS)
	def := make([][]lp.Var, nS)
	for s := 0; s < nS; s++ {
		exc[s] = make([]lp.Var, periods)
		def[s] = make([]lp.Var, periods)
		for t := 0; t < periods; t++ {
			exc[s][t] = m.AddVariable(fmt.Sprintf("exc:%d:%d", s, t), 0, cfg.Capacity+scenarios[s].Wind[t])
			def[s][t] = m.AddVariable(fmt.Sprintf("def:%d:%d", s, t), 0, cfg.Capacity+scenarios[s].Wind[t])
			// exc - def + offer = wind
			m.AddConstraint("", []lp.Term{
				{Var: exc[s][t], Coeff: 1},
				{Var: def[s][t], Coeff: -1},
				{Var: offers[t], Coeff: 1},
			}, lp.Eq, scenarios[s].Wind[t])
		}
	}

	// revenueTerms lists the objective contribution of scenario s.
	revenueTerms := func(s int) []lp.Term {
		terms := make([]lp.Term, 0, 3*periods)
		for t := 0; t < periods; t++ {
			p := scenarios[s].DayAheadPrice[t]
			fe, fd := cfg.factors(scenarios[s].Surplus[t])
			terms = append(terms,
				lp.Term{Var: offers[t], Coeff: p},
				lp.Term{Var: exc[s][t], Coeff: fe * p},
				lp.Term{Var: def[s][t], Coeff: -fd * p},
			)
		}
		return terms
	}

	obj := make([]lp.Term, 0, nS*3*periods)
	scale := prob
	if cfg.Beta > 0 {
		scale = (1 - cfg.Beta) * prob
	}
	for s := 0; s < nS; s++ {
		for _, t := range revenueTerms(s) {
			obj = append(obj, lp.Term{Var: t.Var, Coeff: scale * t.Coeff})
		}
	}

	var valueAtRisk lp.Var
	aux := make([]lp.Var, nS)
	if cfg.Beta > 0 {
		// VaR is free and the auxiliaries one-sided; finite caps here would
		// become near-degenerate bound rows in the standard form.
		valueAtRisk = m.AddVariable("var", math.Inf(-1), math.Inf(1))
		for s := 0; s < nS; s++ {
			aux[s] = m.AddVariable(fmt.Sprintf("aux:%d", s), 0, math.Inf(1))
			// aux_s >= VaR - profit_s
			terms := []lp.Term{
				{Var: aux[s], Coeff: 1},
				{Var: valueAtRisk, Coeff: -1},
			}
			for _, t := range revenueTerms(s) {
				terms = append(terms, t)
			}
			m.AddConstraint("", terms, lp.Ge, 0)
		}
		obj = append(obj, lp.Term{Var: valueAtRisk, Coeff: cfg.Beta})
		for s := 0; s < nS; s++ {
			obj = append(obj, lp.Term{Var: aux[s], Coeff: -cfg.Beta * prob / (1 - alpha)})
		}
	}

	m.SetObjective(obj, lp.Maximize)

	sol, err := lp.Solve(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("offering solve: %w", err)
	}

	strat := &Strategy{Offers: make([]float64, periods)}
	for t := 0; t < periods; t++ {
		strat.Offers[t] = sol.Value(offers[t])
	}
	strat.ExpectedRevenue = Evaluate(strat.Offers, scenarios, cfg)
	if cfg.Beta > 0 {
		cvar := sol.Value(valueAtRisk)
		for s := 0; s < nS; s++ {
			cvar -= prob / (1 - alpha) * sol.Value(aux[s])
		}
		strat.CVaR = cvar
	}
	return strat, nil
}

// Evaluate computes the average revenue of a fixed offer curve over a
// scenario set without re-optimizing. This is the out-of-sample leg of a
// cross-validation.
func Evaluate(offers []float64, scenarios []Scenario, cfg Config) float64 {
	total := 0.0
	for _, s := range scenarios {
		for t, bid := range offers {
			p := s.DayAheadPrice[t]
			fe, fd := cfg.factors(s.Surplus[t])
			imbalance := s.Wind[t] - bid
			rev := p * bid
			if imbalance >= 0 {
				rev += fe * p * imbalance
			} else {
				rev -= fd * p * (-imbalance)
			}
			total += rev
		}
	}
	return total / float64(len(scenarios))
}

// CrossValidate splits the scenario pool into folds of inSampleSize, trains
// on each fold and evaluates on the remainder, returning the average
// in-sample and out-of-sample revenue. The gap between them estimates how
// much a strategy overfits its scenario sample.
func CrossValidate(ctx context.Context, pool []Scenario, inSampleSize int, cfg Config) (avgIn, avgOut float64, err error) {
	if inSampleSize <= 0 || inSampleSize > len(pool) {
		return 0, 0, &model.ConstructionError{Entity: "offering", Reason: "in-sample size out of range"}
	}
	folds := len(pool) / inSampleSize
	if folds < 2 {
		return 0, 0, &model.ConstructionError{Entity: "offering", Reason: "scenario pool too small for cross-validation"}
	}

	for i := 0; i < folds; i++ {
		in := pool[i*inSampleSize : (i+1)*inSampleSize]
		out := make([]Scenario, 0, len(pool)-inSampleSize)
		out = append(out, pool[:i*inSampleSize]...)
		out = append(out, pool[(i+1)*inSampleSize:]...)

		strat, oerr := Optimize(ctx, in, cfg)
		if oerr != nil {
			return 0, 0, fmt.Errorf("fold %d: %w", i, oerr)
		}
		avgIn += strat.ExpectedRevenue
		avgOut += Evaluate(strat.Offers, out, cfg)
	}
	avgIn /= float64(folds)
	avgOut /= float64(folds)
	return avgIn, avgOut, nil
}
