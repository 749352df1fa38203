package clearing

import (
	"context"
	"fmt"

	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

// StorageResult is the solved arbitrage schedule for one battery against a
// price series. SOC values are fractions, aligned to the end of each period.
type StorageResult struct {
	ChargeMW    []float64
	DischargeMW []float64
	SOC         []float64
	Profit      float64
}

// SolveStorage clears a single price-taking battery against a series of
// market prices (EUR/MWh, one per period of dt hours): maximize arbitrage
// profit net of degradation subject to the linked state-of-charge recursion
//
//	soc_t = soc_{t-1} + ηc·ch_t·dt/E − dis_t·dt/(ηd·E)
//
// with power and SOC bounds. Simultaneous charge and discharge is never
// optimal while efficiencies are below one or degradation cost is positive.
func SolveStorage(ctx context.Context, params model.StorageParams, prices []float64, dt float64) (*StorageResult, error) {
	if err := params.Validate(); err != nil {
		return nil, &model.ConstructionError{Entity: "storage", Reason: err.Error()}
	}
	if len(prices) == 0 {
		return nil, &model.ConstructionError{Entity: "storage", Reason: "empty price series"}
	}
	if dt <= 0 {
		return nil, &model.ConstructionError{Entity: "storage", Reason: "period length must be > 0"}
	}

	n := len(prices)
	m := lp.NewModel()

	charge := make([]lp.Var, n)
	discharge := make([]lp.Var, n)
	soc := make([]lp.Var, n)
	for t := 0; t < n; t++ {
		charge[t] = m.AddVariable(fmt.Sprintf("ch:%d", t), 0, params.PowerCapacityMW)
		discharge[t] = m.AddVariable(fmt.Sprintf("dis:%d", t), 0, params.PowerCapacityMW)
		soc[t] = m.AddVariable(fmt.Sprintf("soc:%d", t), params.MinSOC, params.MaxSOC)
	}

	chGain := params.ChargeEfficiency * dt / params.EnergyCapacityMWh
	disDrain := dt / (params.DischargeEfficiency * params.EnergyCapacityMWh)
	for t := 0; t < n; t++ {
		terms := []lp.Term{
			{Var: soc[t], Coeff: 1},
			{Var: charge[t], Coeff: -chGain},
			{Var: discharge[t], Coeff: disDrain},
		}
		rhs := 0.0
		if t == 0 {
			rhs = params.InitialSOC
		} else {
			terms = append(terms, lp.Term{Var: soc[t-1], Coeff: -1})
		}
		m.AddConstraint("", terms, lp.Eq, rhs)
	}

	obj := make([]lp.Term, 0, 2*n)
	for t := 0; t < n; t++ {
		obj = append(obj,
			lp.Term{Var: discharge[t], Coeff: (prices[t] - params.DegradationCostPerMWh) * dt},
			lp.Term{Var: charge[t], Coeff: (-prices[t] - params.DegradationCostPerMWh) * dt},
		)
	}
	m.SetObjective(obj, lp.Maximize)

	sol, err := lp.Solve(ctx, m)
	if err != nil {
		switch sol.Status {
		case lp.StatusInfeasible:
			return nil, &InfeasibleError{Variant: "storage", Err: err}
		case lp.StatusUnbounded:
			return nil, &UnboundedError{Variant: "storage", Err: err}
		default:
			return nil, fmt.Errorf("storage solve failed: %w", err)
		}
	}

	res := &StorageResult{
		ChargeMW:    make([]float64, n),
		DischargeMW: make([]float64, n),
		SOC:         make([]float64, n),
		Profit:      sol.Objective,
	}
	for t := 0; t < n; t++ {
		res.ChargeMW[t] = sol.Value(charge[t])
		res.DischargeMW[t] = sol.Value(discharge[t])
		res.SOC[t] = sol.Value(soc[t])
	}
	return res, nil
}
