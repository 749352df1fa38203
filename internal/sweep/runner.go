// Package sweep drives the clearing pipeline: a single run chains the
// formulation builder, the solver and the extractor (and the reserve and
// balancing stages where configured), and the sweep driver repeats that
// pipeline over scenario overrides, collecting a results table.
package sweep

import (
	"context"
	"fmt"
	"time"

	"market-clearing/internal/clearing"
	"market-clearing/internal/lp"
	"market-clearing/internal/model"
	"market-clearing/internal/prices"
	"market-clearing/internal/settlement"
)

// RunConfig selects the market variant and its stage parameters for one
// pipeline run.
type RunConfig struct {
	Variant string
	Reserve clearing.ReserveConfig

	// Balancing chains a balancing stage after the day-ahead clearing
	// when non-nil.
	Balancing *clearing.BalancingConfig

	// CongestionThreshold for the congestion report; <= 0 uses the
	// default.
	CongestionThreshold float64

	// Timeout bounds a single scenario's solve time; zero means no limit.
	Timeout time.Duration
}

// Outcome bundles everything one pipeline run produced.
type Outcome struct {
	// Reserve is the procurement-stage result of the sequential design.
	Reserve *model.MarketResult
	// DayAhead is the main energy result for every variant.
	DayAhead *model.MarketResult
	// Balancing, Realized and Settlement are present when a balancing
	// stage was chained.
	Balancing  *model.MarketResult
	Realized   map[string]float64
	Settlement *settlement.BalancingOutcome
	// Congestion is present for the nodal variant.
	Congestion *prices.CongestionReport
	// Overloads flags lines whose implied DC flow under a zonal dispatch
	// exceeds capacity (zonal variant only).
	Overloads []prices.LineOverload
}

// RunOnce executes one full pipeline over an already-derived snapshot.
// scenario names the snapshot in errors ("" for a base run).
func RunOnce(ctx context.Context, sys *model.System, cfg RunConfig, scenario string) (*Outcome, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	out := &Outcome{}

	var dayAheadForm *clearing.Formulation
	switch cfg.Variant {
	case clearing.VariantPlain, "":
		f, err := clearing.BuildPlain(sys)
		if err != nil {
			return nil, err
		}
		dayAheadForm = f

	case clearing.VariantNodal:
		f, err := clearing.BuildNodal(sys)
		if err != nil {
			return nil, err
		}
		dayAheadForm = f

	case clearing.VariantZonal:
		f, err := clearing.BuildZonal(sys)
		if err != nil {
			return nil, err
		}
		dayAheadForm = f

	case clearing.VariantReserve:
		reserveForm, err := clearing.BuildReserve(sys, cfg.Reserve)
		if err != nil {
			return nil, err
		}
		sol, err := solveFormulation(ctx, reserveForm, scenario)
		if err != nil {
			return nil, err
		}
		out.Reserve = prices.Extract(sys, reserveForm, sol)

		commitment := clearing.ReserveCommitment{
			Up:   out.Reserve.ReserveUp,
			Down: out.Reserve.ReserveDown,
			Cost: out.Reserve.Objective,
		}
		f, err := clearing.BuildDayAheadWithReserve(sys, commitment)
		if err != nil {
			return nil, err
		}
		dayAheadForm = f

	case clearing.VariantJoint:
		cfgJoint := cfg.Reserve
		cfgJoint.CoOptimize = true
		f, err := clearing.BuildReserve(sys, cfgJoint)
		if err != nil {
			return nil, err
		}
		dayAheadForm = f

	default:
		return nil, &model.ConstructionError{Entity: cfg.Variant, Reason: "unknown market variant"}
	}

	sol, err := solveFormulation(ctx, dayAheadForm, scenario)
	if err != nil {
		return nil, err
	}
	out.DayAhead = prices.Extract(sys, dayAheadForm, sol)

	switch cfg.Variant {
	case clearing.VariantNodal:
		report, err := prices.Congestion(sys, out.DayAhead, cfg.CongestionThreshold)
		if err != nil {
			return nil, err
		}
		out.Congestion = report
	case clearing.VariantZonal:
		overloads, err := prices.CheckZonalFeasibility(sys, out.DayAhead)
		if err != nil {
			return nil, err
		}
		out.Overloads = overloads
	}

	if cfg.Balancing != nil {
		balForm, err := clearing.BuildBalancing(sys, out.DayAhead, *cfg.Balancing)
		if err != nil {
			return nil, err
		}
		balSol, err := solveFormulation(ctx, balForm, scenario)
		if err != nil {
			return nil, err
		}
		out.Balancing = prices.Extract(sys, balForm, balSol)
		out.Realized = balForm.RealizedGen
		settled := settlement.Settle(out.DayAhead, out.Balancing, balForm.RealizedGen)
		out.Settlement = &settled
	}

	return out, nil
}

// solveFormulation submits one formulation and maps terminal solver states to
// the clearing error taxonomy.
func solveFormulation(ctx context.Context, f *clearing.Formulation, scenario string) (*lp.Solution, error) {
	sol, err := lp.Solve(ctx, f.Model)
	if err == nil {
		return sol, nil
	}
	switch sol.Status {
	case lp.StatusInfeasible:
		return nil, &clearing.InfeasibleError{Variant: f.Variant, Scenario: scenario, Err: err}
	case lp.StatusUnbounded:
		return nil, &clearing.UnboundedError{Variant: f.Variant, Scenario: scenario, Err: err}
	default:
		return nil, fmt.Errorf("%s solve failed: %w", f.Variant, err)
	}
}
