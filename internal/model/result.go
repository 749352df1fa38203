package model

// RunStatus is the terminal state of one clearing run.
type RunStatus string

const (
	StatusOptimal     RunStatus = "OPTIMAL"
	StatusInfeasible  RunStatus = "INFEASIBLE"
	StatusUnbounded   RunStatus = "UNBOUNDED"
	StatusSolverError RunStatus = "SOLVER_ERROR"
)

// MarketResult is the outcome of one pipeline run. It is created once at the
// end of the run and never mutated; a new run produces a new value.
type MarketResult struct {
	Variant string
	Status  RunStatus

	// Dispatch and Consumption are keyed by generator/load id, MW.
	Dispatch    map[string]float64
	Consumption map[string]float64

	// Flows is keyed by Line.Key(), signed from the lexicographically
	// smaller endpoint toward the larger. ZoneFlows is keyed "A->B".
	Flows     map[string]float64
	ZoneFlows map[string]float64

	// SystemPrice is the uniform clearing price where one exists.
	// Degenerate marks a price recovered by the marginal-offer fallback
	// because the balance dual was zero or ambiguous at a tie.
	SystemPrice float64
	Degenerate  bool

	// BusPrices / ZonePrices are locational prices for the nodal and zonal
	// variants, EUR/MWh.
	BusPrices  map[string]float64
	ZonePrices map[string]float64

	// Reserve commitments, MW per flexible generator.
	ReserveUp   map[string]float64
	ReserveDown map[string]float64

	// Balancing activations, MW per generator, and load curtailment.
	BalancingUp   map[string]float64
	BalancingDown map[string]float64
	Curtailment   float64

	// SocialWelfare is total bid value of served demand minus total offer
	// cost of dispatched generation. Objective is the raw LP optimum (for
	// cost-minimizing stages the two differ).
	SocialWelfare float64
	Objective     float64
}

// PriceAtBus resolves the price applicable to an entity at the given bus:
// nodal if available, else zonal through the bus's zone, else the uniform
// system price.
func (r *MarketResult) PriceAtBus(s *System, busID string) float64 {
	if p, ok := r.BusPrices[busID]; ok {
		return p
	}
	if zone := s.ZoneOf(busID); zone != "" {
		if p, ok := r.ZonePrices[zone]; ok {
			return p
		}
	}
	return r.SystemPrice
}
