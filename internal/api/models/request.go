package models

// ClearRequest represents the request body for clearing a market
type ClearRequest struct {
	System  SystemSpec   `json:"system" binding:"required"`
	Run     RunSpec      `json:"run"`
	Options ClearOptions `json:"options,omitempty"`
}

// SystemSpec defines the market participants and the grid
type SystemSpec struct {
	Name       string         `json:"name,omitempty"`
	Buses      []BusSpec      `json:"buses,omitempty"`
	Generators []GenSpec      `json:"generators" binding:"required"`
	Loads      []LoadSpec     `json:"loads" binding:"required"`
	Lines      []LineSpec     `json:"lines,omitempty"`
	Zones      []ZoneSpec     `json:"zones,omitempty"`
	Transfers  []TransferSpec `json:"transfers,omitempty"`
}

type BusSpec struct {
	ID    string `json:"id" binding:"required"`
	Slack bool   `json:"slack,omitempty"`
}

type GenSpec struct {
	ID           string  `json:"id" binding:"required"`
	Bus          string  `json:"bus,omitempty"`
	OfferPrice   float64 `json:"offer_price"`
	CapacityMW   float64 `json:"capacity_mw"`
	Flexible     bool    `json:"flexible,omitempty"`
	OutOfService bool    `json:"out_of_service,omitempty"`
}

type LoadSpec struct {
	ID       string  `json:"id" binding:"required"`
	Bus      string  `json:"bus,omitempty"`
	BidPrice float64 `json:"bid_price"`
	DemandMW float64 `json:"demand_mw"`
}

type LineSpec struct {
	From       string  `json:"from" binding:"required"`
	To         string  `json:"to" binding:"required"`
	Reactance  float64 `json:"reactance"`
	CapacityMW float64 `json:"capacity_mw"`
}

type ZoneSpec struct {
	ID    string   `json:"id" binding:"required"`
	Buses []string `json:"buses" binding:"required"`
}

type TransferSpec struct {
	From  string  `json:"from" binding:"required"`
	To    string  `json:"to" binding:"required"`
	ATCMW float64 `json:"atc_mw"`
}

// RunSpec selects the market variant and stage parameters
type RunSpec struct {
	Variant string `json:"variant,omitempty"` // default: "plain"

	Reserve *ReserveSpec `json:"reserve,omitempty"`

	Balancing *BalancingSpec `json:"balancing,omitempty"`

	CongestionThreshold float64 `json:"congestion_threshold,omitempty"`
	TimeoutSeconds      float64 `json:"timeout_seconds,omitempty"`
}

type ReserveSpec struct {
	UpFraction   float64 `json:"up_fraction"`
	DownFraction float64 `json:"down_fraction"`
	CoOptimize   bool    `json:"co_optimize,omitempty"`
}

type BalancingSpec struct {
	Deviations         map[string]float64 `json:"deviations" binding:"required"`
	UpCostFactor       float64            `json:"up_cost_factor,omitempty"`
	DownCostFactor     float64            `json:"down_cost_factor,omitempty"`
	CurtailmentPenalty float64            `json:"curtailment_penalty,omitempty"`
}

// ClearOptions contains optional clearing parameters
type ClearOptions struct {
	IncludeDispatch bool `json:"include_dispatch,omitempty"` // default: false
	IncludeProfits  bool `json:"include_profits,omitempty"`  // default: false
}

// SweepRequest represents a request to run scenario sweeps
type SweepRequest struct {
	System    SystemSpec     `json:"system" binding:"required"`
	Run       RunSpec        `json:"run"`
	Scenarios []ScenarioSpec `json:"scenarios" binding:"required"`
	Workers   int            `json:"workers,omitempty"` // default: 1
}

// ScenarioSpec defines one sweep scenario
type ScenarioSpec struct {
	Name      string         `json:"name" binding:"required"`
	Overrides []OverrideSpec `json:"overrides,omitempty"`
}

type OverrideSpec struct {
	Kind      string  `json:"kind" binding:"required"`
	Line      string  `json:"line,omitempty"`
	LineTo    string  `json:"line_to,omitempty"`
	Generator string  `json:"generator,omitempty"`
	Load      string  `json:"load,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// CurvesRequest represents a request for supply/demand curves
type CurvesRequest struct {
	System SystemSpec `json:"system" binding:"required"`
}
