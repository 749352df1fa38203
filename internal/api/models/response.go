package models

// ClearResponse represents the response from a clearing run
type ClearResponse struct {
	Status     string             `json:"status"`
	Result     MarketSummary      `json:"result"`
	Reserve    *MarketSummary     `json:"reserve,omitempty"`
	Balancing  *MarketSummary     `json:"balancing,omitempty"`
	Settlement *SettlementSummary `json:"settlement,omitempty"`
	Congestion *CongestionSummary `json:"congestion,omitempty"`
	Overloads  []OverloadInfo     `json:"overloads,omitempty"`
	Profits    map[string]float64 `json:"profits,omitempty"`
	Utilities  map[string]float64 `json:"utilities,omitempty"`
}

// MarketSummary contains one cleared stage's outcome
type MarketSummary struct {
	Variant       string             `json:"variant"`
	Status        string             `json:"status"`
	SystemPrice   float64            `json:"system_price_eur_mwh"`
	Degenerate    bool               `json:"degenerate,omitempty"`
	BusPrices     map[string]float64 `json:"bus_prices,omitempty"`
	ZonePrices    map[string]float64 `json:"zone_prices,omitempty"`
	SocialWelfare float64            `json:"social_welfare_eur"`
	Objective     float64            `json:"objective"`
	Dispatch      map[string]float64 `json:"dispatch_mw,omitempty"`
	Consumption   map[string]float64 `json:"consumption_mw,omitempty"`
	Flows         map[string]float64 `json:"flows_mw,omitempty"`
	ZoneFlows     map[string]float64 `json:"zone_flows_mw,omitempty"`
	ReserveUp     map[string]float64 `json:"reserve_up_mw,omitempty"`
	ReserveDown   map[string]float64 `json:"reserve_down_mw,omitempty"`
	Curtailment   float64            `json:"curtailment_mw,omitempty"`
}

// SettlementSummary contains the balancing settlement under both schemes
type SettlementSummary struct {
	Cost           float64            `json:"cost_eur"`
	BalancingPrice float64            `json:"balancing_price_eur_mwh"`
	OnePrice       map[string]float64 `json:"one_price_eur"`
	TwoPrice       map[string]float64 `json:"two_price_eur"`
}

// CongestionSummary reports line utilization for a nodal run
type CongestionSummary struct {
	Threshold     float64        `json:"threshold"`
	Lines         []LineLoading  `json:"lines"`
	MostCongested []LineLoading  `json:"most_congested,omitempty"`
}

// LineLoading is one line's utilization
type LineLoading struct {
	Line       string  `json:"line"`
	FlowMW     float64 `json:"flow_mw"`
	CapacityMW float64 `json:"capacity_mw"`
	Ratio      float64 `json:"ratio"`
	Congested  bool    `json:"congested"`
}

// OverloadInfo flags a line overloaded by the implied flows of a zonal dispatch
type OverloadInfo struct {
	Line       string  `json:"line"`
	ImpliedMW  float64 `json:"implied_mw"`
	CapacityMW float64 `json:"capacity_mw"`
}

// SweepResponse represents the response from a scenario sweep
type SweepResponse struct {
	Rows          []SweepRow      `json:"rows"`
	Rankings      []Ranking       `json:"rankings"`
	LocationStats []LocationStats `json:"location_stats,omitempty"`
}

// SweepRow is one scenario × location price observation
type SweepRow struct {
	Scenario        string  `json:"scenario"`
	Params          string  `json:"params,omitempty"`
	Location        string  `json:"location,omitempty"`
	Price           float64 `json:"price_eur_mwh"`
	Welfare         float64 `json:"social_welfare_eur"`
	MostCongested   string  `json:"most_congested_line,omitempty"`
	CongestionRatio float64 `json:"congestion_ratio,omitempty"`
	Status          string  `json:"status"`
	Error           string  `json:"error,omitempty"`
}

// Ranking represents one scenario ranked by welfare
type Ranking struct {
	Rank            int     `json:"rank"`
	Scenario        string  `json:"scenario"`
	Status          string  `json:"status"`
	Welfare         float64 `json:"social_welfare_eur"`
	MeanPrice       float64 `json:"mean_price_eur_mwh"`
	MaxPrice        float64 `json:"max_price_eur_mwh"`
	MostCongested   string  `json:"most_congested_line,omitempty"`
	CongestionRatio float64 `json:"congestion_ratio,omitempty"`
}

// LocationStats summarizes one location's prices across the sweep
type LocationStats struct {
	Location     string  `json:"location"`
	Count        int     `json:"count"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	MeanPrice    float64 `json:"mean_price"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`
}

// CurvesResponse represents the supply/demand curve geometry
type CurvesResponse struct {
	Supply       []CurvePoint  `json:"supply"`
	Demand       []CurvePoint  `json:"demand"`
	Intersection *CrossSummary `json:"intersection,omitempty"`
}

// CurvePoint is one vertex of a step curve
type CurvePoint struct {
	QuantityMW  float64 `json:"quantity_mw"`
	PriceEURMWh float64 `json:"price_eur_mwh"`
}

// CrossSummary describes where the curves cross
type CrossSummary struct {
	QuantityMW float64 `json:"quantity_mw"`
	Price      float64 `json:"price_eur_mwh"`
	PriceLow   float64 `json:"price_low_eur_mwh"`
	PriceHigh  float64 `json:"price_high_eur_mwh"`
}

// VariantInfo represents one supported market variant
type VariantInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Prices      string   `json:"prices"` // "system", "bus" or "zone"
	Requires    []string `json:"requires,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
