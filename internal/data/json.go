package data

import (
	"encoding/json"
	"fmt"
	"os"

	"market-clearing/internal/offering"
)

// PriceSeries is an on-disk price trajectory for the storage solver.
type PriceSeries struct {
	DtHours float64   `json:"dt_hours"`
	Prices  []float64 `json:"prices_eur_mwh"`
}

func LoadPriceSeries(path string) (*PriceSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ps PriceSeries
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, err
	}
	if ps.DtHours <= 0 {
		ps.DtHours = 1.0
	}
	return &ps, nil
}

type windScenarioJSON struct {
	WindMW        []float64 `json:"wind_mw"`
	PriceEURMWh   []float64 `json:"price_eur_mwh"`
	SystemSurplus []bool    `json:"system_surplus"`
}

// LoadWindScenarios reads an offering scenario set: one entry per scenario,
// parallel arrays over the horizon.
func LoadWindScenarios(path string) ([]offering.Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []windScenarioJSON
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make([]offering.Scenario, 0, len(entries))
	for i, e := range entries {
		if len(e.WindMW) != len(e.PriceEURMWh) || len(e.WindMW) != len(e.SystemSurplus) {
			return nil, fmt.Errorf("scenario %d: wind, price and surplus arrays must share a length", i)
		}
		out = append(out, offering.Scenario{
			Wind:          e.WindMW,
			DayAheadPrice: e.PriceEURMWh,
			Surplus:       e.SystemSurplus,
		})
	}
	return out, nil
}
