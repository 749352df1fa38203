package analysis

import (
	"sort"

	"market-clearing/internal/model"
	"market-clearing/internal/sweep"
)

// ScenarioSummary condenses one sweep scenario into comparable figures.
type ScenarioSummary struct {
	Scenario string
	Params   string
	Status   model.RunStatus

	Welfare   float64
	MeanPrice float64
	MaxPrice  float64

	MostCongested   string
	CongestionRatio float64
}

// Summarize collapses a sweep table into one summary per scenario, keeping
// the table's scenario order.
func Summarize(t *sweep.Table) []ScenarioSummary {
	var order []string
	byName := make(map[string]*ScenarioSummary)
	counts := make(map[string]int)

	for _, r := range t.Rows {
		s, ok := byName[r.Scenario]
		if !ok {
			s = &ScenarioSummary{
				Scenario:        r.Scenario,
				Params:          r.Params,
				Status:          r.Status,
				Welfare:         r.Welfare,
				MostCongested:   r.MostCongested,
				CongestionRatio: r.CongestionRatio,
			}
			byName[r.Scenario] = s
			order = append(order, r.Scenario)
		}
		if r.Status != model.StatusOptimal {
			continue
		}
		s.MeanPrice += r.Price
		counts[r.Scenario]++
		if r.Price > s.MaxPrice {
			s.MaxPrice = r.Price
		}
	}

	out := make([]ScenarioSummary, 0, len(order))
	for _, name := range order {
		s := byName[name]
		if n := counts[name]; n > 0 {
			s.MeanPrice /= float64(n)
		}
		out = append(out, *s)
	}
	return out
}

// RankByWelfare sorts scenario summaries descending by social welfare.
// Failed scenarios sink to the bottom regardless of their zero welfare.
func RankByWelfare(t *sweep.Table) []ScenarioSummary {
	out := Summarize(t)
	sort.SliceStable(out, func(i, j int) bool {
		iOK := out[i].Status == model.StatusOptimal
		jOK := out[j].Status == model.StatusOptimal
		if iOK != jOK {
			return iOK
		}
		return out[i].Welfare > out[j].Welfare
	})
	return out
}

// LocationStats aggregates price statistics per location across every
// successful row of the table, sorted by location for stable output.
func LocationStats(t *sweep.Table) []PriceStats {
	byLocation := make(map[string][]float64)
	for _, r := range t.Rows {
		if r.Status != model.StatusOptimal || r.Location == "" {
			continue
		}
		byLocation[r.Location] = append(byLocation[r.Location], r.Price)
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	out := make([]PriceStats, 0, len(locations))
	for _, loc := range locations {
		out = append(out, ComputeStats(loc, byLocation[loc]))
	}
	return out
}
