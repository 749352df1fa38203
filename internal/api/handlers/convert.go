package handlers

import (
	"time"

	"market-clearing/internal/api/models"
	"market-clearing/internal/clearing"
	"market-clearing/internal/config"
	"market-clearing/internal/model"
	"market-clearing/internal/prices"
	"market-clearing/internal/settlement"
	"market-clearing/internal/sweep"
)

// Request-to-domain and domain-to-response conversions shared by the
// handlers.

func toSystemConfig(spec models.SystemSpec) config.SystemConfig {
	out := config.SystemConfig{Name: spec.Name}
	for _, b := range spec.Buses {
		out.Buses = append(out.Buses, config.BusConfig{ID: b.ID, Slack: b.Slack})
	}
	for _, g := range spec.Generators {
		out.Generators = append(out.Generators, config.GenConfig{
			ID:           g.ID,
			Bus:          g.Bus,
			OfferPrice:   g.OfferPrice,
			CapacityMW:   g.CapacityMW,
			Flexible:     g.Flexible,
			OutOfService: g.OutOfService,
		})
	}
	for _, d := range spec.Loads {
		out.Loads = append(out.Loads, config.LoadConfig{ID: d.ID, Bus: d.Bus, BidPrice: d.BidPrice, DemandMW: d.DemandMW})
	}
	for _, l := range spec.Lines {
		out.Lines = append(out.Lines, config.LineConfig{From: l.From, To: l.To, Reactance: l.Reactance, CapacityMW: l.CapacityMW})
	}
	for _, z := range spec.Zones {
		out.Zones = append(out.Zones, config.ZoneConfig{ID: z.ID, Buses: z.Buses})
	}
	for _, t := range spec.Transfers {
		out.Transfers = append(out.Transfers, config.TransferConfig{From: t.From, To: t.To, ATCMW: t.ATCMW})
	}
	return out
}

func toRunConfig(spec models.RunSpec) sweep.RunConfig {
	cfg := sweep.RunConfig{
		Variant:             spec.Variant,
		CongestionThreshold: spec.CongestionThreshold,
	}
	if spec.Reserve != nil {
		cfg.Reserve = clearing.ReserveConfig{
			UpFraction:   spec.Reserve.UpFraction,
			DownFraction: spec.Reserve.DownFraction,
			CoOptimize:   spec.Reserve.CoOptimize,
		}
	}
	if spec.Balancing != nil {
		cfg.Balancing = &clearing.BalancingConfig{
			Deviations:         spec.Balancing.Deviations,
			DefaultUpFactor:    spec.Balancing.UpCostFactor,
			DefaultDownFactor:  spec.Balancing.DownCostFactor,
			CurtailmentPenalty: spec.Balancing.CurtailmentPenalty,
		}
	}
	if spec.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(spec.TimeoutSeconds * float64(time.Second))
	}
	return cfg
}

func toScenarios(specs []models.ScenarioSpec) []model.Scenario {
	out := make([]model.Scenario, 0, len(specs))
	for _, s := range specs {
		sc := model.Scenario{Name: s.Name}
		for _, ov := range s.Overrides {
			sc.Overrides = append(sc.Overrides, model.Override{
				Kind:      model.OverrideKind(ov.Kind),
				Line:      ov.Line,
				LineTo:    ov.LineTo,
				Generator: ov.Generator,
				Load:      ov.Load,
				Value:     ov.Value,
			})
		}
		out = append(out, sc)
	}
	return out
}

func toMarketSummary(r *model.MarketResult, includeDispatch bool) models.MarketSummary {
	s := models.MarketSummary{
		Variant:       r.Variant,
		Status:        string(r.Status),
		SystemPrice:   r.SystemPrice,
		Degenerate:    r.Degenerate,
		BusPrices:     r.BusPrices,
		ZonePrices:    r.ZonePrices,
		SocialWelfare: r.SocialWelfare,
		Objective:     r.Objective,
		Curtailment:   r.Curtailment,
	}
	if includeDispatch {
		s.Dispatch = r.Dispatch
		s.Consumption = r.Consumption
		s.Flows = r.Flows
		s.ZoneFlows = r.ZoneFlows
		s.ReserveUp = r.ReserveUp
		s.ReserveDown = r.ReserveDown
	}
	return s
}

func toCongestionSummary(rep *prices.CongestionReport) *models.CongestionSummary {
	if rep == nil {
		return nil
	}
	out := &models.CongestionSummary{Threshold: rep.Threshold}
	for _, l := range rep.Lines {
		out.Lines = append(out.Lines, toLineLoading(l))
	}
	for _, l := range rep.MostCongested {
		out.MostCongested = append(out.MostCongested, toLineLoading(l))
	}
	return out
}

func toLineLoading(l prices.LineCongestion) models.LineLoading {
	return models.LineLoading{
		Line:       l.Line,
		FlowMW:     l.FlowMW,
		CapacityMW: l.Capacity,
		Ratio:      l.Ratio,
		Congested:  l.Congested,
	}
}

func toSettlementSummary(s *settlement.BalancingOutcome) *models.SettlementSummary {
	if s == nil {
		return nil
	}
	return &models.SettlementSummary{
		Cost:           s.Cost,
		BalancingPrice: s.BalancingPrice,
		OnePrice:       s.OnePrice,
		TwoPrice:       s.TwoPrice,
	}
}
