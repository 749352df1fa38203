package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"market-clearing/internal/clearing"
	"market-clearing/internal/curves"
	"market-clearing/internal/model"
	"market-clearing/internal/sweep"
)

// Demo:
// - Build a small three-bus system in code
// - Clear it as a plain market and as a nodal market
// - Tighten a line to show prices splitting across buses
func main() {
	variant := flag.String("variant", "nodal", "Market variant to run (plain|nodal)")
	lineCap := flag.Float64("line-cap", 60, "Capacity of the 1-2 line, MW")
	flag.Parse()

	sys := demoSystem()

	cross, ok := curves.Build(sys).Intersect()
	if ok {
		fmt.Printf("curve intersection: %.1f MW at %.2f EUR/MWh\n\n", cross.Quantity, cross.Price)
	}

	cfg := sweep.RunConfig{Variant: *variant}
	out, err := sweep.RunOnce(context.Background(), sys, cfg, "")
	if err != nil {
		panic(err)
	}
	printResult("base system", out)

	if *variant != clearing.VariantNodal {
		return
	}

	// Constrain the cheap generator's export path and clear again.
	constrained := model.Scenario{
		Name: "tight line",
		Overrides: []model.Override{
			{Kind: model.OverrideLineCapacity, Line: "bus1", LineTo: "bus2", Value: *lineCap},
		},
	}
	snapshot, err := sys.Apply(constrained)
	if err != nil {
		panic(err)
	}
	out2, err := sweep.RunOnce(context.Background(), snapshot, cfg, constrained.Name)
	if err != nil {
		panic(err)
	}
	printResult(fmt.Sprintf("1-2 line at %.0f MW", *lineCap), out2)
}

func demoSystem() *model.System {
	buses := []model.Bus{
		{ID: "bus1", Slack: true},
		{ID: "bus2"},
		{ID: "bus3"},
	}
	gens := []model.Generator{
		{ID: "cheap", Bus: "bus1", Offer: 12, Capacity: 120, Flexible: true, InService: true},
		{ID: "mid", Bus: "bus2", Offer: 28, Capacity: 80, Flexible: true, InService: true},
		{ID: "peaker", Bus: "bus3", Offer: 55, Capacity: 60, InService: true},
	}
	loads := []model.Load{
		{ID: "city", Bus: "bus2", Bid: 90, MaxDemand: 110},
		{ID: "plant", Bus: "bus3", Bid: 70, MaxDemand: 45},
	}
	lines := []model.Line{
		{From: "bus1", To: "bus2", Reactance: 0.1, Capacity: 100},
		{From: "bus2", To: "bus3", Reactance: 0.1, Capacity: 80},
		{From: "bus1", To: "bus3", Reactance: 0.2, Capacity: 70},
	}
	sys, err := model.NewSystem(gens, loads, buses, lines, nil, nil)
	if err != nil {
		panic(err)
	}
	return sys
}

func printResult(label string, out *sweep.Outcome) {
	res := out.DayAhead
	fmt.Printf("== %s ==\n", label)
	fmt.Printf("status=%s welfare=%.2f\n", res.Status, res.SocialWelfare)

	if len(res.BusPrices) > 0 {
		ids := make([]string, 0, len(res.BusPrices))
		for id := range res.BusPrices {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %-6s price=%7.2f\n", id, res.BusPrices[id])
		}
	} else {
		fmt.Printf("  system price=%.2f\n", res.SystemPrice)
	}

	for id, mw := range res.Dispatch {
		fmt.Printf("  %-8s -> %7.2f MW\n", id, mw)
	}
	if out.Congestion != nil {
		for _, l := range out.Congestion.Lines {
			if l.Congested {
				fmt.Printf("  line %s congested at %.0f%%\n", l.Line, l.Ratio*100)
			}
		}
	}
	fmt.Println()
}
