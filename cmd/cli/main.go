package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"market-clearing/internal/analysis"
	"market-clearing/internal/clearing"
	"market-clearing/internal/config"
	"market-clearing/internal/data"
	"market-clearing/internal/model"
	"market-clearing/internal/offering"
	"market-clearing/internal/prices"
	"market-clearing/internal/settlement"
	"market-clearing/internal/sweep"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "clear":
		cmdClear(os.Args[2:])
	case "sweep":
		cmdSweep(os.Args[2:])
	case "offer":
		cmdOffer(os.Args[2:])
	case "storage":
		cmdStorage(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli clear --config examples/config.yaml")
	fmt.Println("  cli sweep --config examples/config.yaml --out results/sweep.csv --workers 4")
	fmt.Println("  cli offer --scenarios scenarios.json --capacity 150 --scheme two --beta 0.5")
	fmt.Println("  cli storage --prices prices.json --energy 100 --power 50")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - clear runs one market clearing and prints prices, dispatch and welfare")
	fmt.Println("  - sweep runs every scenario of the config and writes a CSV for plotting")
	fmt.Println("  - offer optimizes a wind producer's day-ahead offers against scenarios")
	fmt.Println("  - storage schedules a price-taking storage unit against a price series")
}

func cmdClear(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	sys, err := cfg.System.ToSystem()
	if err != nil {
		panic(err)
	}

	out, err := sweep.RunOnce(context.Background(), sys, toRunConfig(cfg), "")
	if err != nil {
		panic(err)
	}
	res := out.DayAhead

	fmt.Printf("variant=%s status=%s objective=%.2f welfare=%.2f\n",
		res.Variant, res.Status, res.Objective, res.SocialWelfare)
	printPrices(res)

	fmt.Println("\ndispatch:")
	for _, g := range sys.Generators {
		fmt.Printf("  %-12s %8.2f MW  (offer %.2f, cap %.2f)\n",
			g.ID, res.Dispatch[g.ID], g.Offer, g.Capacity)
	}
	for _, d := range sys.Loads {
		fmt.Printf("  %-12s %8.2f MW served of %.2f demanded\n",
			d.ID, res.Consumption[d.ID], d.MaxDemand)
	}

	if out.Reserve != nil {
		fmt.Printf("\nreserve procurement cost=%.2f\n", out.Reserve.Objective)
		for id, up := range out.Reserve.ReserveUp {
			fmt.Printf("  %-12s up=%7.2f down=%7.2f MW\n", id, up, out.Reserve.ReserveDown[id])
		}
	}

	if out.Settlement != nil {
		fmt.Printf("\nbalancing cost=%.2f price=%.2f\n", out.Settlement.Cost, out.Settlement.BalancingPrice)
		fmt.Printf("%-12s %12s %12s\n", "generator", "one-price", "two-price")
		for _, g := range sys.Generators {
			fmt.Printf("%-12s %12.2f %12.2f\n",
				g.ID, out.Settlement.OnePrice[g.ID], out.Settlement.TwoPrice[g.ID])
		}
	}

	if len(res.BusPrices) > 0 {
		fmt.Printf("\ncongestion rent=%.2f\n", prices.CongestionRent(sys, res))
	}

	if out.Congestion != nil {
		fmt.Println("\nline loading:")
		for _, l := range out.Congestion.Lines {
			mark := ""
			if l.Congested {
				mark = "  CONGESTED"
			}
			fmt.Printf("  %-10s %8.2f / %8.2f MW  (%.0f%%)%s\n",
				l.Line, l.FlowMW, l.Capacity, l.Ratio*100, mark)
		}
	}

	if len(out.Overloads) > 0 {
		fmt.Println("\nimplied flow overloads:")
		for _, ol := range out.Overloads {
			fmt.Printf("  %-10s %8.2f MW over %8.2f MW capacity\n", ol.Line, ol.ImpliedMW, ol.Capacity)
		}
	}

	profits := settlement.Profits(sys, res)
	fmt.Println("\nprofits:")
	for _, g := range sys.Generators {
		fmt.Printf("  %-12s %10.2f\n", g.ID, profits[g.ID])
	}
}

func cmdSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config with scenarios")
	outPath := fs.String("out", "results/sweep.csv", "Output CSV path")
	workers := fs.Int("workers", 0, "Concurrent scenario runs (0=config, else 1)")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	sys, err := cfg.System.ToSystem()
	if err != nil {
		panic(err)
	}
	scenarios := cfg.ToScenarios()
	if len(scenarios) == 0 {
		fmt.Println("config has no scenarios")
		os.Exit(2)
	}

	n := *workers
	if n == 0 {
		n = cfg.Run.Workers
	}

	table := sweep.Run(context.Background(), sys, scenarios, toRunConfig(cfg), n)

	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		panic(err)
	}
	if err := sweep.WriteCSV(*outPath, table); err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d rows to %s\n\n", len(table.Rows), *outPath)

	ranked := analysis.RankByWelfare(table)
	fmt.Printf("%-4s %-20s %-10s %-12s %-10s %-12s\n", "rank", "scenario", "status", "welfare", "mean p", "congested")
	for i, r := range ranked {
		fmt.Printf("%-4d %-20s %-10s %-12.2f %-10.2f %-12s\n",
			i+1, r.Scenario, r.Status, r.Welfare, r.MeanPrice, r.MostCongested)
	}
}

func cmdOffer(args []string) {
	fs := flag.NewFlagSet("offer", flag.ExitOnError)
	scenPath := fs.String("scenarios", "", "Path to wind scenario JSON")
	capacity := fs.Float64("capacity", 150, "Wind farm capacity, MW")
	scheme := fs.String("scheme", "one", "Imbalance scheme: one or two")
	beta := fs.Float64("beta", 0, "CVaR weight in [0,1] (0=risk neutral)")
	alpha := fs.Float64("alpha", 0.90, "CVaR confidence level")
	inSample := fs.Int("in-sample", 0, "Optional: cross-validate with this fold size")
	_ = fs.Parse(args)

	if *scenPath == "" {
		fmt.Println("--scenarios is required")
		os.Exit(2)
	}

	scenarios, err := data.LoadWindScenarios(*scenPath)
	if err != nil {
		panic(err)
	}

	cfg := offering.Config{
		Capacity: *capacity,
		Scheme:   offering.Scheme(*scheme),
		Beta:     *beta,
		Alpha:    *alpha,
	}

	if *inSample > 0 {
		avgIn, avgOut, err := offering.CrossValidate(context.Background(), scenarios, *inSample, cfg)
		if err != nil {
			panic(err)
		}
		fmt.Printf("cross-validation (%d scenarios in-sample): in=%.2f out=%.2f gap=%.2f\n",
			*inSample, avgIn, avgOut, avgIn-avgOut)
		return
	}

	strat, err := offering.Optimize(context.Background(), scenarios, cfg)
	if err != nil {
		panic(err)
	}

	fmt.Printf("scheme=%s beta=%.2f expected revenue=%.2f", cfg.Scheme, cfg.Beta, strat.ExpectedRevenue)
	if cfg.Beta > 0 {
		fmt.Printf(" cvar=%.2f", strat.CVaR)
	}
	fmt.Println()
	for t, q := range strat.Offers {
		fmt.Printf("  t=%-3d offer=%8.2f MW\n", t, q)
	}
}

func cmdStorage(args []string) {
	fs := flag.NewFlagSet("storage", flag.ExitOnError)
	pricesPath := fs.String("prices", "", "Path to price series JSON")
	energy := fs.Float64("energy", 100, "Energy capacity, MWh")
	power := fs.Float64("power", 50, "Power capacity, MW")
	effC := fs.Float64("charge-eff", 0.95, "Charge efficiency")
	effD := fs.Float64("discharge-eff", 0.95, "Discharge efficiency")
	degradation := fs.Float64("degradation", 0, "Degradation cost per MWh of throughput")
	_ = fs.Parse(args)

	if *pricesPath == "" {
		fmt.Println("--prices is required")
		os.Exit(2)
	}

	series, err := data.LoadPriceSeries(*pricesPath)
	if err != nil {
		panic(err)
	}

	params := model.StorageParams{
		EnergyCapacityMWh:     *energy,
		PowerCapacityMW:       *power,
		ChargeEfficiency:      *effC,
		DischargeEfficiency:   *effD,
		MinSOC:                0,
		MaxSOC:                1,
		InitialSOC:            0.5,
		DegradationCostPerMWh: *degradation,
	}

	res, err := clearing.SolveStorage(context.Background(), params, series.Prices, series.DtHours)
	if err != nil {
		panic(err)
	}

	ideal := analysis.StoragePotential(series.Prices, series.DtHours)
	fmt.Printf("profit=%.2f (ideal 1MW/1MWh bound x capacity: %.2f)\n", res.Profit, ideal)
	for t := range res.ChargeMW {
		fmt.Printf("  t=%-3d price=%8.2f charge=%7.2f discharge=%7.2f soc=%.3f\n",
			t, series.Prices[t], res.ChargeMW[t], res.DischargeMW[t], res.SOC[t])
	}
}

func toRunConfig(cfg *config.Config) sweep.RunConfig {
	rc := cfg.ToRunConfig()
	return sweep.RunConfig{
		Variant:             rc.Variant,
		Reserve:             rc.Reserve,
		Balancing:           rc.Balancing,
		CongestionThreshold: rc.CongestionThreshold,
		Timeout:             rc.Timeout,
	}
}

func printPrices(res *model.MarketResult) {
	switch {
	case len(res.BusPrices) > 0:
		fmt.Println("bus prices:")
		for id, p := range res.BusPrices {
			fmt.Printf("  %-12s %8.2f\n", id, p)
		}
	case len(res.ZonePrices) > 0:
		fmt.Println("zone prices:")
		for id, p := range res.ZonePrices {
			fmt.Printf("  %-12s %8.2f\n", id, p)
		}
	default:
		fmt.Printf("system price=%.2f", res.SystemPrice)
		if res.Degenerate {
			fmt.Printf(" (degenerate, marginal-offer fallback)")
		}
		fmt.Println()
	}
}
