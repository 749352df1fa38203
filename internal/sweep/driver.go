package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"market-clearing/internal/clearing"
	"market-clearing/internal/model"
)

// Row is one line of the sweep results table: one scenario × one pricing
// location. Failed scenarios produce a single row carrying the error.
type Row struct {
	Scenario string
	Params   string
	Location string
	Price    float64
	Welfare  float64

	// MostCongested and CongestionRatio describe the highest-utilization
	// line of the scenario's nodal result (ties joined with "|").
	MostCongested   string
	CongestionRatio float64

	Status model.RunStatus
	Error  string
}

// Table is the aggregated sweep output, ordered by the input scenario order.
type Table struct {
	Rows []Row
}

// Run evaluates every scenario independently: derive a snapshot, run the
// pipeline, append rows. Construction and solver failures are recorded in
// the table and never abort the sweep; completed scenarios stay usable.
// workers > 1 evaluates scenarios concurrently; each run owns its snapshot
// and its solver session, so runs cannot race.
func Run(ctx context.Context, base *model.System, scenarios []model.Scenario, cfg RunConfig, workers int) *Table {
	if workers < 1 {
		workers = 1
	}

	perScenario := make([][]Row, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			perScenario[i] = runScenario(ctx, base, sc, cfg)
			return nil
		})
	}
	// Workers never return errors; rows carry per-scenario failures.
	_ = g.Wait()

	t := &Table{}
	for _, rows := range perScenario {
		t.Rows = append(t.Rows, rows...)
	}
	return t
}

func runScenario(ctx context.Context, base *model.System, sc model.Scenario, cfg RunConfig) []Row {
	params := describeOverrides(sc)

	snapshot, err := base.Apply(sc)
	if err != nil {
		log.Printf("sweep: scenario %q construction failed: %v", sc.Name, err)
		return []Row{failedRow(sc.Name, params, model.StatusSolverError, err)}
	}

	out, err := RunOnce(ctx, snapshot, cfg, sc.Name)
	if err != nil {
		log.Printf("sweep: scenario %q failed: %v", sc.Name, err)
		return []Row{failedRow(sc.Name, params, statusOf(err), err)}
	}

	res := out.DayAhead
	congested, ratio := "", 0.0
	if out.Congestion != nil && len(out.Congestion.MostCongested) > 0 {
		names := make([]string, 0, len(out.Congestion.MostCongested))
		for _, lc := range out.Congestion.MostCongested {
			names = append(names, lc.Line)
		}
		congested = strings.Join(names, "|")
		ratio = out.Congestion.MostCongested[0].Ratio
	}

	row := func(location string, price float64) Row {
		return Row{
			Scenario:        sc.Name,
			Params:          params,
			Location:        location,
			Price:           price,
			Welfare:         res.SocialWelfare,
			MostCongested:   congested,
			CongestionRatio: ratio,
			Status:          res.Status,
		}
	}

	var rows []Row
	switch {
	case len(res.BusPrices) > 0:
		for _, id := range sortedKeys(res.BusPrices) {
			rows = append(rows, row(id, res.BusPrices[id]))
		}
	case len(res.ZonePrices) > 0:
		for _, id := range sortedKeys(res.ZonePrices) {
			rows = append(rows, row(id, res.ZonePrices[id]))
		}
	default:
		rows = append(rows, row("system", res.SystemPrice))
	}
	return rows
}

func failedRow(name, params string, status model.RunStatus, err error) Row {
	return Row{
		Scenario: name,
		Params:   params,
		Status:   status,
		Error:    err.Error(),
	}
}

func statusOf(err error) model.RunStatus {
	var inf *clearing.InfeasibleError
	var unb *clearing.UnboundedError
	switch {
	case errors.As(err, &inf):
		return model.StatusInfeasible
	case errors.As(err, &unb):
		return model.StatusUnbounded
	default:
		return model.StatusSolverError
	}
}

func describeOverrides(sc model.Scenario) string {
	parts := make([]string, 0, len(sc.Overrides))
	for _, ov := range sc.Overrides {
		switch ov.Kind {
		case model.OverrideLineCapacity:
			parts = append(parts, fmt.Sprintf("line %s-%s cap=%.0f", ov.Line, ov.LineTo, ov.Value))
		case model.OverrideLineOutage:
			parts = append(parts, fmt.Sprintf("line %s-%s out", ov.Line, ov.LineTo))
		case model.OverrideGeneratorOutage:
			parts = append(parts, fmt.Sprintf("gen %s out", ov.Generator))
		case model.OverrideGeneratorCapacity:
			parts = append(parts, fmt.Sprintf("gen %s cap=%.0f", ov.Generator, ov.Value))
		case model.OverrideATCFactor:
			parts = append(parts, fmt.Sprintf("atc x%.2f", ov.Value))
		case model.OverrideLoadFactor:
			parts = append(parts, fmt.Sprintf("load x%.2f", ov.Value))
		}
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
