package prices

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/clearing"
	"market-clearing/internal/lp"
	"market-clearing/internal/model"
)

func solve(t *testing.T, f *clearing.Formulation) *lp.Solution {
	t.Helper()
	sol, err := lp.Solve(context.Background(), f.Model)
	require.NoError(t, err)
	require.Equal(t, lp.StatusOptimal, sol.Status)
	return sol
}

func singleBusSystem(t *testing.T) *model.System {
	t.Helper()
	sys, err := model.NewSystem(
		[]model.Generator{
			{ID: "g1", Offer: 10, Capacity: 100, Bus: "n1", InService: true},
			{ID: "g2", Offer: 20, Capacity: 100, Bus: "n1", InService: true},
		},
		[]model.Load{{ID: "d1", Bid: 30, MaxDemand: 150, Bus: "n1"}},
		[]model.Bus{{ID: "n1"}},
		nil, nil, nil,
	)
	require.NoError(t, err)
	return sys
}

func congestedNodalSystem(t *testing.T, lineCapacity float64) *model.System {
	t.Helper()
	sys, err := model.NewSystem(
		[]model.Generator{
			{ID: "cheap", Offer: 10, Capacity: 200, Bus: "n1", InService: true},
			{ID: "costly", Offer: 50, Capacity: 200, Bus: "n2", InService: true},
		},
		[]model.Load{{ID: "d1", Bid: 80, MaxDemand: 150, Bus: "n2"}},
		[]model.Bus{{ID: "n1", Slack: true}, {ID: "n2"}},
		[]model.Line{{From: "n1", To: "n2", Reactance: 0.1, Capacity: lineCapacity}},
		nil, nil,
	)
	require.NoError(t, err)
	return sys
}

func TestExtractPlain(t *testing.T) {
	sys := singleBusSystem(t)
	f, err := clearing.BuildPlain(sys)
	require.NoError(t, err)
	r := Extract(sys, f, solve(t, f))

	assert.Equal(t, clearing.VariantPlain, r.Variant)
	assert.Equal(t, model.StatusOptimal, r.Status)
	assert.InDelta(t, 100.0, r.Dispatch["g1"], 1e-6)
	assert.InDelta(t, 50.0, r.Dispatch["g2"], 1e-6)
	assert.InDelta(t, 150.0, r.Consumption["d1"], 1e-6)
	assert.InDelta(t, 20.0, r.SystemPrice, 1e-6)
	assert.False(t, r.Degenerate)
	assert.InDelta(t, 2500.0, r.SocialWelfare, 1e-6)
	assert.InDelta(t, r.Objective, r.SocialWelfare, 1e-4)
}

func TestExtractReserveDayAhead(t *testing.T) {
	sys := singleBusSystem(t)
	f, err := clearing.BuildDayAheadWithReserve(sys, clearing.ReserveCommitment{
		Up:   map[string]float64{"g1": 30},
		Down: map[string]float64{"g1": 15},
	})
	require.NoError(t, err)
	r := Extract(sys, f, solve(t, f))

	// The tightened energy stage still clears demand, so it carries a
	// welfare: 30*150 - 10*70 - 20*80.
	assert.InDelta(t, 70.0, r.Dispatch["g1"], 1e-6)
	assert.InDelta(t, 80.0, r.Dispatch["g2"], 1e-6)
	assert.InDelta(t, 2200.0, r.SocialWelfare, 1e-6)
	assert.InDelta(t, 2200.0, r.Objective, 1e-4)
}

func TestExtractNodal(t *testing.T) {
	sys := congestedNodalSystem(t, 100)
	f, err := clearing.BuildNodal(sys)
	require.NoError(t, err)
	r := Extract(sys, f, solve(t, f))

	assert.InDelta(t, 10.0, r.BusPrices["n1"], 1e-6)
	assert.InDelta(t, 50.0, r.BusPrices["n2"], 1e-6)
	assert.InDelta(t, 100.0, r.Flows["n1-n2"], 1e-6)
	// Prices differ, so no single system price is reported.
	assert.Zero(t, r.SystemPrice)

	assert.InDelta(t, 10.0, r.PriceAtBus(sys, "n1"), 1e-6)
}

func TestExtractNodalUniformPrice(t *testing.T) {
	sys := congestedNodalSystem(t, 500)
	f, err := clearing.BuildNodal(sys)
	require.NoError(t, err)
	r := Extract(sys, f, solve(t, f))

	// With slack on the line both buses clear at the cheap unit's offer and
	// the uniform price is surfaced as the system price.
	assert.InDelta(t, 10.0, r.BusPrices["n1"], 1e-6)
	assert.InDelta(t, 10.0, r.BusPrices["n2"], 1e-6)
	assert.InDelta(t, 10.0, r.SystemPrice, 1e-6)
}

func TestMarginalOfferPrice(t *testing.T) {
	sys := singleBusSystem(t)

	t.Run("last accepted offer sets the price", func(t *testing.T) {
		p := MarginalOfferPrice(sys, map[string]float64{"g1": 100, "g2": 25})
		assert.Equal(t, 20.0, p)
	})

	t.Run("near-zero dispatch is ignored", func(t *testing.T) {
		p := MarginalOfferPrice(sys, map[string]float64{"g1": 100, "g2": 1e-9})
		assert.Equal(t, 10.0, p)
	})

	t.Run("empty market prices at zero", func(t *testing.T) {
		assert.Zero(t, MarginalOfferPrice(sys, nil))
	})
}

func TestCongestionRent(t *testing.T) {
	sys := congestedNodalSystem(t, 100)
	f, err := clearing.BuildNodal(sys)
	require.NoError(t, err)
	r := Extract(sys, f, solve(t, f))

	// 100 MW flows from the 10 EUR bus to the 50 EUR bus.
	assert.InDelta(t, 4000.0, CongestionRent(sys, r), 1e-4)
}

func TestCongestion(t *testing.T) {
	t.Run("binding line is congested and most congested", func(t *testing.T) {
		sys := congestedNodalSystem(t, 100)
		f, err := clearing.BuildNodal(sys)
		require.NoError(t, err)
		r := Extract(sys, f, solve(t, f))

		rep, err := Congestion(sys, r, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultCongestionThreshold, rep.Threshold)
		require.Len(t, rep.Lines, 1)
		assert.True(t, rep.Lines[0].Congested)
		assert.InDelta(t, 1.0, rep.Lines[0].Ratio, 1e-6)
		require.Len(t, rep.MostCongested, 1)
		assert.Equal(t, "n1-n2", rep.MostCongested[0].Line)
	})

	t.Run("slack line stays below a lowered threshold", func(t *testing.T) {
		sys := congestedNodalSystem(t, 500)
		f, err := clearing.BuildNodal(sys)
		require.NoError(t, err)
		r := Extract(sys, f, solve(t, f))

		rep, err := Congestion(sys, r, 0.5)
		require.NoError(t, err)
		require.Len(t, rep.Lines, 1)
		assert.False(t, rep.Lines[0].Congested)
		assert.InDelta(t, 0.3, rep.Lines[0].Ratio, 1e-6)
		// The least-loaded line is still the most congested of one.
		require.Len(t, rep.MostCongested, 1)
	})

	t.Run("ties are all reported", func(t *testing.T) {
		sys, err := model.NewSystem(nil, nil,
			[]model.Bus{{ID: "a"}, {ID: "b"}, {ID: "c"}},
			[]model.Line{
				{From: "a", To: "b", Reactance: 0.1, Capacity: 100},
				{From: "b", To: "c", Reactance: 0.1, Capacity: 100},
			},
			nil, nil,
		)
		require.NoError(t, err)
		r := &model.MarketResult{Flows: map[string]float64{"a-b": 80, "b-c": -80}}

		rep, err := Congestion(sys, r, 0)
		require.NoError(t, err)
		assert.Len(t, rep.MostCongested, 2)
	})

	t.Run("flow over a zero-capacity line is an error", func(t *testing.T) {
		sys, err := model.NewSystem(nil, nil,
			[]model.Bus{{ID: "a"}, {ID: "b"}},
			[]model.Line{{From: "a", To: "b", Reactance: 0.1, Capacity: 0}},
			nil, nil,
		)
		require.NoError(t, err)
		r := &model.MarketResult{Flows: map[string]float64{"a-b": 5}}

		_, err = Congestion(sys, r, 0)
		var cerr *CongestionComputationError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "a-b", cerr.Line)
	})
}

func TestCongestionRatioMonotoneInCapacity(t *testing.T) {
	// Relaxing the line's thermal limit never raises its utilization.
	prev := math.Inf(1)
	for _, capacity := range []float64{50, 100, 150, 200, 500} {
		sys := congestedNodalSystem(t, capacity)
		f, err := clearing.BuildNodal(sys)
		require.NoError(t, err)
		r := Extract(sys, f, solve(t, f))

		rep, err := Congestion(sys, r, 0)
		require.NoError(t, err)
		require.Len(t, rep.Lines, 1)
		ratio := rep.Lines[0].Ratio
		assert.LessOrEqualf(t, ratio, prev+1e-9, "capacity %.0f", capacity)
		prev = ratio
	}
}

func zonalTestSystem(t *testing.T, lineCapacity float64) *model.System {
	t.Helper()
	sys, err := model.NewSystem(
		[]model.Generator{
			{ID: "ga", Offer: 10, Capacity: 200, Bus: "a1", InService: true},
			{ID: "gb", Offer: 40, Capacity: 100, Bus: "b1", InService: true},
		},
		[]model.Load{{ID: "db", Bid: 60, MaxDemand: 150, Bus: "b1"}},
		[]model.Bus{{ID: "a1", Slack: true}, {ID: "b1"}},
		[]model.Line{{From: "a1", To: "b1", Reactance: 0.1, Capacity: lineCapacity}},
		[]model.Zone{{ID: "A", Buses: []string{"a1"}}, {ID: "B", Buses: []string{"b1"}}},
		[]model.TransferLimit{{From: "A", To: "B", Limit: 100}},
	)
	require.NoError(t, err)
	return sys
}

func TestCheckZonalFeasibility(t *testing.T) {
	t.Run("zonal dispatch can overload the physical line", func(t *testing.T) {
		// ATC admits 100 MW but the line below only carries 50.
		sys := zonalTestSystem(t, 50)
		f, err := clearing.BuildZonal(sys)
		require.NoError(t, err)
		r := Extract(sys, f, solve(t, f))
		require.InDelta(t, 100.0, r.ZoneFlows["A->B"], 1e-6)

		overloads, err := CheckZonalFeasibility(sys, r)
		require.NoError(t, err)
		require.Len(t, overloads, 1)
		assert.Equal(t, "a1-b1", overloads[0].Line)
		assert.InDelta(t, 100.0, overloads[0].ImpliedMW, 1e-4)
		assert.Equal(t, 50.0, overloads[0].Capacity)
	})

	t.Run("ample line capacity raises no flags", func(t *testing.T) {
		sys := zonalTestSystem(t, 150)
		f, err := clearing.BuildZonal(sys)
		require.NoError(t, err)
		r := Extract(sys, f, solve(t, f))

		overloads, err := CheckZonalFeasibility(sys, r)
		require.NoError(t, err)
		assert.Empty(t, overloads)
	})

	t.Run("lineless systems are skipped", func(t *testing.T) {
		sys := singleBusSystem(t)
		overloads, err := CheckZonalFeasibility(sys, &model.MarketResult{})
		require.NoError(t, err)
		assert.Nil(t, overloads)
	})
}
