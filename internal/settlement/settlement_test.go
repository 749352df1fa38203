package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/model"
)

func testSystem(t *testing.T) *model.System {
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

func TestProfitsAndUtilities(t *testing.T) {
	sys := testSystem(t)
	r := &model.MarketResult{
		SystemPrice: 20,
		Dispatch:    map[string]float64{"g1": 100, "g2": 50},
		Consumption: map[string]float64{"d1": 150},
	}

	profits := Profits(sys, r)
	assert.InDelta(t, 1000.0, profits["g1"], 1e-9) // (20-10)*100
	assert.InDelta(t, 0.0, profits["g2"], 1e-9)    // marginal unit

	utils := Utilities(sys, r)
	assert.InDelta(t, 1500.0, utils["d1"], 1e-9) // (30-20)*150

	assert.Zero(t, GeneratorProfit(sys, r, "missing"))
	assert.Zero(t, ConsumerUtility(sys, r, "missing"))
}

func TestProfitsUseLocalPrices(t *testing.T) {
	sys, err := model.NewSystem(
		[]model.Generator{
			{ID: "cheap", Offer: 8, Capacity: 200, Bus: "n1", InService: true},
			{ID: "costly", Offer: 50, Capacity: 200, Bus: "n2", InService: true},
		},
		[]model.Load{{ID: "d1", Bid: 80, MaxDemand: 150, Bus: "n2"}},
		[]model.Bus{{ID: "n1", Slack: true}, {ID: "n2"}},
		[]model.Line{{From: "n1", To: "n2", Reactance: 0.1, Capacity: 100}},
		nil, nil,
	)
	require.NoError(t, err)

	r := &model.MarketResult{
		BusPrices:   map[string]float64{"n1": 10, "n2": 50},
		Dispatch:    map[string]float64{"cheap": 100, "costly": 50},
		Consumption: map[string]float64{"d1": 150},
	}

	profits := Profits(sys, r)
	assert.InDelta(t, 200.0, profits["cheap"], 1e-9) // exporter earns its own bus price
	assert.InDelta(t, 0.0, profits["costly"], 1e-9)  // marginal at its bus

	utils := Utilities(sys, r)
	assert.InDelta(t, (80-50)*150.0, utils["d1"], 1e-9)
}

func TestOnePrice(t *testing.T) {
	im := Imbalance{
		DayAheadPrice:  20,
		BalancingPrice: 25,
		DayAhead:       map[string]float64{"g1": 100, "g2": 50},
		Actual:         map[string]float64{"g1": 100, "g2": 10},
	}

	adj := OnePrice(im)
	assert.InDelta(t, 0.0, adj["g1"], 1e-9)
	assert.InDelta(t, -40*25.0, adj["g2"], 1e-9)
	assert.InDelta(t, -40.0, im.SystemImbalance(), 1e-9)
}

func TestTwoPrice(t *testing.T) {
	t.Run("system deficit", func(t *testing.T) {
		// g2 is short and aggravates; g3 is long and relieves.
		im := Imbalance{
			DayAheadPrice:  20,
			BalancingPrice: 25,
			DayAhead:       map[string]float64{"g2": 50, "g3": 40},
			Actual:         map[string]float64{"g2": 10, "g3": 50},
		}
		adj := TwoPrice(im)
		assert.InDelta(t, -40*25.0, adj["g2"], 1e-9) // buys back at balancing
		assert.InDelta(t, 10*20.0, adj["g3"], 1e-9)  // paid only day-ahead
	})

	t.Run("system surplus", func(t *testing.T) {
		im := Imbalance{
			DayAheadPrice:  20,
			BalancingPrice: 17,
			DayAhead:       map[string]float64{"g2": 50, "g3": 40},
			Actual:         map[string]float64{"g2": 45, "g3": 60},
		}
		adj := TwoPrice(im)
		assert.InDelta(t, 20*17.0, adj["g3"], 1e-9) // surplus paid at balancing
		assert.InDelta(t, -5*20.0, adj["g2"], 1e-9) // relieving side at day-ahead
	})

	t.Run("zero aggregate imbalance adjusts no one", func(t *testing.T) {
		im := Imbalance{
			DayAheadPrice:  20,
			BalancingPrice: 25,
			DayAhead:       map[string]float64{"g2": 50, "g3": 40},
			Actual:         map[string]float64{"g2": 30, "g3": 60},
		}
		adj := TwoPrice(im)
		assert.Zero(t, adj["g2"])
		assert.Zero(t, adj["g3"])
	})

	t.Run("equal prices collapse to one-price", func(t *testing.T) {
		im := Imbalance{
			DayAheadPrice:  20,
			BalancingPrice: 20,
			DayAhead:       map[string]float64{"g2": 50, "g3": 40},
			Actual:         map[string]float64{"g2": 10, "g3": 50},
		}
		one := OnePrice(im)
		two := TwoPrice(im)
		for id := range im.Actual {
			assert.InDelta(t, one[id], two[id], 1e-9)
		}
	})
}

func TestSettle(t *testing.T) {
	dayAhead := &model.MarketResult{
		SystemPrice: 20,
		Dispatch:    map[string]float64{"g1": 100, "g2": 50},
	}
	balancing := &model.MarketResult{
		SystemPrice: 25,
		Objective:   1000,
	}
	realized := map[string]float64{"g1": 100, "g2": 10}

	out := Settle(dayAhead, balancing, realized)
	assert.InDelta(t, 1000.0, out.Cost, 1e-9)
	assert.InDelta(t, 25.0, out.BalancingPrice, 1e-9)
	assert.InDelta(t, -1000.0, out.OnePrice["g2"], 1e-9)
	assert.InDelta(t, -1000.0, out.TwoPrice["g2"], 1e-9)
	assert.Zero(t, out.OnePrice["g1"])
}
