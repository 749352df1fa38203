package curves

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/model"
)

func curveSystem(t *testing.T, gens []model.Generator, loads []model.Load) *model.System {
	t.Helper()
	sys, err := model.NewSystem(gens, loads, []model.Bus{{ID: "n1"}}, nil, nil, nil)
	require.NoError(t, err)
	return sys
}

func TestBuild(t *testing.T) {
	sys := curveSystem(t,
		[]model.Generator{
			{ID: "mid", Offer: 20, Capacity: 100, Bus: "n1", InService: true},
			{ID: "cheap", Offer: 10, Capacity: 100, Bus: "n1", InService: true},
			{ID: "down", Offer: 5, Capacity: 50, Bus: "n1", InService: false},
			{ID: "empty", Offer: 1, Capacity: 0, Bus: "n1", InService: true},
		},
		[]model.Load{
			{ID: "low", Bid: 15, MaxDemand: 40, Bus: "n1"},
			{ID: "high", Bid: 30, MaxDemand: 150, Bus: "n1"},
		},
	)

	c := Build(sys)
	require.Len(t, c.Supply, 2)
	assert.Equal(t, "cheap", c.Supply[0].ID)
	assert.Equal(t, "mid", c.Supply[1].ID)
	require.Len(t, c.Demand, 2)
	assert.Equal(t, "high", c.Demand[0].ID)
	assert.Equal(t, "low", c.Demand[1].ID)
}

func TestTracePoints(t *testing.T) {
	c := Curves{Supply: []Step{
		{ID: "a", Price: 10, Quantity: 100},
		{ID: "b", Price: 20, Quantity: 50},
	}}

	pts := c.SupplyPoints()
	require.Len(t, pts, 4)
	assert.Equal(t, Point{Quantity: 0, Price: 10}, pts[0])
	assert.Equal(t, Point{Quantity: 100, Price: 10}, pts[1])
	assert.Equal(t, Point{Quantity: 100, Price: 20}, pts[2])
	assert.Equal(t, Point{Quantity: 150, Price: 20}, pts[3])
}

func TestIntersect(t *testing.T) {
	t.Run("crossing on a supply step", func(t *testing.T) {
		c := Curves{
			Supply: []Step{{Price: 10, Quantity: 100}, {Price: 20, Quantity: 100}},
			Demand: []Step{{Price: 30, Quantity: 150}},
		}
		x, ok := c.Intersect()
		require.True(t, ok)
		assert.InDelta(t, 150.0, x.Quantity, 1e-9)
		assert.InDelta(t, 20.0, x.Price, 1e-9)
	})

	t.Run("crossing on a vertical segment admits a price band", func(t *testing.T) {
		c := Curves{
			Supply: []Step{{Price: 10, Quantity: 100}, {Price: 50, Quantity: 100}},
			Demand: []Step{{Price: 30, Quantity: 150}},
		}
		x, ok := c.Intersect()
		require.True(t, ok)
		assert.InDelta(t, 100.0, x.Quantity, 1e-9)
		assert.InDelta(t, 40.0, x.Price, 1e-9)
		assert.InDelta(t, 30.0, x.PriceLow, 1e-9)
		assert.InDelta(t, 50.0, x.PriceHigh, 1e-9)
	})

	t.Run("supply exhausted inside the demand curve", func(t *testing.T) {
		c := Curves{
			Supply: []Step{{Price: 10, Quantity: 100}},
			Demand: []Step{{Price: 30, Quantity: 150}},
		}
		x, ok := c.Intersect()
		require.True(t, ok)
		assert.InDelta(t, 100.0, x.Quantity, 1e-9)
		assert.InDelta(t, 30.0, x.Price, 1e-9)
	})

	t.Run("both curves end at the same quantity", func(t *testing.T) {
		c := Curves{
			Supply: []Step{{Price: 10, Quantity: 100}},
			Demand: []Step{{Price: 30, Quantity: 100}},
		}
		x, ok := c.Intersect()
		require.True(t, ok)
		assert.InDelta(t, 100.0, x.Quantity, 1e-9)
		assert.InDelta(t, 20.0, x.Price, 1e-9)
		assert.InDelta(t, 10.0, x.PriceLow, 1e-9)
		assert.InDelta(t, 30.0, x.PriceHigh, 1e-9)
	})

	t.Run("no crossing when the cheapest offer beats the best bid", func(t *testing.T) {
		c := Curves{
			Supply: []Step{{Price: 40, Quantity: 100}},
			Demand: []Step{{Price: 30, Quantity: 150}},
		}
		_, ok := c.Intersect()
		assert.False(t, ok)
	})

	t.Run("empty sides never cross", func(t *testing.T) {
		_, ok := Curves{}.Intersect()
		assert.False(t, ok)
	})
}
