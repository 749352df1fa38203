package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/model"
	"market-clearing/internal/sweep"
)

func TestComputeStats(t *testing.T) {
	t.Run("five-point summary", func(t *testing.T) {
		s := ComputeStats("n1", []float64{30, 10, 50, 20, 40})
		assert.Equal(t, 5, s.Count)
		assert.Equal(t, 10.0, s.Min)
		assert.Equal(t, 50.0, s.Max)
		assert.InDelta(t, 30.0, s.Mean, 1e-9)
		assert.InDelta(t, 12.0, s.P05, 1e-9)
		assert.InDelta(t, 48.0, s.P95, 1e-9)
		assert.InDelta(t, 36.0, s.SpreadP95P05, 1e-9)
	})

	t.Run("empty input yields the zero summary", func(t *testing.T) {
		s := ComputeStats("n1", nil)
		assert.Zero(t, s.Count)
		assert.Zero(t, s.Mean)
	})

	t.Run("single value collapses every percentile", func(t *testing.T) {
		s := ComputeStats("n1", []float64{42})
		assert.Equal(t, 42.0, s.P05)
		assert.Equal(t, 42.0, s.P95)
		assert.Zero(t, s.SpreadP95P05)
	})
}

func TestStoragePotential(t *testing.T) {
	t.Run("single spread is captured once", func(t *testing.T) {
		// The unit starts full, so it sells into the high period directly.
		assert.InDelta(t, 50.0, StoragePotential([]float64{10, 50}, 1), 1e-9)
	})

	t.Run("repeated spreads are cycled", func(t *testing.T) {
		// Sell at 50, buy back at 10, sell again.
		assert.InDelta(t, 90.0, StoragePotential([]float64{10, 50, 10, 50}, 1), 1e-9)
	})

	t.Run("flat prices only liquidate the initial charge", func(t *testing.T) {
		assert.InDelta(t, 25.0, StoragePotential([]float64{25, 25, 25}, 1), 1e-9)
	})

	t.Run("degenerate inputs are zero", func(t *testing.T) {
		assert.Zero(t, StoragePotential(nil, 1))
		assert.Zero(t, StoragePotential([]float64{10}, 0))
	})
}

func sampleTable() *sweep.Table {
	return &sweep.Table{Rows: []sweep.Row{
		{Scenario: "a", Params: "line n1-n2 cap=25", Location: "n1", Price: 10,
			Welfare: 1000, MostCongested: "n1-n2", CongestionRatio: 1, Status: model.StatusOptimal},
		{Scenario: "a", Params: "line n1-n2 cap=25", Location: "n2", Price: 50,
			Welfare: 1000, MostCongested: "n1-n2", CongestionRatio: 1, Status: model.StatusOptimal},
		{Scenario: "b", Location: "system", Price: 20, Welfare: 3000, Status: model.StatusOptimal},
		{Scenario: "c", Status: model.StatusInfeasible, Error: "no feasible dispatch"},
	}}
}

func TestSummarize(t *testing.T) {
	out := Summarize(sampleTable())
	require.Len(t, out, 3)

	assert.Equal(t, "a", out[0].Scenario)
	assert.InDelta(t, 30.0, out[0].MeanPrice, 1e-9)
	assert.InDelta(t, 50.0, out[0].MaxPrice, 1e-9)
	assert.Equal(t, "n1-n2", out[0].MostCongested)

	assert.Equal(t, "b", out[1].Scenario)
	assert.InDelta(t, 20.0, out[1].MeanPrice, 1e-9)

	assert.Equal(t, "c", out[2].Scenario)
	assert.Equal(t, model.StatusInfeasible, out[2].Status)
	assert.Zero(t, out[2].MeanPrice)
}

func TestRankByWelfare(t *testing.T) {
	out := RankByWelfare(sampleTable())
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].Scenario)
	assert.Equal(t, "a", out[1].Scenario)
	// Failed scenarios sink below every completed one.
	assert.Equal(t, "c", out[2].Scenario)
}

func TestLocationStats(t *testing.T) {
	out := LocationStats(sampleTable())
	require.Len(t, out, 3)
	assert.Equal(t, "n1", out[0].Location)
	assert.Equal(t, "n2", out[1].Location)
	assert.Equal(t, "system", out[2].Location)
	assert.Equal(t, 1, out[0].Count)
	assert.Equal(t, 10.0, out[0].Mean)
}
