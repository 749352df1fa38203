package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/api/models"
)

func TestToRunConfig(t *testing.T) {
	t.Run("balancing factors map to the activation defaults", func(t *testing.T) {
		cfg := toRunConfig(models.RunSpec{
			Variant: "plain",
			Balancing: &models.BalancingSpec{
				Deviations:         map[string]float64{"g1": -10},
				UpCostFactor:       1.3,
				DownCostFactor:     0.8,
				CurtailmentPenalty: 400,
			},
		})
		require.NotNil(t, cfg.Balancing)
		assert.Equal(t, 1.3, cfg.Balancing.DefaultUpFactor)
		assert.Equal(t, 0.8, cfg.Balancing.DefaultDownFactor)
		assert.Equal(t, 400.0, cfg.Balancing.CurtailmentPenalty)
		assert.Equal(t, -10.0, cfg.Balancing.Deviations["g1"])
	})

	t.Run("reserve and timeout settings carry over", func(t *testing.T) {
		cfg := toRunConfig(models.RunSpec{
			Variant:        "reserve",
			Reserve:        &models.ReserveSpec{UpFraction: 0.2, DownFraction: 0.1},
			TimeoutSeconds: 2.5,
		})
		assert.Equal(t, 0.2, cfg.Reserve.UpFraction)
		assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
		assert.Nil(t, cfg.Balancing)
	})
}

func TestToSystemConfig(t *testing.T) {
	spec := models.SystemSpec{
		Name:  "two-bus",
		Buses: []models.BusSpec{{ID: "n1", Slack: true}, {ID: "n2"}},
		Generators: []models.GenSpec{
			{ID: "g1", Bus: "n1", OfferPrice: 10, CapacityMW: 100, Flexible: true},
			{ID: "g2", Bus: "n2", OfferPrice: 20, CapacityMW: 80, OutOfService: true},
		},
		Loads: []models.LoadSpec{{ID: "d1", Bus: "n2", BidPrice: 30, DemandMW: 120}},
		Lines: []models.LineSpec{{From: "n1", To: "n2", Reactance: 0.1, CapacityMW: 60}},
	}

	sys, err := toSystemConfig(spec).ToSystem()
	require.NoError(t, err)
	g2, ok := sys.Generator("g2")
	require.True(t, ok)
	assert.False(t, g2.InService)
	assert.Equal(t, "n1", sys.SlackBus())
}
