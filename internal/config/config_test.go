package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-clearing/internal/clearing"
	"market-clearing/internal/model"
)

const baseYAML = `
system:
  name: two-bus
  buses:
    - id: n1
      slack: true
    - id: n2
  generators:
    - id: g1
      bus: n1
      offer_price: 10
      capacity_mw: 100
      flexible: true
    - id: g2
      bus: n2
      offer_price: 20
      capacity_mw: 80
      out_of_service: true
  loads:
    - id: d1
      bus: n2
      bid_price: 30
      demand_mw: 120
  lines:
    - from: n1
      to: n2
      reactance: 0.1
      capacity_mw: 60
run:
  variant: nodal
  congestion_threshold: 0.8
  timeout_seconds: 2.5
  workers: 4
scenarios:
  - name: tight line
    overrides:
      - kind: line_capacity
        line: n1
        line_to: n2
        value: 25
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", baseYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "two-bus", cfg.System.Name)
	assert.Equal(t, "nodal", cfg.Run.Variant)
	assert.Equal(t, 4, cfg.Run.Workers)

	sys, err := cfg.System.ToSystem()
	require.NoError(t, err)
	g1, ok := sys.Generator("g1")
	require.True(t, ok)
	assert.True(t, g1.InService)
	assert.True(t, g1.Flexible)
	g2, ok := sys.Generator("g2")
	require.True(t, ok)
	assert.False(t, g2.InService)

	rc := cfg.ToRunConfig()
	assert.Equal(t, clearing.VariantNodal, rc.Variant)
	assert.Equal(t, 0.8, rc.CongestionThreshold)
	assert.Equal(t, 2500*time.Millisecond, rc.Timeout)

	scenarios := cfg.ToScenarios()
	require.Len(t, scenarios, 1)
	require.Len(t, scenarios[0].Overrides, 1)
	assert.Equal(t, model.OverrideLineCapacity, scenarios[0].Overrides[0].Kind)
	assert.Equal(t, 25.0, scenarios[0].Overrides[0].Value)
}

func TestLoadSystemFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "grid.yaml", `
system:
  name: shared-grid
  buses:
    - id: n1
  generators:
    - id: g1
      bus: n1
      offer_price: 10
      capacity_mw: 100
  loads:
    - id: d1
      bus: n1
      bid_price: 30
      demand_mw: 50
`)
	path := writeConfig(t, dir, "config.yaml", `
system_file: grid.yaml
system:
  loads:
    - id: d1
      bus: n1
      bid_price: 30
      demand_mw: 90
run:
  variant: plain
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Inline sections override the system file; untouched ones survive.
	assert.Equal(t, "shared-grid", cfg.System.Name)
	require.Len(t, cfg.System.Loads, 1)
	assert.Equal(t, 90.0, cfg.System.Loads[0].DemandMW)
	require.Len(t, cfg.System.Generators, 1)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			System: SystemConfig{
				Buses:      []BusConfig{{ID: "n1"}},
				Generators: []GenConfig{{ID: "g1", Bus: "n1", OfferPrice: 10, CapacityMW: 50}},
				Loads:      []LoadConfig{{ID: "d1", Bus: "n1", BidPrice: 30, DemandMW: 40}},
			},
		}
	}

	t.Run("accepts a minimal config", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("rejects an unknown variant", func(t *testing.T) {
		c := valid()
		c.Run.Variant = "bilateral"
		require.Error(t, c.Validate())
	})

	t.Run("rejects balancing without deviations", func(t *testing.T) {
		c := valid()
		c.Run.Balancing = &BalancingSettings{CurtailmentPenalty: 500}
		require.Error(t, c.Validate())
	})

	t.Run("rejects unnamed scenarios", func(t *testing.T) {
		c := valid()
		c.Scenarios = []ScenarioConfig{{Name: ""}}
		require.Error(t, c.Validate())
	})

	t.Run("rejects unknown override kinds", func(t *testing.T) {
		c := valid()
		c.Scenarios = []ScenarioConfig{{
			Name:      "bad",
			Overrides: []OverrideConfig{{Kind: "weather"}},
		}}
		require.Error(t, c.Validate())
	})

	t.Run("rejects a broken system", func(t *testing.T) {
		c := valid()
		c.System.Generators[0].Bus = "missing"
		require.Error(t, c.Validate())
	})
}

func TestToRunConfigBalancing(t *testing.T) {
	c := &Config{}
	c.Run.Variant = "plain"
	c.Run.Balancing = &BalancingSettings{
		Deviations:         map[string]float64{"g1": -10},
		UpCostFactor:       1.3,
		DownCostFactor:     0.8,
		CurtailmentPenalty: 400,
	}

	rc := c.ToRunConfig()
	require.NotNil(t, rc.Balancing)
	assert.Equal(t, 1.3, rc.Balancing.DefaultUpFactor)
	assert.Equal(t, 0.8, rc.Balancing.DefaultDownFactor)
	assert.Equal(t, 400.0, rc.Balancing.CurtailmentPenalty)
	assert.Equal(t, -10.0, rc.Balancing.Deviations["g1"])
}

func TestMergeSystem(t *testing.T) {
	base := SystemConfig{
		Name:  "base",
		Buses: []BusConfig{{ID: "n1"}},
		Lines: []LineConfig{{From: "n1", To: "n2", Reactance: 0.1, CapacityMW: 60}},
	}
	override := SystemConfig{
		Name:  "patched",
		Lines: []LineConfig{{From: "n1", To: "n2", Reactance: 0.1, CapacityMW: 25}},
	}

	out := MergeSystem(base, override)
	assert.Equal(t, "patched", out.Name)
	assert.Equal(t, 25.0, out.Lines[0].CapacityMW)
	assert.Len(t, out.Buses, 1)
}
