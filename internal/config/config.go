package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"market-clearing/internal/clearing"
	"market-clearing/internal/model"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the system from a separate YAML (e.g. examples/systems/*.yaml).
	// If both SystemFile and System are provided, System overrides SystemFile.
	SystemFile string       `yaml:"system_file"`
	System     SystemConfig `yaml:"system"`
	Run        RunSettings  `yaml:"run"`

	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

type SystemConfig struct {
	Name       string           `yaml:"name"`
	Buses      []BusConfig      `yaml:"buses"`
	Generators []GenConfig      `yaml:"generators"`
	Loads      []LoadConfig     `yaml:"loads"`
	Lines      []LineConfig     `yaml:"lines"`
	Zones      []ZoneConfig     `yaml:"zones"`
	Transfers  []TransferConfig `yaml:"transfers"`
}

type BusConfig struct {
	ID    string `yaml:"id"`
	Slack bool   `yaml:"slack"`
}

type GenConfig struct {
	ID         string  `yaml:"id"`
	Bus        string  `yaml:"bus"`
	OfferPrice float64 `yaml:"offer_price"`
	CapacityMW float64 `yaml:"capacity_mw"`
	Flexible   bool    `yaml:"flexible"`
	// InService defaults to true when omitted.
	OutOfService bool `yaml:"out_of_service"`
}

type LoadConfig struct {
	ID       string  `yaml:"id"`
	Bus      string  `yaml:"bus"`
	BidPrice float64 `yaml:"bid_price"`
	DemandMW float64 `yaml:"demand_mw"`
}

type LineConfig struct {
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Reactance  float64 `yaml:"reactance"`
	CapacityMW float64 `yaml:"capacity_mw"`
}

type ZoneConfig struct {
	ID    string   `yaml:"id"`
	Buses []string `yaml:"buses"`
}

type TransferConfig struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	ATCMW float64 `yaml:"atc_mw"`
}

type RunSettings struct {
	Variant string `yaml:"variant"`

	Reserve struct {
		UpFraction   float64 `yaml:"up_fraction"`
		DownFraction float64 `yaml:"down_fraction"`
		CoOptimize   bool    `yaml:"co_optimize"`
	} `yaml:"reserve"`

	Balancing *BalancingSettings `yaml:"balancing"`

	CongestionThreshold float64 `yaml:"congestion_threshold"`
	TimeoutSeconds      float64 `yaml:"timeout_seconds"`
	Workers             int     `yaml:"workers"`
}

type BalancingSettings struct {
	// Deviations maps generator id to realized-minus-scheduled MW.
	Deviations         map[string]float64 `yaml:"deviations"`
	UpCostFactor       float64            `yaml:"up_cost_factor"`
	DownCostFactor     float64            `yaml:"down_cost_factor"`
	CurtailmentPenalty float64            `yaml:"curtailment_penalty"`
}

type ScenarioConfig struct {
	Name      string           `yaml:"name"`
	Overrides []OverrideConfig `yaml:"overrides"`
}

type OverrideConfig struct {
	Kind      string  `yaml:"kind"`
	Line      string  `yaml:"line"`
	LineTo    string  `yaml:"line_to"`
	Generator string  `yaml:"generator"`
	Load      string  `yaml:"load"`
	Value     float64 `yaml:"value"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If system_file is set, load it and merge in any explicit overrides from c.System.
	if c.SystemFile != "" {
		systemPath := c.SystemFile
		if !filepath.IsAbs(systemPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), systemPath)
			if _, err := os.Stat(cand); err == nil {
				systemPath = cand
			}
		}
		loaded, err := loadSystemFile(systemPath)
		if err != nil {
			return nil, err
		}
		c.System = MergeSystem(loaded, c.System)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	// Validate the system by constructing a model.System.
	if _, err := c.System.ToSystem(); err != nil {
		return fmt.Errorf("system config invalid: %w", err)
	}
	switch c.Run.Variant {
	case "", clearing.VariantPlain, clearing.VariantNodal, clearing.VariantZonal,
		clearing.VariantReserve, clearing.VariantJoint:
	default:
		return fmt.Errorf("unknown run.variant %q", c.Run.Variant)
	}
	if c.Run.Balancing != nil && len(c.Run.Balancing.Deviations) == 0 {
		return errors.New("run.balancing.deviations is required when balancing is configured")
	}
	for i, sc := range c.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenarios[%d]: name is required", i)
		}
		for j, ov := range sc.Overrides {
			if _, err := overrideKind(ov.Kind); err != nil {
				return fmt.Errorf("scenarios[%d].overrides[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// ToSystem builds and validates the runtime system.
func (s SystemConfig) ToSystem() (*model.System, error) {
	buses := make([]model.Bus, 0, len(s.Buses))
	for _, b := range s.Buses {
		buses = append(buses, model.Bus{ID: b.ID, Slack: b.Slack})
	}
	gens := make([]model.Generator, 0, len(s.Generators))
	for _, g := range s.Generators {
		gens = append(gens, model.Generator{
			ID:        g.ID,
			Bus:       g.Bus,
			Offer:     g.OfferPrice,
			Capacity:  g.CapacityMW,
			Flexible:  g.Flexible,
			InService: !g.OutOfService,
		})
	}
	loads := make([]model.Load, 0, len(s.Loads))
	for _, d := range s.Loads {
		loads = append(loads, model.Load{ID: d.ID, Bus: d.Bus, Bid: d.BidPrice, MaxDemand: d.DemandMW})
	}
	lines := make([]model.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, model.Line{From: l.From, To: l.To, Reactance: l.Reactance, Capacity: l.CapacityMW})
	}
	zones := make([]model.Zone, 0, len(s.Zones))
	for _, z := range s.Zones {
		zones = append(zones, model.Zone{ID: z.ID, Buses: z.Buses})
	}
	transfers := make([]model.TransferLimit, 0, len(s.Transfers))
	for _, t := range s.Transfers {
		transfers = append(transfers, model.TransferLimit{From: t.From, To: t.To, Limit: t.ATCMW})
	}
	return model.NewSystem(gens, loads, buses, lines, zones, transfers)
}

// ToRunConfig translates run settings into the pipeline's shape.
func (c *Config) ToRunConfig() RunConfigOut {
	out := RunConfigOut{
		Variant:             c.Run.Variant,
		CongestionThreshold: c.Run.CongestionThreshold,
		Workers:             c.Run.Workers,
	}
	out.Reserve = clearing.ReserveConfig{
		UpFraction:   c.Run.Reserve.UpFraction,
		DownFraction: c.Run.Reserve.DownFraction,
		CoOptimize:   c.Run.Reserve.CoOptimize,
	}
	if c.Run.Balancing != nil {
		out.Balancing = &clearing.BalancingConfig{
			Deviations:         c.Run.Balancing.Deviations,
			DefaultUpFactor:    c.Run.Balancing.UpCostFactor,
			DefaultDownFactor:  c.Run.Balancing.DownCostFactor,
			CurtailmentPenalty: c.Run.Balancing.CurtailmentPenalty,
		}
	}
	if c.Run.TimeoutSeconds > 0 {
		out.Timeout = time.Duration(c.Run.TimeoutSeconds * float64(time.Second))
	}
	return out
}

// RunConfigOut carries run settings without importing the sweep package,
// keeping config a leaf dependency.
type RunConfigOut struct {
	Variant             string
	Reserve             clearing.ReserveConfig
	Balancing           *clearing.BalancingConfig
	CongestionThreshold float64
	Timeout             time.Duration
	Workers             int
}

// ToScenarios translates scenario configs into model overrides. Call after
// Validate; unknown kinds are skipped here.
func (c *Config) ToScenarios() []model.Scenario {
	out := make([]model.Scenario, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		s := model.Scenario{Name: sc.Name}
		for _, ov := range sc.Overrides {
			kind, err := overrideKind(ov.Kind)
			if err != nil {
				continue
			}
			s.Overrides = append(s.Overrides, model.Override{
				Kind:      kind,
				Line:      ov.Line,
				LineTo:    ov.LineTo,
				Generator: ov.Generator,
				Load:      ov.Load,
				Value:     ov.Value,
			})
		}
		out = append(out, s)
	}
	return out
}

func overrideKind(kind string) (model.OverrideKind, error) {
	switch model.OverrideKind(kind) {
	case model.OverrideLineCapacity, model.OverrideLineOutage,
		model.OverrideGeneratorOutage, model.OverrideGeneratorCapacity,
		model.OverrideATCFactor, model.OverrideLoadFactor:
		return model.OverrideKind(kind), nil
	default:
		return "", fmt.Errorf("unknown override kind %q", kind)
	}
}

type systemFileWrapper struct {
	System SystemConfig `yaml:"system"`
}

func loadSystemFile(path string) (SystemConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SystemConfig{}, err
	}
	var w systemFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return SystemConfig{}, err
	}
	return w.System, nil
}

// MergeSystem overlays non-empty sections from override onto base.
// This is used when loading a system file and then applying overrides from the request.
func MergeSystem(base, override SystemConfig) SystemConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if len(override.Buses) > 0 {
		out.Buses = override.Buses
	}
	if len(override.Generators) > 0 {
		out.Generators = override.Generators
	}
	if len(override.Loads) > 0 {
		out.Loads = override.Loads
	}
	if len(override.Lines) > 0 {
		out.Lines = override.Lines
	}
	if len(override.Zones) > 0 {
		out.Zones = override.Zones
	}
	if len(override.Transfers) > 0 {
		out.Transfers = override.Transfers
	}
	return out
}
