package model

import "errors"

// StorageParams defines the physical and economic parameters of a single
// price-taking battery, the one multi-period extension of the dispatch
// formulation.
// Units:
// - EnergyCapacityMWh: MWh
// - PowerCapacityMW: MW
// - Efficiencies: 0..1
// - SOC: fraction 0..1
// - DegradationCostPerMWh: EUR/MWh throughput (charge + discharge)
type StorageParams struct {
	EnergyCapacityMWh     float64
	PowerCapacityMW       float64
	ChargeEfficiency      float64
	DischargeEfficiency   float64
	MinSOC                float64
	MaxSOC                float64
	InitialSOC            float64
	DegradationCostPerMWh float64
}

func (p StorageParams) Validate() error {
	if p.EnergyCapacityMWh <= 0 {
		return errors.New("EnergyCapacityMWh must be > 0")
	}
	if p.PowerCapacityMW <= 0 {
		return errors.New("PowerCapacityMW must be > 0")
	}
	if p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1 {
		return errors.New("ChargeEfficiency must be in (0, 1]")
	}
	if p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1 {
		return errors.New("DischargeEfficiency must be in (0, 1]")
	}
	if p.MinSOC < 0 || p.MinSOC > 1 || p.MaxSOC < 0 || p.MaxSOC > 1 || p.MinSOC > p.MaxSOC {
		return errors.New("MinSOC/MaxSOC must satisfy 0<=MinSOC<=MaxSOC<=1")
	}
	if p.InitialSOC < p.MinSOC || p.InitialSOC > p.MaxSOC {
		return errors.New("InitialSOC must be within [MinSOC, MaxSOC]")
	}
	if p.DegradationCostPerMWh < 0 {
		return errors.New("DegradationCostPerMWh must be >= 0")
	}
	return nil
}
