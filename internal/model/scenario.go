package model

import "fmt"

// Override is one field change applied when deriving a scenario snapshot.
// Exactly one of the value fields is meaningful per kind.
type Override struct {
	Kind OverrideKind

	// Line or LineTo identify a line for capacity/outage overrides.
	Line   string
	LineTo string

	// Generator identifies a unit for availability/capacity overrides.
	Generator string

	// Load identifies a load for scale overrides ("" scales every load).
	Load string

	// Value carries the new capacity (MW) or the multiplicative factor,
	// depending on Kind.
	Value float64
}

type OverrideKind string

const (
	// OverrideLineCapacity sets a line's thermal capacity to Value MW.
	OverrideLineCapacity OverrideKind = "line_capacity"
	// OverrideLineOutage removes a line from the snapshot. Value unused.
	OverrideLineOutage OverrideKind = "line_outage"
	// OverrideGeneratorOutage takes a unit out of service. Value unused.
	OverrideGeneratorOutage OverrideKind = "generator_outage"
	// OverrideGeneratorCapacity sets a unit's capacity to Value MW.
	OverrideGeneratorCapacity OverrideKind = "generator_capacity"
	// OverrideATCFactor scales every transfer limit by Value.
	OverrideATCFactor OverrideKind = "atc_factor"
	// OverrideLoadFactor scales max demand by Value (one load or all).
	OverrideLoadFactor OverrideKind = "load_factor"
)

// Scenario is a named set of overrides for one sensitivity run.
type Scenario struct {
	Name      string
	Overrides []Override
}

// Apply derives a new validated snapshot with the scenario's overrides.
// The receiver is never modified; each pipeline run owns its own snapshot.
func (s *System) Apply(sc Scenario) (*System, error) {
	gens := append([]Generator(nil), s.Generators...)
	loads := append([]Load(nil), s.Loads...)
	buses := append([]Bus(nil), s.Buses...)
	lines := append([]Line(nil), s.Lines...)
	zones := make([]Zone, len(s.Zones))
	for i, z := range s.Zones {
		zones[i] = Zone{ID: z.ID, Buses: append([]string(nil), z.Buses...)}
	}
	transfers := append([]TransferLimit(nil), s.Transfers...)

	for _, ov := range sc.Overrides {
		switch ov.Kind {
		case OverrideLineCapacity:
			i, err := findLine(lines, ov.Line, ov.LineTo, sc.Name)
			if err != nil {
				return nil, err
			}
			lines[i].Capacity = ov.Value

		case OverrideLineOutage:
			i, err := findLine(lines, ov.Line, ov.LineTo, sc.Name)
			if err != nil {
				return nil, err
			}
			lines = append(lines[:i], lines[i+1:]...)

		case OverrideGeneratorOutage, OverrideGeneratorCapacity:
			found := false
			for i := range gens {
				if gens[i].ID == ov.Generator {
					if ov.Kind == OverrideGeneratorOutage {
						gens[i].InService = false
					} else {
						gens[i].Capacity = ov.Value
					}
					found = true
					break
				}
			}
			if !found {
				return nil, &ConstructionError{Entity: ov.Generator, Reason: fmt.Sprintf("scenario %q overrides unknown generator", sc.Name)}
			}

		case OverrideATCFactor:
			for i := range transfers {
				transfers[i].Limit *= ov.Value
			}

		case OverrideLoadFactor:
			found := ov.Load == ""
			for i := range loads {
				if ov.Load == "" || loads[i].ID == ov.Load {
					loads[i].MaxDemand *= ov.Value
					found = true
				}
			}
			if !found {
				return nil, &ConstructionError{Entity: ov.Load, Reason: fmt.Sprintf("scenario %q overrides unknown load", sc.Name)}
			}

		default:
			return nil, &ConstructionError{Entity: sc.Name, Reason: fmt.Sprintf("unknown override kind %q", ov.Kind)}
		}
	}

	return NewSystem(gens, loads, buses, lines, zones, transfers)
}

func findLine(lines []Line, from, to, scenario string) (int, error) {
	key := Line{From: from, To: to}.Key()
	for i, l := range lines {
		if l.Key() == key {
			return i, nil
		}
	}
	return 0, &ConstructionError{Entity: key, Reason: fmt.Sprintf("scenario %q overrides unknown line", scenario)}
}
