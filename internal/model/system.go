package model

import (
	"fmt"
	"sort"
)

// Generator is one supply-side participant.
// Units:
// - Offer: EUR/MWh
// - Capacity: MW
type Generator struct {
	ID       string
	Offer    float64
	Capacity float64
	Bus      string
	// Flexible marks participation in reserve and balancing.
	Flexible bool
	// InService is false when the unit is on outage for this snapshot.
	InService bool
}

// Load is one demand-side participant. Bid is EUR/MWh, MaxDemand MW.
type Load struct {
	ID        string
	Bid       float64
	MaxDemand float64
	Bus       string
}

type Bus struct {
	ID    string
	Slack bool
}

// Line is an undirected transmission line with signed flow.
// Susceptance is 1/Reactance; a bus pair without a line has susceptance 0
// and no flow constraint.
type Line struct {
	From      string
	To        string
	Reactance float64
	Capacity  float64
}

func (l Line) Susceptance() float64 {
	return 1.0 / l.Reactance
}

// Key returns a direction-independent identifier, e.g. "b1-b2".
func (l Line) Key() string {
	a, b := l.From, l.To
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

type Zone struct {
	ID    string
	Buses []string
}

// TransferLimit is a directed inter-zonal ATC in MW.
type TransferLimit struct {
	From  string
	To    string
	Limit float64
}

// System is an immutable snapshot of all market data for one clearing run.
// Construct it with NewSystem; derive variations with Apply, never by editing
// fields in place.
type System struct {
	Generators []Generator
	Loads      []Load
	Buses      []Bus
	Lines      []Line
	Zones      []Zone
	Transfers  []TransferLimit

	// Indexes built once per snapshot.
	gensByBus  map[string][]int
	loadsByBus map[string][]int
	busIndex   map[string]int
	genIndex   map[string]int
	loadIndex  map[string]int
	zoneOfBus  map[string]string
	lineIndex  map[string]int
	slackBus   string
}

// NewSystem validates the inputs and builds the lookup indexes. Zones may be
// empty (no zonal clearing); if present they must partition the buses exactly.
func NewSystem(gens []Generator, loads []Load, buses []Bus, lines []Line, zones []Zone, transfers []TransferLimit) (*System, error) {
	s := &System{
		Generators: append([]Generator(nil), gens...),
		Loads:      append([]Load(nil), loads...),
		Buses:      append([]Bus(nil), buses...),
		Lines:      append([]Line(nil), lines...),
		Zones:      append([]Zone(nil), zones...),
		Transfers:  append([]TransferLimit(nil), transfers...),
	}
	if err := s.buildIndexes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) buildIndexes() error {
	if len(s.Buses) == 0 {
		return &ConstructionError{Entity: "system", Reason: "at least one bus is required"}
	}

	s.busIndex = make(map[string]int, len(s.Buses))
	for i, b := range s.Buses {
		if b.ID == "" {
			return &ConstructionError{Entity: "bus", Reason: "empty id"}
		}
		if _, dup := s.busIndex[b.ID]; dup {
			return &ConstructionError{Entity: b.ID, Reason: "duplicate bus id"}
		}
		s.busIndex[b.ID] = i
	}

	s.slackBus = ""
	for _, b := range s.Buses {
		if b.Slack {
			if s.slackBus != "" {
				return &ConstructionError{Entity: b.ID, Reason: "more than one slack bus"}
			}
			s.slackBus = b.ID
		}
	}
	// The angle reference defaults to the first bus when none is flagged.
	if s.slackBus == "" {
		s.slackBus = s.Buses[0].ID
	}

	s.genIndex = make(map[string]int, len(s.Generators))
	s.gensByBus = make(map[string][]int)
	for i, g := range s.Generators {
		if _, dup := s.genIndex[g.ID]; dup {
			return &ConstructionError{Entity: g.ID, Reason: "duplicate generator id"}
		}
		if g.Capacity < 0 {
			return &ConstructionError{Entity: g.ID, Reason: "negative capacity"}
		}
		if _, ok := s.busIndex[g.Bus]; !ok {
			return &ConstructionError{Entity: g.ID, Reason: fmt.Sprintf("generator references unknown bus %q", g.Bus)}
		}
		s.genIndex[g.ID] = i
		s.gensByBus[g.Bus] = append(s.gensByBus[g.Bus], i)
	}

	s.loadIndex = make(map[string]int, len(s.Loads))
	s.loadsByBus = make(map[string][]int)
	for i, d := range s.Loads {
		if _, dup := s.loadIndex[d.ID]; dup {
			return &ConstructionError{Entity: d.ID, Reason: "duplicate load id"}
		}
		if d.MaxDemand < 0 {
			return &ConstructionError{Entity: d.ID, Reason: "negative max demand"}
		}
		if _, ok := s.busIndex[d.Bus]; !ok {
			return &ConstructionError{Entity: d.ID, Reason: fmt.Sprintf("load references unknown bus %q", d.Bus)}
		}
		s.loadIndex[d.ID] = i
		s.loadsByBus[d.Bus] = append(s.loadsByBus[d.Bus], i)
	}

	s.lineIndex = make(map[string]int, len(s.Lines))
	for i, l := range s.Lines {
		if _, ok := s.busIndex[l.From]; !ok {
			return &ConstructionError{Entity: l.Key(), Reason: fmt.Sprintf("line references unknown bus %q", l.From)}
		}
		if _, ok := s.busIndex[l.To]; !ok {
			return &ConstructionError{Entity: l.Key(), Reason: fmt.Sprintf("line references unknown bus %q", l.To)}
		}
		if l.From == l.To {
			return &ConstructionError{Entity: l.Key(), Reason: "line endpoints coincide"}
		}
		if l.Reactance <= 0 {
			return &ConstructionError{Entity: l.Key(), Reason: "reactance must be > 0"}
		}
		if l.Capacity < 0 {
			return &ConstructionError{Entity: l.Key(), Reason: "negative line capacity"}
		}
		if _, dup := s.lineIndex[l.Key()]; dup {
			return &ConstructionError{Entity: l.Key(), Reason: "duplicate line"}
		}
		s.lineIndex[l.Key()] = i
	}

	s.zoneOfBus = make(map[string]string)
	if len(s.Zones) > 0 {
		for _, z := range s.Zones {
			for _, busID := range z.Buses {
				if _, ok := s.busIndex[busID]; !ok {
					return &ConstructionError{Entity: z.ID, Reason: fmt.Sprintf("zone references unknown bus %q", busID)}
				}
				if prev, taken := s.zoneOfBus[busID]; taken {
					return &ConstructionError{Entity: busID, Reason: fmt.Sprintf("bus assigned to both zone %q and zone %q", prev, z.ID)}
				}
				s.zoneOfBus[busID] = z.ID
			}
		}
		for _, b := range s.Buses {
			if _, ok := s.zoneOfBus[b.ID]; !ok {
				return &ConstructionError{Entity: b.ID, Reason: "bus not covered by any zone"}
			}
		}
	}

	zoneIDs := make(map[string]bool, len(s.Zones))
	for _, z := range s.Zones {
		zoneIDs[z.ID] = true
	}
	for _, t := range s.Transfers {
		if !zoneIDs[t.From] || !zoneIDs[t.To] {
			return &ConstructionError{Entity: t.From + "->" + t.To, Reason: "transfer limit references unknown zone"}
		}
		if t.Limit < 0 {
			return &ConstructionError{Entity: t.From + "->" + t.To, Reason: "negative ATC"}
		}
	}

	return nil
}

// SlackBus is the angle-reference bus for DC power flow.
func (s *System) SlackBus() string { return s.slackBus }

func (s *System) GeneratorsAtBus(busID string) []Generator {
	idx := s.gensByBus[busID]
	out := make([]Generator, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Generators[i])
	}
	return out
}

func (s *System) LoadsAtBus(busID string) []Load {
	idx := s.loadsByBus[busID]
	out := make([]Load, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Loads[i])
	}
	return out
}

func (s *System) Generator(id string) (Generator, bool) {
	i, ok := s.genIndex[id]
	if !ok {
		return Generator{}, false
	}
	return s.Generators[i], true
}

func (s *System) Load(id string) (Load, bool) {
	i, ok := s.loadIndex[id]
	if !ok {
		return Load{}, false
	}
	return s.Loads[i], true
}

func (s *System) Line(from, to string) (Line, bool) {
	i, ok := s.lineIndex[Line{From: from, To: to}.Key()]
	if !ok {
		return Line{}, false
	}
	return s.Lines[i], true
}

// ZoneOf returns the zone owning the bus, or "" when no zones are defined.
func (s *System) ZoneOf(busID string) string { return s.zoneOfBus[busID] }

func (s *System) Zone(id string) (Zone, bool) {
	for _, z := range s.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// Transfer returns the directed ATC between two zones. Missing entries mean
// unconstrained exchange.
func (s *System) Transfer(from, to string) (float64, bool) {
	for _, t := range s.Transfers {
		if t.From == from && t.To == to {
			return t.Limit, true
		}
	}
	return 0, false
}

// FlexibleGenerators is the single authoritative set of units eligible for
// reserve and balancing: flagged flexible and currently in service.
func (s *System) FlexibleGenerators() []Generator {
	out := make([]Generator, 0, len(s.Generators))
	for _, g := range s.Generators {
		if g.Flexible && g.InService {
			out = append(out, g)
		}
	}
	return out
}

func (s *System) TotalMaxDemand() float64 {
	total := 0.0
	for _, d := range s.Loads {
		total += d.MaxDemand
	}
	return total
}

// ZonePairs lists every ordered pair of distinct zone ids, sorted for
// deterministic constraint ordering.
func (s *System) ZonePairs() [][2]string {
	ids := make([]string, 0, len(s.Zones))
	for _, z := range s.Zones {
		ids = append(ids, z.ID)
	}
	sort.Strings(ids)
	var pairs [][2]string
	for _, a := range ids {
		for _, b := range ids {
			if a != b {
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	return pairs
}
