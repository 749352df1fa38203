package prices

import (
	"fmt"
	"math"
	"sort"

	"market-clearing/internal/model"
)

// DefaultCongestionThreshold is the utilization ratio at and above which a
// line counts as congested.
const DefaultCongestionThreshold = 0.9

// LineCongestion is per-line utilization for one result.
type LineCongestion struct {
	Line      string
	FlowMW    float64
	Capacity  float64
	Ratio     float64
	Congested bool
}

// CongestionReport covers every line of the snapshot. MostCongested always
// names the line(s) with the highest ratio, even when nothing crosses the
// threshold, since sensitivity sweeps need the near-binding line too. Ties
// are all reported.
type CongestionReport struct {
	Threshold     float64
	Lines         []LineCongestion
	MostCongested []LineCongestion
}

// CongestionComputationError reports a nonzero flow over a zero-capacity
// line. Valid inputs make this unreachable; reaching it means a construction
// error surfaced late.
type CongestionComputationError struct {
	Line   string
	FlowMW float64
}

func (e *CongestionComputationError) Error() string {
	return fmt.Sprintf("congestion: line %s carries %.3f MW over zero capacity", e.Line, e.FlowMW)
}

// Congestion computes per-line utilization from a nodal result. threshold <= 0
// selects the default.
func Congestion(sys *model.System, r *model.MarketResult, threshold float64) (*CongestionReport, error) {
	if threshold <= 0 {
		threshold = DefaultCongestionThreshold
	}

	report := &CongestionReport{Threshold: threshold}
	best := 0.0
	for _, l := range sys.Lines {
		flow := r.Flows[l.Key()]
		if l.Capacity == 0 {
			if math.Abs(flow) > dispatchTol {
				return nil, &CongestionComputationError{Line: l.Key(), FlowMW: flow}
			}
			continue
		}
		ratio := math.Abs(flow) / l.Capacity
		lc := LineCongestion{
			Line:      l.Key(),
			FlowMW:    flow,
			Capacity:  l.Capacity,
			Ratio:     ratio,
			Congested: ratio >= threshold,
		}
		report.Lines = append(report.Lines, lc)
		if ratio > best {
			best = ratio
		}
	}

	sort.Slice(report.Lines, func(i, j int) bool { return report.Lines[i].Line < report.Lines[j].Line })
	for _, lc := range report.Lines {
		if lc.Ratio == best {
			report.MostCongested = append(report.MostCongested, lc)
		}
	}
	return report, nil
}
