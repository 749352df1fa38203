package analysis

import (
	"math"
	"sort"
)

// PriceStats is a location-level price summary across a sweep. It does not
// depend on a specific scenario; it aggregates every successful row priced
// at the location.
type PriceStats struct {
	Location string
	Count    int

	Min  float64
	Max  float64
	Mean float64
	P05  float64
	P95  float64

	// SpreadP95P05 is the inter-percentile spread, a quick proxy for how
	// much scenario conditions move the location's price.
	SpreadP95P05 float64
}

func ComputeStats(location string, prices []float64) PriceStats {
	p := PriceStats{Location: location}
	if len(prices) == 0 {
		return p
	}
	p.Count = len(prices)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(prices))
	for _, v := range prices {
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	p.Min = minv
	p.Max = maxv
	p.Mean = sum / float64(len(vals))
	p.P05 = percentileSorted(vals, 0.05)
	p.P95 = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95 - p.P05
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// StoragePotential computes an upper bound on storage arbitrage profit over
// a price series using a simple DP over a canonical 1 MW / 1 MWh unit:
// 100% efficient, no degradation, SOC in [0, 1] starting at 0.5, dispatch
// choices {-1, 0, +1} MW per period of dt hours. It screens price series for
// storage value before running the full efficiency-aware LP.
func StoragePotential(prices []float64, dt float64) float64 {
	if len(prices) == 0 || dt <= 0 {
		return 0
	}
	stepSOC := dt // 1 MW over dt hours moves dt MWh, i.e. dt SOC
	steps := int(math.Round(1.0 / stepSOC))
	if steps < 1 {
		steps = 1
	}
	nStates := steps + 1
	negInf := -1e100
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	init := int(math.Round(0.5 * float64(steps)))
	dp[init] = 0

	for _, price := range prices {
		for i := range next {
			next[i] = negInf
		}
		for socIdx := 0; socIdx <= steps; socIdx++ {
			if dp[socIdx] <= negInf/2 {
				continue
			}

			// Idle
			if dp[socIdx] > next[socIdx] {
				next[socIdx] = dp[socIdx]
			}

			// Charge: buy dt MWh, SOC up one step.
			if socIdx < steps {
				if v := dp[socIdx] - price*dt; v > next[socIdx+1] {
					next[socIdx+1] = v
				}
			}

			// Discharge: sell dt MWh, SOC down one step.
			if socIdx > 0 {
				if v := dp[socIdx] + price*dt; v > next[socIdx-1] {
					next[socIdx-1] = v
				}
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for _, v := range dp {
		if v > best {
			best = v
		}
	}
	if best <= negInf/2 {
		return 0
	}
	return best
}
