// Package settlement computes participant outcomes from cleared results:
// day-ahead profit and utility, and one-price / two-price imbalance
// settlement for the balancing stage.
package settlement

import (
	"market-clearing/internal/model"
)

// imbalanceTol treats aggregate imbalances below this as zero: the two-price
// direction split is undefined at exactly zero, and no one is adjusted.
const imbalanceTol = 1e-6

// GeneratorProfit is (price − offer) × dispatch at the price applicable to
// the unit's bus (nodal, zonal or uniform).
func GeneratorProfit(sys *model.System, r *model.MarketResult, genID string) float64 {
	g, ok := sys.Generator(genID)
	if !ok {
		return 0
	}
	price := r.PriceAtBus(sys, g.Bus)
	return (price - g.Offer) * r.Dispatch[genID]
}

// ConsumerUtility is (bid − price) × served demand.
func ConsumerUtility(sys *model.System, r *model.MarketResult, loadID string) float64 {
	d, ok := sys.Load(loadID)
	if !ok {
		return 0
	}
	price := r.PriceAtBus(sys, d.Bus)
	return (d.Bid - price) * r.Consumption[loadID]
}

// Profits evaluates every generator against a result.
func Profits(sys *model.System, r *model.MarketResult) map[string]float64 {
	out := make(map[string]float64, len(sys.Generators))
	for _, g := range sys.Generators {
		out[g.ID] = GeneratorProfit(sys, r, g.ID)
	}
	return out
}

// Utilities evaluates every load against a result.
func Utilities(sys *model.System, r *model.MarketResult) map[string]float64 {
	out := make(map[string]float64, len(sys.Loads))
	for _, d := range sys.Loads {
		out[d.ID] = ConsumerUtility(sys, r, d.ID)
	}
	return out
}

// Imbalance describes the balancing stage's settlement inputs for one run.
type Imbalance struct {
	// DayAheadPrice and BalancingPrice are EUR/MWh.
	DayAheadPrice  float64
	BalancingPrice float64
	// DayAhead and Actual are per-generator schedules and realized
	// outputs, MW.
	DayAhead map[string]float64
	Actual   map[string]float64
}

// SystemImbalance is the aggregate actual-minus-scheduled deviation.
// Positive = system surplus, negative = system deficit.
func (im Imbalance) SystemImbalance() float64 {
	total := 0.0
	for id, actual := range im.Actual {
		total += actual - im.DayAhead[id]
	}
	return total
}

// OnePrice settles every deviation at the balancing price, uniformly and
// regardless of direction: adjustment = (actual − scheduled) × balancing.
func OnePrice(im Imbalance) map[string]float64 {
	out := make(map[string]float64, len(im.Actual))
	for id, actual := range im.Actual {
		out[id] = (actual - im.DayAhead[id]) * im.BalancingPrice
	}
	return out
}

// TwoPrice settles deviations direction-dependently. The side that aggravates
// the system imbalance trades at the balancing price; the side that relieves
// it trades at the day-ahead price:
//
//   - system deficit: excess output is paid the day-ahead price, missing
//     output is bought back at the (typically higher) balancing price;
//   - system surplus: excess output is paid the balancing price, missing
//     output is bought back at the day-ahead price;
//   - zero aggregate imbalance: degenerate, no adjustment for anyone.
func TwoPrice(im Imbalance) map[string]float64 {
	out := make(map[string]float64, len(im.Actual))
	system := im.SystemImbalance()
	if system > -imbalanceTol && system < imbalanceTol {
		for id := range im.Actual {
			out[id] = 0
		}
		return out
	}

	deficit := system < 0
	for id, actual := range im.Actual {
		delta := actual - im.DayAhead[id]
		var price float64
		if deficit {
			if delta > 0 {
				price = im.DayAheadPrice
			} else {
				price = im.BalancingPrice
			}
		} else {
			if delta > 0 {
				price = im.BalancingPrice
			} else {
				price = im.DayAheadPrice
			}
		}
		out[id] = delta * price
	}
	return out
}

// BalancingOutcome bundles the balancing stage's cost and price with the
// per-generator settlement under both schemes.
type BalancingOutcome struct {
	Cost           float64 // balancing LP objective, EUR
	BalancingPrice float64 // dual of the balancing balance constraint
	OnePrice       map[string]float64
	TwoPrice       map[string]float64
}

// Settle evaluates a balancing result against its day-ahead schedule.
// realized must be the builder's post-deviation outputs.
func Settle(dayAhead, balancing *model.MarketResult, realized map[string]float64) BalancingOutcome {
	im := Imbalance{
		DayAheadPrice:  dayAhead.SystemPrice,
		BalancingPrice: balancing.SystemPrice,
		DayAhead:       dayAhead.Dispatch,
		Actual:         realized,
	}
	return BalancingOutcome{
		Cost:           balancing.Objective,
		BalancingPrice: balancing.SystemPrice,
		OnePrice:       OnePrice(im),
		TwoPrice:       TwoPrice(im),
	}
}
