// Package curves builds aggregate supply and demand step curves from a
// system's offers and bids and locates their intersection. The output is
// plain coordinate slices intended for external plotting tools.
package curves

import (
	"sort"

	"market-clearing/internal/model"
)

// Step is one horizontal segment of a merit-order curve: the participant
// supplies (or demands) Quantity MW at Price EUR/MWh.
type Step struct {
	ID       string
	Price    float64
	Quantity float64
}

// Point is one vertex of the piecewise-constant curve in
// (cumulative quantity, price) space.
type Point struct {
	Quantity float64
	Price    float64
}

// Intersection describes where supply meets demand.
type Intersection struct {
	// Quantity is the cleared volume at the crossing, MW.
	Quantity float64
	// Price is the crossing price. When the curves cross on a vertical
	// segment any price in [PriceLow, PriceHigh] clears the market and
	// Price is its midpoint.
	Price     float64
	PriceLow  float64
	PriceHigh float64
}

// Curves holds both merit-order curves for one system snapshot.
type Curves struct {
	Supply []Step
	Demand []Step
}

// Build sorts in-service offers ascending and bids descending. Out-of-service
// generators and zero-capacity participants are skipped.
func Build(sys *model.System) Curves {
	var c Curves
	for _, g := range sys.Generators {
		if !g.InService || g.Capacity <= 0 {
			continue
		}
		c.Supply = append(c.Supply, Step{ID: g.ID, Price: g.Offer, Quantity: g.Capacity})
	}
	for _, d := range sys.Loads {
		if d.MaxDemand <= 0 {
			continue
		}
		c.Demand = append(c.Demand, Step{ID: d.ID, Price: d.Bid, Quantity: d.MaxDemand})
	}
	sort.SliceStable(c.Supply, func(i, j int) bool { return c.Supply[i].Price < c.Supply[j].Price })
	sort.SliceStable(c.Demand, func(i, j int) bool { return c.Demand[i].Price > c.Demand[j].Price })
	return c
}

// trace converts a step list to plot vertices: each step contributes two
// points sharing its price, so consecutive points alternate horizontal and
// vertical segments.
func trace(steps []Step) []Point {
	pts := make([]Point, 0, 2*len(steps))
	q := 0.0
	for _, s := range steps {
		pts = append(pts, Point{Quantity: q, Price: s.Price})
		q += s.Quantity
		pts = append(pts, Point{Quantity: q, Price: s.Price})
	}
	return pts
}

// SupplyPoints and DemandPoints return plot-ready vertex lists.
func (c Curves) SupplyPoints() []Point { return trace(c.Supply) }
func (c Curves) DemandPoints() []Point { return trace(c.Demand) }

// Intersect walks both curves simultaneously and returns the crossing, or
// ok=false when the curves never cross (cheapest offer above the highest
// bid, or either side empty).
func (c Curves) Intersect() (Intersection, bool) {
	if len(c.Supply) == 0 || len(c.Demand) == 0 {
		return Intersection{}, false
	}
	if c.Supply[0].Price > c.Demand[0].Price {
		return Intersection{}, false
	}

	si, di := 0, 0
	sq, dq := 0.0, 0.0 // quantity consumed within the current step
	q := 0.0
	for si < len(c.Supply) && di < len(c.Demand) {
		sp, dp := c.Supply[si].Price, c.Demand[di].Price
		if sp > dp {
			// Crossed on a vertical segment: the cleared volume is q
			// and any price between the curves clears.
			return Intersection{
				Quantity:  q,
				Price:     (sp + dp) / 2,
				PriceLow:  dp,
				PriceHigh: sp,
			}, true
		}
		sRem := c.Supply[si].Quantity - sq
		dRem := c.Demand[di].Quantity - dq
		adv := sRem
		if dRem < adv {
			adv = dRem
		}
		q += adv
		sq += adv
		dq += adv
		if sq >= c.Supply[si].Quantity {
			si, sq = si+1, 0
		}
		if dq >= c.Demand[di].Quantity {
			di, dq = di+1, 0
		}
	}

	// One side is exhausted while the curves still overlap: the crossing
	// sits at the end of the shorter curve, priced by the surviving side.
	if si >= len(c.Supply) && di < len(c.Demand) {
		p := c.Demand[di].Price
		return Intersection{Quantity: q, Price: p, PriceLow: p, PriceHigh: p}, true
	}
	if di >= len(c.Demand) && si < len(c.Supply) {
		p := c.Supply[si].Price
		return Intersection{Quantity: q, Price: p, PriceLow: p, PriceHigh: p}, true
	}
	// Both exhausted at the same quantity.
	sp := c.Supply[len(c.Supply)-1].Price
	dp := c.Demand[len(c.Demand)-1].Price
	return Intersection{
		Quantity:  q,
		Price:     (sp + dp) / 2,
		PriceLow:  sp,
		PriceHigh: dp,
	}, true
}
