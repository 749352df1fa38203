package prices

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"market-clearing/internal/model"
)

// LineOverload flags an intra-network line whose implied DC flow under a
// zonal dispatch exceeds its thermal capacity.
type LineOverload struct {
	Line      string
	ImpliedMW float64
	Capacity  float64
}

// CheckZonalFeasibility takes a zonal result's bus-level generation and
// demand assignment, recovers the DC power flows those injections would
// cause, and flags lines loaded beyond capacity. A pure zonal clearing never
// solved for these flows, so the flags are advisory. This is a read-only
// check, not a new market solve.
//
// The angle system is solved with the slack bus eliminated: B' θ = p over the
// remaining buses, then F = B·(θi − θj) per line.
func CheckZonalFeasibility(sys *model.System, r *model.MarketResult) ([]LineOverload, error) {
	n := len(sys.Buses)
	if n < 2 || len(sys.Lines) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, n)
	slack := sys.SlackBus()
	k := 0
	for _, b := range sys.Buses {
		if b.ID == slack {
			continue
		}
		idx[b.ID] = k
		k++
	}

	// Reduced nodal susceptance matrix and injection vector.
	bmat := mat.NewDense(n-1, n-1, nil)
	p := make([]float64, n-1)

	for _, l := range sys.Lines {
		b := l.Susceptance()
		i, iOK := idx[l.From]
		j, jOK := idx[l.To]
		if iOK {
			bmat.Set(i, i, bmat.At(i, i)+b)
		}
		if jOK {
			bmat.Set(j, j, bmat.At(j, j)+b)
		}
		if iOK && jOK {
			bmat.Set(i, j, bmat.At(i, j)-b)
			bmat.Set(j, i, bmat.At(j, i)-b)
		}
	}

	for _, bus := range sys.Buses {
		if bus.ID == slack {
			continue
		}
		inj := 0.0
		for _, g := range sys.GeneratorsAtBus(bus.ID) {
			inj += r.Dispatch[g.ID]
		}
		for _, d := range sys.LoadsAtBus(bus.ID) {
			inj -= r.Consumption[d.ID]
		}
		p[idx[bus.ID]] = inj
	}

	var theta mat.VecDense
	if err := theta.SolveVec(bmat, mat.NewVecDense(n-1, p)); err != nil {
		return nil, fmt.Errorf("zonal feasibility: singular susceptance matrix (islanded network?): %w", err)
	}

	angle := func(busID string) float64 {
		if busID == slack {
			return 0
		}
		return theta.AtVec(idx[busID])
	}

	var overloads []LineOverload
	for _, l := range sys.Lines {
		flow := l.Susceptance() * (angle(l.From) - angle(l.To))
		if math.Abs(flow) > l.Capacity+dispatchTol {
			overloads = append(overloads, LineOverload{
				Line:      l.Key(),
				ImpliedMW: flow,
				Capacity:  l.Capacity,
			})
		}
	}
	return overloads, nil
}
