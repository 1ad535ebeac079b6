package costing

import (
	"sort"
	"time"

	"kardex-service/internal/inventory/model"
)

// quantities below this are treated as zero
const epsilon = 1e-9

// Allocation is the part of an exit served by one lot.
type Allocation struct {
	LotID     string
	Quantity  float64
	UnitCost  float64
	EntryDate time.Time
}

// Aggregate returns Σ quantity and the quantity-weighted average cost of lots.
// The average is 0 when the stock is not positive.
func Aggregate(lots []model.Lot) (stock, avg float64) {
	var value float64
	for _, l := range lots {
		stock += l.Quantity
		value += l.Quantity * l.UnitCost
	}
	if stock <= epsilon {
		return stock, 0
	}
	return stock, value / stock
}

// SuggestedPrice is the average cost plus margin.
func SuggestedPrice(avg, margin float64) float64 {
	return avg * (1 + margin)
}

// Recompute rewrites the derived fields of p from its lots and backorder.
func Recompute(p *model.Product, margin float64) {
	stock, avg := Aggregate(p.Lots)
	p.TotalStock = stock - p.Backorder
	p.AverageCost = avg
	p.SuggestedPrice = SuggestedPrice(avg, margin)
}

// Order returns the lot indices in depletion order for method.
func Order(lots []model.Lot, method model.CostingMethod) []int {
	idx := make([]int, len(lots))
	for i := range idx {
		idx[i] = i
	}
	switch method {
	case model.CostingLIFO:
		sort.SliceStable(idx, func(a, b int) bool {
			return lots[idx[a]].EntryDate.After(lots[idx[b]].EntryDate)
		})
	case model.CostingFIFO:
		sort.SliceStable(idx, func(a, b int) bool {
			return lots[idx[a]].EntryDate.Before(lots[idx[b]].EntryDate)
		})
	}
	return idx
}

// Select greedily allocates qty over lots in method order. Each allocation is
// capped at the lot's quantity; whatever cannot be covered is returned as
// shortfall. Under AVERAGE the allocation cost is the blended average.
func Select(lots []model.Lot, method model.CostingMethod, qty float64) (allocs []Allocation, shortfall float64) {
	_, avg := Aggregate(lots)
	remaining := qty
	for _, i := range Order(lots, method) {
		if remaining <= epsilon {
			break
		}
		l := lots[i]
		if l.Quantity <= epsilon {
			continue
		}
		take := min(remaining, l.Quantity)
		cost := l.UnitCost
		if method == model.CostingAverage {
			cost = avg
		}
		allocs = append(allocs, Allocation{LotID: l.ID, Quantity: take, UnitCost: cost, EntryDate: l.EntryDate})
		remaining -= take
	}
	if remaining < epsilon {
		remaining = 0
	}
	return allocs, remaining
}

// Apply subtracts allocations from lots and drops lots left at or below
// zero. Under AVERAGE the surviving lots are re-priced to the pre-exit
// average so the moving average does not drift with the lot mix.
func Apply(lots []model.Lot, allocs []Allocation, method model.CostingMethod) []model.Lot {
	_, avg := Aggregate(lots)
	take := make(map[string]float64, len(allocs))
	for _, a := range allocs {
		take[a.LotID] += a.Quantity
	}
	out := lots[:0]
	for _, l := range lots {
		l.Quantity -= take[l.ID]
		if l.Quantity <= epsilon {
			continue
		}
		if method == model.CostingAverage && len(allocs) > 0 {
			l.UnitCost = avg
		}
		out = append(out, l)
	}
	return out
}

// Prune drops lots at or below zero quantity.
func Prune(lots []model.Lot) []model.Lot {
	out := lots[:0]
	for _, l := range lots {
		if l.Quantity > epsilon {
			out = append(out, l)
		}
	}
	return out
}

// Settle consumes up to backorder from a fresh lot quantity and returns the
// quantity left for the lot and the remaining backorder.
func Settle(lotQty, backorder float64) (left, owed float64) {
	if backorder <= epsilon {
		return lotQty, 0
	}
	used := min(lotQty, backorder)
	return lotQty - used, backorder - used
}
