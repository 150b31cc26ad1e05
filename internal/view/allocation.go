package view

import "github.com/shopspring/decimal"

// AllocationSlice is one asset's share of total equity, for the donut chart.
type AllocationSlice struct {
	Asset      string          `json:"asset"`
	Value      decimal.Decimal `json:"value"`
	Percentage float64         `json:"percentage"`
}

// OtherSliceLabel groups assets below the chart threshold.
const OtherSliceLabel = "Other"

// Allocations derives per-asset shares from a snapshot. Empty when equity
// is zero: there is nothing to divide.
func Allocations(snap PortfolioSnapshot) []AllocationSlice {
	if snap.EquityValue.IsZero() {
		return nil
	}

	equity, _ := snap.EquityValue.Float64()
	slices := make([]AllocationSlice, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		value, _ := h.ValueInQuote.Float64()
		slices = append(slices, AllocationSlice{
			Asset:      h.Asset,
			Value:      h.ValueInQuote,
			Percentage: value / equity,
		})
	}
	return slices
}

// ChartSlices folds every slice below minShare into a single "Other" slice
// so the chart legend stays readable. Slices are assumed sorted by value
// descending, which BuildSnapshot guarantees.
func ChartSlices(slices []AllocationSlice, minShare float64) []AllocationSlice {
	if len(slices) == 0 {
		return nil
	}

	out := make([]AllocationSlice, 0, len(slices))
	other := AllocationSlice{Asset: OtherSliceLabel, Value: decimal.Zero}
	for _, s := range slices {
		if s.Percentage >= minShare {
			out = append(out, s)
			continue
		}
		other.Value = other.Value.Add(s.Value)
		other.Percentage += s.Percentage
	}
	if other.Value.IsPositive() {
		out = append(out, other)
	}
	return out
}
