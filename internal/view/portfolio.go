// Package view transforms raw MockExchange payloads into the normalized,
// display-ready models the dashboard renders. Everything here is built
// fresh per refresh cycle and replaced wholesale; nothing is mutated after
// the refresher publishes it.
package view

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mockexchange-dash/internal/exchange/mockx"
)

// Holding is one asset position valued in the quote asset.
type Holding struct {
	Asset        string          `json:"asset"`
	Free         decimal.Decimal `json:"free"`
	Used         decimal.Decimal `json:"used"`
	Quantity     decimal.Decimal `json:"quantity"`
	QuotePrice   decimal.Decimal `json:"quotePrice"`
	ValueInQuote decimal.Decimal `json:"valueInQuote"`
	PriceKnown   bool            `json:"priceKnown"`
}

// PortfolioSnapshot is the point-in-time portfolio view. EquityValue is
// always recomputed from the holdings, never taken from a backend total:
// backend and client rounding have disagreed before.
type PortfolioSnapshot struct {
	AsOf        time.Time       `json:"asOf"`
	QuoteAsset  string          `json:"quoteAsset"`
	Holdings    []Holding       `json:"holdings"`
	EquityValue decimal.Decimal `json:"equityValue"`
	// Incomplete is set when at least one holding had no price and is
	// therefore valued at zero.
	Incomplete bool `json:"incomplete"`
}

// BuildSnapshot normalizes balance entries into a snapshot. The prices map
// is {base asset: last price in quote}; an entry's own quote_price field
// wins when present, and the quote asset itself is always worth 1.
func BuildSnapshot(entries []mockx.BalanceEntry, prices map[string]float64, quoteAsset string, now time.Time) PortfolioSnapshot {
	snap := PortfolioSnapshot{
		AsOf:        now,
		QuoteAsset:  quoteAsset,
		Holdings:    make([]Holding, 0, len(entries)),
		EquityValue: decimal.Zero,
	}

	for _, e := range entries {
		if e.Asset == "" {
			continue
		}

		free := decFromPtr(e.Free)
		used := decFromPtr(e.Used)
		if e.Used == nil && e.Locked != nil {
			used = decFromPtr(e.Locked)
		}

		total := decFromPtr(e.Total)
		if e.Total == nil {
			// Older payloads only carry free/locked.
			total = free.Add(used)
		}

		h := Holding{
			Asset:    e.Asset,
			Free:     free,
			Used:     used,
			Quantity: total,
		}

		switch {
		case e.QuotePrice != nil:
			h.QuotePrice = decimal.NewFromFloat(*e.QuotePrice)
			h.PriceKnown = true
		case e.Asset == quoteAsset:
			h.QuotePrice = decimal.NewFromInt(1)
			h.PriceKnown = true
		default:
			if p, ok := prices[e.Asset]; ok {
				h.QuotePrice = decimal.NewFromFloat(p)
				h.PriceKnown = true
			}
		}

		if h.PriceKnown {
			h.ValueInQuote = h.Quantity.Mul(h.QuotePrice)
		} else {
			snap.Incomplete = true
		}

		snap.EquityValue = snap.EquityValue.Add(h.ValueInQuote)
		snap.Holdings = append(snap.Holdings, h)
	}

	// Biggest positions first.
	sort.SliceStable(snap.Holdings, func(i, j int) bool {
		return snap.Holdings[i].ValueInQuote.GreaterThan(snap.Holdings[j].ValueInQuote)
	})

	return snap
}

func decFromPtr(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}
