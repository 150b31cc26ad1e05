package view

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"mockexchange-dash/internal/exchange/mockx"
)

// SideStats aggregates one side (BUY or SELL) of the trade history in the
// quote asset.
type SideStats struct {
	Count int `json:"count"`
	// AmountValue is the traded base amount marked to current prices.
	AmountValue decimal.Decimal `json:"amountValue"`
	Notional    decimal.Decimal `json:"notional"`
	Fee         decimal.Decimal `json:"fee"`
	// Incomplete is set when a traded asset had no current price, so
	// AmountValue understates reality.
	Incomplete bool `json:"incomplete"`
}

// PerformanceStats is the derived P&L view of the whole trade history.
// Ratios are nil when their denominator is not positive.
type PerformanceStats struct {
	QuoteAsset string    `json:"quoteAsset"`
	Buy        SideStats `json:"buy"`
	Sell       SideStats `json:"sell"`

	MarketValueOpen decimal.Decimal `json:"marketValueOpen"` // current value of still-held amounts
	CapitalAtRisk   decimal.Decimal `json:"capitalAtRisk"`   // invested minus divested
	GrossEarnings   decimal.Decimal `json:"grossEarnings"`   // before fees
	NetEarnings     decimal.Decimal `json:"netEarnings"`     // after fees
	TotalFees       decimal.Decimal `json:"totalFees"`

	GrossROIOnCost *float64 `json:"grossROIOnCost,omitempty"`
	NetROIOnCost   *float64 `json:"netROIOnCost,omitempty"`

	// Private-equity style multiples on invested capital.
	RVPI *float64 `json:"rvpi,omitempty"` // residual value to paid-in
	DPI  *float64 `json:"dpi,omitempty"`  // distributions to paid-in
	MOIC *float64 `json:"moic,omitempty"` // RVPI + DPI

	Incomplete bool `json:"incomplete"`
}

// BuildPerformance derives P&L figures from the trades overview, marking
// still-held amounts to the supplied current prices. The quote asset itself
// always marks at 1.
func BuildPerformance(overview *mockx.TradesOverview, prices map[string]float64, quoteAsset string) PerformanceStats {
	stats := PerformanceStats{
		QuoteAsset: quoteAsset,
		Buy:        sumSide(overview.Buy, prices, quoteAsset),
		Sell:       sumSide(overview.Sell, prices, quoteAsset),
	}
	stats.Incomplete = stats.Buy.Incomplete || stats.Sell.Incomplete

	stats.MarketValueOpen = stats.Buy.AmountValue.Sub(stats.Sell.AmountValue)
	stats.CapitalAtRisk = stats.Buy.Notional.Sub(stats.Sell.Notional)
	stats.TotalFees = stats.Buy.Fee.Add(stats.Sell.Fee)
	stats.GrossEarnings = stats.MarketValueOpen.Sub(stats.CapitalAtRisk)
	stats.NetEarnings = stats.GrossEarnings.Sub(stats.TotalFees)

	if stats.CapitalAtRisk.IsPositive() {
		stats.GrossROIOnCost = ratio(stats.GrossEarnings, stats.CapitalAtRisk)
		stats.NetROIOnCost = ratio(stats.NetEarnings, stats.CapitalAtRisk)
	}

	if stats.Buy.Notional.IsPositive() {
		stats.RVPI = ratio(stats.MarketValueOpen, stats.Buy.Notional)
		stats.DPI = ratio(stats.Sell.Notional, stats.Buy.Notional)
		moic := *stats.RVPI + *stats.DPI
		stats.MOIC = &moic
	}

	return stats
}

func sumSide(side mockx.TradesSide, prices map[string]float64, quoteAsset string) SideStats {
	var s SideStats

	s.Count = int(sumMetric(side.Count, quoteAsset).IntPart())
	s.Notional = sumMetric(side.Notional, quoteAsset)
	s.Fee = sumMetric(side.Fee, quoteAsset)

	// Amounts are in base units and need marking to current prices.
	for base, byQuote := range side.Amount {
		val, ok := byQuote[quoteAsset]
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(val.String())
		if err != nil {
			s.Incomplete = true
			continue
		}
		if base == quoteAsset {
			s.AmountValue = s.AmountValue.Add(amount)
			continue
		}
		price, known := prices[base]
		if !known {
			s.Incomplete = true
			continue
		}
		s.AmountValue = s.AmountValue.Add(amount.Mul(decimal.NewFromFloat(price)))
	}

	return s
}

func sumMetric(metric map[string]map[string]json.Number, quoteAsset string) decimal.Decimal {
	total := decimal.Zero
	for _, byQuote := range metric {
		val, ok := byQuote[quoteAsset]
		if !ok {
			continue
		}
		if d, err := decimal.NewFromString(val.String()); err == nil {
			total = total.Add(d)
		}
	}
	return total
}

func ratio(num, den decimal.Decimal) *float64 {
	f, _ := num.Div(den).Float64()
	return &f
}
