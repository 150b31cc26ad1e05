package view

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mockexchange-dash/internal/exchange/mockx"
)

// Order statuses as the backend emits them.
const (
	StatusNew               = "new"
	StatusPartiallyFilled   = "partially_filled"
	StatusFilled            = "filled"
	StatusPartiallyCanceled = "partially_canceled"
	StatusCanceled          = "canceled"
	StatusRejected          = "rejected"
	StatusExpired           = "expired"
)

// KnownStatuses lists every order status in lifecycle order, for building
// filter controls.
var KnownStatuses = []string{
	StatusNew,
	StatusPartiallyFilled,
	StatusFilled,
	StatusPartiallyCanceled,
	StatusCanceled,
	StatusRejected,
	StatusExpired,
}

// OrderRecord is one normalized order row with all derived display fields.
type OrderRecord struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Side       string `json:"side"` // BUY or SELL
	Type       string `json:"type"`
	Status     string `json:"status"`

	RequestedAt time.Time `json:"requestedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ExecutedAt  time.Time `json:"executedAt,omitempty"`
	Executed    bool      `json:"executed"`

	LimitPrice       decimal.Decimal `json:"limitPrice"`
	ExecPrice        decimal.Decimal `json:"execPrice"`
	RequestedQty     decimal.Decimal `json:"requestedQty"`
	FilledQty        decimal.Decimal `json:"filledQty"`
	ReservedNotional decimal.Decimal `json:"reservedNotional"`
	ActualNotional   decimal.Decimal `json:"actualNotional"`
	ReservedFee      decimal.Decimal `json:"reservedFee"`
	ActualFee        decimal.Decimal `json:"actualFee"`
	NotionCurrency   string          `json:"notionCurrency"`
	FeeCurrency      string          `json:"feeCurrency"`

	// Latency is executedAt - requestedAt; zero (with Executed=false) while
	// the order is still working.
	Latency time.Duration `json:"latency"`
	// StalenessTier buckets row age for visual fading, clamped to the
	// configured maximum number of degradation levels.
	StalenessTier int `json:"stalenessTier"`
}

// OrderBatch is the result of converting one raw fetch: the rows that
// normalized cleanly plus a count of the ones that did not. A single bad
// row never blanks the table.
type OrderBatch struct {
	Records []OrderRecord `json:"records"`
	Skipped int           `json:"skipped"`
}

// StalenessTier buckets elapsed time since requestedAt into
// [0, maxLevels]. Future timestamps (clock skew between backend and
// dashboard host) floor at tier 0.
func StalenessTier(now, requestedAt time.Time, freshWindow time.Duration, maxLevels int) int {
	if freshWindow <= 0 || maxLevels <= 0 {
		return 0
	}
	age := now.Sub(requestedAt)
	if age < 0 {
		return 0
	}
	tier := int(age / freshWindow)
	if tier > maxLevels {
		return maxLevels
	}
	return tier
}

// BuildOrderRecord normalizes one raw order. It fails (so the caller can
// skip-and-count) when the row is missing the fields nothing can be
// rendered without: id, a recognizable side, and a creation timestamp.
func BuildOrderRecord(p mockx.OrderPayload, now time.Time, freshWindow time.Duration, maxLevels int) (OrderRecord, error) {
	if p.ID == "" {
		return OrderRecord{}, fmt.Errorf("order row has no id")
	}

	side := strings.ToUpper(p.Side)
	if side != "BUY" && side != "SELL" {
		return OrderRecord{}, fmt.Errorf("order %s: unrecognized side %q", p.ID, p.Side)
	}

	if p.TsCreate == nil {
		return OrderRecord{}, fmt.Errorf("order %s: missing ts_create", p.ID)
	}

	rec := OrderRecord{
		ID:               string(p.ID),
		Symbol:           p.Symbol,
		Side:             side,
		Type:             strings.ToLower(p.Type),
		Status:           strings.ToLower(p.Status),
		RequestedAt:      time.UnixMilli(*p.TsCreate).UTC(),
		LimitPrice:       decFromPtr(p.LimitPrice),
		ExecPrice:        decFromPtr(p.Price),
		RequestedQty:     decFromPtr(p.Amount),
		FilledQty:        decFromPtr(p.ActualFilled),
		ReservedNotional: decFromPtr(p.ReservedNotionLeft),
		ActualNotional:   decFromPtr(p.ActualNotion),
		ReservedFee:      decFromPtr(p.ReservedFeeLeft),
		ActualFee:        decFromPtr(p.ActualFee),
		NotionCurrency:   p.NotionCurrency,
		FeeCurrency:      p.FeeCurrency,
	}

	if base, quote, ok := strings.Cut(p.Symbol, "/"); ok {
		rec.BaseAsset, rec.QuoteAsset = base, quote
	} else {
		rec.BaseAsset = p.Symbol
	}

	rec.UpdatedAt = rec.RequestedAt
	if p.TsUpdate != nil {
		rec.UpdatedAt = time.UnixMilli(*p.TsUpdate).UTC()
	}

	if p.TsFinish != nil {
		rec.ExecutedAt = time.UnixMilli(*p.TsFinish).UTC()
		rec.Executed = true
		rec.Latency = rec.ExecutedAt.Sub(rec.RequestedAt)
	}

	rec.StalenessTier = StalenessTier(now, rec.RequestedAt, freshWindow, maxLevels)

	return rec, nil
}

// BuildOrders converts a whole raw fetch, skipping rows that fail to decode
// or normalize. Most recent first, by update time.
func BuildOrders(rows []json.RawMessage, now time.Time, freshWindow time.Duration, maxLevels int) OrderBatch {
	batch := OrderBatch{Records: make([]OrderRecord, 0, len(rows))}

	for _, row := range rows {
		var payload mockx.OrderPayload
		if err := json.Unmarshal(row, &payload); err != nil {
			batch.Skipped++
			continue
		}
		rec, err := BuildOrderRecord(payload, now, freshWindow, maxLevels)
		if err != nil {
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	sort.SliceStable(batch.Records, func(i, j int) bool {
		return batch.Records[i].UpdatedAt.After(batch.Records[j].UpdatedAt)
	})
	return batch
}
