package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mockexchange-dash/internal/exchange/mockx"
)

func ip(i int64) *int64 { return &i }

func basePayload() mockx.OrderPayload {
	return mockx.OrderPayload{
		ID:       mockx.FlexID("42"),
		Symbol:   "BTC/USDT",
		Side:     "buy",
		Type:     "LIMIT",
		Status:   "FILLED",
		TsCreate: ip(100_000),
	}
}

func TestStalenessTier(t *testing.T) {
	window := 60 * time.Second
	maxLevels := 60
	base := time.Unix(1_000_000, 0)

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{59 * time.Second, 0},
		{60 * time.Second, 1},
		{61 * time.Second, 1},
		{119 * time.Second, 1},
		{120 * time.Second, 2},
		{3600 * time.Second, 60},    // exactly at the clamp
		{100_000 * time.Second, 60}, // far past the clamp
		{-30 * time.Second, 0},      // clock skew: requestedAt in the future
	}

	for _, tt := range tests {
		got := StalenessTier(base.Add(tt.elapsed), base, window, maxLevels)
		if got != tt.want {
			t.Errorf("StalenessTier(elapsed=%v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestStalenessTierMonotonic(t *testing.T) {
	window := 45 * time.Second
	base := time.Unix(1_000_000, 0)

	prev := -1
	for elapsed := time.Duration(0); elapsed <= 2*time.Hour; elapsed += 7 * time.Second {
		tier := StalenessTier(base.Add(elapsed), base, window, 12)
		if tier < prev {
			t.Fatalf("tier decreased from %d to %d at elapsed %v", prev, tier, elapsed)
		}
		if tier > 12 {
			t.Fatalf("tier %d exceeds configured maximum 12", tier)
		}
		prev = tier
	}
}

func TestBuildOrderRecordLatency(t *testing.T) {
	p := basePayload()
	p.TsCreate = ip(100_000)
	p.TsFinish = ip(142_000)

	rec, err := BuildOrderRecord(p, time.Now(), time.Minute, 12)
	if err != nil {
		t.Fatalf("BuildOrderRecord failed: %v", err)
	}

	if !rec.Executed {
		t.Error("expected Executed with ts_finish present")
	}
	if rec.Latency != 42*time.Second {
		t.Errorf("latency = %v, want 42s", rec.Latency)
	}
}

func TestBuildOrderRecordNoLatencyWhileWorking(t *testing.T) {
	p := basePayload()
	p.TsFinish = nil

	rec, err := BuildOrderRecord(p, time.Now(), time.Minute, 12)
	if err != nil {
		t.Fatalf("BuildOrderRecord failed: %v", err)
	}

	if rec.Executed {
		t.Error("order without ts_finish must not be Executed")
	}
	if rec.Latency != 0 {
		t.Errorf("latency = %v, want 0 for a working order", rec.Latency)
	}
}

func TestBuildOrderRecordNormalization(t *testing.T) {
	p := basePayload()
	p.Amount = fp(1.25)
	p.ActualFilled = fp(0.75)
	p.TsUpdate = ip(130_000)

	rec, err := BuildOrderRecord(p, time.Now(), time.Minute, 12)
	if err != nil {
		t.Fatalf("BuildOrderRecord failed: %v", err)
	}

	if rec.Side != "BUY" {
		t.Errorf("side = %q, want BUY", rec.Side)
	}
	if rec.Status != StatusFilled {
		t.Errorf("status = %q, want %q", rec.Status, StatusFilled)
	}
	if rec.Type != "limit" {
		t.Errorf("type = %q, want limit", rec.Type)
	}
	if rec.BaseAsset != "BTC" || rec.QuoteAsset != "USDT" {
		t.Errorf("symbol split = %q/%q, want BTC/USDT", rec.BaseAsset, rec.QuoteAsset)
	}
	if !rec.RequestedQty.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("requested qty = %s, want 1.25", rec.RequestedQty)
	}
	if got := rec.UpdatedAt.UnixMilli(); got != 130_000 {
		t.Errorf("updatedAt = %d, want 130000", got)
	}
}

func TestBuildOrdersSkipsMalformedRows(t *testing.T) {
	good, _ := json.Marshal(basePayload())

	rows := []json.RawMessage{}
	for i := 0; i < 9; i++ {
		rows = append(rows, good)
	}
	rows = append(rows, json.RawMessage(`{"id":"x","side":"hold","ts_create":1}`)) // bad side

	batch := BuildOrders(rows, time.Now(), time.Minute, 12)

	if len(batch.Records) != 9 {
		t.Errorf("got %d records, want 9", len(batch.Records))
	}
	if batch.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", batch.Skipped)
	}
}

func TestBuildOrdersSkipReasons(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		row  string
	}{
		{"undecodable row", `{"id":{"nested":"object"}}`},
		{"missing id", `{"side":"buy","ts_create":1}`},
		{"missing ts_create", `{"id":1,"side":"buy"}`},
		{"unknown side", `{"id":1,"side":"short","ts_create":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := BuildOrders([]json.RawMessage{json.RawMessage(tt.row)}, now, time.Minute, 12)
			if len(batch.Records) != 0 || batch.Skipped != 1 {
				t.Errorf("got %d records / %d skipped, want 0 / 1", len(batch.Records), batch.Skipped)
			}
		})
	}
}

func TestBuildOrdersSortsMostRecentFirst(t *testing.T) {
	mk := func(id string, tsUpdate int64) json.RawMessage {
		p := basePayload()
		p.ID = mockx.FlexID(id)
		p.TsUpdate = ip(tsUpdate)
		raw, _ := json.Marshal(p)
		return raw
	}

	batch := BuildOrders([]json.RawMessage{
		mk("1", 100_000),
		mk("2", 300_000),
		mk("3", 200_000),
	}, time.Now(), time.Minute, 12)

	want := []string{"2", "3", "1"}
	for i, rec := range batch.Records {
		if rec.ID != want[i] {
			t.Fatalf("order at %d = %s, want %s", i, rec.ID, want[i])
		}
	}
}
