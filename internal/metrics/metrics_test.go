package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RefreshesTotal.Inc()
	m.RowsSkipped.Add(3)
	m.EquityValue.Set(1234.5)

	if got := testutil.ToFloat64(m.RefreshesTotal); got != 1 {
		t.Errorf("refreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsSkipped); got != 3 {
		t.Errorf("rows skipped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.EquityValue); got != 1234.5 {
		t.Errorf("equity = %v, want 1234.5", got)
	}
}

func TestObserveRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveRefresh(10*time.Millisecond, "")
	m.ObserveRefresh(20*time.Millisecond, "connection")
	m.ObserveRefresh(30*time.Millisecond, "connection")
	m.ObserveRefresh(40*time.Millisecond, "auth")

	if got := testutil.ToFloat64(m.RefreshesTotal); got != 4 {
		t.Errorf("refreshes = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.RefreshFailures.WithLabelValues("connection")); got != 2 {
		t.Errorf("connection failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RefreshFailures.WithLabelValues("auth")); got != 1 {
		t.Errorf("auth failures = %v, want 1", got)
	}
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	// Two instances must be constructible side by side, otherwise parallel
	// tests that build a dashboard would blow up on duplicate registration.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.RefreshesTotal.Inc()
	if got := testutil.ToFloat64(b.RefreshesTotal); got != 0 {
		t.Errorf("registries leaked state: %v", got)
	}
}
