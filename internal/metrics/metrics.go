// Package metrics provides Prometheus metrics for the MockExchange
// dashboard: refresh cycle outcomes, backend fetch latency, and the
// headline portfolio figures, exposed on the dashboard's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// Refresh cycle metrics
	RefreshesTotal  prometheus.Counter     // Total refresh cycles attempted
	RefreshFailures *prometheus.CounterVec // Failed cycles by failure kind
	FetchDuration   prometheus.Histogram   // End-to-end backend fetch duration
	RowsSkipped     prometheus.Counter     // Order rows dropped as malformed

	// Portfolio metrics
	EquityValue     prometheus.Gauge // Last computed equity in the quote asset
	HoldingsCount   prometheus.Gauge // Holdings in the last snapshot
	OrdersDisplayed prometheus.Gauge // Order rows in the last refresh

	// Web metrics
	WSClients prometheus.Gauge // Connected dashboard WebSocket clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RefreshesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_refreshes_total",
			Help: "Total number of refresh cycles attempted",
		}),
		RefreshFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_refresh_failures_total",
			Help: "Total number of failed refresh cycles by failure kind",
		}, []string{"kind"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_fetch_duration_seconds",
			Help:    "End-to-end duration of one backend fetch cycle in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_order_rows_skipped_total",
			Help: "Total number of malformed order rows skipped",
		}),
		EquityValue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_equity_value",
			Help: "Last computed portfolio equity in the quote asset",
		}),
		HoldingsCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_holdings_count",
			Help: "Number of holdings in the last snapshot",
		}),
		OrdersDisplayed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_orders_displayed",
			Help: "Number of order rows in the last refresh",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Number of connected dashboard WebSocket clients",
		}),
	}
}

// ObserveRefresh records one refresh cycle outcome.
func (m *Metrics) ObserveRefresh(took time.Duration, failureKind string) {
	m.RefreshesTotal.Inc()
	m.FetchDuration.Observe(took.Seconds())
	if failureKind != "" {
		m.RefreshFailures.WithLabelValues(failureKind).Inc()
	}
}
