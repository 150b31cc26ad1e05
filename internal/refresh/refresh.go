// Package refresh drives the fetch-then-render cycle. A single goroutine
// polls the MockExchange backend on a fixed interval, builds a complete
// view.State from the responses, and publishes it atomically. Readers
// always see either the previous complete state or the new one, never a
// mix, and a failed cycle leaves the last good state in place.
package refresh

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mockexchange-dash/internal/cfg"
	"mockexchange-dash/internal/exchange/mockx"
	"mockexchange-dash/internal/metrics"
	"mockexchange-dash/internal/storage"
	"mockexchange-dash/internal/view"
)

// API is the slice of the MockExchange client the refresher needs.
type API interface {
	GetBalance(ctx context.Context) ([]mockx.BalanceEntry, error)
	GetTickers(ctx context.Context, pairs []string) (map[string]float64, error)
	GetOrders(ctx context.Context, tail int, status string) ([]json.RawMessage, error)
	GetTradesOverview(ctx context.Context) (*mockx.TradesOverview, error)
}

// Status describes the health of the refresh loop. It changes on every
// attempt even when the published state does not.
type Status struct {
	LastAttempt time.Time `json:"lastAttempt"`
	LastSuccess time.Time `json:"lastSuccess"`
	Healthy     bool      `json:"healthy"`
	LastError   string    `json:"lastError,omitempty"`
	FailureKind string    `json:"failureKind,omitempty"`
}

// Refresher owns the poll loop and the current published state.
type Refresher struct {
	settings cfg.Settings
	api      API
	metrics  *metrics.Metrics
	history  *storage.History // nil when persistence is disabled

	mu           sync.RWMutex
	state        *view.State
	status       Status
	tail         int
	statusFilter string

	trigger chan struct{}
	updates chan *view.State

	now func() time.Time
}

// New creates a refresher. history may be nil.
func New(settings cfg.Settings, api API, m *metrics.Metrics, history *storage.History) *Refresher {
	return &Refresher{
		settings: settings,
		api:      api,
		metrics:  m,
		history:  history,
		tail:     settings.SliderDefault,
		trigger:  make(chan struct{}, 1),
		updates:  make(chan *view.State, 1),
		now:      time.Now,
	}
}

// State returns the last published state (nil before the first successful
// cycle) together with the loop status.
func (r *Refresher) State() (*view.State, Status) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.status
}

// SetTail changes how many recent orders the next cycles fetch. The value
// is clamped to the slider bounds and an immediate refresh is requested.
func (r *Refresher) SetTail(n int) int {
	clamped := r.settings.ClampTail(n)
	r.mu.Lock()
	changed := clamped != r.tail
	r.tail = clamped
	r.mu.Unlock()
	if changed {
		r.Trigger()
	}
	return clamped
}

// Tail returns the currently configured order tail.
func (r *Refresher) Tail() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tail
}

// SetStatusFilter restricts the fetched orders to one status, or lifts the
// restriction when s is empty. A change requests an immediate refresh.
func (r *Refresher) SetStatusFilter(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r.mu.Lock()
	changed := s != r.statusFilter
	r.statusFilter = s
	r.mu.Unlock()
	if changed {
		r.Trigger()
	}
	return s
}

// StatusFilter returns the currently configured order status filter.
func (r *Refresher) StatusFilter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusFilter
}

// Trigger requests an immediate refresh. Triggers arriving while a cycle
// is already pending coalesce into one.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Updates delivers each newly published state. The channel holds one
// element; a slow consumer sees only the most recent state.
func (r *Refresher) Updates() <-chan *view.State {
	return r.updates
}

// Run polls until ctx is cancelled. The loop only fetches on ticks and
// triggers; callers that need data before the first tick run RefreshNow
// beforehand.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.settings.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
		}
	}
}

// RefreshNow runs one cycle synchronously, outside the poll loop. The
// startup warm-up uses it so the first page render already has data.
func (r *Refresher) RefreshNow(ctx context.Context) {
	r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) {
	start := r.now()
	state, err := r.fetchState(ctx)
	took := r.now().Sub(start)

	r.mu.Lock()
	r.status.LastAttempt = start
	if err != nil {
		kind := mockx.KindOf(err).String()
		r.status.Healthy = false
		r.status.LastError = err.Error()
		r.status.FailureKind = kind
		r.mu.Unlock()

		r.metrics.ObserveRefresh(took, kind)
		log.Warn().Err(err).Str("kind", kind).Msg("refresh failed, keeping last good state")
		return
	}

	r.state = state
	r.status.LastSuccess = start
	r.status.Healthy = true
	r.status.LastError = ""
	r.status.FailureKind = ""
	r.mu.Unlock()

	r.metrics.ObserveRefresh(took, "")
	r.publishMetrics(state)
	r.recordEquity(state)

	select {
	case r.updates <- state:
	default:
		// Drop the stale buffered state so the consumer gets the newest.
		select {
		case <-r.updates:
		default:
		}
		select {
		case r.updates <- state:
		default:
		}
	}

	log.Debug().
		Int("holdings", len(state.Snapshot.Holdings)).
		Int("orders", len(state.Orders.Records)).
		Int("skipped", state.Orders.Skipped).
		Dur("took", took).
		Msg("refresh complete")
}

// fetchState runs one full backend round trip and builds the next state.
// Any error aborts the whole cycle; partial states are never published.
func (r *Refresher) fetchState(ctx context.Context) (*view.State, error) {
	tail := r.Tail()
	statusFilter := r.StatusFilter()
	now := r.now()

	entries, err := r.api.GetBalance(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.api.GetOrders(ctx, r.settings.ClampTail(tail), statusFilter)
	if err != nil {
		return nil, err
	}

	overview, err := r.api.GetTradesOverview(ctx)
	if err != nil {
		return nil, err
	}

	tickers, err := r.api.GetTickers(ctx, r.neededPairs(entries, overview))
	if err != nil {
		return nil, err
	}
	prices := basePrices(tickers)

	snap := view.BuildSnapshot(entries, prices, r.settings.QuoteAsset, now)
	orders := view.BuildOrders(rows, now, r.settings.FreshWindow, r.settings.NVisualDegradations)

	return &view.State{
		FetchedAt:    now,
		Tail:         tail,
		StatusFilter: statusFilter,
		Snapshot:     snap,
		Allocations:  view.Allocations(snap),
		Orders:       orders,
		Performance:  view.BuildPerformance(overview, prices, r.settings.QuoteAsset),
	}, nil
}

// neededPairs collects every asset the cycle must price: held assets
// without an embedded quote price, plus the base assets traded per the
// overview so open positions can be marked to market.
func (r *Refresher) neededPairs(entries []mockx.BalanceEntry, overview *mockx.TradesOverview) []string {
	quote := r.settings.QuoteAsset
	assets := make(map[string]bool)

	for _, e := range entries {
		if e.Asset == "" || e.Asset == quote || e.QuotePrice != nil {
			continue
		}
		assets[e.Asset] = true
	}
	if overview != nil {
		for _, base := range overview.BaseAssets(quote) {
			if base != quote {
				assets[base] = true
			}
		}
	}

	pairs := make([]string, 0, len(assets))
	for asset := range assets {
		pairs = append(pairs, asset+"/"+quote)
	}
	sort.Strings(pairs)
	return pairs
}

// basePrices re-keys a ticker map by base asset: "BTC/USDT" becomes "BTC".
// Keys without a pair separator pass through unchanged.
func basePrices(tickers map[string]float64) map[string]float64 {
	prices := make(map[string]float64, len(tickers))
	for symbol, price := range tickers {
		base, _, _ := strings.Cut(symbol, "/")
		prices[base] = price
	}
	return prices
}

func (r *Refresher) publishMetrics(state *view.State) {
	equity, _ := state.Snapshot.EquityValue.Float64()
	r.metrics.EquityValue.Set(equity)
	r.metrics.HoldingsCount.Set(float64(len(state.Snapshot.Holdings)))
	r.metrics.OrdersDisplayed.Set(float64(len(state.Orders.Records)))
	r.metrics.RowsSkipped.Add(float64(state.Orders.Skipped))
}

func (r *Refresher) recordEquity(state *view.State) {
	if r.history == nil {
		return
	}
	equity, _ := state.Snapshot.EquityValue.Float64()
	err := r.history.Append(storage.EquityPoint{
		Ts:         state.FetchedAt.UnixMilli(),
		Equity:     equity,
		QuoteAsset: state.Snapshot.QuoteAsset,
		Incomplete: state.Snapshot.Incomplete,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to record equity point")
	}
}
