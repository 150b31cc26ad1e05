package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mockexchange-dash/internal/cfg"
	"mockexchange-dash/internal/exchange/mockx"
	"mockexchange-dash/internal/metrics"
	"mockexchange-dash/internal/refresh"
)

type fakeAPI struct {
	balance []mockx.BalanceEntry
	prices  map[string]float64
	orders  []json.RawMessage

	lastStatus string
}

func (f *fakeAPI) GetBalance(ctx context.Context) ([]mockx.BalanceEntry, error) {
	return f.balance, nil
}

func (f *fakeAPI) GetTickers(ctx context.Context, pairs []string) (map[string]float64, error) {
	return f.prices, nil
}

func (f *fakeAPI) GetOrders(ctx context.Context, tail int, status string) ([]json.RawMessage, error) {
	f.lastStatus = status
	return f.orders, nil
}

func (f *fakeAPI) GetTradesOverview(ctx context.Context) (*mockx.TradesOverview, error) {
	return &mockx.TradesOverview{}, nil
}

func fp(v float64) *float64 { return &v }

func testServer(t *testing.T) (*Server, *refresh.Refresher, *fakeAPI) {
	t.Helper()

	logo := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("png-bytes"), 0o644))

	settings := cfg.Settings{
		QuoteAsset:          "USDT",
		RefreshInterval:     time.Hour,
		FreshWindow:         60 * time.Second,
		NVisualDegradations: 12,
		SliderMin:           10,
		SliderMax:           1000,
		SliderStep:          10,
		SliderDefault:       100,
		AppTitle:            "MockExchange Dashboard",
		LogoFile:            logo,
		LocalTZ:             "UTC",
		ListenPort:          0,
	}

	created := time.Now().Add(-90 * time.Second).UnixMilli()
	api := &fakeAPI{
		balance: []mockx.BalanceEntry{
			{Asset: "BTC", Free: fp(1), Used: fp(0)},
			{Asset: "USDT", Free: fp(500), Used: fp(0)},
		},
		prices: map[string]float64{"BTC": 10000},
		orders: []json.RawMessage{
			// Executed 42s after creation, 90s ago: tier 1, still styled.
			json.RawMessage(fmt.Sprintf(
				`{"id":7,"symbol":"BTC/USDT","side":"BUY","type":"LIMIT","status":"FILLED","ts_create":%d,"ts_finish":%d,"amount":0.5}`,
				created, created+42_000,
			)),
		},
	}

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	r := refresh.New(settings, api, m, nil)
	return NewServer(settings, r, m, nil), r, api
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPortfolioPageBeforeFirstFetch(t *testing.T) {
	s, _, _ := testServer(t)

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Waiting for first fetch")
	assert.Contains(t, rec.Body.String(), "MockExchange Dashboard")
}

func TestPortfolioPageRendersHoldings(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "10500.00 USDT")
	assert.Contains(t, body, "BTC")
	assert.Contains(t, body, "Last updated:")
}

func TestOrdersPageRendersRowsWithStyle(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "BTC/USDT")
	assert.Contains(t, body, "42s") // executed latency
	assert.Contains(t, body, `style="background-color: #`, "stale rows carry an inline fade style")
}

func TestOrdersPageClampsTailParam(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/orders?tail=99999")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="1000"`)
	assert.Equal(t, 1000, r.Tail())

	rec = get(t, s, "/orders?tail=3")
	assert.Contains(t, rec.Body.String(), `value="10"`)
	assert.Equal(t, 10, r.Tail())
}

func TestPerformancePage(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/performance")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Net earnings")
	assert.Contains(t, body, "RVPI")
	assert.NotContains(t, body, "Equity (24h)", "no chart without a history store")
}

func TestPortfolioAPI(t *testing.T) {
	s, r, _ := testServer(t)

	rec := get(t, s, "/api/portfolio")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	r.RefreshNow(context.Background())

	rec = get(t, s, "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Snapshot struct {
			EquityValue string `json:"equityValue"`
		} `json:"snapshot"`
		Status refresh.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10500", resp.Snapshot.EquityValue)
	assert.True(t, resp.Status.Healthy)
}

func TestOrdersAPI(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/api/orders?tail=200")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tail   int `json:"tail"`
		Orders struct {
			Records []json.RawMessage `json:"records"`
			Skipped int               `json:"skipped"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Tail)
	assert.Len(t, resp.Orders.Records, 1)
}

func TestOrdersPageStatusFilter(t *testing.T) {
	s, r, api := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/orders?status=filled")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "filled", r.StatusFilter())
	assert.Contains(t, rec.Body.String(), `<option value="filled" selected>`)

	r.RefreshNow(context.Background())
	assert.Equal(t, "filled", api.lastStatus, "the filter must reach the backend query")

	// An empty value lifts the filter again.
	rec = get(t, s, "/orders?status=")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, r.StatusFilter())
	r.RefreshNow(context.Background())
	assert.Empty(t, api.lastStatus)
}

func TestOrdersAPIStatusFilter(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/api/orders?status=canceled")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		StatusFilter string `json:"statusFilter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "canceled", resp.StatusFilter)
	assert.Equal(t, "canceled", r.StatusFilter())
}

func TestOrderDetailPage(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/orders/7")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "BUY order #7 [BTC/USDT]")
	assert.Contains(t, body, "Quick summary")
	assert.Contains(t, body, "Initial requested")
	assert.Contains(t, body, "0.5 BTC")
	assert.Contains(t, body, "Finished")
	assert.Contains(t, body, "42s")
	assert.Contains(t, body, "Back to orders")
}

func TestOrderDetailPageUnknownID(t *testing.T) {
	s, r, _ := testServer(t)
	r.RefreshNow(context.Background())

	rec := get(t, s, "/orders/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not in the current window")
}

func TestOrderDetailAPI(t *testing.T) {
	s, r, _ := testServer(t)

	rec := get(t, s, "/api/orders/7")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	r.RefreshNow(context.Background())

	rec = get(t, s, "/api/orders/7")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Order struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7", resp.Order.ID)
	assert.Equal(t, "BTC/USDT", resp.Order.Symbol)
	assert.Equal(t, "filled", resp.Order.Status)

	rec = get(t, s, "/api/orders/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthTracksRefreshStatus(t *testing.T) {
	s, r, _ := testServer(t)

	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	r.RefreshNow(context.Background())

	rec = get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoServesConfiguredFile(t *testing.T) {
	s, _, _ := testServer(t)

	rec := get(t, s, "/logo")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestRefreshEndpointTriggers(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestEquityHistoryDisabled(t *testing.T) {
	s, _, _ := testServer(t)

	rec := get(t, s, "/api/equity/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	s, _, _ := testServer(t)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the handler a moment to register the client.
	require.Eventually(t, func() bool {
		s.clientsMu.RLock()
		defer s.clientsMu.RUnlock()
		return len(s.clients) == 1
	}, time.Second, 5*time.Millisecond)

	s.broadcast(update{Equity: 10500, Orders: 1})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var u update
	require.NoError(t, json.Unmarshal(msg, &u))
	assert.Equal(t, float64(10500), u.Equity)
	assert.Equal(t, 1, u.Orders)
}

func TestStopDrainsClientGauge(t *testing.T) {
	s, _, _ := testServer(t)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.metrics.WSClients) == 1
	}, time.Second, 5*time.Millisecond)

	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	require.NoError(t, s.Stop())

	assert.Zero(t, testutil.ToFloat64(s.metrics.WSClients),
		"closing connections on shutdown must release their gauge counts")
}
