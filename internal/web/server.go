// Package web serves the dashboard: server-rendered portfolio, orders and
// performance pages, a JSON API mirroring each page, and a WebSocket that
// nudges open browsers whenever the refresher publishes a new state.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"mockexchange-dash/internal/cfg"
	"mockexchange-dash/internal/metrics"
	"mockexchange-dash/internal/refresh"
	"mockexchange-dash/internal/storage"
	"mockexchange-dash/internal/view"
)

// minChartShare is the allocation share below which slices fold into the
// "Other" bucket on the donut chart.
const minChartShare = 0.01

// Server is the dashboard HTTP server.
type Server struct {
	settings  cfg.Settings
	refresher *refresh.Refresher
	metrics   *metrics.Metrics
	history   *storage.History // nil when persistence is disabled
	loc       *time.Location

	server   *http.Server
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	stopChannel chan struct{}
	isRunning   bool
	mu          sync.Mutex
}

// update is the WebSocket nudge sent to connected browsers after each
// successful refresh. Pages re-request their own data on receipt.
type update struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Equity    float64   `json:"equity"`
	Orders    int       `json:"orders"`
}

// NewServer wires up routes on the configured port. history may be nil.
func NewServer(settings cfg.Settings, refresher *refresh.Refresher, m *metrics.Metrics, history *storage.History) *Server {
	loc, err := time.LoadLocation(settings.LocalTZ)
	if err != nil {
		loc = time.UTC
	}

	s := &Server{
		settings:    settings,
		refresher:   refresher,
		metrics:     m,
		history:     history,
		loc:         loc,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     make(map[*websocket.Conn]bool),
		stopChannel: make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handlePortfolioPage).Methods("GET")
	r.HandleFunc("/orders", s.handleOrdersPage).Methods("GET")
	r.HandleFunc("/orders/{id}", s.handleOrderDetailPage).Methods("GET")
	r.HandleFunc("/performance", s.handlePerformancePage).Methods("GET")

	r.HandleFunc("/api/portfolio", s.handlePortfolioAPI).Methods("GET")
	r.HandleFunc("/api/orders", s.handleOrdersAPI).Methods("GET")
	r.HandleFunc("/api/orders/{id}", s.handleOrderAPI).Methods("GET")
	r.HandleFunc("/api/performance", s.handlePerformanceAPI).Methods("GET")
	r.HandleFunc("/api/status", s.handleStatusAPI).Methods("GET")
	r.HandleFunc("/api/equity/history", s.handleEquityHistoryAPI).Methods("GET")
	r.HandleFunc("/api/refresh", s.handleRefreshAPI).Methods("POST")

	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	r.HandleFunc("/logo", s.handleLogo).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.ListenPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving and broadcasting. It does not block.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("dashboard server is already running")
	}

	go s.broadcaster()

	go func() {
		log.Info().Str("address", s.server.Addr).Msg("starting dashboard server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("dashboard server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop closes client connections and shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	close(s.stopChannel)

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		s.metrics.WSClients.Dec()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown dashboard server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("dashboard server stopped")
	return nil
}

// broadcaster forwards each published state to connected clients.
func (s *Server) broadcaster() {
	for {
		select {
		case state := <-s.refresher.Updates():
			equity, _ := state.Snapshot.EquityValue.Float64()
			s.broadcast(update{
				FetchedAt: state.FetchedAt,
				Equity:    equity,
				Orders:    len(state.Orders.Records),
			})
		case <-s.stopChannel:
			return
		}
	}
}

func (s *Server) broadcast(u update) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client := range s.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(s.clients, client)
			s.metrics.WSClients.Dec()
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()
	s.metrics.WSClients.Inc()

	// Block until the client goes away; writes happen in the broadcaster.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.clientsMu.Lock()
	if s.clients[conn] {
		delete(s.clients, conn)
		s.metrics.WSClients.Dec()
	}
	s.clientsMu.Unlock()
}

// tailParam reads ?tail= and, when present, applies it to the refresher.
// Returns the effective (clamped) tail.
func (s *Server) tailParam(r *http.Request) int {
	raw := r.URL.Query().Get("tail")
	if raw == "" {
		return s.refresher.Tail()
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return s.refresher.Tail()
	}
	return s.refresher.SetTail(n)
}

// statusParam reads ?status= and, when present, applies it to the
// refresher. An empty value lifts the filter.
func (s *Server) statusParam(r *http.Request) string {
	q := r.URL.Query()
	if !q.Has("status") {
		return s.refresher.StatusFilter()
	}
	return s.refresher.SetStatusFilter(q.Get("status"))
}

// findOrder looks an order up by ID in the currently published batch.
func findOrder(state *view.State, id string) (view.OrderRecord, bool) {
	for _, rec := range state.Orders.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return view.OrderRecord{}, false
}

func (s *Server) handlePortfolioAPI(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	if state == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	writeJSON(w, map[string]any{
		"fetchedAt":   state.FetchedAt,
		"status":      status,
		"snapshot":    state.Snapshot,
		"allocations": view.ChartSlices(state.Allocations, minChartShare),
	})
}

func (s *Server) handleOrdersAPI(w http.ResponseWriter, r *http.Request) {
	tail := s.tailParam(r)
	statusFilter := s.statusParam(r)
	state, status := s.refresher.State()
	if state == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	writeJSON(w, map[string]any{
		"fetchedAt":    state.FetchedAt,
		"status":       status,
		"tail":         tail,
		"statusFilter": statusFilter,
		"orders":       state.Orders,
	})
}

func (s *Server) handleOrderAPI(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	if state == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	rec, ok := findOrder(state, mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, http.StatusNotFound, "order not in the current window")
		return
	}
	writeJSON(w, map[string]any{
		"fetchedAt": state.FetchedAt,
		"status":    status,
		"order":     rec,
	})
}

func (s *Server) handlePerformanceAPI(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	if state == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	writeJSON(w, map[string]any{
		"fetchedAt":   state.FetchedAt,
		"status":      status,
		"performance": state.Performance,
	})
}

func (s *Server) handleStatusAPI(w http.ResponseWriter, r *http.Request) {
	_, status := s.refresher.State()
	writeJSON(w, status)
}

func (s *Server) handleEquityHistoryAPI(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONError(w, http.StatusNotFound, "equity history disabled")
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			hours = n
		}
	}

	points, err := s.history.Recent(time.Duration(hours)*time.Hour, time.Now())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, map[string]any{"hours": hours, "points": points})
}

func (s *Server) handleRefreshAPI(w http.ResponseWriter, r *http.Request) {
	s.refresher.Trigger()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "refresh requested"})
}

func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.settings.LogoFile)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, status := s.refresher.State()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
