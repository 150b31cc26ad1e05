package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"mockexchange-dash/internal/refresh"
	"mockexchange-dash/internal/storage"
	"mockexchange-dash/internal/view"
)

// pageHeader carries what every page shows above the fold: branding, nav
// state and the refresh health indicator.
type pageHeader struct {
	AppTitle    string
	UIURL       string
	QuoteAsset  string
	Active      string
	HasData     bool
	Healthy     bool
	FailureKind string
	LastError   string
	FetchedAt   string
	RefreshSecs int
}

type holdingRow struct {
	Asset      string
	Free       string
	Used       string
	Quantity   string
	Price      string
	Value      string
	PriceKnown bool
}

type allocationRow struct {
	Asset   string
	Value   string
	Percent string
	Width   float64 // bar width in percent, for the chart
}

type portfolioPage struct {
	pageHeader
	Equity      string
	Incomplete  bool
	Holdings    []holdingRow
	Allocations []allocationRow
}

type orderRow struct {
	ID        string
	Symbol    string
	Side      string
	Type      string
	Status    string
	Quantity  string
	Filled    string
	Price     string
	Fee       string
	Requested string
	Updated   string
	Latency   string

	Styled bool
	Bg     string
	Fg     string
}

type ordersPage struct {
	pageHeader
	Tail          int
	SliderMin     int
	SliderMax     int
	SliderStep    int
	StatusFilter  string
	StatusOptions []string
	Skipped       int
	Rows          []orderRow
}

// orderDetailPage is the single-order drill-down reached from the ID links
// in the orders table.
type orderDetailPage struct {
	pageHeader
	Found bool
	ID    string

	Symbol    string
	BaseAsset string
	Side      string
	Type      string
	Status    string

	LimitPrice string
	ExecPrice  string
	HasPrice   bool

	Requested  string
	Updated    string
	IsFinished bool
	Latency    string

	RequestedQty string
	FilledQty    string
	RemainingQty string

	ActualNotional   string
	ReservedNotional string
	ActualFee        string
	ReservedFee      string
	NotionCurrency   string
	FeeCurrency      string
}

type performancePage struct {
	pageHeader
	MarketValueOpen string
	CapitalAtRisk   string
	GrossEarnings   string
	NetEarnings     string
	TotalFees       string
	GrossROI        string
	NetROI          string
	RVPI            string
	DPI             string
	MOIC            string
	Incomplete      bool

	BuyCount  string
	SellCount string

	HasHistory bool
	ChartPath  string // SVG polyline points for the equity sparkline
}

func (s *Server) header(active string, state *view.State, status refresh.Status) pageHeader {
	h := pageHeader{
		AppTitle:    s.settings.AppTitle,
		UIURL:       s.settings.UIURL,
		QuoteAsset:  s.settings.QuoteAsset,
		Active:      active,
		Healthy:     status.Healthy,
		FailureKind: status.FailureKind,
		LastError:   status.LastError,
		RefreshSecs: int(s.settings.RefreshInterval / time.Second),
	}
	if state != nil {
		h.HasData = true
		h.FetchedAt = s.fmtTime(state.FetchedAt)
	}
	return h
}

func (s *Server) handlePortfolioPage(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	page := portfolioPage{pageHeader: s.header("portfolio", state, status)}

	if state != nil {
		page.Equity = fmtQuote(state.Snapshot.EquityValue)
		page.Incomplete = state.Snapshot.Incomplete
		for _, h := range state.Snapshot.Holdings {
			page.Holdings = append(page.Holdings, holdingRow{
				Asset:      h.Asset,
				Free:       fmtQty(h.Free),
				Used:       fmtQty(h.Used),
				Quantity:   fmtQty(h.Quantity),
				Price:      fmtQuote(h.QuotePrice),
				Value:      fmtQuote(h.ValueInQuote),
				PriceKnown: h.PriceKnown,
			})
		}
		for _, a := range view.ChartSlices(state.Allocations, minChartShare) {
			page.Allocations = append(page.Allocations, allocationRow{
				Asset:   a.Asset,
				Value:   fmtQuote(a.Value),
				Percent: fmtPercent(a.Percentage),
				Width:   a.Percentage * 100,
			})
		}
	}

	s.render(w, portfolioTmpl, page)
}

func (s *Server) handleOrdersPage(w http.ResponseWriter, r *http.Request) {
	tail := s.tailParam(r)
	statusFilter := s.statusParam(r)
	state, status := s.refresher.State()

	page := ordersPage{
		pageHeader:    s.header("orders", state, status),
		Tail:          tail,
		SliderMin:     s.settings.SliderMin,
		SliderMax:     s.settings.SliderMax,
		SliderStep:    s.settings.SliderStep,
		StatusFilter:  statusFilter,
		StatusOptions: view.KnownStatuses,
	}

	if state != nil {
		page.Skipped = state.Orders.Skipped
		for _, rec := range state.Orders.Records {
			row := orderRow{
				ID:        rec.ID,
				Symbol:    rec.Symbol,
				Side:      rec.Side,
				Type:      rec.Type,
				Status:    rec.Status,
				Quantity:  fmtQty(rec.RequestedQty),
				Filled:    fmtQty(rec.FilledQty),
				Price:     fmtQuote(rec.ExecPrice),
				Fee:       fmtQty(rec.ActualFee),
				Requested: s.fmtTime(rec.RequestedAt),
				Updated:   s.fmtTime(rec.UpdatedAt),
			}
			if rec.Executed {
				row.Latency = rec.Latency.Truncate(time.Millisecond).String()
			}
			if bg, fg, ok := view.RowStyle(rec.Status, rec.StalenessTier, s.settings.NVisualDegradations); ok {
				row.Styled, row.Bg, row.Fg = true, bg, fg
			}
			page.Rows = append(page.Rows, row)
		}
	}

	s.render(w, ordersTmpl, page)
}

func (s *Server) handleOrderDetailPage(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	page := orderDetailPage{
		pageHeader: s.header("orders", state, status),
		ID:         mux.Vars(r)["id"],
	}

	if state != nil {
		if rec, ok := findOrder(state, page.ID); ok {
			page.Found = true
			page.Symbol = rec.Symbol
			page.BaseAsset = rec.BaseAsset
			page.Side = rec.Side
			page.Type = rec.Type
			page.Status = rec.Status

			if rec.Type == "limit" && !rec.LimitPrice.IsZero() {
				page.LimitPrice = fmtQuote(rec.LimitPrice)
			}
			if !rec.ExecPrice.IsZero() {
				page.HasPrice = true
				page.ExecPrice = fmtQuote(rec.ExecPrice)
			}

			page.Requested = s.fmtTime(rec.RequestedAt)
			page.Updated = s.fmtTime(rec.UpdatedAt)
			page.IsFinished = rec.Executed
			if rec.Executed {
				page.Latency = rec.Latency.Truncate(time.Millisecond).String()
			}

			page.RequestedQty = fmtQty(rec.RequestedQty)
			page.FilledQty = fmtQty(rec.FilledQty)
			page.RemainingQty = fmtQty(rec.RequestedQty.Sub(rec.FilledQty))

			page.ActualNotional = fmtQuote(rec.ActualNotional)
			page.ReservedNotional = fmtQuote(rec.ReservedNotional)
			page.ActualFee = fmtQty(rec.ActualFee)
			page.ReservedFee = fmtQty(rec.ReservedFee)
			page.NotionCurrency = rec.NotionCurrency
			page.FeeCurrency = rec.FeeCurrency
		}
	}

	if !page.Found {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
	}
	s.render(w, orderDetailTmpl, page)
}

func (s *Server) handlePerformancePage(w http.ResponseWriter, r *http.Request) {
	state, status := s.refresher.State()
	page := performancePage{pageHeader: s.header("performance", state, status)}

	if state != nil {
		p := state.Performance
		page.MarketValueOpen = fmtQuote(p.MarketValueOpen)
		page.CapitalAtRisk = fmtQuote(p.CapitalAtRisk)
		page.GrossEarnings = fmtQuote(p.GrossEarnings)
		page.NetEarnings = fmtQuote(p.NetEarnings)
		page.TotalFees = fmtQuote(p.TotalFees)
		page.GrossROI = fmtRatioPct(p.GrossROIOnCost)
		page.NetROI = fmtRatioPct(p.NetROIOnCost)
		page.RVPI = fmtRatio(p.RVPI)
		page.DPI = fmtRatio(p.DPI)
		page.MOIC = fmtRatio(p.MOIC)
		page.Incomplete = p.Incomplete
		page.BuyCount = strconv.Itoa(p.Buy.Count)
		page.SellCount = strconv.Itoa(p.Sell.Count)
	}

	if s.history != nil {
		if points, err := s.history.Recent(24*time.Hour, time.Now()); err == nil && len(points) > 1 {
			page.HasHistory = true
			page.ChartPath = sparkline(points)
		}
	}

	s.render(w, performanceTmpl, page)
}

func (s *Server) render(w http.ResponseWriter, tmpl pageTemplate, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Warn().Err(err).Msg("failed to render page")
	}
}

func (s *Server) fmtTime(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04:05")
}

// fmtQuote renders a quote-asset amount with two decimals.
func fmtQuote(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// fmtQty renders an asset quantity with trailing zeros trimmed.
func fmtQty(d decimal.Decimal) string {
	return d.Round(8).String()
}

func fmtPercent(share float64) string {
	return decimal.NewFromFloat(share*100).StringFixed(2) + "%"
}

// fmtRatioPct renders an optional ratio as a percentage, "n/a" when the
// denominator was zero.
func fmtRatioPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*v*100).StringFixed(2) + "%"
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).StringFixed(2) + "x"
}

// sparkline maps equity points onto SVG polyline coordinates in a 600x120
// viewBox. Flat series draw as a horizontal midline.
func sparkline(points []storage.EquityPoint) string {
	const width, height, pad = 600.0, 120.0, 4.0

	minTs, maxTs := points[0].Ts, points[len(points)-1].Ts
	minEq, maxEq := points[0].Equity, points[0].Equity
	for _, p := range points {
		if p.Equity < minEq {
			minEq = p.Equity
		}
		if p.Equity > maxEq {
			maxEq = p.Equity
		}
	}

	tsSpan := float64(maxTs - minTs)
	eqSpan := maxEq - minEq

	var b strings.Builder
	for i, p := range points {
		x := width / 2
		if tsSpan > 0 {
			x = pad + (width-2*pad)*float64(p.Ts-minTs)/tsSpan
		}
		y := height / 2
		if eqSpan > 0 {
			y = height - pad - (height-2*pad)*(p.Equity-minEq)/eqSpan
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}
