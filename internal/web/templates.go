package web

import "html/template"

type pageTemplate = *template.Template

var (
	portfolioTmpl   = mustPage("portfolio", portfolioHTML)
	ordersTmpl      = mustPage("orders", ordersHTML)
	orderDetailTmpl = mustPage("order_detail", orderDetailHTML)
	performanceTmpl = mustPage("performance", performanceHTML)
)

func mustPage(name, body string) pageTemplate {
	t := template.Must(template.New(name).Parse(chromeHTML))
	return template.Must(t.Parse(body))
}

// chromeHTML holds the shared page chrome: styles, the top bar with the
// health indicator, and the WebSocket auto-reload script.
const chromeHTML = `
{{define "head"}}
<!DOCTYPE html>
<html>
<head>
    <title>{{.AppTitle}}</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1400px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #1f3b73 0%, #2a9d8f 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; display: flex; align-items: center; }
        .header img { height: 48px; margin-right: 16px; }
        .header h1 { margin: 0; font-size: 2em; }
        .nav { margin-bottom: 20px; }
        .nav a { display: inline-block; padding: 8px 16px; margin-right: 8px; border-radius: 6px; background: white; color: #333; text-decoration: none; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
        .nav a.active { background: #2a9d8f; color: white; }
        .status-bar { display: flex; justify-content: space-between; align-items: center; background: white; padding: 15px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .status-indicator { display: flex; align-items: center; font-weight: bold; }
        .status-dot { width: 12px; height: 12px; border-radius: 50%; margin-right: 8px; }
        .status-ok { background-color: #28a745; }
        .status-bad { background-color: #dc3545; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); margin-bottom: 20px; }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        .metric { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid #eee; }
        .metric:last-child { border-bottom: none; }
        .metric-label { font-weight: 500; color: #666; }
        .metric-value { font-weight: bold; color: #333; }
        .large-metric { font-size: 2em; text-align: center; margin: 10px 0; font-weight: bold; }
        .warn { color: #856404; background: #fff3cd; padding: 10px; border-radius: 6px; margin-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        th { background-color: #f8f9fa; font-weight: 600; }
        .num { text-align: right; }
        .bar-row { display: flex; align-items: center; padding: 4px 0; }
        .bar-label { width: 120px; font-weight: 500; }
        .bar-track { flex: 1; background: #eee; border-radius: 6px; overflow: hidden; height: 18px; }
        .bar-fill { height: 100%; background: #2a9d8f; }
        .bar-pct { width: 80px; text-align: right; font-weight: bold; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <img src="/logo" alt="logo">
        <h1>{{.AppTitle}}</h1>
    </div>
    <div class="nav">
        <a href="/" {{if eq .Active "portfolio"}}class="active"{{end}}>Portfolio</a>
        <a href="/orders" {{if eq .Active "orders"}}class="active"{{end}}>Orders</a>
        <a href="/performance" {{if eq .Active "performance"}}class="active"{{end}}>Performance</a>
        {{if .UIURL}}<a href="{{.UIURL}}" target="_blank">Exchange UI</a>{{end}}
    </div>
    <div class="status-bar">
        <div class="status-indicator">
            {{if .Healthy}}
            <div class="status-dot status-ok"></div><span>Connected</span>
            {{else}}
            <div class="status-dot status-bad"></div><span>Backend unavailable{{if .FailureKind}} ({{.FailureKind}}){{end}}</span>
            {{end}}
        </div>
        <div class="status-indicator">
            {{if .HasData}}<span>Last updated: {{.FetchedAt}}{{if not .Healthy}} (stale){{end}}</span>{{else}}<span>Waiting for first fetch...</span>{{end}}
        </div>
    </div>
{{end}}

{{define "foot"}}
</div>
<script>
    const ws = new WebSocket('ws://' + location.host + '/ws');
    ws.onmessage = function() { location.reload(); };
    ws.onclose = function() { setTimeout(() => location.reload(), {{.RefreshSecs}} * 1000); };
</script>
</body>
</html>
{{end}}
`

const portfolioHTML = `
{{template "head" .}}
{{if .HasData}}
    {{if .Incomplete}}<div class="warn">Some holdings have no known price and are valued at zero.</div>{{end}}
    <div class="card">
        <h3>Equity</h3>
        <div class="large-metric">{{.Equity}} {{.QuoteAsset}}</div>
    </div>
    <div class="card">
        <h3>Holdings</h3>
        <table>
            <thead><tr><th>Asset</th><th class="num">Free</th><th class="num">Used</th><th class="num">Total</th><th class="num">Price ({{.QuoteAsset}})</th><th class="num">Value ({{.QuoteAsset}})</th></tr></thead>
            <tbody>
            {{range .Holdings}}
                <tr>
                    <td>{{.Asset}}</td>
                    <td class="num">{{.Free}}</td>
                    <td class="num">{{.Used}}</td>
                    <td class="num">{{.Quantity}}</td>
                    <td class="num">{{if .PriceKnown}}{{.Price}}{{else}}?{{end}}</td>
                    <td class="num">{{.Value}}</td>
                </tr>
            {{else}}
                <tr><td colspan="6" style="text-align:center;color:#666;">No holdings</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>
    <div class="card">
        <h3>Allocation</h3>
        {{range .Allocations}}
            <div class="bar-row">
                <div class="bar-label">{{.Asset}}</div>
                <div class="bar-track"><div class="bar-fill" style="width: {{printf "%.2f" .Width}}%"></div></div>
                <div class="bar-pct">{{.Percent}}</div>
            </div>
        {{else}}
            <p style="color:#666;">Nothing to allocate</p>
        {{end}}
    </div>
{{end}}
{{template "foot" .}}
`

const ordersHTML = `
{{template "head" .}}
<div class="card">
    <h3>Recent orders</h3>
    <form method="GET" action="/orders" style="margin-bottom: 12px;">
        <label for="tail">Show last <output id="tail-out">{{.Tail}}</output> orders</label><br>
        <input type="range" id="tail" name="tail" min="{{.SliderMin}}" max="{{.SliderMax}}" step="{{.SliderStep}}" value="{{.Tail}}"
               oninput="document.getElementById('tail-out').value = this.value" onchange="this.form.submit()" style="width: 50%;">
        <br>
        <label for="status">Status</label>
        <select id="status" name="status" onchange="this.form.submit()">
            <option value="">all</option>
            {{range .StatusOptions}}<option value="{{.}}"{{if eq . $.StatusFilter}} selected{{end}}>{{.}}</option>{{end}}
        </select>
    </form>
    {{if gt .Skipped 0}}<div class="warn">{{.Skipped}} malformed row(s) skipped.</div>{{end}}
    <table>
        <thead><tr><th>ID</th><th>Symbol</th><th>Side</th><th>Type</th><th>Status</th><th class="num">Qty</th><th class="num">Filled</th><th class="num">Price</th><th class="num">Fee</th><th>Requested</th><th>Updated</th><th>Latency</th></tr></thead>
        <tbody>
        {{range .Rows}}
            <tr{{if .Styled}} style="background-color: {{.Bg}}; color: {{.Fg}};"{{end}}>
                <td><a href="/orders/{{.ID}}" style="color: inherit;">{{.ID}}</a></td>
                <td>{{.Symbol}}</td>
                <td>{{.Side}}</td>
                <td>{{.Type}}</td>
                <td>{{.Status}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{.Filled}}</td>
                <td class="num">{{.Price}}</td>
                <td class="num">{{.Fee}}</td>
                <td>{{.Requested}}</td>
                <td>{{.Updated}}</td>
                <td>{{.Latency}}</td>
            </tr>
        {{else}}
            <tr><td colspan="12" style="text-align:center;color:#666;">No orders</td></tr>
        {{end}}
        </tbody>
    </table>
</div>
{{template "foot" .}}
`

const orderDetailHTML = `
{{template "head" .}}
<div class="nav"><a href="/orders">&larr; Back to orders</a></div>
{{if .Found}}
    <div class="card">
        <h3>{{.Side}} order #{{.ID}} [{{.Symbol}}]</h3>
        <div class="metric"><span class="metric-label">Asset</span><span class="metric-value">{{.BaseAsset}}</span></div>
        <div class="metric"><span class="metric-label">Status</span><span class="metric-value">{{.Status}}</span></div>
        <div class="metric"><span class="metric-label">Type</span><span class="metric-value">{{.Type}}{{if .LimitPrice}} [{{.LimitPrice}} {{.NotionCurrency}}]{{end}}</span></div>
        {{if .HasPrice}}<div class="metric"><span class="metric-label">Average price</span><span class="metric-value">{{.ExecPrice}} {{.NotionCurrency}}</span></div>{{end}}
        <div class="metric"><span class="metric-label">Created</span><span class="metric-value">{{.Requested}}</span></div>
        <div class="metric"><span class="metric-label">{{if .IsFinished}}Finished{{else}}Updated{{end}}</span><span class="metric-value">{{.Updated}}</span></div>
        {{if .IsFinished}}<div class="metric"><span class="metric-label">Latency</span><span class="metric-value">{{.Latency}}</span></div>{{end}}
    </div>
    <div class="card">
        <h3>Quick summary</h3>
        <div class="metric"><span class="metric-label">Asset &#9654; Actual filled</span><span class="metric-value">{{.FilledQty}} {{.BaseAsset}}</span></div>
        <div class="metric"><span class="metric-label">Asset &#9654; Initial requested</span><span class="metric-value">{{.RequestedQty}} {{.BaseAsset}}</span></div>
        {{if not .IsFinished}}<div class="metric"><span class="metric-label">Asset &#9654; Remaining</span><span class="metric-value">{{.RemainingQty}} {{.BaseAsset}}</span></div>{{end}}
        <div class="metric"><span class="metric-label">Notional &#9654; {{if eq .Side "BUY"}}Actual paid{{else}}Actual received{{end}}</span><span class="metric-value">{{.ActualNotional}} {{.NotionCurrency}}</span></div>
        {{if not .IsFinished}}<div class="metric"><span class="metric-label">Notional &#9654; Still booked</span><span class="metric-value">{{.ReservedNotional}} {{.NotionCurrency}}</span></div>{{end}}
        <div class="metric"><span class="metric-label">Fee &#9654; Actual paid</span><span class="metric-value">{{.ActualFee}} {{.FeeCurrency}}</span></div>
        {{if not .IsFinished}}<div class="metric"><span class="metric-label">Fee &#9654; Still booked</span><span class="metric-value">{{.ReservedFee}} {{.FeeCurrency}}</span></div>{{end}}
    </div>
{{else}}
    <div class="card">
        <h3>Order #{{.ID}}</h3>
        <p style="color:#666;">Not in the current window. It may have been pruned, or it falls outside the configured tail.</p>
    </div>
{{end}}
{{template "foot" .}}
`

const performanceHTML = `
{{template "head" .}}
{{if .HasData}}
    {{if .Incomplete}}<div class="warn">Some traded assets have no current price; open-position values are understated.</div>{{end}}
    <div class="card">
        <h3>Earnings</h3>
        <div class="metric"><span class="metric-label">Market value of open positions</span><span class="metric-value">{{.MarketValueOpen}} {{.QuoteAsset}}</span></div>
        <div class="metric"><span class="metric-label">Capital at risk</span><span class="metric-value">{{.CapitalAtRisk}} {{.QuoteAsset}}</span></div>
        <div class="metric"><span class="metric-label">Gross earnings</span><span class="metric-value">{{.GrossEarnings}} {{.QuoteAsset}}</span></div>
        <div class="metric"><span class="metric-label">Total fees</span><span class="metric-value">{{.TotalFees}} {{.QuoteAsset}}</span></div>
        <div class="metric"><span class="metric-label">Net earnings</span><span class="metric-value">{{.NetEarnings}} {{.QuoteAsset}}</span></div>
    </div>
    <div class="card">
        <h3>Ratios</h3>
        <div class="metric"><span class="metric-label">Gross ROI on cost</span><span class="metric-value">{{.GrossROI}}</span></div>
        <div class="metric"><span class="metric-label">Net ROI on cost</span><span class="metric-value">{{.NetROI}}</span></div>
        <div class="metric"><span class="metric-label">RVPI</span><span class="metric-value">{{.RVPI}}</span></div>
        <div class="metric"><span class="metric-label">DPI</span><span class="metric-value">{{.DPI}}</span></div>
        <div class="metric"><span class="metric-label">MOIC</span><span class="metric-value">{{.MOIC}}</span></div>
    </div>
    <div class="card">
        <h3>Activity</h3>
        <div class="metric"><span class="metric-label">Buy trades</span><span class="metric-value">{{.BuyCount}}</span></div>
        <div class="metric"><span class="metric-label">Sell trades</span><span class="metric-value">{{.SellCount}}</span></div>
    </div>
    {{if .HasHistory}}
    <div class="card">
        <h3>Equity (24h)</h3>
        <svg viewBox="0 0 600 120" style="width: 100%; height: 120px;">
            <polyline points="{{.ChartPath}}" fill="none" stroke="#2a9d8f" stroke-width="2"/>
        </svg>
    </div>
    {{end}}
{{end}}
{{template "foot" .}}
`
