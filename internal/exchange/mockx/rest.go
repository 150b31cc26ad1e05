// Package mockx is a thin REST client for the MockExchange paper-trading
// backend. It performs authenticated reads, normalizes the backend's
// historically inconsistent payload shapes, and classifies every failure
// into the taxonomy the dashboard surfaces (connection, auth, server,
// malformed response). No retries: a failed fetch is reported and the next
// scheduled refresh retries naturally.
package mockx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	key, base string
	rest      *resty.Client
}

func NewREST(base, key string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(3 * time.Second) // default fallback
	}
	return &Client{key: key, base: strings.TrimRight(base, "/"), rest: r}
}

// get performs an authenticated GET and returns the raw body. Status and
// transport errors are classified here so callers only ever see APIError.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.key)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(c.base + endpoint)
	if err != nil {
		return nil, &APIError{Kind: FailureConnection, Endpoint: endpoint, Err: err}
	}

	status := resp.StatusCode()
	switch {
	case status == 401 || status == 403:
		return nil, &APIError{Kind: FailureAuth, Endpoint: endpoint, Status: status, Err: fmt.Errorf("rejected API key")}
	case status >= 500:
		return nil, &APIError{Kind: FailureServer, Endpoint: endpoint, Status: status, Err: fmt.Errorf("server error: %s", resp.String())}
	case status < 200 || status >= 300:
		return nil, &APIError{Kind: FailureServer, Endpoint: endpoint, Status: status, Err: fmt.Errorf("unexpected status: %s", resp.String())}
	}

	return resp.Body(), nil
}

// GetBalance fetches /balance and normalizes it into a flat list of entries.
func (c *Client) GetBalance(ctx context.Context) ([]BalanceEntry, error) {
	body, err := c.get(ctx, "/balance", nil)
	if err != nil {
		return nil, err
	}

	entries, err := normalizeBalance(body)
	if err != nil {
		return nil, &APIError{Kind: FailureMalformed, Endpoint: "/balance", Err: err}
	}
	return entries, nil
}

// GetTickers fetches last prices for the given pairs ("BTC/USDT", ...) and
// returns {pair: price}. Pairs the backend does not know are simply absent
// from the result.
func (c *Client) GetTickers(ctx context.Context, pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := "/tickers/" + strings.Join(pairs, ",")
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	prices, err := normalizeTickers(body)
	if err != nil {
		return nil, &APIError{Kind: FailureMalformed, Endpoint: "/tickers", Err: err}
	}
	return prices, nil
}

// GetOrders fetches the most recent orders. The tail is expected to be
// pre-clamped by the caller (cfg.ClampTail); tail <= 0 drops the limit and
// pulls the whole book. Rows come back raw so the adapter can skip
// individually malformed ones without failing the batch.
func (c *Client) GetOrders(ctx context.Context, tail int, status string) ([]json.RawMessage, error) {
	query := url.Values{}
	if tail > 0 {
		query.Set("tail", strconv.Itoa(tail))
	}
	if status != "" {
		query.Set("status", status)
	}

	body, err := c.get(ctx, "/orders", query)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &APIError{Kind: FailureMalformed, Endpoint: "/orders", Err: err}
	}
	return rows, nil
}

// GetTradesOverview fetches the per-side trade aggregates from /overview/trades.
func (c *Client) GetTradesOverview(ctx context.Context) (*TradesOverview, error) {
	body, err := c.get(ctx, "/overview/trades", nil)
	if err != nil {
		return nil, err
	}

	var overview TradesOverview
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, &APIError{Kind: FailureMalformed, Endpoint: "/overview/trades", Err: err}
	}
	return &overview, nil
}
