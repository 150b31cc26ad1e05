package mockx

import (
	"encoding/json"
	"sort"
)

// BalanceEntry is one raw holding row from /balance. Every numeric field is
// optional: the backend has shipped several generations of this payload and
// none of them agree on which fields are present.
type BalanceEntry struct {
	Asset      string   `json:"asset"`
	Free       *float64 `json:"free"`
	Used       *float64 `json:"used"`
	Locked     *float64 `json:"locked"` // older alias for used
	Total      *float64 `json:"total"`
	QuotePrice *float64 `json:"quote_price"`
}

// FlexID decodes order ids that arrive as either JSON numbers or strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// OrderPayload is one raw order row from /orders. Timestamps are epoch
// milliseconds; ts_finish is absent while the order is still working.
type OrderPayload struct {
	ID     FlexID `json:"id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Type   string `json:"type"`
	Status string `json:"status"`

	LimitPrice   *float64 `json:"limit_price"`
	Price        *float64 `json:"price"`
	Amount       *float64 `json:"amount"`
	ActualFilled *float64 `json:"actual_filled"`

	ReservedNotionLeft *float64 `json:"reserved_notion_left"`
	ActualNotion       *float64 `json:"actual_notion"`
	ReservedFeeLeft    *float64 `json:"reserved_fee_left"`
	ActualFee          *float64 `json:"actual_fee"`
	NotionCurrency     string   `json:"notion_currency"`
	FeeCurrency        string   `json:"fee_currency"`

	TsCreate *int64 `json:"ts_create"`
	TsUpdate *int64 `json:"ts_update"`
	TsFinish *int64 `json:"ts_finish"`
}

// TradesOverview is the /overview/trades payload: per-side aggregates keyed
// metric -> base asset -> quote asset -> value. Values arrive as JSON strings
// or numbers depending on backend version, hence json.Number.
type TradesOverview struct {
	Buy  TradesSide `json:"BUY"`
	Sell TradesSide `json:"SELL"`
}

type TradesSide struct {
	Count    map[string]map[string]json.Number `json:"count"`
	Amount   map[string]map[string]json.Number `json:"amount"`
	Notional map[string]map[string]json.Number `json:"notional"`
	Fee      map[string]map[string]json.Number `json:"fee"`
}

// BaseAssets returns every base asset that appears in either side's amount
// block, excluding the given quote asset.
func (o *TradesOverview) BaseAssets(quote string) []string {
	seen := map[string]bool{}
	for _, side := range []TradesSide{o.Buy, o.Sell} {
		for base := range side.Amount {
			if base != quote {
				seen[base] = true
			}
		}
	}
	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// normalizeBalance accepts the shapes /balance has produced over time:
// a bare list, a list nested under "assets"/"data"/"balances", or an
// asset-keyed mapping. Anything else is malformed.
func normalizeBalance(raw []byte) ([]BalanceEntry, error) {
	var list []BalanceEntry
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}

	for _, key := range []string{"assets", "data", "balances"} {
		if inner, ok := wrapper[key]; ok {
			if err := json.Unmarshal(inner, &list); err == nil {
				return list, nil
			}
		}
	}

	// Mapping style: {"BTC": {...}, "USDT": {...}}
	entries := make([]BalanceEntry, 0, len(wrapper))
	for asset, rawEntry := range wrapper {
		var e BalanceEntry
		if err := json.Unmarshal(rawEntry, &e); err != nil {
			return nil, err
		}
		e.Asset = asset
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Asset < entries[j].Asset })
	return entries, nil
}

// tickerEntry matches both the CCXT ticker schema ("last") and the
// simplified one ("info.price").
type tickerEntry struct {
	Symbol string       `json:"symbol"`
	Last   *json.Number `json:"last"`
	Info   *struct {
		Price *json.Number `json:"price"`
	} `json:"info"`
}

func (t *tickerEntry) price() (float64, bool) {
	if t.Last != nil {
		if f, err := t.Last.Float64(); err == nil {
			return f, true
		}
	}
	if t.Info != nil && t.Info.Price != nil {
		if f, err := t.Info.Price.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// normalizeTickers builds {pair: last_price} from either a dict or a list
// payload. Entries with an unknown shape are skipped so one odd ticker does
// not take down the whole price map.
func normalizeTickers(raw []byte) (map[string]float64, error) {
	prices := make(map[string]float64)

	var asMap map[string]tickerEntry
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for symbol, entry := range asMap {
			if entry.Symbol == "" {
				entry.Symbol = symbol
			}
			if p, ok := entry.price(); ok {
				prices[entry.Symbol] = p
			}
		}
		return prices, nil
	}

	var asList []tickerEntry
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, err
	}
	for _, entry := range asList {
		if entry.Symbol == "" {
			continue
		}
		if p, ok := entry.price(); ok {
			prices[entry.Symbol] = p
		}
	}
	return prices, nil
}
