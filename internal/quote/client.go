package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client fetches quotes from an IEX-style HTTP API:
// GET {base}/stock/{symbol}/quote?token={key} returning companyName and
// latestPrice. The HTTP client carries a bounded timeout so a slow
// upstream surfaces as ErrUnavailable instead of hanging the trade.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a Client for the given API base URL and key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol      string      `json:"symbol"`
	CompanyName string      `json:"companyName"`
	LatestPrice json.Number `json:"latestPrice"`
}

// Lookup implements Gateway.
func (c *Client) Lookup(ctx context.Context, symbol string) (Quote, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return Quote{}, ErrUnknownSymbol
	}

	u := fmt.Sprintf("%s/stock/%s/quote?token=%s", c.baseURL, url.PathEscape(sym), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Quote{}, ErrUnknownSymbol
	case resp.StatusCode != http.StatusOK:
		return Quote{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if payload.LatestPrice == "" {
		// The API answers 200 with an empty body for some unknown symbols.
		return Quote{}, ErrUnknownSymbol
	}
	price, err := decimal.NewFromString(payload.LatestPrice.String())
	if err != nil {
		return Quote{}, fmt.Errorf("%w: bad price %q", ErrUnavailable, payload.LatestPrice)
	}

	return Quote{Symbol: sym, Name: payload.CompanyName, Price: price}, nil
}
