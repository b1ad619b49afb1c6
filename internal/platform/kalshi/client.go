// Package kalshi is the REST client for the Kalshi exchange API, normalized
// to the common Market shape.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/polyarb/arbscan/internal/domain"
	"github.com/polyarb/arbscan/internal/platform/resilient"
)

const defaultPageLimit = 100

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL  string
	apiKey   string
	rest     *resilient.Client
	maxPages int
}

// NewClient creates a Kalshi client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
// apiKey is passed through as a bearer credential; an empty key sends
// unauthenticated requests, which Kalshi accepts for public market data.
// maxPages caps the pagination loop against a misbehaving cursor.
func NewClient(baseURL, apiKey string, policy resilient.Policy, maxPages int, logger *slog.Logger) *Client {
	if maxPages <= 0 {
		maxPages = 100
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		rest:     resilient.New(domain.PlatformKalshi, policy, logger),
		maxPages: maxPages,
	}
}

// ListMarkets pages through all open markets, following the server cursor
// until it is empty or the page cap is hit.
func (c *Client) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	var out []domain.Market
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		params := url.Values{}
		params.Set("limit", fmt.Sprint(defaultPageLimit))
		params.Set("status", "open")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.doGet(ctx, "/markets?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("kalshi: list markets: %w", err)
		}

		var resp struct {
			Markets []APIMarket `json:"markets"`
			Cursor  string      `json:"cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("kalshi: decode markets: %w", err)
		}

		for i := range resp.Markets {
			out = append(out, resp.Markets[i].ToDomain())
		}

		if resp.Cursor == "" || len(resp.Markets) == 0 {
			return out, nil
		}
		cursor = resp.Cursor
	}
	return out, nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	body, err := c.doGet(ctx, "/markets/"+url.PathEscape(ticker))
	if err != nil {
		return domain.Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market APIMarket `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("kalshi: decode market: %w", err)
	}
	return resp.Market.ToDomain(), nil
}

// Platform identifies this client's venue.
func (c *Client) Platform() domain.Platform { return domain.PlatformKalshi }

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	return c.rest.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	})
}
