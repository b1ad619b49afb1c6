// Package polymarket is the REST client for the Polymarket Gamma API, which
// provides market discovery and pricing, normalized to the common Market shape.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/polyarb/arbscan/internal/domain"
	"github.com/polyarb/arbscan/internal/platform/resilient"
)

const defaultPageSize = 100

// GammaClient is the REST client for the Polymarket Gamma API.
type GammaClient struct {
	baseURL  string
	rest     *resilient.Client
	maxPages int
}

// NewGammaClient creates a Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// maxPages caps the offset pagination loop.
func NewGammaClient(baseURL string, policy resilient.Policy, maxPages int, logger *slog.Logger) *GammaClient {
	if maxPages <= 0 {
		maxPages = 100
	}
	return &GammaClient{
		baseURL:  baseURL,
		rest:     resilient.New(domain.PlatformPolymarket, policy, logger),
		maxPages: maxPages,
	}
}

// ListMarkets pages through all active markets by advancing the offset until
// the server returns a short page or the page cap is hit.
func (g *GammaClient) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	var out []domain.Market
	offset := 0

	for page := 0; page < g.maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(defaultPageSize))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("active", "true")
		params.Set("closed", "false")

		body, err := g.doGet(ctx, "/markets?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
		}

		var apiMarkets []APIMarket
		if err := json.Unmarshal(body, &apiMarkets); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
		}

		for i := range apiMarkets {
			out = append(out, apiMarkets[i].ToDomain())
		}

		if len(apiMarkets) < defaultPageSize {
			return out, nil
		}
		offset += defaultPageSize
	}
	return out, nil
}

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return apiMarket.ToDomain(), nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: %w: slug=%s", domain.ErrNotFound, slug)
	}
	return apiMarkets[0].ToDomain(), nil
}

// Platform identifies this client's venue.
func (g *GammaClient) Platform() domain.Platform { return domain.PlatformPolymarket }

func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	return g.rest.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}
