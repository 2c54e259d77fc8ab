// Package pricing fetches USD unit values for token symbols.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// SymbolMapping maps token symbols to CoinGecko IDs.
var SymbolMapping = map[string]string{
	"ETH":  "ethereum",
	"WETH": "weth",
	"WBTC": "wrapped-bitcoin",
	"DAI":  "dai",
	"USDC": "usd-coin",
	"USDT": "tether",
	"BAT":  "basic-attention-token",
	"MKR":  "maker",
	"UNI":  "uniswap",
	"LINK": "chainlink",
}

// CoinGeckoClient fetches USD prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// FetchPrices returns symbol -> USD price for the requested symbols.
// Symbols without a CoinGecko mapping or missing from the response are left out.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	known := lo.Filter(lo.Uniq(symbols), func(s string, _ int) bool {
		_, ok := SymbolMapping[s]
		if !ok {
			slog.Warn("no CoinGecko mapping for symbol", "symbol", s)
		}
		return ok
	})
	if len(known) == 0 {
		return map[string]float64{}, nil
	}

	ids := lo.Uniq(lo.Map(known, func(s string, _ int) string { return SymbolMapping[s] }))
	slices.Sort(ids)

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, strings.Join(ids, ","))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// Parse: {"weth":{"usd":2500},"dai":{"usd":1.0},...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	result := make(map[string]float64, len(known))
	for _, symbol := range known {
		prices, ok := raw[SymbolMapping[symbol]]
		if !ok {
			continue
		}
		if usd, ok := prices["usd"]; ok {
			result[symbol] = usd
		}
	}
	return result, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			slog.Warn("CoinGecko rate limited, backing off", "attempt", attempt+1)
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
