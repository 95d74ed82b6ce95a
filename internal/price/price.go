// Package price quotes USD prices for the tokens reported in balance
// summaries, with a short-lived cache in front of the CoinGecko API.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the CoinGecko simple-price endpoint template. The
// placeholder receives a comma-separated coin ID list.
const DefaultAPIURL = "https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd"

// CoinGecko coin IDs for the assets the bot deals in.
const (
	CoinXDAI = "xdai"
	CoinOLAS = "autonolas"
)

// DefaultCacheTTL keeps quotes long enough to survive a burst of chat
// commands without hammering the free API tier.
const DefaultCacheTTL = 5 * time.Minute

// Quoter fetches and caches USD token prices. Requests are rate
// limited to stay inside the CoinGecko free tier.
type Quoter struct {
	apiURL     string
	httpClient *http.Client
	cache      *gocache.Cache
	limiter    *rate.Limiter
}

// NewQuoter creates a price quoter with the default cache TTL.
func NewQuoter() *Quoter {
	return NewQuoterWithTTL(DefaultCacheTTL)
}

// NewQuoterWithTTL creates a price quoter with a custom cache TTL.
func NewQuoterWithTTL(ttl time.Duration) *Quoter {
	return &Quoter{
		apiURL:     DefaultAPIURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      gocache.New(ttl, 10*time.Minute),
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// SetAPIURL overrides the API endpoint template. Used by tests.
func (q *Quoter) SetAPIURL(url string) {
	q.apiURL = url
}

// USDPrice returns the cached USD price for a CoinGecko coin ID,
// fetching on a cache miss.
func (q *Quoter) USDPrice(ctx context.Context, coinID string) (float64, error) {
	if cached, found := q.cache.Get(coinID); found {
		if price, ok := cached.(float64); ok {
			return price, nil
		}
	}

	prices, err := q.fetch(ctx, []string{coinID})
	if err != nil {
		return 0, err
	}

	price, ok := prices[coinID]
	if !ok {
		return 0, fmt.Errorf("no USD price for %s", coinID)
	}
	return price, nil
}

// USDPrices returns prices for several coin IDs in one request,
// serving what it can from cache.
func (q *Quoter) USDPrices(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(coinIDs))
	var missing []string

	for _, id := range coinIDs {
		if cached, found := q.cache.Get(id); found {
			if price, ok := cached.(float64); ok {
				out[id] = price
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := q.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, price := range fetched {
		out[id] = price
	}
	return out, nil
}

func (q *Quoter) fetch(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(q.apiURL, strings.Join(coinIDs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read price response: %w", err)
	}

	var decoded map[string]map[string]float64
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	out := make(map[string]float64, len(decoded))
	for id, currencies := range decoded {
		price, ok := currencies["usd"]
		if !ok {
			continue
		}
		out[id] = price
		q.cache.Set(id, price, gocache.DefaultExpiration)
	}

	logging.Debug("fetched token prices", "coins", strings.Join(coinIDs, ","))
	return out, nil
}
