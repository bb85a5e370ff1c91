// Package market supplies point-in-time quotes for trading pairs. The
// production source is Bitkub's public ticker endpoint; tests and the
// simulation driver plug in scripted sources instead.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ksred/bitkub-trader/internal/types"
)

// Source yields a fresh snapshot for one pair. A failure for one pair must
// not abort the others; the engine logs and skips the pair for that cycle.
type Source interface {
	Quote(ctx context.Context, pair types.Pair) (types.MarketSnapshot, error)
}

const defaultBaseURL = "https://api.bitkub.com/api/market"

// BitkubClient talks to the unauthenticated Bitkub market API.
type BitkubClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBitkubClient() *BitkubClient {
	return &BitkubClient{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewBitkubClientWithBaseURL is used by tests to point at a stub server.
func NewBitkubClientWithBaseURL(baseURL string) *BitkubClient {
	c := NewBitkubClient()
	c.baseURL = baseURL
	return c
}

type tickerResponse struct {
	Error  int                     `json:"error"`
	Result map[string]tickerResult `json:"result"`
}

type tickerResult struct {
	Last          float64 `json:"last"`
	LowestAsk     float64 `json:"lowestAsk"`
	HighestBid    float64 `json:"highestBid"`
	PercentChange float64 `json:"percentChange"`
	QuoteVolume   float64 `json:"quoteVolume"`
	High24Hr      float64 `json:"high24hr"`
	Low24Hr       float64 `json:"low24hr"`
}

// Quote fetches the ticker for one pair and maps it onto a snapshot.
func (c *BitkubClient) Quote(ctx context.Context, pair types.Pair) (types.MarketSnapshot, error) {
	sym := bitkubSymbol(pair)
	endpoint := fmt.Sprintf("%s/ticker?sym=%s", c.baseURL, url.QueryEscape(sym))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("building ticker request for %s: %w", pair, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("fetching ticker for %s: %w", pair, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.MarketSnapshot{}, fmt.Errorf("ticker request for %s returned status %d", pair, resp.StatusCode)
	}

	var body tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("decoding ticker for %s: %w", pair, err)
	}
	if body.Error != 0 {
		return types.MarketSnapshot{}, fmt.Errorf("bitkub api error %d for %s", body.Error, pair)
	}

	ticker, ok := body.Result[sym]
	if !ok {
		return types.MarketSnapshot{}, fmt.Errorf("no ticker for %s in response", pair)
	}

	return types.MarketSnapshot{
		Pair:      pair,
		LastPrice: ticker.Last,
		BestBid:   ticker.HighestBid,
		BestAsk:   ticker.LowestAsk,
		High24h:   ticker.High24Hr,
		Low24h:    ticker.Low24Hr,
		Volume24h: ticker.QuoteVolume,
		Change24h: ticker.PercentChange,
		Timestamp: time.Now(),
	}, nil
}

// bitkubSymbol maps a pair to Bitkub's quote-first symbol form.
func bitkubSymbol(pair types.Pair) string {
	switch pair {
	case types.PairBTCTHB:
		return "THB_BTC"
	case types.PairETHTHB:
		return "THB_ETH"
	}
	return string(pair)
}
