// internal/price/dexscreener.go

package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultDexScreenerURL = "https://api.dexscreener.com/latest/dex"
	dexScreenerRateLimit  = 300 // requests per minute
)

// MaxSanePriceUSD bounds DexScreener quotes; anything at or above it is
// treated as a broken pair.
var MaxSanePriceUSD = decimal.NewFromInt(1000)

// DexScreenerResponse is the /tokens/{address} payload.
type DexScreenerResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairInfo `json:"pairs"`
}

// PairInfo describes one trading pair.
type PairInfo struct {
	ChainId     string        `json:"chainId"`
	DexId       string        `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   TokenInfo     `json:"baseToken"`
	QuoteToken  TokenInfo     `json:"quoteToken"`
	PriceNative string        `json:"priceNative"`
	PriceUsd    string        `json:"priceUsd"`
	Liquidity   LiquidityInfo `json:"liquidity"`
}

type TokenInfo struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type LiquidityInfo struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// DexScreener fetches USD quotes from the DexScreener public API.
type DexScreener struct {
	baseURL     string
	client      *http.Client
	logger      *zap.Logger
	rateLimiter *time.Ticker
}

// NewDexScreener creates a client. An empty baseURL uses the public API.
func NewDexScreener(baseURL string, client *http.Client, logger *zap.Logger) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DexScreener{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      client,
		logger:      logger.Named("dexscreener"),
		rateLimiter: time.NewTicker(time.Minute / dexScreenerRateLimit),
	}
}

func (d *DexScreener) Name() string { return "dexscreener" }

// SetRateLimit changes the request budget per minute.
func (d *DexScreener) SetRateLimit(perMinute int) {
	if perMinute <= 0 {
		return
	}
	d.rateLimiter.Reset(time.Minute / time.Duration(perMinute))
}

// Close stops the rate limiter.
func (d *DexScreener) Close() {
	d.rateLimiter.Stop()
}

// BestPair returns the pair with the most USD liquidity that carries a price.
func (d *DexScreener) BestPair(ctx context.Context, token string) (*PairInfo, error) {
	url := fmt.Sprintf("%s/tokens/%s", d.baseURL, token)

	response, err := d.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get token pairs: %w", err)
	}

	var bestPair *PairInfo
	maxLiquidity := -1.0
	for i := range response.Pairs {
		pair := &response.Pairs[i]
		if _, err := decimal.NewFromString(pair.PriceUsd); err != nil {
			continue
		}
		if pair.Liquidity.USD > maxLiquidity {
			maxLiquidity = pair.Liquidity.USD
			bestPair = pair
		}
	}

	if bestPair == nil {
		return nil, fmt.Errorf("%w: no priced pair for %s", ErrNoPrice, token)
	}

	d.logger.Debug("Best pair selected",
		zap.String("token", token),
		zap.String("pair_address", bestPair.PairAddress),
		zap.String("dex", bestPair.DexId),
		zap.Float64("liquidity_usd", bestPair.Liquidity.USD))

	return bestPair, nil
}

// PriceUSD returns the best pair's USD price as a decimal string.
func (d *DexScreener) PriceUSD(ctx context.Context, token string) (string, error) {
	pair, err := d.BestPair(ctx, token)
	if err != nil {
		return "", err
	}

	p, err := decimal.NewFromString(pair.PriceUsd)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNoPrice, pair.PriceUsd)
	}
	if !p.IsPositive() || p.GreaterThanOrEqual(MaxSanePriceUSD) {
		return "", fmt.Errorf("%w: %s", ErrOutOfRange, pair.PriceUsd)
	}
	return pair.PriceUsd, nil
}

func (d *DexScreener) doRequest(ctx context.Context, url string) (*DexScreenerResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.rateLimiter.C:
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var response DexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}
