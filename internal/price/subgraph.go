package price

import (
	"bytes"
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

const DefaultSubgraphURL = "https://graph.pulsechain.com/subgraphs/name/pulsechain/pulsex"

const tokenPriceQuery = `query TokenPrice($id: ID!) {
  token(id: $id) {
    id
    symbol
    derivedUSD
  }
}`

// Subgraph reads derivedUSD from the PulseX subgraph.
type Subgraph struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewSubgraph(url string, client *http.Client, logger *zap.Logger) *Subgraph {
	if url == "" {
		url = DefaultSubgraphURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Subgraph{url: url, client: client, logger: logger.Named("subgraph")}
}

func (s *Subgraph) Name() string { return "subgraph" }

type graphRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphResponse struct {
	Data struct {
		Token *struct {
			ID         string `json:"id"`
			Symbol     string `json:"symbol"`
			DerivedUSD string `json:"derivedUSD"`
		} `json:"token"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// PriceUSD returns the token's derivedUSD.
func (s *Subgraph) PriceUSD(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(graphRequest{
		Query:     tokenPriceQuery,
		Variables: map[string]interface{}{"id": strings.ToLower(token)},
	})
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(msg))
	}

	var out graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return "", fmt.Errorf("subgraph error: %s", out.Errors[0].Message)
	}
	if out.Data.Token == nil {
		return "", fmt.Errorf("%w: token %s not indexed", ErrNoPrice, token)
	}

	p, err := decimal.NewFromString(out.Data.Token.DerivedUSD)
	if err != nil || !p.IsPositive() {
		return "", fmt.Errorf("%w: derivedUSD %q", ErrNoPrice, out.Data.Token.DerivedUSD)
	}

	s.logger.Debug("Subgraph price", zap.String("token", token), zap.String("usd", out.Data.Token.DerivedUSD))
	return out.Data.Token.DerivedUSD, nil
}
