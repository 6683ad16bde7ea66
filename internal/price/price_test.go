package price

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tokenAddr = "0xA7b295C715713487877427589A93f93BC608d240"

func newTestDexScreener(t *testing.T, handler http.HandlerFunc) *DexScreener {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDexScreener(srv.URL, srv.Client(), zap.NewNop())
	d.SetRateLimit(600000)
	t.Cleanup(d.Close)
	return d
}

func TestDexScreenerPicksDeepestPair(t *testing.T) {
	d := newTestDexScreener(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/"+tokenAddr, r.URL.Path)
		_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[
			{"pairAddress":"0x1","priceUsd":"0.10","liquidity":{"usd":500}},
			{"pairAddress":"0x2","priceUsd":"0.12","liquidity":{"usd":9000}},
			{"pairAddress":"0x3","liquidity":{"usd":99999}},
			{"pairAddress":"0x4","priceUsd":"0.11"}
		]}`))
	})

	pair, err := d.BestPair(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0x2", pair.PairAddress)

	p, err := d.PriceUSD(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.12", p)
}

func TestDexScreenerSanityRange(t *testing.T) {
	tests := []struct {
		name  string
		price string
	}{
		{"zero", "0"},
		{"negative", "-1"},
		{"too large", "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDexScreener(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(DexScreenerResponse{Pairs: []PairInfo{{PriceUsd: tt.price}}})
			})
			_, err := d.PriceUSD(context.Background(), tokenAddr)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestDexScreenerNoPairs(t *testing.T) {
	d := newTestDexScreener(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":null}`))
	})
	_, err := d.PriceUSD(context.Background(), tokenAddr)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestDexScreenerHTTPError(t *testing.T) {
	d := newTestDexScreener(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := d.PriceUSD(context.Background(), tokenAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSubgraphDerivedUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xa7b295c715713487877427589a93f93bc608d240", req.Variables["id"])
		assert.Contains(t, req.Query, "derivedUSD")
		_, _ = w.Write([]byte(`{"data":{"token":{"id":"0xa7b2","symbol":"EOE","derivedUSD":"0.0042"}}}`))
	}))
	defer srv.Close()

	p, err := NewSubgraph(srv.URL, srv.Client(), zap.NewNop()).PriceUSD(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.0042", p)
}

func TestSubgraphMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":null}}`))
	}))
	defer srv.Close()

	_, err := NewSubgraph(srv.URL, srv.Client(), zap.NewNop()).PriceUSD(context.Background(), tokenAddr)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestSubgraphErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"indexing"}]}`))
	}))
	defer srv.Close()

	_, err := NewSubgraph(srv.URL, srv.Client(), zap.NewNop()).PriceUSD(context.Background(), tokenAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing")
}

type stubSource struct {
	name     string
	price    string
	err      error
	failFor  int32
	attempts atomic.Int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) PriceUSD(context.Context, string) (string, error) {
	n := s.attempts.Add(1)
	if n <= s.failFor {
		return "", errors.New("temporary")
	}
	return s.price, s.err
}

func TestResolverRetriesThenSucceeds(t *testing.T) {
	primary := &stubSource{name: "primary", price: "1.5", failFor: 2}
	r := NewResolver(zap.NewNop(), 3, time.Millisecond, primary)

	p, err := r.PriceUSD(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.5", p)
	assert.Equal(t, int32(3), primary.attempts.Load())
}

func TestResolverFallsBack(t *testing.T) {
	primary := &stubSource{name: "primary", err: ErrNoPrice}
	fallback := &stubSource{name: "fallback", price: "0.25"}
	r := NewResolver(zap.NewNop(), 3, time.Millisecond, primary, nil, fallback)

	p, err := r.PriceUSD(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.25", p)
	assert.Equal(t, int32(3), primary.attempts.Load())
}

func TestResolverOutOfRangeIsNotRetried(t *testing.T) {
	primary := &stubSource{name: "primary", err: ErrOutOfRange}
	fallback := &stubSource{name: "fallback", price: "0.25"}
	r := NewResolver(zap.NewNop(), 3, time.Millisecond, primary, fallback)

	p, err := r.PriceUSD(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.25", p)
	assert.Equal(t, int32(1), primary.attempts.Load())
}

func TestResolverAllFail(t *testing.T) {
	r := NewResolver(zap.NewNop(), 2, time.Millisecond,
		&stubSource{name: "a", err: errors.New("down")},
		&stubSource{name: "b", err: errors.New("down")})

	p, err := r.PriceUSD(context.Background(), tokenAddr)
	assert.Empty(t, p)
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.Empty(t, r.Quote(context.Background(), tokenAddr))
}
