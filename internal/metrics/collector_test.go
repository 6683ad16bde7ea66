package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eoeSnapshot(t *testing.T) monitor.Snapshot {
	t.Helper()
	tok, err := registry.Default().BySymbol("EOE")
	require.NoError(t, err)
	sched, err := tok.MintSchedule()
	require.NoError(t, err)

	info := sched.Info(2221)
	res := minting.CheckMintingProfitability(info.CurrentCost, "0.003", "0.001")
	return monitor.Snapshot{
		Token:          tok,
		TotalSupply:    2221,
		MintedPriceUSD: "0.003",
		ParentPriceUSD: "0.001",
		Info:           &info,
		Profitability:  &res,
	}
}

func TestObserveSnapshot(t *testing.T) {
	c := NewCollector(false)
	c.ObserveSnapshot(eoeSnapshot(t))

	assert.Equal(t, 2221.0, testutil.ToFloat64(c.supply.WithLabelValues("EOE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.mintCost.WithLabelValues("EOE", "A1A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.remaining.WithLabelValues("EOE")))
	assert.Equal(t, 2222.0, testutil.ToFloat64(c.nextStep.WithLabelValues("EOE")))
	assert.Equal(t, 0.003, testutil.ToFloat64(c.priceUSD.WithLabelValues("EOE")))
	assert.InDelta(t, 50.0, testutil.ToFloat64(c.profitMargin.WithLabelValues("EOE")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.profitStatus.WithLabelValues("EOE", "profit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.profitStatus.WithLabelValues("EOE", "loss")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.stale.WithLabelValues("EOE")))
}

func TestObserveRefresh(t *testing.T) {
	c := NewCollector(false)
	c.ObserveRefresh("EOE", "supply", nil)
	c.ObserveRefresh("EOE", "supply", nil)
	c.ObserveRefresh("EOE", "price", errors.New("timeout"))
	c.ObserveRefreshDuration(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.refreshTotal.WithLabelValues("EOE", "supply", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshTotal.WithLabelValues("EOE", "price", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.refreshDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(false)
	c.ObserveSnapshot(eoeSnapshot(t))
	c.RecordHTTPRequest("GET", "/api/tokens", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pubprinter_mint_cost{parent="A1A",symbol="EOE"} 2`)
	assert.Contains(t, string(body), `pubprinter_http_requests_total{code="200",method="GET",route="/api/tokens"} 1`)
}

func TestReset(t *testing.T) {
	c := NewCollector(false)
	c.ObserveSnapshot(eoeSnapshot(t))
	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.mintCost))
}
