// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
)

const namespace = "pubprinter"

// Collector owns a private prometheus registry with the dashboard metrics.
type Collector struct {
	registry *prometheus.Registry

	supply          *prometheus.GaugeVec
	mintCost        *prometheus.GaugeVec
	remaining       *prometheus.GaugeVec
	nextStep        *prometheus.GaugeVec
	priceUSD        *prometheus.GaugeVec
	profitMargin    *prometheus.GaugeVec
	profitStatus    *prometheus.GaugeVec
	stale           *prometheus.GaugeVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector. Go runtime and process metrics are
// registered when withRuntime is set.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_total_supply",
			Help:      "Total supply in token units",
		}, []string{"symbol"}),
		mintCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mint_cost",
			Help:      "Current unit mint cost in parent tokens",
		}, []string{"symbol", "parent"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mint_remaining_at_cost",
			Help:      "Units left before the next cost step",
		}, []string{"symbol"}),
		nextStep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mint_next_step_supply",
			Help:      "Supply at which the cost increases",
		}, []string{"symbol"}),
		priceUSD: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_price_usd",
			Help:      "Last known market price in USD",
		}, []string{"symbol"}),
		profitMargin: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mint_profit_margin_percent",
			Help:      "Minting profit margin in percent",
		}, []string{"symbol"}),
		profitStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mint_profit_status",
			Help:      "1 for the current profitability status of a token",
		}, []string{"symbol", "status"}),
		stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_stale",
			Help:      "1 when the token shows values from an earlier refresh",
		}, []string{"symbol"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Supply and price reads by result",
		}, []string{"symbol", "stage", "result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full refresh cycle",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.supply, c.mintCost, c.remaining, c.nextStep, c.priceUSD,
		c.profitMargin, c.profitStatus, c.stale,
		c.refreshTotal, c.refreshDuration, c.httpRequests, c.httpDuration,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry exposes the underlying registry, e.g. for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Reset clears all labelled series.
func (c *Collector) Reset() {
	for _, v := range []*prometheus.GaugeVec{
		c.supply, c.mintCost, c.remaining, c.nextStep, c.priceUSD,
		c.profitMargin, c.profitStatus, c.stale,
	} {
		v.Reset()
	}
	c.refreshTotal.Reset()
	c.httpRequests.Reset()
	c.httpDuration.Reset()
}

var statuses = []minting.Status{
	minting.StatusProfit,
	minting.StatusBreakeven,
	minting.StatusLoss,
	minting.StatusUnknown,
}

// ObserveSnapshot updates the per-token gauges.
func (c *Collector) ObserveSnapshot(s monitor.Snapshot) {
	symbol := s.Token.Symbol

	c.supply.WithLabelValues(symbol).Set(s.TotalSupply)
	if p, ok := minting.ParsePriceUSD(s.MintedPriceUSD); ok {
		c.priceUSD.WithLabelValues(symbol).Set(p)
	}
	c.stale.WithLabelValues(symbol).Set(boolGauge(s.Stale))

	if s.Info == nil {
		return
	}
	c.mintCost.WithLabelValues(symbol, s.Token.Parent).Set(float64(s.Info.CurrentCost))
	c.remaining.WithLabelValues(symbol).Set(float64(s.Info.RemainingAtCurrentCost))
	c.nextStep.WithLabelValues(symbol).Set(float64(s.Info.NextMintingStep))

	status := s.Status()
	for _, st := range statuses {
		c.profitStatus.WithLabelValues(symbol, string(st)).Set(boolGauge(st == status))
	}
	if s.Profitability != nil && status != minting.StatusUnknown {
		c.profitMargin.WithLabelValues(symbol).Set(s.Profitability.ProfitMargin)
	}
}

// ObserveRefresh counts one supply or price read.
func (c *Collector) ObserveRefresh(symbol, stage string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.refreshTotal.WithLabelValues(symbol, stage, result).Inc()
}

func (c *Collector) ObserveRefreshDuration(d time.Duration) {
	c.refreshDuration.Observe(d.Seconds())
}

// RecordHTTPRequest records an API request against its route pattern.
func (c *Collector) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ monitor.Observer = (*Collector)(nil)
