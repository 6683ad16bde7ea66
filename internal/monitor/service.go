// internal/monitor/service.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/events"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SupplyReader reads a token's total supply in human units.
type SupplyReader interface {
	TotalSupply(ctx context.Context, token string, decimals uint8) (decimal.Decimal, error)
}

// PriceQuoter returns a token's USD price as a decimal string.
type PriceQuoter interface {
	PriceUSD(ctx context.Context, token string) (string, error)
}

// Recorder persists snapshots and alerts.
type Recorder interface {
	SaveSnapshot(ctx context.Context, s *models.Snapshot) error
	SaveAlert(ctx context.Context, a *models.Alert) error
}

// Pruner is implemented by recorders that can drop old history.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Observer receives refresh results, e.g. for metrics.
type Observer interface {
	ObserveSnapshot(s Snapshot)
	ObserveRefresh(symbol, stage string, err error)
	ObserveRefreshDuration(d time.Duration)
}

// Publisher is the event bus side used by the service.
type Publisher interface {
	Publish(event events.Event) error
}

type ServiceConfig struct {
	Registry  *registry.Registry
	Supply    SupplyReader
	Prices    PriceQuoter
	Evaluator minting.Evaluator

	GasCostUSD  float64
	Interval    time.Duration
	Concurrency int
	Retention   time.Duration

	Recorder  Recorder
	Observer  Observer
	Publisher Publisher
	Alerts    *AlertManager
	History   *History
	Logger    *zap.Logger
}

// Service polls supply and prices for every registered token and keeps the
// latest snapshot of each.
type Service struct {
	cfg    ServiceConfig
	cache  *minting.Cache
	logger *zap.Logger

	mu          sync.RWMutex
	snapshots   map[string]Snapshot
	lastRefresh time.Time
	refreshes   uint64
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Supply == nil {
		return nil, errors.New("supply reader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Evaluator.BreakevenBand <= 0 {
		cfg.Evaluator = minting.NewEvaluator(minting.DefaultBreakevenBand)
	}

	s := &Service{
		cfg:       cfg,
		cache:     minting.NewCache(0),
		logger:    cfg.Logger.Named("monitor"),
		snapshots: make(map[string]Snapshot),
	}

	if cfg.Alerts != nil {
		cfg.Alerts.AddHandler(s.handleAlert)
	}
	return s, nil
}

// Run refreshes immediately and then every Interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	symbols := make([]string, 0, len(s.cfg.Registry.All()))
	for _, t := range s.cfg.Registry.All() {
		symbols = append(symbols, t.Symbol)
	}
	s.publish(events.MonitorStartedEvent{
		BaseEvent: events.NewBase(events.MonitorStarted),
		Tokens:    symbols,
		Interval:  s.cfg.Interval,
	})
	s.logger.Info("Monitor started",
		zap.Strings("tokens", symbols),
		zap.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("Refresh completed with errors", zap.Error(err))
		}
		s.prune(ctx)

		select {
		case <-ctx.Done():
			s.publish(events.MonitorStoppedEvent{
				BaseEvent: events.NewBase(events.MonitorStopped),
				Reason:    "context done",
			})
			s.logger.Info("Monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

type reading struct {
	supply    decimal.Decimal
	supplyErr error
	price     string
	priceErr  error
}

// Refresh reads every token once and rebuilds all snapshots. Per-token
// failures keep the previous values and are returned joined.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	tokens := s.cfg.Registry.All()
	readings := make([]reading, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, tok := range tokens {
		g.Go(func() error {
			r := &readings[i]
			r.supply, r.supplyErr = s.cfg.Supply.TotalSupply(gctx, tok.Address, tok.Decimals)
			if s.cfg.Prices != nil {
				r.price, r.priceErr = s.cfg.Prices.PriceUSD(gctx, tok.Address)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	var errs []error

	s.mu.Lock()
	prices := make(map[string]string, len(tokens))
	next := make([]Snapshot, len(tokens))
	prevs := make([]*Snapshot, len(tokens))
	for i, tok := range tokens {
		if prev, ok := s.snapshots[tok.Symbol]; ok {
			p := prev
			prevs[i] = &p
		}
		next[i] = s.baseSnapshot(tok, readings[i], prevs[i], now)
		prices[tok.Symbol] = next[i].MintedPriceUSD

		if err := readings[i].supplyErr; err != nil {
			errs = append(errs, fmt.Errorf("%s supply: %w", tok.Symbol, err))
		}
		if err := readings[i].priceErr; err != nil {
			errs = append(errs, fmt.Errorf("%s price: %w", tok.Symbol, err))
		}
	}
	for i, tok := range tokens {
		if tok.Mintable() {
			s.applyEconomics(&next[i], prices[tok.Parent])
		}
		s.snapshots[tok.Symbol] = next[i]
	}
	s.lastRefresh = now
	s.refreshes++
	s.mu.Unlock()

	for i := range tokens {
		s.emit(ctx, prevs[i], next[i], readings[i])
	}

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveRefreshDuration(time.Since(start))
	}
	return errors.Join(errs...)
}

func (s *Service) baseSnapshot(tok registry.Token, r reading, prev *Snapshot, now time.Time) Snapshot {
	snap := Snapshot{Token: tok, UpdatedAt: now, FreshAt: now}

	switch {
	case r.supplyErr == nil:
		snap.SupplyText = r.supply.String()
		snap.TotalSupply = r.supply.InexactFloat64()
	case prev != nil:
		snap.SupplyText = prev.SupplyText
		snap.TotalSupply = prev.TotalSupply
		snap.Stale = true
		snap.LastError = r.supplyErr.Error()
	default:
		// Unreadable supply prices at the base cost.
		snap.Stale = true
		snap.LastError = r.supplyErr.Error()
	}

	switch {
	case r.priceErr == nil:
		snap.MintedPriceUSD = r.price
	case prev != nil && prev.MintedPriceUSD != "":
		snap.MintedPriceUSD = prev.MintedPriceUSD
		snap.Stale = true
		if snap.LastError == "" {
			snap.LastError = r.priceErr.Error()
		}
	default:
		if snap.LastError == "" {
			snap.LastError = r.priceErr.Error()
		}
	}

	if snap.Stale {
		snap.FreshAt = time.Time{}
		if prev != nil {
			snap.FreshAt = prev.FreshAt
		}
	}
	return snap
}

func (s *Service) applyEconomics(snap *Snapshot, parentPriceUSD string) {
	sched, err := snap.Token.MintSchedule()
	if err != nil {
		return
	}

	info := s.cache.Info(sched, snap.TotalSupply)
	snap.Info = &info
	snap.ParentPriceUSD = parentPriceUSD

	res := s.cfg.Evaluator.Check(info.CurrentCost, snap.MintedPriceUSD, parentPriceUSD)
	snap.Profitability = &res
	snap.Grade = res.Grade()

	if parent, ok := minting.ParsePriceUSD(parentPriceUSD); ok {
		snap.UnitCostUSD = float64(info.CurrentCost) * parent
		if m, ok := minting.GasAdjustedMargin(snap.UnitCostUSD, snap.MintedPriceUSD, s.cfg.GasCostUSD); ok {
			snap.GasMargin = &m
		}
	}
}

func (s *Service) emit(ctx context.Context, prev *Snapshot, snap Snapshot, r reading) {
	symbol := snap.Token.Symbol

	if r.supplyErr != nil {
		s.publish(events.RefreshFailedEvent{BaseEvent: events.NewBase(events.RefreshFailed), Symbol: symbol, Stage: "supply", Error: r.supplyErr})
	}
	if r.priceErr != nil {
		s.publish(events.RefreshFailedEvent{BaseEvent: events.NewBase(events.RefreshFailed), Symbol: symbol, Stage: "price", Error: r.priceErr})
	}

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveRefresh(symbol, "supply", r.supplyErr)
		if s.cfg.Prices != nil {
			s.cfg.Observer.ObserveRefresh(symbol, "price", r.priceErr)
		}
		s.cfg.Observer.ObserveSnapshot(snap)
	}

	ev := events.SnapshotUpdatedEvent{
		BaseEvent:      events.NewBase(events.SnapshotUpdated),
		Symbol:         symbol,
		TotalSupply:    snap.TotalSupply,
		MintedPriceUSD: snap.MintedPriceUSD,
		ParentPriceUSD: snap.ParentPriceUSD,
		Status:         string(snap.Status()),
	}
	if snap.Info != nil {
		ev.CurrentCost = snap.Info.CurrentCost
		ev.Remaining = snap.Info.RemainingAtCurrentCost
		if prev != nil && prev.Info != nil && prev.Info.CurrentCost != snap.Info.CurrentCost {
			s.publish(events.CostSteppedEvent{
				BaseEvent: events.NewBase(events.CostStepped),
				Symbol:    symbol,
				OldCost:   prev.Info.CurrentCost,
				NewCost:   snap.Info.CurrentCost,
				NextStep:  snap.Info.NextMintingStep,
			})
		}
	}
	if snap.Profitability != nil {
		ev.ProfitMargin = snap.Profitability.ProfitMargin
	}
	s.publish(ev)

	if s.cfg.History != nil {
		s.cfg.History.Add(snap)
	}
	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.SaveSnapshot(ctx, snap.Record()); err != nil {
			s.logger.Error("Failed to persist snapshot", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	if s.cfg.Alerts != nil {
		s.cfg.Alerts.Evaluate(prev, snap)
	}

	if snap.Info != nil {
		s.logger.Debug("Snapshot refreshed",
			zap.String("symbol", symbol),
			zap.Int64("cost", snap.Info.CurrentCost),
			zap.Int64("remaining", snap.Info.RemainingAtCurrentCost),
			zap.String("status", string(snap.Status())))
	}
}

func (s *Service) handleAlert(a Alert) {
	s.publish(events.AlertRaisedEvent{
		BaseEvent: events.NewBase(events.AlertRaised),
		AlertID:   a.ID,
		Symbol:    a.Symbol,
		Kind:      string(a.Type),
		Message:   a.Message,
	})
	if s.cfg.History != nil {
		_ = s.cfg.History.LogAlert(a)
	}
	if s.cfg.Recorder != nil {
		rec := &models.Alert{
			ID:        a.ID,
			Symbol:    a.Symbol,
			Kind:      string(a.Type),
			Severity:  a.Severity,
			Message:   a.Message,
			Margin:    a.ProfitMargin,
			CreatedAt: a.Timestamp,
		}
		if err := s.cfg.Recorder.SaveAlert(context.Background(), rec); err != nil {
			s.logger.Error("Failed to persist alert", zap.String("id", a.ID), zap.Error(err))
		}
	}
}

func (s *Service) prune(ctx context.Context) {
	pruner, ok := s.cfg.Recorder.(Pruner)
	if !ok || s.cfg.Retention <= 0 {
		return
	}
	if _, err := pruner.Prune(ctx, time.Now().Add(-s.cfg.Retention)); err != nil {
		s.logger.Warn("Failed to prune history", zap.Error(err))
	}
}

func (s *Service) publish(ev events.Event) {
	if s.cfg.Publisher == nil {
		return
	}
	if err := s.cfg.Publisher.Publish(ev); err != nil {
		s.logger.Debug("Event not published", zap.String("type", string(ev.Type())), zap.Error(err))
	}
}

// Snapshot returns the latest snapshot for symbol.
func (s *Service) Snapshot(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[symbol]
	return snap, ok
}

// Snapshots returns the latest snapshots in registry order.
func (s *Service) Snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.snapshots))
	for _, t := range s.cfg.Registry.All() {
		if snap, ok := s.snapshots[t.Symbol]; ok {
			out = append(out, snap)
		}
	}
	return out
}

// Status summarises the poller for health checks.
type Status struct {
	LastRefresh time.Time `json:"last_refresh"`
	Refreshes   uint64    `json:"refreshes"`
	Tokens      int       `json:"tokens"`
	Stale       []string  `json:"stale,omitempty"`
	CacheHits   uint64    `json:"cache_hits"`
	CacheMisses uint64    `json:"cache_misses"`
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		LastRefresh: s.lastRefresh,
		Refreshes:   s.refreshes,
		Tokens:      len(s.snapshots),
	}
	for _, t := range s.cfg.Registry.All() {
		if snap, ok := s.snapshots[t.Symbol]; ok && snap.Stale {
			st.Stale = append(st.Stale, t.Symbol)
		}
	}
	st.CacheHits, st.CacheMisses = s.cache.Stats()
	return st
}

func (s *Service) Alerts() *AlertManager { return s.cfg.Alerts }

func (s *Service) History() *History { return s.cfg.History }

func (s *Service) Registry() *registry.Registry { return s.cfg.Registry }

func (s *Service) Evaluator() minting.Evaluator { return s.cfg.Evaluator }
