package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"go.uber.org/zap"
)

// AlertType represents different types of alerts
type AlertType string

const (
	AlertTypeProfitOpportunity AlertType = "profit_opportunity"
	AlertTypeProfitLost        AlertType = "profit_lost"
	AlertTypeStepApproaching   AlertType = "step_approaching"
	AlertTypeCostStepped       AlertType = "cost_stepped"
	AlertTypeStale             AlertType = "stale_data"
)

// Alert represents a triggered alert
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // "info", "warning", "critical"

	CurrentCost  int64   `json:"current_cost,omitempty"`
	Remaining    int64   `json:"remaining,omitempty"`
	ProfitMargin float64 `json:"profit_margin,omitempty"`
}

// AlertConfig holds alert configuration
type AlertConfig struct {
	// StepApproachingUnits raises a warning when at most this many units
	// remain at the current cost. Zero disables it.
	StepApproachingUnits int64 `json:"step_approaching_units"`

	// StaleAfter raises an alert when a token keeps failing to refresh for
	// this long. Zero disables it.
	StaleAfter time.Duration `json:"stale_after"`

	// Cooldown suppresses repeats of the same alert type per token.
	Cooldown time.Duration `json:"cooldown"`
}

// DefaultAlertConfig returns default alert configuration
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		StepApproachingUnits: 50,
		StaleAfter:           5 * time.Minute,
		Cooldown:             10 * time.Minute,
	}
}

// AlertHandler is called when an alert is triggered
type AlertHandler func(alert Alert)

// AlertManager turns snapshot transitions into alerts.
type AlertManager struct {
	mu     sync.RWMutex
	config AlertConfig
	logger *zap.Logger

	alerts    []Alert
	maxAlerts int
	lastFired map[string]time.Time // symbol|type -> last alert time

	handlers []AlertHandler
}

func NewAlertManager(config AlertConfig, logger *zap.Logger) *AlertManager {
	return &AlertManager{
		config:    config,
		logger:    logger.Named("alerts"),
		alerts:    make([]Alert, 0, 64),
		maxAlerts: 500,
		lastFired: make(map[string]time.Time),
	}
}

// AddHandler registers a callback invoked synchronously for each alert.
func (am *AlertManager) AddHandler(handler AlertHandler) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.handlers = append(am.handlers, handler)
}

// Evaluate compares a token's new snapshot with the previous one. prev may
// be nil for the first observation.
func (am *AlertManager) Evaluate(prev *Snapshot, cur Snapshot) []Alert {
	if !cur.Mintable() {
		return nil
	}

	am.mu.Lock()
	now := cur.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}

	var triggered []Alert
	fire := func(a Alert) {
		key := cur.Token.Symbol + "|" + string(a.Type)
		if last, ok := am.lastFired[key]; ok && am.config.Cooldown > 0 && now.Sub(last) < am.config.Cooldown {
			return
		}
		am.lastFired[key] = now

		a.ID = uuid.New().String()
		a.Timestamp = now
		a.Symbol = cur.Token.Symbol
		a.CurrentCost = cur.Info.CurrentCost
		a.Remaining = cur.Info.RemainingAtCurrentCost
		if cur.Profitability != nil {
			a.ProfitMargin = cur.Profitability.ProfitMargin
		}
		triggered = append(triggered, a)
		am.store(a)
	}

	status := cur.Status()
	prevStatus := minting.StatusUnknown
	if prev != nil {
		prevStatus = prev.Status()
	}

	if status == minting.StatusProfit && prevStatus != minting.StatusProfit {
		fire(Alert{
			Type:     AlertTypeProfitOpportunity,
			Severity: "info",
			Message: fmt.Sprintf("Minting %s is profitable: %+.2f%% at cost %d %s",
				cur.Token.Symbol, cur.Profitability.ProfitMargin, cur.Info.CurrentCost, cur.Token.Parent),
		})
	}

	if prevStatus == minting.StatusProfit && (status == minting.StatusBreakeven || status == minting.StatusLoss) {
		fire(Alert{
			Type:     AlertTypeProfitLost,
			Severity: "warning",
			Message:  fmt.Sprintf("Minting %s is no longer profitable (%s)", cur.Token.Symbol, status),
		})
	}

	if prev != nil && prev.Info != nil && cur.Info.CurrentCost != prev.Info.CurrentCost {
		fire(Alert{
			Type:     AlertTypeCostStepped,
			Severity: "info",
			Message: fmt.Sprintf("%s mint cost moved from %d to %d %s",
				cur.Token.Symbol, prev.Info.CurrentCost, cur.Info.CurrentCost, cur.Token.Parent),
		})
	}

	if am.config.StepApproachingUnits > 0 &&
		cur.Info.RemainingAtCurrentCost > 0 &&
		cur.Info.RemainingAtCurrentCost <= am.config.StepApproachingUnits {
		fire(Alert{
			Type:     AlertTypeStepApproaching,
			Severity: "warning",
			Message: fmt.Sprintf("%s: %d units left at cost %d before step %d",
				cur.Token.Symbol, cur.Info.RemainingAtCurrentCost, cur.Info.CurrentCost, cur.Info.NextMintingStep),
		})
	}

	if cur.Stale && am.config.StaleAfter > 0 && !cur.FreshAt.IsZero() &&
		now.Sub(cur.FreshAt) >= am.config.StaleAfter {
		fire(Alert{
			Type:     AlertTypeStale,
			Severity: "critical",
			Message:  fmt.Sprintf("%s data is stale: %s", cur.Token.Symbol, cur.LastError),
		})
	}

	handlers := append([]AlertHandler(nil), am.handlers...)
	am.mu.Unlock()

	for _, a := range triggered {
		am.log(a)
		for _, h := range handlers {
			h(a)
		}
	}
	return triggered
}

func (am *AlertManager) store(alert Alert) {
	if len(am.alerts) >= am.maxAlerts {
		am.alerts = am.alerts[1:]
	}
	am.alerts = append(am.alerts, alert)
}

func (am *AlertManager) log(alert Alert) {
	fields := []zap.Field{
		zap.String("type", string(alert.Type)),
		zap.String("symbol", alert.Symbol),
		zap.String("message", alert.Message),
	}
	switch alert.Type {
	case AlertTypeProfitOpportunity:
		am.logger.Info("Profit opportunity", append(fields, zap.Float64("margin", alert.ProfitMargin))...)
	case AlertTypeStepApproaching:
		am.logger.Warn("Step approaching", append(fields, zap.Int64("remaining", alert.Remaining))...)
	default:
		switch alert.Severity {
		case "critical":
			am.logger.Error("Alert triggered", fields...)
		case "warning":
			am.logger.Warn("Alert triggered", fields...)
		default:
			am.logger.Info("Alert triggered", fields...)
		}
	}
}

// GetRecentAlerts returns up to limit most recent alerts, oldest first.
func (am *AlertManager) GetRecentAlerts(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.alerts) {
		limit = len(am.alerts)
	}
	result := make([]Alert, limit)
	copy(result, am.alerts[len(am.alerts)-limit:])
	return result
}

// GetAlertsBySymbol returns alerts for a specific token
func (am *AlertManager) GetAlertsBySymbol(symbol string) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	var result []Alert
	for _, alert := range am.alerts {
		if alert.Symbol == symbol {
			result = append(result, alert)
		}
	}
	return result
}

func (am *AlertManager) UpdateConfig(config AlertConfig) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.config = config
}

func (am *AlertManager) GetConfig() AlertConfig {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.config
}

// ClearHistory resets cooldowns.
func (am *AlertManager) ClearHistory() {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.lastFired = make(map[string]time.Time)
}
