// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	SnapshotUpdated EventType = "snapshot.updated"
	RefreshFailed   EventType = "snapshot.refresh_failed"
	CostStepped     EventType = "cost.stepped"
	AlertRaised     EventType = "alert.raised"

	MonitorStarted EventType = "monitor.started"
	MonitorStopped EventType = "monitor.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SnapshotUpdatedEvent is emitted after a token's snapshot is refreshed.
type SnapshotUpdatedEvent struct {
	BaseEvent
	Symbol         string
	TotalSupply    float64
	CurrentCost    int64
	Remaining      int64
	MintedPriceUSD string
	ParentPriceUSD string
	Status         string
	ProfitMargin   float64
}

// RefreshFailedEvent is emitted when a token could not be refreshed.
type RefreshFailedEvent struct {
	BaseEvent
	Symbol string
	Stage  string // "supply", "price"
	Error  error
}

// CostSteppedEvent is emitted when a token's unit mint cost changes tier.
type CostSteppedEvent struct {
	BaseEvent
	Symbol   string
	OldCost  int64
	NewCost  int64
	NextStep int64
}

// AlertRaisedEvent mirrors an alert produced by the alert manager.
type AlertRaisedEvent struct {
	BaseEvent
	AlertID string
	Symbol  string
	Kind    string
	Message string
}

type MonitorStartedEvent struct {
	BaseEvent
	Tokens   []string
	Interval time.Duration
}

type MonitorStoppedEvent struct {
	BaseEvent
	Reason string
}
