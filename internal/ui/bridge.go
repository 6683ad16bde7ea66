package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/pubprinter/internal/events"
	"go.uber.org/zap"
)

// Bridge forwards monitor events from the bus into the tea program.
type Bridge struct {
	ch        chan tea.Msg
	throttler *SnapshotThrottler
	subs      []events.Subscription
	interval  time.Duration
	logger    *zap.Logger
}

// NewBridge subscribes to the bus. Snapshot updates are throttled to one
// redraw per interval; alerts are forwarded immediately.
func NewBridge(bus *events.Bus, interval time.Duration, logger *zap.Logger) *Bridge {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	logger = logger.Named("ui-bridge")
	ch := make(chan tea.Msg, 64)
	b := &Bridge{
		ch:        ch,
		throttler: NewSnapshotThrottler(interval, ch, logger),
		interval:  interval,
		logger:    logger,
	}

	b.subs = append(b.subs,
		bus.SubscribeFunc(events.SnapshotUpdated, func(_ context.Context, e events.Event) error {
			b.throttler.Notify(e.Timestamp())
			return nil
		}),
		bus.SubscribeFunc(events.AlertRaised, func(_ context.Context, e events.Event) error {
			ev, ok := e.(events.AlertRaisedEvent)
			if !ok {
				return nil
			}
			b.send(AlertMsg{Symbol: ev.Symbol, Kind: ev.Kind, Message: ev.Message})
			return nil
		}),
	)
	return b
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		b.logger.Debug("UI channel full, message dropped")
	}
}

// Messages is the channel the dashboard listens on.
func (b *Bridge) Messages() <-chan tea.Msg {
	return b.ch
}

// Run flushes coalesced snapshot updates until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.throttler.FlushPending()
		}
	}
}

// Close unsubscribes from the bus.
func (b *Bridge) Close() {
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
}
