package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// SnapshotThrottler coalesces snapshot notifications so a refresh of many
// tokens redraws the dashboard once.
type SnapshotThrottler struct {
	mu             sync.Mutex
	updateInterval time.Duration
	lastUpdate     time.Time
	pending        *time.Time
	outputCh       chan<- tea.Msg
	logger         *zap.Logger

	droppedUpdates uint64
	sentUpdates    uint64
}

func NewSnapshotThrottler(updateInterval time.Duration, outputCh chan<- tea.Msg, logger *zap.Logger) *SnapshotThrottler {
	return &SnapshotThrottler{
		updateInterval: updateInterval,
		outputCh:       outputCh,
		logger:         logger,
	}
}

// Notify records that snapshots changed at the given time. It is safe for
// concurrent use.
func (st *SnapshotThrottler) Notify(at time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	if now.Sub(st.lastUpdate) < st.updateInterval {
		st.pending = &at
		st.droppedUpdates++
		return
	}

	select {
	case st.outputCh <- SnapshotsChangedMsg{At: at}:
		st.lastUpdate = now
		st.sentUpdates++
		st.pending = nil
	default:
		st.pending = &at
		st.droppedUpdates++
		st.logger.Debug("UI channel full, snapshot update kept pending")
	}
}

// FlushPending sends the pending notification once the interval has passed.
func (st *SnapshotThrottler) FlushPending() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.pending == nil {
		return
	}
	now := time.Now()
	if now.Sub(st.lastUpdate) < st.updateInterval {
		return
	}

	select {
	case st.outputCh <- SnapshotsChangedMsg{At: *st.pending}:
		st.lastUpdate = now
		st.sentUpdates++
		st.pending = nil
	default:
	}
}

// GetStats returns how many notifications were sent and coalesced.
func (st *SnapshotThrottler) GetStats() (sent, dropped uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sentUpdates, st.droppedUpdates
}

func (st *SnapshotThrottler) HasPending() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pending != nil
}
