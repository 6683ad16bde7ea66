package monitor

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/logger"
	"go.uber.org/zap"
)

// AlertCSVHeaders is the header row of the alert journal.
func AlertCSVHeaders() []string {
	return []string{"timestamp", "id", "symbol", "type", "severity", "current_cost", "remaining", "profit_margin", "message"}
}

// ToCSV renders the alert as a journal row.
func (a Alert) ToCSV() []string {
	return []string{
		a.Timestamp.UTC().Format(time.RFC3339),
		a.ID,
		a.Symbol,
		string(a.Type),
		a.Severity,
		strconv.FormatInt(a.CurrentCost, 10),
		strconv.FormatInt(a.Remaining, 10),
		strconv.FormatFloat(a.ProfitMargin, 'f', 2, 64),
		a.Message,
	}
}

// History keeps the most recent snapshots per token in memory and appends
// alerts to an optional CSV journal.
type History struct {
	mu        sync.RWMutex
	perSymbol map[string][]Snapshot
	max       int
	journal   *logger.CSVJournal
	logger    *zap.Logger
}

// NewHistory keeps up to max snapshots per token. An empty journalPath
// disables the alert journal.
func NewHistory(max int, journalPath string, zapLogger *zap.Logger) (*History, error) {
	if max <= 0 {
		max = 720
	}
	h := &History{
		perSymbol: make(map[string][]Snapshot),
		max:       max,
		logger:    zapLogger.Named("history"),
	}
	if journalPath == "" {
		return h, nil
	}

	journal, err := logger.OpenCSVJournal(journalPath, AlertCSVHeaders(),
		logger.JournalOptions{FlushInterval: 30 * time.Second, MaxPending: 16}, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert journal: %w", err)
	}
	h.journal = journal
	h.logger.Debug("Alert journal opened", zap.String("path", journalPath))
	return h, nil
}

func (h *History) Add(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.perSymbol[snap.Token.Symbol]
	if len(list) >= h.max {
		list = list[1:]
	}
	h.perSymbol[snap.Token.Symbol] = append(list, snap)
}

// Recent returns up to limit snapshots for symbol, oldest first.
func (h *History) Recent(symbol string, limit int) []Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.perSymbol[symbol]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Snapshot, limit)
	copy(out, list[len(list)-limit:])
	return out
}

// LogAlert appends the alert to the journal when one is configured.
func (h *History) LogAlert(a Alert) error {
	if h.journal == nil {
		return nil
	}
	if err := h.journal.Append(a.ToCSV()); err != nil {
		h.logger.Error("Failed to journal alert", zap.String("id", a.ID), zap.Error(err))
		return err
	}
	return nil
}

func (h *History) Close() error {
	if h.journal == nil {
		return nil
	}
	return h.journal.Close()
}
