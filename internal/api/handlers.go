package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rovshanmuradov/pubprinter/internal/chain"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"github.com/rovshanmuradov/pubprinter/internal/preflight"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"go.uber.org/zap"
)

const maxHistoryLimit = 1000

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNotMintable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, preflight.ErrInvalidAmount),
		errors.Is(err, preflight.ErrTooManyDigits),
		errors.Is(err, chain.ErrInvalidAddress):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.monitor.Status()
	status := "ok"
	switch {
	case st.Refreshes == 0:
		status = "starting"
	case len(st.Stale) > 0:
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"refreshes":    st.Refreshes,
		"last_refresh": st.LastRefresh,
		"stale":        st.Stale,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	snaps := s.monitor.Snapshots()
	if r.URL.Query().Get("mintable") == "true" {
		filtered := snaps[:0:0]
		for _, snap := range snaps {
			if snap.Mintable() {
				filtered = append(filtered, snap)
			}
		}
		snaps = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": snaps,
		"count":  len(snaps),
	})
}

// lookup resolves {symbol} and its latest snapshot. The snapshot is the
// zero value before the first refresh.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (registry.Token, monitor.Snapshot, bool) {
	tok, err := s.monitor.Registry().BySymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return registry.Token{}, monitor.Snapshot{}, false
	}
	snap, _ := s.monitor.Snapshot(tok.Symbol)
	return tok, snap, true
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tok, snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if snap.Token.Symbol == "" {
		snap.Token = tok
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snap,
		"children": s.monitor.Registry().Children(tok.Symbol),
	})
}

// supplyParam reads ?supply=, defaulting to the snapshot supply.
func supplyParam(r *http.Request, snap monitor.Snapshot) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("supply"))
	if raw == "" {
		return snap.TotalSupply, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *Server) schedule(w http.ResponseWriter, tok registry.Token) (minting.Schedule, bool) {
	sched, err := tok.MintSchedule()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return minting.Schedule{}, false
	}
	return sched, true
}

func (s *Server) handleMintInfo(w http.ResponseWriter, r *http.Request) {
	tok, snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sched, ok := s.schedule(w, tok)
	if !ok {
		return
	}
	supply, ok := supplyParam(r, snap)
	if !ok {
		writeError(w, http.StatusBadRequest, "supply must be a non-negative number")
		return
	}
	writeJSON(w, http.StatusOK, sched.Info(supply))
}

func (s *Server) handleBatchCost(w http.ResponseWriter, r *http.Request) {
	tok, snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sched, ok := s.schedule(w, tok)
	if !ok {
		return
	}
	supply, ok := supplyParam(r, snap)
	if !ok {
		writeError(w, http.StatusBadRequest, "supply must be a non-negative number")
		return
	}
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}
	if err := minting.ValidateBatchAmount(amount); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	info := sched.Info(supply)
	breakdown := sched.BatchCost(supply, amount)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":       tok.Symbol,
		"parent":       tok.Parent,
		"total_supply": supply,
		"amount":       amount,
		"total_cost":   breakdown.TotalCost,
		"breakdown":    breakdown.Breakdown,
		"average_cost": breakdown.AverageCost(),
		"crosses_step": minting.CrossesStep(info, float64(amount)),
	})
}

func (s *Server) handleProfitability(w http.ResponseWriter, r *http.Request) {
	tok, snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sched, ok := s.schedule(w, tok)
	if !ok {
		return
	}

	q := r.URL.Query()
	supply, ok := supplyParam(r, snap)
	if !ok {
		writeError(w, http.StatusBadRequest, "supply must be a non-negative number")
		return
	}
	minted := snap.MintedPriceUSD
	if v := q.Get("minted_price"); v != "" {
		minted = v
	}
	parent := snap.ParentPriceUSD
	if v := q.Get("parent_price"); v != "" {
		parent = v
	}

	cost := sched.Info(supply).CurrentCost
	res := s.monitor.Evaluator().Check(cost, minted, parent)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":           tok.Symbol,
		"current_cost":     cost,
		"minted_price_usd": minted,
		"parent_price_usd": parent,
		"profit_margin":    res.ProfitMargin,
		"status":           res.Status,
		"is_profitable":    res.IsProfitable,
		"grade":            res.Grade(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tok, _, ok := s.lookup(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	var since time.Time
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = t
	}

	var history []models.Snapshot
	if s.store != nil {
		rows, err := s.store.ListSnapshots(r.Context(), models.SnapshotFilter{Symbol: tok.Symbol, Since: since, Limit: limit})
		if err != nil {
			s.logger.Error("Failed to list history", zap.String("symbol", tok.Symbol), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		history = rows
	} else if h := s.monitor.History(); h != nil {
		for _, snap := range h.Recent(tok.Symbol, limit) {
			if !since.IsZero() && snap.UpdatedAt.Before(since) {
				continue
			}
			history = append(history, *snap.Record())
		}
	}
	if history == nil {
		history = []models.Snapshot{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    tok.Symbol,
		"snapshots": history,
		"count":     len(history),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	am := s.monitor.Alerts()
	if am == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": []monitor.Alert{}, "count": 0})
		return
	}

	var alerts []monitor.Alert
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		alerts = am.GetAlertsBySymbol(strings.ToUpper(sym))
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		alerts = am.GetRecentAlerts(limit)
	}
	if alerts == nil {
		alerts = []monitor.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type preflightRequest struct {
	Amount      string   `json:"amount"`
	Wallet      string   `json:"wallet"`
	TotalSupply *float64 `json:"total_supply,omitempty"`
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	if s.preflight == nil {
		writeError(w, http.StatusNotImplemented, "preflight is not configured")
		return
	}
	tok, snap, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body preflightRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	supply := snap.TotalSupply
	if body.TotalSupply != nil {
		supply = *body.TotalSupply
	}

	res, err := s.preflight.Check(r.Context(), preflight.Request{
		Symbol:      tok.Symbol,
		Amount:      body.Amount,
		Wallet:      body.Wallet,
		TotalSupply: supply,
	})
	if err != nil {
		code := statusFor(err)
		if code >= 500 {
			s.logger.Warn("Preflight failed", zap.String("symbol", tok.Symbol), zap.Error(err))
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
