package handler

import (
	"log/slog"
	"net/http"

	"github.com/lucky2025-star/filon/internal/domain"
)

// TradeHandler serves trade history and balance snapshots. Both stores may be
// nil when persistence is disabled; trade history then falls back to the risk
// gate's in-memory log of the current day.
type TradeHandler struct {
	trades   domain.TradeStore
	balances domain.BalanceStore
	gate     RiskController
	logger   *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades domain.TradeStore, balances domain.BalanceStore, gate RiskController, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades:   trades,
		balances: balances,
		gate:     gate,
		logger:   logger,
	}
}

// ListTrades returns recent trade records, newest first.
// GET /api/trades?limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	if h.trades == nil {
		// In-memory log is newest last; reverse for the API contract.
		log := h.gate.TradeLog(limit)
		out := make([]domain.TradeRecord, 0, len(log))
		for i := len(log) - 1; i >= 0; i-- {
			out = append(out, log[i])
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	records, err := h.trades.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if records == nil {
		records = []domain.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ListBalances returns recent balance snapshots, newest first.
// GET /api/balances?limit=50
func (h *TradeHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		writeError(w, http.StatusServiceUnavailable, "balance history requires persistence")
		return
	}

	snaps, err := h.balances.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list balances failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list balances")
		return
	}
	if snaps == nil {
		snaps = []domain.BalanceSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}
