package handler

import (
	"log/slog"
	"net/http"
)

// RiskHandler serves the risk gate state and the daily reset control.
type RiskHandler struct {
	gate   RiskController
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler over the risk gate.
func NewRiskHandler(gate RiskController, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{gate: gate, logger: logger}
}

// GetStatus returns the current risk state.
// GET /api/risk
func (h *RiskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gate.Status())
}

// Reset zeroes the daily stats and re-opens the circuit breaker. This is the
// only way a tripped breaker comes back; it is deliberately an explicit
// operator action.
// POST /api/risk/reset
func (h *RiskHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.gate.ResetDailyStats()
	h.logger.InfoContext(r.Context(), "handler: daily risk stats reset",
		slog.String("remote_addr", r.RemoteAddr),
	)
	writeJSON(w, http.StatusOK, h.gate.Status())
}
