package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lucky2025-star/filon/internal/domain"
)

// ControlHandler serves the auto-trade toggle.
type ControlHandler struct {
	bot    BotState
	logger *slog.Logger
}

// NewControlHandler creates a ControlHandler over the trading loop.
func NewControlHandler(bot BotState, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{bot: bot, logger: logger}
}

// autoTradeRequest is the body for the toggle endpoint.
type autoTradeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoTrade flips automatic execution on or off. Enabling is rejected in
// monitor mode, where no executor exists.
// POST /api/autotrade
func (h *ControlHandler) SetAutoTrade(w http.ResponseWriter, r *http.Request) {
	var req autoTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.bot.SetAutoTrade(req.Enabled); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusConflict, "auto-trade is unavailable in monitor mode")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to toggle auto-trade")
		return
	}

	h.logger.InfoContext(r.Context(), "handler: auto-trade toggled",
		slog.Bool("enabled", req.Enabled),
		slog.String("remote_addr", r.RemoteAddr),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"auto_trade": req.Enabled})
}
