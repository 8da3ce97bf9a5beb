package handler

import (
	"net/http"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
)

// BotState is the slice of the trading loop the API reads and controls.
// *bot.Loop satisfies it.
type BotState interface {
	Snapshot() (domain.PriceSnapshot, bool)
	Opportunities() []domain.Opportunity
	AutoTradeEnabled() bool
	SetAutoTrade(enabled bool) error
}

// RiskController exposes the risk gate to the API. *risk.Gate satisfies it.
type RiskController interface {
	Status() domain.RiskStatus
	ResetDailyStats()
	TradeLog(limit int) []domain.TradeRecord
}

// StatusHandler serves the bot-wide status summary.
type StatusHandler struct {
	bot     BotState
	gate    RiskController
	mode    string
	started time.Time
}

// NewStatusHandler creates a StatusHandler. mode is the configured run mode
// (monitor, trade or full).
func NewStatusHandler(bot BotState, gate RiskController, mode string) *StatusHandler {
	return &StatusHandler{
		bot:     bot,
		gate:    gate,
		mode:    mode,
		started: time.Now().UTC(),
	}
}

// GetStatus returns the run mode, uptime, auto-trade state and a risk summary.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, fresh := h.bot.Snapshot()

	resp := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"auto_trade":     h.bot.AutoTradeEnabled(),
		"opportunities":  len(h.bot.Opportunities()),
		"risk":           h.gate.Status(),
	}
	if fresh {
		resp["last_poll"] = snap.TakenAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
