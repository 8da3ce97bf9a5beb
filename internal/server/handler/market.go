package handler

import (
	"net/http"

	"github.com/lucky2025-star/filon/internal/domain"
)

// MarketHandler serves the aggregated market view: the latest cross-venue
// price snapshot and the opportunities detected on it.
type MarketHandler struct {
	bot BotState
}

// NewMarketHandler creates a MarketHandler over the trading loop.
func NewMarketHandler(bot BotState) *MarketHandler {
	return &MarketHandler{bot: bot}
}

// GetSnapshot returns the most recent price snapshot across all venues.
// GET /api/snapshot
func (h *MarketHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.bot.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListOpportunities returns the opportunities from the most recent cycle,
// best spread first. An empty cycle yields an empty list, not an error.
// GET /api/opportunities
func (h *MarketHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := h.bot.Opportunities()
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, opps)
}
