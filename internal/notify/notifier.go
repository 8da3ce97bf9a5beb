// Package notify delivers operational alerts about trades and risk events to
// external channels (Telegram, Discord). Delivery is best-effort: a failed or
// filtered notification never influences trading.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lucky2025-star/filon/internal/domain"
)

// Event types accepted by the filter configuration.
const (
	EventTrade   = "trade"
	EventPartial = "trade_partial"
	EventRisk    = "risk"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier formats bot events and dispatches them to all registered senders,
// honoring the configured event-type filter. An empty filter allows
// everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyTrade reports a terminal trade record. Completed trades go out as
// "trade" events; partial and failed ones as "trade_partial", which operators
// typically keep enabled since a partial trade leaves unhedged inventory.
func (n *Notifier) NotifyTrade(ctx context.Context, rec domain.TradeRecord) {
	event := EventTrade
	title := fmt.Sprintf("Trade completed: %s", rec.Instrument)
	if rec.Status != domain.TradeStatusCompleted {
		event = EventPartial
		title = fmt.Sprintf("Trade %s: %s", rec.Status, rec.Instrument)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Buy %s / Sell %s, qty %g\n", rec.BuyVenue, rec.SellVenue, rec.Quantity)
	fmt.Fprintf(&b, "Status: %s\n", rec.Status)
	if rec.Status == domain.TradeStatusCompleted {
		fmt.Fprintf(&b, "PnL: %.4f USD\n", rec.PnL)
	}
	if rec.Status == domain.TradeStatusPartial {
		fmt.Fprintf(&b, "Unhedged position of %g on %s needs manual attention\n", rec.Quantity, rec.BuyVenue)
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
	}
	fmt.Fprintf(&b, "ID: %s", rec.ID)

	n.notify(ctx, event, title, b.String())
}

// NotifyRiskTripped reports that the circuit breaker fired and trading is
// halted until an explicit daily reset.
func (n *Notifier) NotifyRiskTripped(ctx context.Context, status domain.RiskStatus) {
	msg := fmt.Sprintf(
		"Trading halted.\nDaily PnL: %.4f USD\nConsecutive failures: %d\nTrades today: %d\nReset daily stats to resume.",
		status.DailyPnL, status.ConsecutiveFailed, status.TradesRecorded,
	)
	n.notify(ctx, EventRisk, "Risk circuit breaker tripped", msg)
}

func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return
	}

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
