package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
)

type recordingSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedTrade() domain.TradeRecord {
	return domain.TradeRecord{
		ID:         "t-1",
		CreatedAt:  time.Now().UTC(),
		Instrument: "BTC/USDT",
		Quantity:   0.5,
		BuyVenue:   "binance",
		SellVenue:  "kucoin",
		Status:     domain.TradeStatusCompleted,
		PnL:        1.25,
	}
}

func TestNotifyTradeReachesAllSenders(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, discard())

	n.NotifyTrade(context.Background(), completedTrade())

	require.Len(t, a.titles, 1)
	require.Len(t, b.titles, 1)
	assert.Contains(t, a.titles[0], "BTC/USDT")
	assert.Contains(t, a.messages[0], "PnL: 1.2500 USD")
}

func TestEventFilterDropsUnlistedEvents(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventRisk}, discard())

	n.NotifyTrade(context.Background(), completedTrade())
	assert.Empty(t, s.titles, "completed trades are filtered out")

	n.NotifyRiskTripped(context.Background(), domain.RiskStatus{DailyPnL: -120, ConsecutiveFailed: 4})
	require.Len(t, s.titles, 1)
	assert.Contains(t, s.messages[0], "Trading halted")
}

func TestPartialTradeWarnsAboutUnhedgedPosition(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventPartial}, discard())

	rec := completedTrade()
	rec.Status = domain.TradeStatusPartial
	rec.PnL = 0
	rec.Error = "sell failed: timeout"
	n.NotifyTrade(context.Background(), rec)

	require.Len(t, s.messages, 1)
	assert.Contains(t, s.messages[0], "Unhedged position")
	assert.Contains(t, s.messages[0], "binance")
}

func TestSenderFailureDoesNotBlockOthers(t *testing.T) {
	broken := &recordingSender{name: "broken", err: errors.New("boom")}
	ok := &recordingSender{name: "ok"}
	n := NewNotifier([]Sender{broken, ok}, nil, discard())

	n.NotifyTrade(context.Background(), completedTrade())
	assert.Len(t, ok.titles, 1)
}

func TestTelegramSenderPostsSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = map[string]string{}
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := &TelegramSender{apiBase: srv.URL, token: "tok", chatID: "42"}
	require.NoError(t, sender.Send(context.Background(), "Title", "body"))

	assert.Equal(t, "/bottok/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Contains(t, gotBody["text"], "*Title*")
}

func TestDiscordSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	err := sender.Send(context.Background(), "Title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
