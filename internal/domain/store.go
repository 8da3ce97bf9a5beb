package domain

import (
	"context"
	"time"
)

// TradeStore is an append-only audit sink for trade records. The core loop
// writes fire-and-forget; only the API and the archiver read it back.
type TradeStore interface {
	Append(ctx context.Context, rec TradeRecord) error
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BalanceStore is an append-only audit sink for balance snapshots.
type BalanceStore interface {
	Append(ctx context.Context, snap BalanceSnapshot) error
	ListRecent(ctx context.Context, limit int) ([]BalanceSnapshot, error)
}
