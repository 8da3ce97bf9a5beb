package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucky2025-star/filon/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, created_at, instrument, quantity, buy_venue, sell_venue,
	status, pnl, error,
	buy_order_id, buy_avg_price, buy_filled_qty,
	sell_order_id, sell_avg_price, sell_filled_qty`

// Append inserts one terminal trade record.
func (s *TradeStore) Append(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, created_at, instrument, quantity, buy_venue, sell_venue,
			status, pnl, error,
			buy_order_id, buy_avg_price, buy_filled_qty,
			sell_order_id, sell_avg_price, sell_filled_qty
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14, $15
		) ON CONFLICT (id) DO NOTHING`

	var buyID, sellID *string
	var buyAvg, buyQty, sellAvg, sellQty *float64
	if rec.BuyLeg != nil {
		buyID, buyAvg, buyQty = &rec.BuyLeg.OrderID, &rec.BuyLeg.AvgPrice, &rec.BuyLeg.FilledQty
	}
	if rec.SellLeg != nil {
		sellID, sellAvg, sellQty = &rec.SellLeg.OrderID, &rec.SellLeg.AvgPrice, &rec.SellLeg.FilledQty
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.Instrument, rec.Quantity, rec.BuyVenue, rec.SellVenue,
		string(rec.Status), rec.PnL, rec.Error,
		buyID, buyAvg, buyQty,
		sellID, sellAvg, sellQty,
	)
	if err != nil {
		return fmt.Errorf("postgres: append trade %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the newest trade records, most recent first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// ListBefore returns all trades created strictly before the given time,
// oldest first, for archiving.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades created before the given time and returns
// the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var records []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var status string
		var buyID, sellID *string
		var buyAvg, buyQty, sellAvg, sellQty *float64

		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Instrument, &rec.Quantity, &rec.BuyVenue, &rec.SellVenue,
			&status, &rec.PnL, &rec.Error,
			&buyID, &buyAvg, &buyQty,
			&sellID, &sellAvg, &sellQty,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		rec.Status = domain.TradeStatus(status)
		if buyID != nil {
			rec.BuyLeg = &domain.LegResult{OrderID: *buyID, AvgPrice: *buyAvg, FilledQty: *buyQty}
		}
		if sellID != nil {
			rec.SellLeg = &domain.LegResult{OrderID: *sellID, AvgPrice: *sellAvg, FilledQty: *sellQty}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
