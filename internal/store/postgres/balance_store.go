package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucky2025-star/filon/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL. The per-venue
// balance map is stored as one JSONB document per snapshot; snapshots are
// only ever read back whole.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a BalanceStore backed by the given connection pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Append inserts one balance snapshot.
func (s *BalanceStore) Append(ctx context.Context, snap domain.BalanceSnapshot) error {
	venues, err := json.Marshal(snap.Venues)
	if err != nil {
		return fmt.Errorf("postgres: encode balance snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO balance_snapshots (taken_at, venues) VALUES ($1, $2)`,
		snap.TakenAt, venues,
	)
	if err != nil {
		return fmt.Errorf("postgres: append balance snapshot: %w", err)
	}
	return nil
}

// ListRecent returns the newest balance snapshots, most recent first.
func (s *BalanceStore) ListRecent(ctx context.Context, limit int) ([]domain.BalanceSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT taken_at, venues FROM balance_snapshots ORDER BY taken_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list balance snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.BalanceSnapshot
	for rows.Next() {
		var snap domain.BalanceSnapshot
		var venues []byte
		if err := rows.Scan(&snap.TakenAt, &venues); err != nil {
			return nil, fmt.Errorf("postgres: scan balance snapshot: %w", err)
		}
		if err := json.Unmarshal(venues, &snap.Venues); err != nil {
			return nil, fmt.Errorf("postgres: decode balance snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
