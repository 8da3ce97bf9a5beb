package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
)

type fakeBlob struct {
	objects map[string][]byte
	putErr  error
	// sizeOverride fakes a truncated upload when non-zero.
	sizeOverride int64
}

func (f *fakeBlob) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	f.objects[path] = buf.Bytes()
	return nil
}

func (f *fakeBlob) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return f.Put(ctx, path, data, "")
}

func (f *fakeBlob) Size(ctx context.Context, path string) (int64, bool, error) {
	data, ok := f.objects[path]
	if !ok {
		return 0, false, nil
	}
	if f.sizeOverride != 0 {
		return f.sizeOverride, true, nil
	}
	return int64(len(data)), true, nil
}

type archiveTradeStore struct {
	records   []domain.TradeRecord
	deleted   bool
	deleteErr error
}

func (s *archiveTradeStore) Append(ctx context.Context, rec domain.TradeRecord) error {
	return errors.New("not implemented")
}

func (s *archiveTradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *archiveTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, r := range s.records {
		if r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *archiveTradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deleted = true
	var kept []domain.TradeRecord
	var n int64
	for _, r := range s.records {
		if r.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func testArchiver(blob *fakeBlob, store domain.TradeStore) *Archiver {
	return &Archiver{
		writer:    blob,
		reader:    blob,
		trades:    store,
		retention: 90 * 24 * time.Hour,
		interval:  time.Hour,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)).With(slog.String("component", "archiver")),
	}
}

func tradeAt(id string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID: id, CreatedAt: at, Instrument: "BTC/USDT",
		Quantity: 1, BuyVenue: "binance", SellVenue: "kucoin",
		Status: domain.TradeStatusCompleted, PnL: 1,
	}
}

func TestArchiveBeforeUploadsAndPrunes(t *testing.T) {
	cutoff := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &archiveTradeStore{records: []domain.TradeRecord{
		tradeAt("old-1", cutoff.Add(-48*time.Hour)),
		tradeAt("old-2", cutoff.Add(-24*time.Hour)),
		tradeAt("new-1", cutoff.Add(24*time.Hour)),
	}}
	blob := &fakeBlob{objects: map[string][]byte{}}
	a := testArchiver(blob, store)

	archived, err := a.ArchiveBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), archived)

	data, ok := blob.objects["archive/trades/2026-05-01.jsonl"]
	require.True(t, ok, "archive object written under the cutoff date")
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "one JSONL line per archived record")
	assert.Contains(t, lines[0], `"old-1"`)

	require.Len(t, store.records, 1, "recent records stay in the store")
	assert.Equal(t, "new-1", store.records[0].ID)
}

func TestArchiveBeforeNothingToDo(t *testing.T) {
	store := &archiveTradeStore{}
	blob := &fakeBlob{objects: map[string][]byte{}}
	a := testArchiver(blob, store)

	archived, err := a.ArchiveBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, archived)
	assert.Empty(t, blob.objects)
}

func TestArchiveBeforeFailedUploadKeepsRecords(t *testing.T) {
	cutoff := time.Now().UTC()
	store := &archiveTradeStore{records: []domain.TradeRecord{
		tradeAt("old-1", cutoff.Add(-time.Hour)),
	}}
	blob := &fakeBlob{objects: map[string][]byte{}, putErr: errors.New("access denied")}
	a := testArchiver(blob, store)

	_, err := a.ArchiveBefore(context.Background(), cutoff)
	require.Error(t, err)
	assert.False(t, store.deleted, "no pruning after a failed upload")
	assert.Len(t, store.records, 1)
}

func TestArchiveBeforeTruncatedUploadKeepsRecords(t *testing.T) {
	cutoff := time.Now().UTC()
	store := &archiveTradeStore{records: []domain.TradeRecord{
		tradeAt("old-1", cutoff.Add(-time.Hour)),
	}}
	blob := &fakeBlob{objects: map[string][]byte{}, sizeOverride: 3}
	a := testArchiver(blob, store)

	_, err := a.ArchiveBefore(context.Background(), cutoff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify")
	assert.False(t, store.deleted, "size mismatch blocks pruning")
}
