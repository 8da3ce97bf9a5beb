package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
)

// ArchiverConfig configures the cold-archive loop.
type ArchiverConfig struct {
	// RetentionDays is how long trade records stay in the primary store
	// before being archived and pruned.
	RetentionDays int
	// Interval between archival passes.
	Interval time.Duration
	Logger   *slog.Logger
}

// blobWriter and blobStater are the slices of Writer and Reader the archiver
// needs; tests substitute in-memory fakes.
type blobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

type blobStater interface {
	Size(ctx context.Context, path string) (int64, bool, error)
}

// Archiver moves aged trade records out of the primary store: records older
// than the retention window are serialized to JSONL, uploaded to S3, and only
// pruned from the store after the uploaded object has been verified.
type Archiver struct {
	writer    blobWriter
	reader    blobStater
	trades    domain.TradeStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver over the given store and bucket client.
func NewArchiver(c *Client, trades domain.TradeStore, cfg ArchiverConfig) *Archiver {
	retentionDays := cfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 90
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Archiver{
		writer:    NewWriter(c),
		reader:    NewReader(c),
		trades:    trades,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    cfg.Logger.With(slog.String("component", "archiver")),
	}
}

// Run archives on every tick until ctx is cancelled. A failed pass is logged
// and retried on the next tick; the records simply stay in the primary store
// until then.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("archive loop started",
		slog.Duration("interval", a.interval),
		slog.Duration("retention", a.retention),
	)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-a.retention)
			archived, err := a.ArchiveBefore(ctx, cutoff)
			if err != nil {
				a.logger.Error("archive pass failed", slog.String("error", err.Error()))
				continue
			}
			if archived > 0 {
				a.logger.Info("archive pass completed", slog.Int64("records", archived))
			}
		}
	}
}

// ArchiveBefore archives and prunes all trade records created strictly before
// the cutoff. It returns the number of records archived. Pruning only happens
// after the uploaded object's stored size matches what was written, so a
// failed or truncated upload never loses records.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	records, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if int64(len(buf)) >= minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	size, ok, err := a.reader.Size(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive verify: %w", err)
	}
	if !ok || size != int64(len(buf)) {
		return 0, fmt.Errorf("s3blob: archive verify %s: stored %d bytes, wrote %d", path, size, len(buf))
	}

	pruned, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive prune: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("archived", len(records)),
		slog.Int64("pruned", pruned),
	)
	return int64(len(records)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// cutoff date:
//
//	archive/trades/2026-08-29.jsonl
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl", before.Format("2006-01-02"))
}

// marshalJSONL serializes records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
