package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/model"
)

// UpdateSyncStatus runs in a fresh transaction and swallows its own DB
// errors after logging, so sync-status telemetry never propagates an
// error into the caller (spec.md §4.4, §7).
func (g *Gateway) UpdateSyncStatus(ctx context.Context, s *model.SyncStatus) {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO sync_status (source, last_run_at, last_success_at, last_error_at, last_error_message, last_http_status, items_fetched, items_saved)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (source) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			last_success_at = COALESCE(EXCLUDED.last_success_at, sync_status.last_success_at),
			last_error_at = COALESCE(EXCLUDED.last_error_at, sync_status.last_error_at),
			last_error_message = EXCLUDED.last_error_message,
			last_http_status = EXCLUDED.last_http_status,
			items_fetched = EXCLUDED.items_fetched,
			items_saved = EXCLUDED.items_saved
	`, string(s.Source), s.LastRunAt, s.LastSuccessAt, s.LastErrorAt, s.LastErrorMessage, s.LastHTTPStatus, s.ItemsFetched, s.ItemsSaved)
	if err != nil {
		g.log.WarnContext(ctx, "sync status update failed, continuing", "source", s.Source, "error", err)
	}
}

// GetSyncStatus reads the current telemetry row for a source, or nil if
// the source has never synced.
func (g *Gateway) GetSyncStatus(ctx context.Context, source model.Source) (*model.SyncStatus, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT source, last_run_at, last_success_at, last_error_at, last_error_message, last_http_status, items_fetched, items_saved
		FROM sync_status WHERE source = $1
	`, string(source))
	return scanSyncStatus(row)
}

// ListSyncStatuses returns every source's telemetry row, used by
// GetHealth and the Correlation Builder's watchtower snapshot.
func (g *Gateway) ListSyncStatuses(ctx context.Context) ([]*model.SyncStatus, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT source, last_run_at, last_success_at, last_error_at, last_error_message, last_http_status, items_fetched, items_saved
		FROM sync_status
	`)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []*model.SyncStatus
	for rows.Next() {
		s, err := scanSyncStatusRows(rows)
		if err != nil {
			return nil, wrapDBErr(err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncStatus(row *sql.Row) (*model.SyncStatus, error) {
	s, err := scanSyncStatusFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, wrapDBErr(err)
}

func scanSyncStatusRows(rows *sql.Rows) (*model.SyncStatus, error) {
	return scanSyncStatusFrom(rows)
}

func scanSyncStatusFrom(r rowScanner) (*model.SyncStatus, error) {
	var src string
	var lastRun time.Time
	var lastSuccess, lastError sql.NullTime
	var errMsg string
	var httpStatus, fetched, saved int

	if err := r.Scan(&src, &lastRun, &lastSuccess, &lastError, &errMsg, &httpStatus, &fetched, &saved); err != nil {
		return nil, err
	}

	s := &model.SyncStatus{
		Source:           model.Source(src),
		LastRunAt:        lastRun,
		LastErrorMessage: errMsg,
		LastHTTPStatus:   httpStatus,
		ItemsFetched:     fetched,
		ItemsSaved:       saved,
	}
	if lastSuccess.Valid {
		t := lastSuccess.Time
		s.LastSuccessAt = &t
	}
	if lastError.Valid {
		t := lastError.Time
		s.LastErrorAt = &t
	}
	return s, nil
}

// CountFeedItems returns the total number of feed items persisted.
func (g *Gateway) CountFeedItems(ctx context.Context) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_items").Scan(&n)
	return n, wrapDBErr(err)
}

// CountActiveAlerts returns the number of feed items whose status is
// "current" (an active shortage alert).
func (g *Gateway) CountActiveAlerts(ctx context.Context) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_items WHERE status = $1", string(model.StatusCurrent)).Scan(&n)
	return n, wrapDBErr(err)
}

// CountVendors returns the total number of vendors registered across all
// tenants, used by GetHealth's entity-count breakdown (spec.md §6). Health
// is a process-wide view, not a tenant-scoped one, so this intentionally
// spans tenants rather than taking a tenant_id.
func (g *Gateway) CountVendors(ctx context.Context) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vendors").Scan(&n)
	return n, wrapDBErr(err)
}

// TopItems returns up to limit of the most recently published feed
// items, for the Correlation Builder's watchtower snapshot.
func (g *Gateway) TopItems(ctx context.Context, limit int) ([]model.TopItem, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT source, external_id, title, published_at FROM feed_items
		WHERE published_at IS NOT NULL
		ORDER BY published_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var out []model.TopItem
	for rows.Next() {
		var src, extID, title string
		var pub sql.NullTime
		if err := rows.Scan(&src, &extID, &title, &pub); err != nil {
			return nil, wrapDBErr(err)
		}
		ti := model.TopItem{Source: model.Source(src), ExternalID: extID, Title: title}
		if pub.Valid {
			t := pub.Time
			ti.PublishedAt = &t
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}
