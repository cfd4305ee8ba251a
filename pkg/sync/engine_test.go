package sync

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/Ebang213/pharmaforge/pkg/cache"
	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/Ebang213/pharmaforge/pkg/provider"
	"github.com/Ebang213/pharmaforge/pkg/storage"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE feed_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL, external_id TEXT NOT NULL, title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '', published_at DATETIME, summary TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL, vendor_name TEXT NOT NULL DEFAULT '', status TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '', raw_payload TEXT NOT NULL DEFAULT '', ingested_at DATETIME NOT NULL,
	UNIQUE (source, external_id)
);
CREATE TABLE sync_status (
	source TEXT PRIMARY KEY, last_run_at DATETIME NOT NULL, last_success_at DATETIME,
	last_error_at DATETIME, last_error_message TEXT NOT NULL DEFAULT '',
	last_http_status INTEGER NOT NULL DEFAULT 0, items_fetched INTEGER NOT NULL DEFAULT 0,
	items_saved INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE vendors (
	id TEXT PRIMARY KEY, tenant_id TEXT NOT NULL, name TEXT NOT NULL, code TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '', risk_score INTEGER NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL DEFAULT 'low', approved BOOLEAN NOT NULL DEFAULT 0
);
`

func newTestGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return storage.NewGateway(db, slog.Default())
}

// fakeAdapter implements provider.Adapter for engine tests without
// hitting the network.
type fakeAdapter struct {
	source  model.Source
	items   []*model.FeedItem
	status  int
	err     error
	fetches int
}

func (f *fakeAdapter) SourceID() model.Source   { return f.source }
func (f *fakeAdapter) SourceName() string       { return string(f.source) }
func (f *fakeAdapter) Category() model.Category { return model.CategoryRecall }
func (f *fakeAdapter) CacheKey() string         { return cache.Key(string(f.source)) }
func (f *fakeAdapter) CacheTTL() time.Duration  { return time.Minute }
func (f *fakeAdapter) IsHealthy() bool          { return f.err == nil }
func (f *fakeAdapter) Fetch(ctx context.Context) ([]*model.FeedItem, int, error) {
	f.fetches++
	return f.items, f.status, f.err
}

func newItem(t *testing.T, extID string) *model.FeedItem {
	t.Helper()
	item, err := model.NewFeedItem(model.SourceFDARecalls, model.CategoryRecall, extID, "t", "", nil, "", "", model.StatusAbsent, nil, "", time.Now().UTC())
	require.NoError(t, err)
	return item
}

func TestSyncOne_UnknownSourceReturnsFailureResult(t *testing.T) {
	reg := provider.NewRegistry(provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"})
	e := NewEngine(reg, cache.NewMemoryCache(), newTestGateway(t), slog.Default())

	result := e.SyncOne(context.Background(), model.Source("not_real"), false)
	require.False(t, result.Success)
	require.NotEmpty(t, result.ErrorMessage)
}

func TestSyncOne_UnreachableSourceStillReturnsResult(t *testing.T) {
	reg := provider.NewRegistry(provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"})
	e := NewEngine(reg, cache.NewMemoryCache(), newTestGateway(t), slog.Default())

	// Force a fetch for a real registered source whose URL is
	// unreachable: SyncOne still returns a Result carrying the source
	// and a timestamp rather than failing outright.
	result := e.SyncOne(context.Background(), model.SourceFDARecalls, true)
	require.Equal(t, model.SourceFDARecalls, result.Source)
	require.False(t, result.UpdatedAt.IsZero())
}

func TestSyncAll_ReturnsOneResultPerSource(t *testing.T) {
	reg := provider.NewRegistry(provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"})
	e := NewEngine(reg, cache.NewMemoryCache(), newTestGateway(t), slog.Default())
	e.SyncDelay = 0

	out := e.SyncAll(context.Background(), true)
	require.Len(t, out.Results, 3)
	require.Contains(t, []string{"ok", "error"}, out.Status)
}

func TestGetHealth_DownWhenAllRequiredSourcesFailing(t *testing.T) {
	reg := provider.NewRegistry(provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"})
	gw := newTestGateway(t)
	e := NewEngine(reg, cache.NewMemoryCache(), gw, slog.Default())

	now := time.Now().UTC()
	for _, s := range []model.Source{model.SourceFDARecalls, model.SourceFDAShortages, model.SourceFDAWarningLetters} {
		errAt := now
		gw.UpdateSyncStatus(context.Background(), &model.SyncStatus{Source: s, LastRunAt: now, LastErrorAt: &errAt, LastErrorMessage: "boom"})
	}

	health, err := e.GetHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "down", health.OverallStatus)
	require.False(t, health.AllSourcesHealthy)
}

func TestGetHealth_HealthyWhenAllRequiredSourcesOK(t *testing.T) {
	reg := provider.NewRegistry(provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"}, provider.SourceURLs{Primary: "http://x"})
	gw := newTestGateway(t)
	e := NewEngine(reg, cache.NewMemoryCache(), gw, slog.Default())

	now := time.Now().UTC()
	for _, s := range []model.Source{model.SourceFDARecalls, model.SourceFDAShortages, model.SourceFDAWarningLetters} {
		gw.UpdateSyncStatus(context.Background(), &model.SyncStatus{Source: s, LastRunAt: now, LastSuccessAt: &now})
	}

	health, err := e.GetHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", health.OverallStatus)
	require.True(t, health.AllSourcesHealthy)
}
