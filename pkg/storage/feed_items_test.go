package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGateway(db, slog.Default()), mock
}

func newTestItem(t *testing.T, externalID string) *model.FeedItem {
	t.Helper()
	item, err := model.NewFeedItem(model.SourceFDAShortages, model.CategoryShortage, externalID, "title", "", nil, "", "", model.StatusAbsent, nil, "", time.Now().UTC())
	require.NoError(t, err)
	return item
}

func TestUpsertFeedItems_Empty(t *testing.T) {
	g, _ := newTestGateway(t)
	n, err := g.UpsertFeedItems(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestUpsertFeedItems_SkipsDuplicateWithoutPoisoningBatch(t *testing.T) {
	g, mock := newTestGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_feed_item_0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO feed_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("RELEASE SAVEPOINT sp_feed_item_0").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("SAVEPOINT sp_feed_item_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO feed_items").WillReturnError(&pqLikeErr{"duplicate key value violates unique constraint"})
	mock.ExpectExec("ROLLBACK TO SAVEPOINT sp_feed_item_1").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	items := []*model.FeedItem{newTestItem(t, "a"), newTestItem(t, "b")}
	n, err := g.UpsertFeedItems(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// pqLikeErr mimics the string shape isUniqueViolation's sqlite fallback
// path matches against, without depending on pq's internal Error type.
type pqLikeErr struct{ msg string }

func (e *pqLikeErr) Error() string { return e.msg }
