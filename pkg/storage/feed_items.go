package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/Ebang213/pharmaforge/pkg/model"
	"github.com/lib/pq"
)

// UpsertFeedItems inserts each item in its own savepoint; a
// unique-constraint violation on (source, external_id) discards that
// item and continues with the rest — a single bad item must not poison
// the batch (spec.md §4.4, testable property 1 & S6).
func (g *Gateway) UpsertFeedItems(ctx context.Context, items []*model.FeedItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapDBErr(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	newCount := 0
	for i, item := range items {
		spName := savepointName(i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+spName); err != nil {
			return newCount, wrapDBErr(err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO feed_items
				(source, external_id, title, url, published_at, summary, category, vendor_name, status, tags, raw_payload, ingested_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			string(item.Source), item.ExternalID, item.Title, item.URL, item.PublishedAt, item.Summary,
			string(item.Category), item.VendorName, string(item.Status), strings.Join(item.Tags, ","),
			item.RawPayload, item.IngestedAt,
		)

		if err != nil {
			if isUniqueViolation(err) {
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+spName); rbErr != nil {
					return newCount, wrapDBErr(rbErr)
				}
				continue
			}
			return newCount, wrapDBErr(err)
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+spName); err != nil {
			return newCount, wrapDBErr(err)
		}
		newCount++
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapDBErr(err)
	}
	return newCount, nil
}

func savepointName(i int) string {
	return "sp_feed_item_" + strconv.Itoa(i)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqlite (used in integration tests) reports this class of error as
	// a plain string; match it so the same UpsertFeedItems code path is
	// exercised against both drivers.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return model.NewError(model.ErrDBUnavailable, err.Error())
	}
	return err
}
