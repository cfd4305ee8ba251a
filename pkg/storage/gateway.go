package storage

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq"
)

// Gateway is the Persistence Gateway. Every unit of work uses its own
// transaction; there are no cross-request transactions (spec.md §5).
// Tenant isolation is enforced entirely by the WHERE tenant_id = $1
// predicate on every tenant-scoped query below; there is no secondary
// in-process check.
type Gateway struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens a *sql.DB against dsn using the lib/pq driver and wraps it
// in a Gateway. Callers own the returned *sql.DB's lifetime via
// Gateway.Close.
func Open(dsn string, log *slog.Logger) (*Gateway, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{db: db, log: log}, nil
}

// NewGateway wraps an already-open *sql.DB (used by tests against
// sqlmock or an embedded sqlite database).
func NewGateway(db *sql.DB, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{db: db, log: log}
}

// Init applies the schema. Idempotent (CREATE TABLE IF NOT EXISTS).
func (g *Gateway) Init(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, Schema)
	return err
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// DB exposes the underlying *sql.DB for callers (tests, migrations)
// that need to issue statements outside the gateway's own operation set.
func (g *Gateway) DB() *sql.DB {
	return g.db
}
