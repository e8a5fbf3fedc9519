package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores depend on. pgxmock's pool
// implements the same set, which is what lets store tests run without a
// database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// DB wraps the connection pool handed to every store.
type DB struct {
	Pool Pool

	pgxPool *pgxpool.Pool
}

// New connects to the database at url and verifies the connection.
func New(ctx context.Context, url string) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool, pgxPool: pool}, nil
}

// NewFromPool wraps an existing pool implementation. Used by tests to inject
// a mock pool.
func NewFromPool(pool Pool) *DB {
	return &DB{Pool: pool}
}

// Close releases the underlying pool, if any.
func (db *DB) Close() {
	if db.pgxPool != nil {
		db.pgxPool.Close()
	}
}

// Stat reports pool connection counts for the metrics collector. Returns
// zeros when the DB was built from a mock pool.
func (db *DB) Stat() (total, idle, acquired int32) {
	if db.pgxPool == nil {
		return 0, 0, 0
	}
	s := db.pgxPool.Stat()
	return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
}
