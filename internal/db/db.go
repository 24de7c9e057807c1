// Package db is the thin pgx pool the seller store, user store and migrations
// share. Callers see only Exec/QueryRow/Query and the Row/Rows interfaces.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/storehours/internal/internaltypes"
)

const (
	connLifetime = 5 * time.Minute
	connIdle     = time.Minute
	pingTimeout  = 3 * time.Second
)

type DB struct {
	pool *pgxpool.Pool
}

// Open parses databaseURL and builds the pool. Connections are made lazily;
// use Ping to fail fast on a bad DSN or an unreachable server.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse url: %w", err)
	}
	cfg.MaxConnLifetime = connLifetime
	cfg.MaxConnIdleTime = connIdle

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() { d.pool.Close() }

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return d.pool.Ping(ctx)
}

// Exec runs a statement and discards the command tag.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := d.pool.Exec(ctx, sql, args...); err != nil {
		return err
	}
	return nil
}

// QueryRow defers errors to Scan; a missing row surfaces as pgx.ErrNoRows,
// which WrapNotFound turns into ErrNotFound.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d *DB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return d.pool.Query(ctx, sql, args...)
}

// Row is satisfied by pgx.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the subset of pgx.Rows the repositories iterate with.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// ErrNotFound is the sentinel the HTTP layer maps to 404.
var ErrNotFound = internaltypes.ErrNotFound

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// WrapNotFound maps pgx.ErrNoRows to ErrNotFound and prefixes anything else.
func WrapNotFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	}
	return fmt.Errorf("db: %w", err)
}
