package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the Postgres-backed Store.
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

const postgresSchema = `
	CREATE EXTENSION IF NOT EXISTS pgcrypto;

	CREATE TABLE IF NOT EXISTS articles (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title        TEXT NOT NULL,
		summary      TEXT NOT NULL DEFAULT '',
		content      TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL,
		pub_date     TIMESTAMPTZ NOT NULL,
		source       TEXT NOT NULL,
		country      TEXT NOT NULL,
		image        TEXT NOT NULL DEFAULT '',
		ai_processed BOOLEAN NOT NULL DEFAULT FALSE,
		ai_data      JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT articles_url_key UNIQUE (url)
	);
	CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_country_pub_date ON articles (country, pub_date DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_unprocessed ON articles (created_at) WHERE NOT ai_processed;

	CREATE TABLE IF NOT EXISTS fetch_meta (
		key        TEXT PRIMARY KEY,
		last_fetch TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email      TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// New connects to Postgres and makes sure the schema exists.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
