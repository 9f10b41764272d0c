package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// lastFetchKey names the single fetch_meta row read by the staleness gate.
const lastFetchKey = "last_fetch"

// LastFetch returns when the last fetch cycle completed.
func (db *DB) LastFetch(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	err := db.pool.QueryRow(ctx, `SELECT last_fetch FROM fetch_meta WHERE key = $1`, lastFetchKey).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last fetch: %w", err)
	}
	return t, true, nil
}

// SetLastFetch overwrites the last fetch time.
func (db *DB) SetLastFetch(ctx context.Context, t time.Time) error {
	query := `
		INSERT INTO fetch_meta (key, last_fetch) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET last_fetch = EXCLUDED.last_fetch
	`
	if _, err := db.pool.Exec(ctx, query, lastFetchKey, t.UTC()); err != nil {
		return fmt.Errorf("failed to write last fetch: %w", err)
	}
	return nil
}
