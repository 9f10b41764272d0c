package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is the single-file Store used for local runs and tests. Timestamps
// are stored as unix milliseconds so ORDER BY compares numerically.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS articles (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		summary      TEXT NOT NULL DEFAULT '',
		content      TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL UNIQUE,
		pub_date     INTEGER NOT NULL,
		source       TEXT NOT NULL,
		country      TEXT NOT NULL,
		image        TEXT NOT NULL DEFAULT '',
		ai_processed INTEGER NOT NULL DEFAULT 0,
		ai_data      TEXT,
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_country_pub_date ON articles(country, pub_date DESC);

	CREATE TABLE IF NOT EXISTS fetch_meta (
		key        TEXT PRIMARY KEY,
		last_fetch INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);
`

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection serializes writers from concurrent feed tasks.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Ping checks that the database file is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() {
	s.db.Close()
}

// InsertArticle inserts a new article. A url conflict is reported as
// inserted=false.
func (s *SQLite) InsertArticle(ctx context.Context, article *Article) (bool, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	query := `
		INSERT INTO articles (id, title, summary, content, url, pub_date, source, country, image, ai_processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(url) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		id,
		article.Title,
		article.Summary,
		article.Content,
		article.URL,
		toMillis(article.PubDate),
		article.Source,
		article.Country,
		article.Image,
		toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	article.ID = id
	article.CreatedAt = fromMillis(toMillis(now))
	article.AIProcessed = false
	article.AIData = nil
	return true, nil
}

// ArticleExists reports whether an article with url is already stored.
func (s *SQLite) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM articles WHERE url = ?)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return exists, nil
}

// GetArticleByID retrieves an article by its ID
func (s *SQLite) GetArticleByID(ctx context.Context, id string) (*Article, error) {
	query := `SELECT ` + sqliteArticleColumns + ` FROM articles WHERE id = ?`

	article, err := scanSQLiteArticle(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

// ListArticles returns articles newest first, optionally for one country.
func (s *SQLite) ListArticles(ctx context.Context, filter ArticleFilter) ([]*Article, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.Country == "" {
		query := `SELECT ` + sqliteArticleColumns + ` FROM articles ORDER BY pub_date DESC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, listLimit(filter.Limit))
	} else {
		query := `SELECT ` + sqliteArticleColumns + ` FROM articles WHERE country = ? ORDER BY pub_date DESC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, filter.Country, listLimit(filter.Limit))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	return collectSQLiteArticles(rows)
}

// ListUnprocessed returns articles still waiting for enrichment, oldest first.
func (s *SQLite) ListUnprocessed(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT ` + sqliteArticleColumns + ` FROM articles WHERE ai_processed = 0 ORDER BY created_at ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed articles: %w", err)
	}
	return collectSQLiteArticles(rows)
}

// MarkEnriched stores enrichment data for an unprocessed article and returns
// ErrNotFound otherwise.
func (s *SQLite) MarkEnriched(ctx context.Context, id string, data *AIData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET ai_processed = 1, ai_data = ? WHERE id = ? AND ai_processed = 0`,
		string(payload), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark article enriched: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark article enriched: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountArticles returns the number of stored articles.
func (s *SQLite) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// LastFetch returns when the last fetch cycle completed.
func (s *SQLite) LastFetch(ctx context.Context) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_fetch FROM fetch_meta WHERE key = ?`, lastFetchKey).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last fetch: %w", err)
	}
	return fromMillis(ms), true, nil
}

// SetLastFetch overwrites the last fetch time.
func (s *SQLite) SetLastFetch(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_meta (key, last_fetch) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET last_fetch = excluded.last_fetch
	`, lastFetchKey, toMillis(t))
	if err != nil {
		return fmt.Errorf("failed to write last fetch: %w", err)
	}
	return nil
}

// CreateSubscription records an email address, returning the existing row
// when the address has subscribed before.
func (s *SQLite) CreateSubscription(ctx context.Context, email string) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET email = excluded.email
		RETURNING id, email, created_at
	`

	var (
		sub Subscription
		ms  int64
	)
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), email, toMillis(time.Now())).Scan(&sub.ID, &sub.Email, &ms)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	sub.CreatedAt = fromMillis(ms)
	return &sub, nil
}

const sqliteArticleColumns = `id, title, summary, content, url, pub_date, source, country, image, ai_processed, ai_data, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArticle(row rowScanner) (*Article, error) {
	var (
		article   Article
		pubDate   int64
		createdAt int64
		aiData    sql.NullString
	)
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Summary,
		&article.Content,
		&article.URL,
		&pubDate,
		&article.Source,
		&article.Country,
		&article.Image,
		&article.AIProcessed,
		&aiData,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	article.PubDate = fromMillis(pubDate)
	article.CreatedAt = fromMillis(createdAt)
	if aiData.Valid {
		if err := decodeAIData(&article, &aiData.String); err != nil {
			return nil, err
		}
	}
	return &article, nil
}

func collectSQLiteArticles(rows *sql.Rows) ([]*Article, error) {
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanSQLiteArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return articles, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
