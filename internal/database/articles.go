package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const articleColumns = `id::text, title, summary, content, url, pub_date, source, country, image, ai_processed, ai_data::text, created_at`

// InsertArticle inserts a new article. The unique constraint on url decides
// whether the article is new; a conflict is reported as inserted=false.
func (db *DB) InsertArticle(ctx context.Context, article *Article) (bool, error) {
	query := `
		INSERT INTO articles (title, summary, content, url, pub_date, source, country, image, ai_processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT (url) DO NOTHING
		RETURNING id::text, created_at
	`

	err := db.pool.QueryRow(ctx, query,
		article.Title,
		article.Summary,
		article.Content,
		article.URL,
		article.PubDate.UTC(),
		article.Source,
		article.Country,
		article.Image,
	).Scan(&article.ID, &article.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	article.AIProcessed = false
	article.AIData = nil
	return true, nil
}

// ArticleExists reports whether an article with url is already stored.
func (db *DB) ArticleExists(ctx context.Context, url string) (bool, error) {
	var stored bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&stored); err != nil {
		return false, fmt.Errorf("failed to look up article url: %w", err)
	}
	return stored, nil
}

// GetArticleByID retrieves an article by its ID
func (db *DB) GetArticleByID(ctx context.Context, id string) (*Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	article, err := scanPGArticle(db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// ListArticles returns articles newest first, optionally for one country.
func (db *DB) ListArticles(ctx context.Context, filter ArticleFilter) ([]*Article, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if filter.Country == "" {
		query := `SELECT ` + articleColumns + ` FROM articles ORDER BY pub_date DESC LIMIT $1`
		rows, err = db.pool.Query(ctx, query, listLimit(filter.Limit))
	} else {
		query := `SELECT ` + articleColumns + ` FROM articles WHERE country = $1 ORDER BY pub_date DESC LIMIT $2`
		rows, err = db.pool.Query(ctx, query, filter.Country, listLimit(filter.Limit))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	return collectPGArticles(rows)
}

// ListUnprocessed returns articles still waiting for enrichment, oldest first.
func (db *DB) ListUnprocessed(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE NOT ai_processed ORDER BY created_at ASC LIMIT $1`

	rows, err := db.pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed articles: %w", err)
	}

	return collectPGArticles(rows)
}

// MarkEnriched stores enrichment data. It only touches articles that have not
// been processed yet and returns ErrNotFound otherwise.
func (db *DB) MarkEnriched(ctx context.Context, id string, data *AIData) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment data: %w", err)
	}

	query := `UPDATE articles SET ai_processed = TRUE, ai_data = $2::jsonb WHERE id = $1 AND NOT ai_processed`

	tag, err := db.pool.Exec(ctx, query, id, string(payload))
	if err != nil {
		return fmt.Errorf("failed to mark article enriched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountArticles returns the number of stored articles.
func (db *DB) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

func scanPGArticle(row pgx.Row) (*Article, error) {
	var (
		article Article
		aiData  *string
	)
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Summary,
		&article.Content,
		&article.URL,
		&article.PubDate,
		&article.Source,
		&article.Country,
		&article.Image,
		&article.AIProcessed,
		&aiData,
		&article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeAIData(&article, aiData); err != nil {
		return nil, err
	}
	return &article, nil
}

func collectPGArticles(rows pgx.Rows) ([]*Article, error) {
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanPGArticle(rows)
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

func decodeAIData(article *Article, raw *string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	var data AIData
	if err := json.Unmarshal([]byte(*raw), &data); err != nil {
		return fmt.Errorf("failed to decode enrichment data for %s: %w", article.URL, err)
	}
	article.AIData = &data
	return nil
}
