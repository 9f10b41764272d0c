package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Article is a normalized feed item. URL is unique across the store.
type Article struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	PubDate     time.Time `json:"pubDate"`
	Source      string    `json:"source"`
	Country     string    `json:"country"`
	Image       string    `json:"image,omitempty"`
	AIProcessed bool      `json:"ai_processed"`
	AIData      *AIData   `json:"ai_processed_data,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// AIData is the enrichment result attached to an article.
type AIData struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
	Hashtags []string `json:"hashtags"`
	SEOMeta  string   `json:"seo_meta"`
}

// Subscription is a newsletter sign-up.
type Subscription struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArticleFilter narrows ListArticles. An empty Country means all countries.
type ArticleFilter struct {
	Country string
	Limit   int
}

// Store is the persistence surface used by the fetch pipeline and the read
// paths. Both the Postgres and SQLite backends implement it.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	// InsertArticle stores a new article and fills its ID and CreatedAt.
	// It returns false without error when the URL is already stored.
	InsertArticle(ctx context.Context, article *Article) (bool, error)
	ArticleExists(ctx context.Context, url string) (bool, error)
	GetArticleByID(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*Article, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*Article, error)
	// MarkEnriched attaches enrichment data to an unprocessed article.
	MarkEnriched(ctx context.Context, id string, data *AIData) error
	CountArticles(ctx context.Context) (int, error)

	// LastFetch returns the time of the last completed fetch cycle; found is
	// false when no cycle has ever completed.
	LastFetch(ctx context.Context) (t time.Time, found bool, err error)
	SetLastFetch(ctx context.Context, t time.Time) error

	// CreateSubscription records an email. Re-subscribing returns the
	// existing record.
	CreateSubscription(ctx context.Context, email string) (*Subscription, error)
}

const defaultListLimit = 50

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
