package database

import (
	"context"
	"fmt"
)

// CreateSubscription records an email address, returning the existing row
// when the address has subscribed before.
func (db *DB) CreateSubscription(ctx context.Context, email string) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (email) VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id::text, email, created_at
	`

	var sub Subscription
	if err := db.pool.QueryRow(ctx, query, email).Scan(&sub.ID, &sub.Email, &sub.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &sub, nil
}
