package pipeline

import (
	"context"
	"time"

	"github.com/tkilaker/newsio/internal/database"
)

// StaleAfter is how old the last completed cycle may be before another one
// is due.
const StaleAfter = time.Hour

// Gate decides whether a fetch cycle should run based on the single
// last-fetch record in the store.
type Gate struct {
	store database.Store
	now   func() time.Time
}

// NewGate creates a gate reading and writing store.
func NewGate(store database.Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// NeedsFetch reports whether no cycle has completed yet or the last one
// finished more than StaleAfter ago.
func (g *Gate) NeedsFetch(ctx context.Context) (bool, error) {
	last, found, err := g.store.LastFetch(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return g.now().Sub(last) > StaleAfter, nil
}

// MarkFetched records the current time as the last completed cycle.
func (g *Gate) MarkFetched(ctx context.Context) error {
	return g.store.SetLastFetch(ctx, g.now())
}

// LastFetch exposes the stored timestamp for status displays.
func (g *Gate) LastFetch(ctx context.Context) (time.Time, bool, error) {
	return g.store.LastFetch(ctx)
}
