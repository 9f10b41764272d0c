package database

import "context"

// Open returns the Postgres store when databaseURL is set and the SQLite
// store at sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		db, err := New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := OpenSQLite(sqlitePath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
