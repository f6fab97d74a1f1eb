package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// recentlyOpenedKey is the ItemTable key under which VS Code 1.64 and later
// keep the opened paths list.
const recentlyOpenedKey = "history.recentlyOpenedPathsList"

// readStateDB returns the opened paths list stored in a state.vscdb file.
// found is false when the database has no such key.
func readStateDB(ctx context.Context, dbPath string) (value []byte, found bool, err error) {
	dsn := (&url.URL{Scheme: "file", Path: dbPath, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, false, fmt.Errorf("opening state database: %w", err)
	}
	defer func() { _ = db.Close() }()

	row := db.QueryRowContext(ctx, "SELECT value FROM ItemTable WHERE key = ?", recentlyOpenedKey)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: querying state database: %v", ErrMalformed, err)
	}
	return value, true, nil
}
