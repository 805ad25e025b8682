package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLXSQLiteDB opens (and creates, if absent) the sqlite database that
// backs the file-based session store. modernc.org/sqlite is CGO-free, so
// the binary stays a single static artifact.
func NewSQLXSQLiteDB(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}

	// The session store serializes writes through a single connection; the
	// sqlite driver is not safe for concurrent writers on one file anyway.
	db.SetMaxOpenConns(1)

	return db, nil
}
