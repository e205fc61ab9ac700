package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS source_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL CHECK (source IN ('AutoTrader', 'Gumtree', 'WeBuyCars')),
	cache_key TEXT UNIQUE NOT NULL,
	payload_json TEXT NOT NULL,
	etag TEXT,
	fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_snapshots_source_key ON source_snapshots(source, cache_key);
CREATE INDEX IF NOT EXISTS idx_source_snapshots_fetched_at ON source_snapshots(fetched_at);
`

// snapshotFresh is the single definition of "not yet expired": fetched_at
// plus the row's TTL is still in the future. Reads and the expiry sweep
// must agree on this predicate or a row could be served and reaped in the
// same breath.
const snapshotFresh = `datetime(fetched_at, '+' || ttl_seconds || ' seconds') > datetime('now')`

func NewWithPath(path string) (Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := initSnapshotDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &cacheImpl{db: conn}, nil
}

func initSnapshotDB(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("pinging cache database: %w", err)
	}
	if _, err := conn.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("creating cache schema: %w", err)
	}
	return nil
}
