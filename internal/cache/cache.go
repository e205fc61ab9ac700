// Package cache stores raw marketplace payloads between runs. The WeBuyCars
// inventory dump is the main tenant: a browser-driven refresh writes the
// full snapshot here and ordinary tracker runs search it without touching
// the site. Entries carry a TTL so a forgotten refresh surfaces as a miss
// rather than silently stale results.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
)

type Cache interface {
	Get(ctx context.Context, source models.Source, key string) (*models.SourceSnapshot, error)
	Set(ctx context.Context, source models.Source, key string, payload interface{}, ttl time.Duration, etag *string) error
	Delete(ctx context.Context, source models.Source, key string) error
	ClearExpired(ctx context.Context) error
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats summarizes cache occupancy for the dashboard and admin endpoints.
type Stats struct {
	Entries  int                   `json:"entries"`
	BySource map[models.Source]int `json:"by_source"`
}

type cacheImpl struct {
	db *sql.DB
}

func New(db *sql.DB) Cache {
	return &cacheImpl{db: db}
}

func (c *cacheImpl) Get(ctx context.Context, source models.Source, key string) (*models.SourceSnapshot, error) {
	var snap models.SourceSnapshot
	var fetchedAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT id, source, cache_key, payload_json, etag, fetched_at, ttl_seconds
		FROM source_snapshots
		WHERE source = ? AND cache_key = ? AND `+snapshotFresh+`
		ORDER BY fetched_at DESC
		LIMIT 1
	`, source, key).Scan(
		&snap.ID, &snap.Source, &snap.CacheKey, &snap.PayloadJSON,
		&snap.ETag, &fetchedAt, &snap.TTLSeconds,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying snapshot cache: %w", err)
	}

	parsedTime, err := time.Parse("2006-01-02 15:04:05", fetchedAt)
	if err != nil {
		parsedTime, err = time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fetched_at time: %w", err)
		}
	}
	snap.FetchedAt = parsedTime

	return &snap, nil
}

func (c *cacheImpl) Set(ctx context.Context, source models.Source, key string, payload interface{}, ttl time.Duration, etag *string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	ttlSeconds := int(ttl.Seconds())

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO source_snapshots
		(source, cache_key, payload_json, etag, fetched_at, ttl_seconds)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
	`, source, key, string(payloadJSON), etag, ttlSeconds)

	if err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}

	return nil
}

func (c *cacheImpl) Delete(ctx context.Context, source models.Source, key string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM source_snapshots WHERE source = ? AND cache_key = ?
	`, source, key)

	return err
}

func (c *cacheImpl) ClearExpired(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM source_snapshots WHERE NOT (`+snapshotFresh+`)
	`)

	return err
}

func (c *cacheImpl) ClearAll(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM source_snapshots")
	return err
}

func (c *cacheImpl) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: make(map[models.Source]int)}

	rows, err := c.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM source_snapshots GROUP BY source
	`)
	if err != nil {
		return stats, fmt.Errorf("counting snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source models.Source
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return stats, fmt.Errorf("scanning snapshot counts: %w", err)
		}
		stats.BySource[source] = count
		stats.Entries += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("reading snapshot counts: %w", err)
	}

	return stats, nil
}

func (c *cacheImpl) Close() error {
	return c.db.Close()
}
