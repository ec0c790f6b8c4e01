// Package cache persists inception dates in a local SQLite file so research
// runs do not re-walk every market's history.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultPath is used when no path is configured.
const DefaultPath = "data/inception_cache.db"

// ErrMiss is returned by Get when no row exists for the key.
var ErrMiss = errors.New("cache miss")

const schema = `
CREATE TABLE IF NOT EXISTS inception_dates (
	asset          TEXT NOT NULL,
	chain          TEXT NOT NULL,
	dex            TEXT NOT NULL,
	inception_date TEXT NULL,
	updated_at     TIMESTAMP NOT NULL,
	PRIMARY KEY (asset, chain, dex)
);`

// Cache is an inception-date store keyed by (asset, chain, dex).
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	logger.Debug("inception cache opened", "path", path)
	return &Cache{db: db, logger: logger}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached inception date. A nil date with a nil error is a
// cached "unknown"; a missing row is ErrMiss.
func (c *Cache) Get(ctx context.Context, asset, chain, dex string) (*time.Time, error) {
	var date sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT inception_date FROM inception_dates WHERE asset = ? AND chain = ? AND dex = ?`,
		asset, chain, dex,
	).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get inception %s/%s/%s: %w", asset, chain, dex, err)
	}
	if !date.Valid || date.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, date.String)
	if err != nil {
		return nil, fmt.Errorf("parse cached inception %q: %w", date.String, err)
	}
	return &t, nil
}

// Put upserts an inception date. A nil date records "unknown".
func (c *Cache) Put(ctx context.Context, asset, chain, dex string, date *time.Time) error {
	var v sql.NullString
	if date != nil {
		v = sql.NullString{String: date.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO inception_dates (asset, chain, dex, inception_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (asset, chain, dex) DO UPDATE SET
			inception_date = excluded.inception_date,
			updated_at = excluded.updated_at`,
		asset, chain, dex, v, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put inception %s/%s/%s: %w", asset, chain, dex, err)
	}
	return nil
}

// Lookup returns the cached date, or calls fetch on a miss and stores its
// result. A cached unknown counts as a miss, and a nil fetch result is not
// stored, so a timed-out lookup is retried on the next run. Storage
// failures are logged and do not fail the lookup.
func (c *Cache) Lookup(ctx context.Context, asset, chain, dex string, fetch func(context.Context) *time.Time) *time.Time {
	date, err := c.Get(ctx, asset, chain, dex)
	if err == nil && date != nil {
		return date
	}
	if err != nil && !errors.Is(err, ErrMiss) {
		c.logger.Warn("inception cache read failed", "asset", asset, "chain", chain, "err", err)
	}

	date = fetch(ctx)
	if date == nil {
		return nil
	}
	if err := c.Put(ctx, asset, chain, dex, date); err != nil {
		c.logger.Warn("inception cache write failed", "asset", asset, "chain", chain, "err", err)
	}
	return date
}

// Len returns the number of cached rows.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inception_dates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count inception cache: %w", err)
	}
	return n, nil
}
