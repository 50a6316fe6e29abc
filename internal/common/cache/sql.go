package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"menu-advisor/internal/common/database"
	"menu-advisor/internal/common/logger"
)

// SQLCache stores entries in an analysis_cache table on sqlite or postgres.
// Freshness is checked on read against created_at.
type SQLCache struct {
	db      *sql.DB
	dialect string
	ttl     time.Duration
	now     func() time.Time
	logger  logger.Logger

	selectQuery string
	upsertQuery string
}

func NewSQLCache(db *sql.DB, dialect string, ttl time.Duration, log logger.Logger) (*SQLCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &SQLCache{
		db:      db,
		dialect: dialect,
		ttl:     ttl,
		now:     time.Now,
		logger:  log.WithFields(map[string]interface{}{"cache": dialect}),
	}

	switch dialect {
	case database.DialectSQLite:
		c.selectQuery = `SELECT payload, created_at FROM analysis_cache WHERE cache_key = ?`
		c.upsertQuery = `INSERT INTO analysis_cache (cache_key, payload, created_at) VALUES (?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`
	case database.DialectPostgres:
		c.selectQuery = `SELECT payload, created_at FROM analysis_cache WHERE cache_key = $1`
		c.upsertQuery = `INSERT INTO analysis_cache (cache_key, payload, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`
	default:
		return nil, fmt.Errorf("unsupported sql cache dialect %q", dialect)
	}
	return c, nil
}

// InitSchema creates the cache table if needed.
func (c *SQLCache) InitSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS analysis_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create analysis_cache: %w", err)
	}
	return nil
}

func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var (
		payload   string
		createdAt int64
	)
	err := c.db.QueryRowContext(ctx, c.selectQuery, key).Scan(&payload, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return nil, false
	}
	if c.now().Sub(time.Unix(createdAt, 0)) >= c.ttl {
		return nil, false
	}
	return []byte(payload), true
}

func (c *SQLCache) Put(ctx context.Context, key string, value []byte) error {
	if _, err := c.db.ExecContext(ctx, c.upsertQuery, key, string(value), c.now().Unix()); err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

func (c *SQLCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}
