package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

const tableName = "verdict_cache"

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name   string
	schema []string
	upsert string
}

// SQLCache stores verdicts in a SQL table, one JSON-encoded verdict per content hash
type SQLCache struct {
	db          *sql.DB
	dialect     dialect
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(db *sql.DB, d dialect, logger *zap.Logger, cleanupFreq time.Duration) *SQLCache {
	c := &SQLCache{
		db:          db,
		dialect:     d,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go runCleanup(c, cleanupFreq, c.stopCh, logger)
	}
	return c
}

func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}
	return nil
}

// Get returns the unexpired entry for key, or core.ErrNotFound
func (c *SQLCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		payload   []byte
		createdAt time.Time
		expiresAt time.Time
	)

	err := c.db.QueryRowContext(ctx,
		"SELECT verdict, created_at, expires_at FROM "+tableName+" WHERE cache_key = ? AND expires_at > ?",
		key, time.Now().UTC(),
	).Scan(&payload, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s cache: %w", c.dialect.name, err)
	}

	entry := &core.CacheEntry{Key: key, CreatedAt: createdAt, ExpiresAt: expiresAt}
	if err := json.Unmarshal(payload, &entry.Verdict); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return entry, nil
}

// Set inserts or replaces a cache entry
func (c *SQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	payload, err := json.Marshal(entry.Verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	_, err = c.db.ExecContext(ctx, c.dialect.upsert,
		entry.Key, payload, entry.CreatedAt.UTC(), entry.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to store %s cache entry: %w", c.dialect.name, err)
	}
	return nil
}

// Delete removes a cache entry
func (c *SQLCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM "+tableName+" WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s cache entry: %w", c.dialect.name, err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLCache) Cleanup(ctx context.Context) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+tableName+" WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up %s cache: %w", c.dialect.name, err)
	}

	expired, _ := res.RowsAffected()
	c.logger.Debug("Cleaned up expired cache entries",
		zap.String("backend", c.dialect.name),
		zap.Int64("expired_count", expired))
	return nil
}

// Close stops the cleanup task and closes the database
func (c *SQLCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return c.db.Close()
}
