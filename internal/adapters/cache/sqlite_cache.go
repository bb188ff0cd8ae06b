package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			cache_key TEXT PRIMARY KEY,
			verdict BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdict_cache_expires_at ON ` + tableName + `(expires_at)`,
	},
	upsert: `INSERT INTO ` + tableName + ` (cache_key, verdict, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			verdict = excluded.verdict,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
}

// NewSQLiteCache opens (creating if needed) the SQLite database at dbPath
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db, sqliteDialect); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Using SQLite verdict cache", zap.String("path", dbPath))
	return newSQLCache(db, sqliteDialect, logger, cleanupFreq), nil
}
