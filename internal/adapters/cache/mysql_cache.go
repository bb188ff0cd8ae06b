package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			cache_key CHAR(64) PRIMARY KEY,
			verdict JSON NOT NULL,
			created_at DATETIME(6) NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			INDEX idx_expires_at (expires_at)
		)`,
	},
	upsert: `INSERT INTO ` + tableName + ` (cache_key, verdict, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			verdict = VALUES(verdict),
			created_at = VALUES(created_at),
			expires_at = VALUES(expires_at)`,
}

// NewMySQLCache connects to MySQL and creates the cache table if needed.
// The DSN should set parseTime=true so timestamps scan into time.Time.
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if err := migrate(ctx, db, mysqlDialect); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Using MySQL verdict cache")
	return NewMySQLCacheFromDB(db, logger, cleanupFreq), nil
}

// NewMySQLCacheFromDB wraps an existing connection pool whose schema is already in place
func NewMySQLCacheFromDB(db *sql.DB, logger *zap.Logger, cleanupFreq time.Duration) *SQLCache {
	return newSQLCache(db, mysqlDialect, logger, cleanupFreq)
}
