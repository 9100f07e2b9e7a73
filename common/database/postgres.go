package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/common/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Open configures the pool without touching the network.
func Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	return db, nil
}

// NewPostgresDB opens the pool and verifies connectivity once.
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// WaitForDB pings until the database answers or attempts run out.
func WaitForDB(ctx context.Context, db *sql.DB, attempts int, delay time.Duration, logger *zap.Logger) error {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return nil
		}
		logger.Warn("Database not ready",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database not reachable after %d attempts: %w", attempts, lastErr)
}
