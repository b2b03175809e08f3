// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the process-wide connection pool, set by ConnectDB.
var DB *pgxpool.Pool

// ConnectDB opens the pool for url and verifies it with a ping.
func ConnectDB(ctx context.Context, url string) error {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
	}
}

// beginTxFunc runs f in a transaction on DB, committing when f succeeds.
func beginTxFunc(ctx context.Context, f func(tx pgx.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, f)
}
