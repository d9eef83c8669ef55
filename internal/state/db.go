// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool, retrying the initial ping
// with exponential backoff so a freshly started database does not fail boot.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	ping := func() error { return DB.Ping() }
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(ping, policy); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS swap_records (
			record_id UUID PRIMARY KEY,
			caller VARCHAR(42) NOT NULL,
			token_in VARCHAR(42) NOT NULL,
			token_out VARCHAR(42) NOT NULL,
			amount_in NUMERIC(78, 0) NOT NULL,
			amount_out NUMERIC(78, 0) NOT NULL,
			venue_id BIGINT NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_swap_records_executed_at ON swap_records(executed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_swap_records_caller ON swap_records(caller);
		CREATE INDEX IF NOT EXISTS idx_swap_records_venue ON swap_records(venue_id);

		CREATE TABLE IF NOT EXISTS mint_records (
			record_id UUID PRIMARY KEY,
			wallet VARCHAR(42) NOT NULL,
			token_ids BIGINT[] NOT NULL,
			price_paid NUMERIC(78, 0) NOT NULL,
			phase VARCHAR(20) NOT NULL,
			minted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_mint_records_minted_at ON mint_records(minted_at DESC);
		CREATE INDEX IF NOT EXISTS idx_mint_records_wallet ON mint_records(wallet);

		CREATE TABLE IF NOT EXISTS withdrawal_records (
			withdrawal_id SERIAL PRIMARY KEY,
			recipient VARCHAR(42) NOT NULL,
			amount NUMERIC(78, 0) NOT NULL,
			withdrawn_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS reveal_records (
			reveal_id SERIAL PRIMARY KEY,
			caller VARCHAR(42) NOT NULL,
			revealed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Durable configuration key-value map.
		CREATE TABLE IF NOT EXISTS config_kv (
			config_key VARCHAR(255) PRIMARY KEY,
			config_value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
