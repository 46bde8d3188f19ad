package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cotuzatours/booking-backend/internal/config"
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	connectionURL, err := buildConnectionURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGSERIAL PRIMARY KEY,
		transaction_id  TEXT NOT NULL,
		tour_id         INTEGER NOT NULL,
		date            TEXT NOT NULL,
		people          INTEGER NOT NULL CHECK (people >= 1),
		name            TEXT NOT NULL,
		phone           TEXT NOT NULL DEFAULT '',
		email           TEXT NOT NULL,
		pickup          BOOLEAN NOT NULL DEFAULT FALSE,
		pickup_location TEXT NOT NULL DEFAULT '',
		amount          NUMERIC(12, 2) NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT bookings_transaction_id_key UNIQUE (transaction_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_tour_id ON bookings (tour_id)`,
	`CREATE TABLE IF NOT EXISTS legacy_bookings (
		id         BIGSERIAL PRIMARY KEY,
		tour_id    INTEGER NOT NULL,
		date       TEXT NOT NULL,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_audits (
		id              UUID PRIMARY KEY,
		transaction_id  TEXT,
		link_id         TEXT,
		tour_id         INTEGER,
		event_type      TEXT NOT NULL,
		event_source    TEXT NOT NULL,
		expected_amount NUMERIC(12, 2),
		received_amount NUMERIC(12, 2),
		currency        TEXT,
		amounts_match   BOOLEAN,
		payment_status  TEXT,
		error_message   TEXT,
		details         JSONB,
		ip_address      TEXT,
		user_agent      TEXT,
		correlation_id  TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_audits_transaction_id ON payment_audits (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS checkout_rate_limits (
		id              BIGSERIAL PRIMARY KEY,
		identifier      TEXT NOT NULL,
		identifier_type TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_checkout_rate_limits_lookup ON checkout_rate_limits (identifier, identifier_type, created_at)`,
}

// pgx-only options that lib/pq would forward to the server as runtime parameters
var unsupportedURLParams = []string{"prefer_simple_protocol", "default_query_exec_mode", "statement_cache_capacity"}

// buildConnectionURL prepares a postgres:// URL for lib/pq.
// Transaction-mode poolers (Supavisor/pgbouncer, port 6543) cannot reuse unnamed
// prepared statements, so binary_parameters=yes is set to send queries in one round trip.
// Key=value DSNs are passed through unchanged.
func buildConnectionURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}

	query := u.Query()
	for _, key := range unsupportedURLParams {
		query.Del(key)
	}
	if u.Port() == "6543" && query.Get("binary_parameters") == "" {
		query.Set("binary_parameters", "yes")
	}

	u.RawQuery = query.Encode()
	return u.String(), nil
}

// EnsureSchema creates the tables used by the service when they are missing
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
