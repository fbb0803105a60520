// Package postgres provides PostgreSQL persistence for QuillPost.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/config"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB creates a new database connection pool and ensures the schema exists.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		Pool:   pool,
		logger: logger.With().Str("component", "postgres").Logger(),
	}

	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	db.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_conns", cfg.MaxOpenConns).
		Msg("connected to PostgreSQL")

	return db, nil
}

// migrate creates the users and posts tables if they do not exist.
func (db *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
	    id            BIGSERIAL PRIMARY KEY,
	    username      TEXT        NOT NULL UNIQUE,
	    password_hash TEXT        NOT NULL,
	    role          TEXT        NOT NULL DEFAULT 'user',
	    blocked       BOOLEAN     NOT NULL DEFAULT FALSE,
	    created_at    TIMESTAMPTZ NOT NULL,
	    updated_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_admin ON users (role) WHERE role = 'admin';

	CREATE TABLE IF NOT EXISTS posts (
	    id         UUID        PRIMARY KEY,
	    title      TEXT        NOT NULL,
	    content    TEXT        NOT NULL,
	    author_id  BIGINT      NOT NULL,
	    thumbnail  TEXT        NOT NULL DEFAULT '',
	    restricted BOOLEAN     NOT NULL DEFAULT FALSE,
	    created_at TIMESTAMPTZ NOT NULL,
	    updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id);
	CREATE INDEX IF NOT EXISTS idx_posts_restricted ON posts (restricted);
	`

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	db.logger.Info().Msg("database connection pool closed")
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
