// Package storage persists parsed roster documents. SQLite keeps a local
// archive of parse runs, PostgreSQL holds the relational roster tables,
// ClickHouse holds the flattened leg rows for analytics, and MongoDB is
// an export target for downstream consumers.
package storage

import (
	"context"
	"fmt"
)

// Config holds connection settings for all storage backends.
type Config struct {
	SQLitePath string           `yaml:"sqlite_path"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Mongo      MongoConfig      `yaml:"mongo"`
}

// DefaultConfig returns local development settings.
func DefaultConfig() Config {
	return Config{
		SQLitePath: "pairings.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "pairings",
			User:     "pairings",
			Password: "pairings",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "pairings",
			User:     "default",
			Password: "",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "pairings",
		},
	}
}

// DB wraps the PostgreSQL and ClickHouse connections used by the load
// path. SQLite and Mongo are opened separately where needed.
type DB struct {
	CH *ClickHouseDB // ClickHouse for flattened leg analytics.
	PG *PostgresDB   // PostgreSQL for the relational roster tables.
}

// Open opens connections to both PostgreSQL and ClickHouse.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	pg, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &DB{CH: ch, PG: pg}, nil
}

// Close closes both database connections.
func (d *DB) Close() error {
	var errs []error
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateSchemas creates the schemas in both databases.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.CH.CreateSchema(ctx); err != nil {
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	if err := d.PG.CreateSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}
