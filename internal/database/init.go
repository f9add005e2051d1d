package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/yourusername/parlay-edge/internal/config"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL for the recommendation tables.
func Schema() string {
	return schema
}

// Initialize creates a database connection pool and applies the recommendation schema
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the recommendation tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
