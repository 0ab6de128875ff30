// Package db opens the DuckDB database that stores submitted jobs.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
	// Extensions are installed and loaded on open. Failures are logged and
	// otherwise ignored, since they need network access the first time.
	Extensions []string
}

// DefaultExtensions are loaded unless the config names its own.
var DefaultExtensions = []string{"spatial"}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	uid            VARCHAR PRIMARY KEY,
	name           VARCHAR NOT NULL,
	description    VARCHAR NOT NULL,
	project        VARCHAR NOT NULL,
	providers      VARCHAR NOT NULL,
	formats        VARCHAR NOT NULL,
	projections    VARCHAR NOT NULL,
	selection_type VARCHAR,
	buffer         DOUBLE NOT NULL DEFAULT 0,
	area_sq_km     DOUBLE NOT NULL DEFAULT 0,
	bbox           VARCHAR NOT NULL,
	geom           BLOB NOT NULL,
	status         VARCHAR NOT NULL,
	preview        VARCHAR,
	created_at     TIMESTAMP NOT NULL
)`

// Open opens the database and creates the schema. The caller closes it.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "aoi"
		}
		dsn = filepath.Join(dir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	exts := cfg.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	for _, ext := range exts {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			log.Warn().Err(err).Str("extension", ext).Msg("duckdb extension not loaded")
		}
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Migrate creates the tables the services use.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Tables lists the tables in the database.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
