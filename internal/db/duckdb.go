// Package db keeps the attribute lookup history in DuckDB.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-wms/internal/service"
)

const schema = `CREATE TABLE IF NOT EXISTS lookups (
	at       TIMESTAMP NOT NULL,
	session  VARCHAR NOT NULL,
	layer    VARCHAR NOT NULL,
	lon      DOUBLE NOT NULL,
	lat      DOUBLE NOT NULL,
	features INTEGER NOT NULL
)`

// LayerStats aggregates the lookups made against one layer.
type LayerStats struct {
	Layer    string
	Lookups  int
	Features int
	Empty    int
}

// Store records applied lookups. It implements service.LookupRecorder.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path. An empty path keeps the
// history in memory.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create lookups table: %w", err)
	}
	return &Store{db: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordLookup(ctx context.Context, l service.Lookup) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lookups (at, session, layer, lon, lat, features) VALUES (?, ?, ?, ?, ?, ?)`,
		l.At.UTC(), l.Session, l.Layer, l.Lon, l.Lat, l.Features)
	return err
}

// Count returns the number of recorded lookups.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM lookups`).Scan(&n)
	return n, err
}

// Recent returns lookups newest first.
func (s *Store) Recent(ctx context.Context, offset, limit int) ([]service.Lookup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, session, layer, lon, lat, features FROM lookups ORDER BY at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.Lookup
	for rows.Next() {
		var l service.Lookup
		if err := rows.Scan(&l.At, &l.Session, &l.Layer, &l.Lon, &l.Lat, &l.Features); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LayerStats returns per-layer totals ordered by layer id.
func (s *Store) LayerStats(ctx context.Context) ([]LayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT layer,
		       count(*)::INTEGER,
		       coalesce(sum(features), 0)::INTEGER,
		       count(*) FILTER (WHERE features = 0)::INTEGER
		FROM lookups
		GROUP BY layer
		ORDER BY layer`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LayerStats
	for rows.Next() {
		var st LayerStats
		if err := rows.Scan(&st.Layer, &st.Lookups, &st.Features, &st.Empty); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
