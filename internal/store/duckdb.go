package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/i474232898/whoop-data-sync/internal/whoop"
)

// DuckDBStore is the append-only record store backed by a local DuckDB file.
// One category, one table; rows are never updated or deleted.
type DuckDBStore struct {
	conn *sql.DB
	loc  *time.Location
}

// Open opens (or creates) the database at path and bootstraps the schema.
// loc is the timezone re-applied to timestamps read back from storage.
func Open(path string, loc *time.Location) (*DuckDBStore, error) {
	if loc == nil {
		loc = time.UTC
	}

	// Create the parent directory so a fresh deployment does not fail with
	// "No such file or directory" on first open.
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// A handful of connections covers the single scheduler writer plus
	// concurrent API readers.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)

	s := &DuckDBStore{conn: conn, loc: loc}
	if err := s.InitSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the four category tables and their id sequences.
// Idempotent; safe to call on every process start.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	for _, category := range whoop.Categories {
		stmts := []string{
			fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS seq_%s_id START 1`, category),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY DEFAULT nextval('seq_%s_id'),
				payload JSON NOT NULL,
				fetched_at TIMESTAMPTZ NOT NULL
			)`, category, category),
		}
		for _, stmt := range stmts {
			if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store: bootstrap %s schema: %w", category, err)
			}
		}
	}
	return nil
}

// Append inserts one record. fetchedAt must already carry its timezone
// context; the store never substitutes its own clock.
func (s *DuckDBStore) Append(ctx context.Context, category whoop.Category, payload json.RawMessage, fetchedAt time.Time) error {
	if !category.Valid() {
		return fmt.Errorf("store: unknown category %q", category)
	}

	// Table names come from the closed Category set, never from caller input.
	stmt := fmt.Sprintf(`INSERT INTO %s (payload, fetched_at) VALUES (?, ?)`, category)
	if _, err := s.conn.ExecContext(ctx, stmt, string(payload), fetchedAt); err != nil {
		return fmt.Errorf("store: append %s record: %w", category, err)
	}
	return nil
}

// Latest returns up to limit records ordered by fetched_at descending, with
// the most recently inserted first among equal timestamps. No rows is not an
// error: the result is simply empty.
func (s *DuckDBStore) Latest(ctx context.Context, category whoop.Category, limit int) ([]whoop.Record, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("store: unknown category %q", category)
	}
	if limit <= 0 {
		return []whoop.Record{}, nil
	}

	query := fmt.Sprintf(`SELECT id, CAST(payload AS VARCHAR), fetched_at
		FROM %s ORDER BY fetched_at DESC, id DESC LIMIT ?`, category)
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query latest %s records: %w", category, err)
	}
	defer rows.Close()

	records := make([]whoop.Record, 0, limit)
	for rows.Next() {
		var (
			rec       whoop.Record
			payload   string
			fetchedAt time.Time
		)
		if err := rows.Scan(&rec.ID, &payload, &fetchedAt); err != nil {
			return nil, fmt.Errorf("store: scan %s record: %w", category, err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.FetchedAt = fetchedAt.In(s.loc)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate %s records: %w", category, err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *DuckDBStore) Close() error {
	return s.conn.Close()
}
