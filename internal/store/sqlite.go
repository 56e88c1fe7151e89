package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty database
// 1 - documents table
// 2 - index on documents.updated_at
const currentSchemaVersion = 2

// SQLite is a Ledger backed by a SQLite database file.
//
// Writes from this process reach subscribers immediately through the hub;
// writes from other processes sharing the file are picked up by polling
// the revision column.
type SQLite struct {
	db   *sql.DB
	hub  *hub
	opts options
}

// OpenSQLite creates or opens a SQLite database at path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, hub: newHub(), opts: buildOptions(opts)}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV2 indexes updated_at so exports can list recently written paths.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_updated_at
		ON documents(updated_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// Set overwrites the document. The upsert bumps the revision atomically.
func (s *SQLite) Set(ctx context.Context, path string, value []byte) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}
	c, err := s.write(ctx, s.db, path, value)
	if err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}
	s.hub.publish(c)
	return c.Revision, nil
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) write(ctx context.Context, q execQuerier, path string, value []byte) (Change, error) {
	now := s.opts.now().UTC()
	var revision int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO documents (path, value, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			value = excluded.value,
			revision = documents.revision + 1,
			updated_at = excluded.updated_at
		RETURNING revision
	`, path, string(value), now.Format(time.RFC3339Nano)).Scan(&revision)
	if err != nil {
		return Change{}, err
	}
	return Change{
		Path:      path,
		Value:     append([]byte(nil), value...),
		Revision:  revision,
		UpdatedAt: now,
	}, nil
}

// Update merges inside a transaction so the read and the write see the
// same revision.
func (s *SQLite) Update(ctx context.Context, path string, partial map[string]json.RawMessage) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("update: begin: %w", err)
	}
	defer tx.Rollback()

	current, err := s.read(ctx, tx, path)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	merged, err := mergeObject(current.Value, partial)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	c, err := s.write(ctx, tx, path, merged)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("update: commit: %w", err)
	}

	s.hub.publish(c)
	return c.Revision, nil
}

func (s *SQLite) ReadOnce(ctx context.Context, path string) (Change, error) {
	if err := checkPath(path); err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	c, err := s.read(ctx, s.db, path)
	if err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	return c, nil
}

func (s *SQLite) read(ctx context.Context, q execQuerier, path string) (Change, error) {
	var (
		value     string
		revision  int64
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT value, revision, updated_at
		FROM documents
		WHERE path = ?
	`, path).Scan(&value, &revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Change{Path: path}, nil
	}
	if err != nil {
		return Change{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Change{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return Change{
		Path:      path,
		Value:     []byte(value),
		Revision:  revision,
		UpdatedAt: ts,
	}, nil
}

func (s *SQLite) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := checkPath(path); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	read := func(ctx context.Context) (Change, error) {
		return s.read(ctx, s.db, path)
	}
	onErr := func(err error) {
		slog.Warn("sqlite poll failed", "path", path, "error", err)
	}
	sub, err := subscribe(ctx, s.hub, path, read, s.opts.pollInterval, onErr)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// Paths lists stored document paths, most recently written first.
func (s *SQLite) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM documents
		ORDER BY updated_at DESC, path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("list paths: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
