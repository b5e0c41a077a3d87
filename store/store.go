// Package store persists the ticker → CIK dataset in an embedded libsql
// database so lookups survive process restarts. The in-memory cache layer in
// the root package treats it as the source of truth on cold start.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

const driverLibsql = "libsql"

// metaKeyETag is the freshness token persisted alongside the dataset.
const metaKeyETag = "company_tickers_etag"

// Company is one row of the persisted dataset.
type Company struct {
	CIK    string
	Ticker string
	Title  string
}

// Store wraps the database connection. database/sql hands each operation its
// own pooled connection, so concurrent reads never serialize on one handle.
type Store struct {
	db *sql.DB
}

// Open initializes a store at path (":memory:" for an ephemeral one) and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("store path is required")
	}
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "file:") || strings.HasPrefix(path, "libsql:") {
		return path, nil
	}
	if err := ensureDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		ticker TEXT PRIMARY KEY,
		cik TEXT NOT NULL,
		title TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_companies_cik ON companies(cik);`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}

// ReplaceAll swaps the whole companies table for the given dataset and
// records its ETag, inside one transaction. Replace-all rather than upsert:
// a partially applied refresh must never be visible.
func (s *Store) ReplaceAll(ctx context.Context, companies []Company, etag string) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM companies`); err != nil {
		return fmt.Errorf("clear companies: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO companies (ticker, cik, title) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range companies {
		if _, err := stmt.ExecContext(ctx, c.Ticker, c.CIK, c.Title); err != nil {
			return fmt.Errorf("insert company %s: %w", c.Ticker, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaKeyETag, etag); err != nil {
		return fmt.Errorf("record etag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refresh: %w", err)
	}
	return nil
}

// Lookup returns the company for a ticker, reporting presence separately
// from errors.
func (s *Store) Lookup(ctx context.Context, ticker string) (Company, bool, error) {
	if s == nil || s.db == nil {
		return Company{}, false, errors.New("store is not initialized")
	}

	var c Company
	var title sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT ticker, cik, title FROM companies WHERE ticker = ?`, ticker)
	if err := row.Scan(&c.Ticker, &c.CIK, &title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, false, nil
		}
		return Company{}, false, fmt.Errorf("lookup ticker: %w", err)
	}
	c.Title = title.String
	return c, true, nil
}

// All returns the full persisted dataset.
func (s *Store) All(ctx context.Context) ([]Company, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ticker, cik, title FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var companies []Company
	for rows.Next() {
		var c Company
		var title sql.NullString
		if err := rows.Scan(&c.Ticker, &c.CIK, &title); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.Title = title.String
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

// ETag returns the persisted freshness token, empty when none is recorded.
func (s *Store) ETag(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("store is not initialized")
	}

	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaKeyETag)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load etag: %w", err)
	}
	return value, nil
}

// Count reports the number of persisted companies.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return n, nil
}
