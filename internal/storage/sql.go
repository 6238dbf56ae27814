// internal/storage/sql.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/valpere/DropScrapexter/internal/product"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// dialect holds the statement differences between SQL drivers
type dialect struct {
	name        string
	placeholder func(n int) string
	createTable string
	upsert      string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:        DriverSQLite,
		placeholder: func(int) string { return "?" },
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		upsert: `ON CONFLICT (id) DO UPDATE SET status = excluded.status, title = excluded.title,
			source_url = excluded.source_url, updated_at = excluded.updated_at, data = excluded.data`,
	},
	DriverPostgres: {
		name:        DriverPostgres,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			status VARCHAR(16) NOT NULL,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			created_at VARCHAR(32) NOT NULL,
			updated_at VARCHAR(32) NOT NULL,
			data JSONB NOT NULL
		)`,
		upsert: `ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, title = EXCLUDED.title,
			source_url = EXCLUDED.source_url, updated_at = EXCLUDED.updated_at, data = EXCLUDED.data`,
	},
	DriverMySQL: {
		name:        DriverMySQL,
		placeholder: func(int) string { return "?" },
		createTable: `CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			status VARCHAR(16) NOT NULL,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			created_at VARCHAR(32) NOT NULL,
			updated_at VARCHAR(32) NOT NULL,
			data JSON NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		upsert: `ON DUPLICATE KEY UPDATE status = VALUES(status), title = VALUES(title),
			source_url = VALUES(source_url), updated_at = VALUES(updated_at), data = VALUES(data)`,
	},
}

// SQLStore keeps drafts in one table of a SQL database. The product is
// stored as a JSON document next to the columns used for filtering.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
}

// OpenSQL connects with database/sql, verifies the connection and creates
// the drafts table when missing.
func OpenSQL(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.Driver == DriverSQLite {
		if dir := filepath.Dir(cfg.DSN); dir != "." && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite works best with single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	store, err := NewSQLStore(db, cfg.Driver, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database. driver selects the SQL dialect.
func NewSQLStore(db *sql.DB, driver, table string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	return &SQLStore{db: db, dialect: d, table: table}, nil
}

// Migrate creates the drafts table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createTable, s.table)); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", s.table, err)
	}
	return nil
}

// Save inserts the draft or replaces an existing draft with the same ID
func (s *SQLStore) Save(ctx context.Context, draft *product.Draft) error {
	if draft == nil || draft.ID == "" {
		return fmt.Errorf("draft ID is required")
	}
	data, err := json.Marshal(draft.Product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, status, title, source_url, created_at, updated_at, data) VALUES (%s) %s",
		s.table, s.placeholders(7), s.dialect.upsert)
	_, err = s.db.ExecContext(ctx, query,
		draft.ID,
		string(draft.Status),
		draft.Title,
		draft.SourceURL,
		formatTime(draft.CreatedAt),
		formatTime(draft.UpdatedAt),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}
	return nil
}

// Get returns the draft with the given ID or ErrNotFound
func (s *SQLStore) Get(ctx context.Context, id string) (*product.Draft, error) {
	query := fmt.Sprintf("SELECT id, status, created_at, updated_at, data FROM %s WHERE id = %s",
		s.table, s.dialect.placeholder(1))
	draft, err := scanDraft(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s: %w", id, err)
	}
	return draft, nil
}

// List returns drafts newest first, optionally filtered by status
func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]*product.Draft, error) {
	var (
		where string
		args  []interface{}
	)
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		where = " WHERE status = " + s.dialect.placeholder(len(args))
	}

	query := fmt.Sprintf("SELECT id, status, created_at, updated_at, data FROM %s%s ORDER BY created_at DESC, id",
		s.table, where)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += " LIMIT " + s.dialect.placeholder(len(args))
		if opts.Offset > 0 {
			args = append(args, opts.Offset)
			query += " OFFSET " + s.dialect.placeholder(len(args))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]*product.Draft, 0)
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

// UpdateStatus changes the editorial status of a draft
func (s *SQLStore) UpdateStatus(ctx context.Context, id string, status product.Status, now time.Time) (*product.Draft, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	query := fmt.Sprintf("UPDATE %s SET status = %s, updated_at = %s WHERE id = %s",
		s.table, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))
	res, err := s.db.ExecContext(ctx, query, string(status), formatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update draft %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a draft
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.table, s.dialect.placeholder(1))
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*product.Draft, error) {
	var (
		draft            product.Draft
		status           string
		created, updated string
		data             []byte
	)
	if err := row.Scan(&draft.ID, &status, &created, &updated, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &draft.Product); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}

	var err error
	draft.Status = product.Status(status)
	if draft.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if draft.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	return &draft, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
