package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect struct {
	driver string
	schema string
	get    string
	upsert string
	del    string
}

var postgresDialect = dialect{
	driver: "pgx",
	schema: `CREATE TABLE IF NOT EXISTS kv_documents (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT value FROM kv_documents WHERE key = $1`,
	upsert: `INSERT INTO kv_documents (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
	del: `DELETE FROM kv_documents WHERE key = $1`,
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS kv_documents (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	get: `SELECT value FROM kv_documents WHERE key = ?`,
	upsert: `INSERT INTO kv_documents (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
	del: `DELETE FROM kv_documents WHERE key = ?`,
}

// DB stores documents in a kv_documents table of a SQL database.
type DB struct {
	Client *sql.DB
	d      dialect
}

// NewPostgres opens a Postgres connection through pgx with sane defaults.
func NewPostgres(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open(postgresDialect.driver, connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return migrate(ctx, db, postgresDialect)
}

// NewSQLite opens (creating if needed) a SQLite database file.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = "data/cards.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return migrate(ctx, db, sqliteDialect)
}

func migrate(ctx context.Context, db *sql.DB, d dialect) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.driver, err)
	}
	return &DB{Client: db, d: d}, nil
}

func (s *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.Client.QueryRowContext(ctx, s.d.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.Client.ExecContext(ctx, s.d.upsert, key, string(value))
	return err
}

func (s *DB) Delete(ctx context.Context, key string) error {
	_, err := s.Client.ExecContext(ctx, s.d.del, key)
	return err
}

func (s *DB) Healthy(ctx context.Context) bool {
	return s != nil && s.Client != nil && s.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (s *DB) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}
