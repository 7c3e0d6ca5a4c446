package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

// SQLStore is a SQL-backed Store.
// It works with any database/sql driver for the supported dialects.
// Requires a table with schema (see CreateTable):
//
//	CREATE TABLE senhas_state (
//	    name VARCHAR(64) PRIMARY KEY,
//	    value BLOB NOT NULL,
//	    updated_at DATETIME
//	);
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	closed    atomic.Bool
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectSQLite uses SQLite syntax (modernc.org/sqlite, driver "sqlite").
	DialectSQLite SQLDialect = iota
	// DialectMySQL uses MySQL syntax (github.com/go-sql-driver/mysql).
	DialectMySQL
)

// String returns the dialect name.
func (d SQLDialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName string
	dialect   SQLDialect
}

// WithSQLTableName sets the table name.
// Default: "senhas_state".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect for query generation.
// Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// NewSQLStore creates a new SQL-backed store. The table must exist; call
// CreateTable for a fresh database.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName: "senhas_state",
		dialect:   DialectSQLite,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &SQLStore{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
	}
}

// Get returns the value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	query := fmt.Sprintf(`SELECT value FROM %s WHERE name = ?`, s.tableName)

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Set upserts the value stored under key.
func (s *SQLStore) Set(ctx context.Context, key string, data []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (name, value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				updated_at = NOW()
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT INTO %s (name, value, updated_at)
			VALUES (?, ?, datetime('now'))
			ON CONFLICT (name) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query, key, data)
	return err
}

// Close marks the store as closed.
// Note: This does not close the underlying database connection,
// as it may be shared with other components.
func (s *SQLStore) Close() error {
	s.closed.Store(true)
	return nil
}

// CreateTable creates the state table if it doesn't exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name VARCHAR(64) PRIMARY KEY,
				value MEDIUMBLOB NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
			)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name TEXT PRIMARY KEY,
				value BLOB NOT NULL,
				updated_at TEXT DEFAULT (datetime('now'))
			)
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Dialect returns the configured dialect.
func (s *SQLStore) Dialect() SQLDialect {
	return s.dialect
}
