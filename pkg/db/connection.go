package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// pragmas are passed to the sqlite3 driver on every connection.
// WAL and the busy timeout let `stats` read while a sync writes.
var pragmas = url.Values{
	"_foreign_keys": {"on"},
	"_journal_mode": {"WAL"},
	"_busy_timeout": {"5000"},
	"_txlock":       {"immediate"},
}

// Connection is the history database handle shared by the stores.
type Connection struct {
	db   *sql.DB
	path string
}

func dsn(path string) string {
	return "file:" + path + "?" + pragmas.Encode()
}

// Open opens the history database at path. The parent directory and the
// schema are created as needed.
func Open(path string) (*Connection, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn := &Connection{db: sqlDB, path: path}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := InitializeSchema(conn); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return conn, nil
}

func (c *Connection) Close() error {
	return c.db.Close()
}

// Path is the database file the connection was opened on.
func (c *Connection) Path() string {
	return c.path
}

func (c *Connection) Query(query string, args ...any) (*sql.Rows, error) {
	return c.db.Query(query, args...)
}

func (c *Connection) QueryRow(query string, args ...any) *sql.Row {
	return c.db.QueryRow(query, args...)
}

func (c *Connection) Exec(query string, args ...any) (sql.Result, error) {
	return c.db.Exec(query, args...)
}

// InTx runs fn in a transaction and commits when fn returns nil.
// Any other outcome, a panic included, rolls back.
func (c *Connection) InTx(fn func(*sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op after a successful commit.
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
