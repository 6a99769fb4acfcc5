// Package db provides SQLite storage for sync history and metadata.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Sync runs
-- One row per sync of an account, dry runs excluded
CREATE TABLE IF NOT EXISTS sync_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL UNIQUE,       -- UUID
    account TEXT NOT NULL,             -- account id, e.g. joint_main
    since_date TEXT NOT NULL,          -- YYYY-MM-DD
    until_date TEXT NOT NULL,          -- YYYY-MM-DD
    fetched INTEGER NOT NULL DEFAULT 0,
    written INTEGER NOT NULL DEFAULT 0,
    filtered INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    duplicates INTEGER NOT NULL DEFAULT 0,
    ledger_file TEXT NOT NULL,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_account
    ON sync_runs(account, started_at);

-- Synced feed items
-- Tracks which feed items have been written to the ledger
CREATE TABLE IF NOT EXISTS synced_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account TEXT NOT NULL,
    feed_item_uid TEXT NOT NULL,
    transaction_date TEXT NOT NULL,    -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- signed decimal
    currency TEXT NOT NULL,
    run_id TEXT NOT NULL,
    ledger_file TEXT NOT NULL,
    synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(account, feed_item_uid)
);

CREATE INDEX IF NOT EXISTS idx_synced_items_date
    ON synced_items(transaction_date);

-- Sync metadata table
-- Stores key-value metadata about sync operations
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
