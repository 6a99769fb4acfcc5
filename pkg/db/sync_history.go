package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded sync of an account.
type Run struct {
	RunID      string
	Account    string
	Since      string
	Until      string
	Fetched    int
	Written    int
	Filtered   int
	Failed     int
	Duplicates int
	LedgerFile string
	StartedAt  time.Time
}

// SyncedItem is a feed item written to the ledger.
type SyncedItem struct {
	Account         string
	FeedItemUID     string
	TransactionDate string
	Amount          string
	Currency        string
	RunID           string
	LedgerFile      string
}

// SyncHistory manages sync history operations.
type SyncHistory struct {
	conn *Connection
}

// NewSyncHistory creates a new SyncHistory instance.
func NewSyncHistory(conn *Connection) *SyncHistory {
	return &SyncHistory{conn: conn}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun records a sync run. An empty RunID is filled in.
func (s *SyncHistory) RecordRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = NewRunID()
	}

	query := `
		INSERT INTO sync_runs (run_id, account, since_date, until_date,
			fetched, written, filtered, failed, duplicates, ledger_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.conn.Exec(query,
		run.RunID,
		run.Account,
		run.Since,
		run.Until,
		run.Fetched,
		run.Written,
		run.Filtered,
		run.Failed,
		run.Duplicates,
		run.LedgerFile,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecordItems records synced feed items in one transaction.
// Existing records (same account + feed_item_uid) are updated.
func (s *SyncHistory) RecordItems(items []SyncedItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO synced_items (account, feed_item_uid, transaction_date, amount, currency, run_id, ledger_file)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, feed_item_uid) DO UPDATE SET
			transaction_date = excluded.transaction_date,
			amount = excluded.amount,
			currency = excluded.currency,
			run_id = excluded.run_id,
			ledger_file = excluded.ledger_file,
			synced_at = CURRENT_TIMESTAMP
	`

	return s.conn.InTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, item := range items {
			if _, err := stmt.Exec(
				item.Account,
				item.FeedItemUID,
				item.TransactionDate,
				item.Amount,
				item.Currency,
				item.RunID,
				item.LedgerFile,
			); err != nil {
				return fmt.Errorf("failed to record item %s: %w", item.FeedItemUID, err)
			}
		}
		return nil
	})
}

// GetSyncedUIDs retrieves all synced feed item uids of an account.
func (s *SyncHistory) GetSyncedUIDs(account string) (map[string]bool, error) {
	rows, err := s.conn.Query(`SELECT feed_item_uid FROM synced_items WHERE account = ?`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get synced uids: %w", err)
	}
	defer rows.Close()

	uids := make(map[string]bool)
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan feed item uid: %w", err)
		}
		uids[uid] = true
	}

	return uids, rows.Err()
}

// GetRuns retrieves the latest runs of an account, newest first.
// An empty account matches every account.
func (s *SyncHistory) GetRuns(account string, limit int) ([]Run, error) {
	query := `
		SELECT run_id, account, since_date, until_date, fetched, written,
			filtered, failed, duplicates, ledger_file, started_at
		FROM sync_runs
		WHERE ? = '' OR account = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(query, account, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.RunID,
			&run.Account,
			&run.Since,
			&run.Until,
			&run.Fetched,
			&run.Written,
			&run.Filtered,
			&run.Failed,
			&run.Duplicates,
			&run.LedgerFile,
			&run.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Stats represents sync statistics.
type Stats struct {
	TotalRuns  int
	TotalItems int
	Accounts   int
	LastSync   sql.NullString
}

// GetStats retrieves sync statistics. An empty account covers every account.
func (s *SyncHistory) GetStats(account string) (*Stats, error) {
	var stats Stats

	// Get run count
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM sync_runs WHERE ? = '' OR account = ?`,
		account, account).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get run count: %w", err)
	}

	// Get item count
	err = s.conn.QueryRow(`SELECT COUNT(*) FROM synced_items WHERE ? = '' OR account = ?`,
		account, account).Scan(&stats.TotalItems)
	if err != nil {
		return nil, fmt.Errorf("failed to get item count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(DISTINCT account) FROM sync_runs WHERE ? = '' OR account = ?`,
		account, account).Scan(&stats.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get account count: %w", err)
	}

	// Get last sync time
	err = s.conn.QueryRow(`SELECT MAX(started_at) FROM sync_runs WHERE ? = '' OR account = ?`,
		account, account).Scan(&stats.LastSync)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (s *SyncHistory) GetMetadata(key string) (string, error) {
	query := `SELECT value FROM sync_metadata WHERE key = ?`

	var value string
	err := s.conn.QueryRow(query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (s *SyncHistory) SetMetadata(key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.conn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
