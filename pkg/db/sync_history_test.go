package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *SyncHistory {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "sync.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSyncHistory(conn)
}

func TestRecordItems(t *testing.T) {
	h := openTestDB(t)

	items := []SyncedItem{
		{Account: "joint", FeedItemUID: "f1", TransactionDate: "2024-01-15", Amount: "25.00", Currency: "GBP", RunID: "r1", LedgerFile: "main.beancount"},
		{Account: "joint", FeedItemUID: "f2", TransactionDate: "2024-01-16", Amount: "-3.50", Currency: "GBP", RunID: "r1", LedgerFile: "main.beancount"},
		{Account: "personal", FeedItemUID: "f1", TransactionDate: "2024-01-15", Amount: "1.00", Currency: "GBP", RunID: "r2", LedgerFile: "main.beancount"},
	}
	if err := h.RecordItems(items); err != nil {
		t.Fatalf("RecordItems() error = %v", err)
	}
	// re-recording updates in place
	if err := h.RecordItems(items[:1]); err != nil {
		t.Fatalf("RecordItems() again error = %v", err)
	}

	uids, err := h.GetSyncedUIDs("joint")
	if err != nil {
		t.Fatalf("GetSyncedUIDs() error = %v", err)
	}
	if len(uids) != 2 || !uids["f1"] || !uids["f2"] {
		t.Errorf("GetSyncedUIDs(joint) = %v", uids)
	}

	tests := []struct {
		account  string
		uid      string
		expected bool
	}{
		{"joint", "f1", true},
		{"joint", "f3", false},
		{"personal", "f2", false},
	}
	for _, tt := range tests {
		t.Run(tt.account+"/"+tt.uid, func(t *testing.T) {
			synced, err := h.GetSyncedUIDs(tt.account)
			if err != nil {
				t.Fatal(err)
			}
			if synced[tt.uid] != tt.expected {
				t.Errorf("GetSyncedUIDs(%s)[%s] = %v, expected %v", tt.account, tt.uid, synced[tt.uid], tt.expected)
			}
		})
	}
}

func TestRecordRunAndStats(t *testing.T) {
	h := openTestDB(t)

	stats, err := h.GetStats("")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalRuns != 0 || stats.LastSync.Valid {
		t.Errorf("empty stats = %+v", stats)
	}

	run := &Run{Account: "joint", Since: "2024-01-01", Until: "2024-01-31", Fetched: 3, Written: 2, Filtered: 1, LedgerFile: "main.beancount"}
	if err := h.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if run.RunID == "" {
		t.Error("RecordRun() did not assign a run id")
	}
	if err := h.RecordRun(&Run{Account: "personal", Since: "2024-01-01", Until: "2024-01-31", LedgerFile: "main.beancount"}); err != nil {
		t.Fatal(err)
	}
	if err := h.RecordItems([]SyncedItem{{Account: "joint", FeedItemUID: "f1", TransactionDate: "2024-01-15", Amount: "1", Currency: "GBP", RunID: run.RunID, LedgerFile: "x"}}); err != nil {
		t.Fatal(err)
	}

	all, err := h.GetStats("")
	if err != nil {
		t.Fatal(err)
	}
	if all.TotalRuns != 2 || all.Accounts != 2 || all.TotalItems != 1 || !all.LastSync.Valid {
		t.Errorf("GetStats(\"\") = %+v", all)
	}

	joint, err := h.GetStats("joint")
	if err != nil {
		t.Fatal(err)
	}
	if joint.TotalRuns != 1 || joint.Accounts != 1 || joint.TotalItems != 1 {
		t.Errorf("GetStats(joint) = %+v", joint)
	}

	runs, err := h.GetRuns("joint", 10)
	if err != nil {
		t.Fatalf("GetRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != run.RunID || runs[0].Written != 2 || runs[0].Filtered != 1 {
		t.Errorf("GetRuns(joint) = %+v", runs)
	}
}

func TestMetadata(t *testing.T) {
	h := openTestDB(t)

	value, err := h.GetMetadata("balance:joint")
	if err != nil || value != "" {
		t.Fatalf("GetMetadata() = %q, %v, expected empty", value, err)
	}

	for _, v := range []string{"10.00 GBP", "12.34 GBP"} {
		if err := h.SetMetadata("balance:joint", v); err != nil {
			t.Fatalf("SetMetadata() error = %v", err)
		}
	}

	value, err = h.GetMetadata("balance:joint")
	if err != nil || value != "12.34 GBP" {
		t.Errorf("GetMetadata() = %q, %v", value, err)
	}
}
