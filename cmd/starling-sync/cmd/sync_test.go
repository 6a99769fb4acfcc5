package cmd

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/syncpoint"
)

func TestParseDateFlag(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"", time.Time{}, false},
		{"2024-01-31", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), false},
		{"2024/01/31", time.Time{}, true},
		{"2024-02-30", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parseDateFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDateFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("parseDateFlag(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSyncHeader(t *testing.T) {
	got := syncHeader("Joint:Main", time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC))
	if got != "* Joint:Main - 2024-03-10" {
		t.Errorf("syncHeader() = %q", got)
	}
}

func TestHistoryItems(t *testing.T) {
	items := []starling.FeedItem{
		{
			FeedItemUID:     "f1",
			TransactionTime: "2024-03-05T10:00:00.000Z",
			Amount:          starling.CurrencyAndAmount{Currency: "GBP", MinorUnits: 1999},
			Direction:       starling.DirectionOut,
		},
		{FeedItemUID: "broken", TransactionTime: ""},
	}

	records := historyItems("joint_main", "run-1", "main.beancount", items)
	if len(records) != 1 {
		t.Fatalf("got %d records, expected 1", len(records))
	}

	r := records[0]
	if r.Account != "joint_main" || r.FeedItemUID != "f1" || r.RunID != "run-1" || r.LedgerFile != "main.beancount" {
		t.Errorf("record = %+v", r)
	}
	if r.TransactionDate != "2024-03-05" || r.Amount != "-19.99" || r.Currency != "GBP" {
		t.Errorf("record = %+v", r)
	}
}

func TestLastBalance(t *testing.T) {
	entries := []beancount.Entry{
		beancount.Transaction{},
		beancount.Balance{Account: "Joint:Main", Amount: beancount.Amount{Number: decimal.NewFromInt(5), Currency: "GBP"}},
		beancount.Note{},
	}

	b, ok := lastBalance(entries)
	if !ok || b.Account != "Joint:Main" {
		t.Errorf("lastBalance() = %+v, %v", b, ok)
	}
	if _, ok := lastBalance(entries[:1]); ok {
		t.Error("lastBalance() found a balance in transactions only")
	}
}

func TestFormatSince(t *testing.T) {
	first := syncpoint.Result{Account: "Joint:Main", Start: syncpoint.Sentinel, FirstRun: true}
	if got := formatSince(first); got != "Joint:Main\t2000-01-01\t(no sync marker)" {
		t.Errorf("formatSince(first run) = %q", got)
	}

	next := syncpoint.Result{
		Account:  "Joint:Main",
		Start:    time.Date(2023, 4, 28, 0, 0, 0, 0, time.UTC),
		LastSync: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if got := formatSince(next); got != "Joint:Main\t2023-04-28\t(last sync 2023-05-01)" {
		t.Errorf("formatSince() = %q", got)
	}
}
