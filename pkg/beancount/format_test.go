package beancount

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleTransaction() Transaction {
	return Transaction{
		Meta:      Metadata{Source: "starling-api", Ordinal: 3, Extra: map[string]string{"user": "Alice"}},
		Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Flag:      FlagOK,
		Payee:     "Tesco",
		Narration: "Card payment",
		Postings: []Posting{
			{Account: "Assets:Joint", Amount: NewAmount(decimal.RequireFromString("-19.99"), "GBP")},
			{Account: "Expenses:Food"},
		},
	}
}

func TestFormatTransaction(t *testing.T) {
	got := Format(sampleTransaction())

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Format() returned %d lines, expected 4:\n%s", len(lines), got)
	}
	if lines[0] != `2024-01-15 * "Tesco" "Card payment"` {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `  user: "Alice"` {
		t.Errorf("metadata = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  Assets:Joint ") || !strings.HasSuffix(lines[2], " -19.99 GBP") {
		t.Errorf("first posting = %q", lines[2])
	}
	if lines[3] != "  Expenses:Food" {
		t.Errorf("second posting = %q, expected no amount", lines[3])
	}
}

func TestFormatBalanceAndNote(t *testing.T) {
	date := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		entry    Entry
		expected string
	}{
		{
			"balance",
			Balance{Date: date, Account: "Assets:Joint", Amount: Amount{Number: decimal.New(1250, -2), Currency: "GBP"}},
			"2024-01-16 balance Assets:Joint 12.50 GBP\n",
		},
		{
			"note",
			Note{Date: date, Account: "Assets:Joint", Comment: "bean-extract"},
			"2024-01-16 note Assets:Joint \"bean-extract\"\n",
		},
		{
			"duplicate note",
			&Note{Meta: Metadata{Duplicate: true}, Date: date, Account: "Assets:Joint", Comment: "bean-extract"},
			"; 2024-01-16 note Assets:Joint \"bean-extract\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.entry)
			if result != tt.expected {
				t.Errorf("Format() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestFormatDuplicateTransaction(t *testing.T) {
	txn := sampleTransaction()
	txn.Meta.Duplicate = true

	for _, line := range strings.Split(strings.TrimSuffix(Format(txn), "\n"), "\n") {
		if !strings.HasPrefix(line, "; ") {
			t.Errorf("line %q is not commented out", line)
		}
	}
}

func TestWriteEntries(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{sampleTransaction(), Note{Date: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), Account: "Assets:Joint", Comment: "bean-extract"}}

	if err := WriteEntries(&buf, entries); err != nil {
		t.Fatalf("WriteEntries() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\n2024-01-15 *") {
		t.Errorf("output does not start with a blank line and the transaction:\n%s", out)
	}
	if !strings.Contains(out, "\n\n2024-01-16 note") {
		t.Errorf("entries are not separated by a blank line:\n%s", out)
	}
}
