// Package beancount provides the ledger entry model, a text printer and
// file repository for Beancount ledgers.
package beancount

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the Beancount date format.
const DateLayout = "2006-01-02"

// FlagOK marks a completed transaction.
const FlagOK = "*"

// Entry is a dated ledger directive.
type Entry interface {
	EntryDate() time.Time
	EntryAccount() string
}

// Metadata describes where an entry came from.
// Source and Ordinal are not printed; Extra keys are, in sorted order.
type Metadata struct {
	Source    string
	Ordinal   int
	Extra     map[string]string
	Duplicate bool // printed commented out
}

// Transaction represents a Beancount transaction.
type Transaction struct {
	Meta      Metadata
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []Posting
}

// Posting represents a posting in a Beancount transaction.
// A nil Amount is inferred by Beancount as the balancing amount.
type Posting struct {
	Account string
	Amount  *Amount
	Comment string
}

// Amount is a decimal number with a currency.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// Balance is a balance assertion, checked at the start of Date.
type Balance struct {
	Meta    Metadata
	Date    time.Time
	Account string
	Amount  Amount
}

// Note attaches a comment to an account on a date.
type Note struct {
	Meta    Metadata
	Date    time.Time
	Account string
	Comment string
}

func (t Transaction) EntryDate() time.Time { return t.Date }

// EntryAccount returns the account of the first posting.
func (t Transaction) EntryAccount() string {
	if len(t.Postings) == 0 {
		return ""
	}
	return t.Postings[0].Account
}

func (b Balance) EntryDate() time.Time { return b.Date }
func (b Balance) EntryAccount() string { return b.Account }
func (n Note) EntryDate() time.Time    { return n.Date }
func (n Note) EntryAccount() string    { return n.Account }

// NewAmount returns an Amount pointer, handy for postings.
func NewAmount(number decimal.Decimal, currency string) *Amount {
	return &Amount{Number: number, Currency: currency}
}

// AccountName builds a ledger account from an account identifier by
// capitalizing each underscore-delimited word: "joint_main" -> "Joint:Main".
func AccountName(id string) string {
	words := strings.Split(id, "_")
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		parts = append(parts, capitalize(w))
	}
	return strings.Join(parts, ":")
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(w string) string {
	w = strings.ToLower(w)
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}

// Day truncates t to its calendar date in t's own location, returned as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
