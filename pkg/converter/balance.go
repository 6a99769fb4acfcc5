package converter

import (
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
)

// SyncMarker is the note comment used as the sync high-water mark.
const SyncMarker = "bean-extract"

// BalanceAssertion builds a balance assertion of the total cleared balance
// dated the day after today. Balance assertions hold at the start of their date.
func BalanceAssertion(bal starling.Balance, account string, today time.Time) (beancount.Balance, error) {
	cleared := bal.TotalClearedBalance
	if cleared.Currency == "" {
		return beancount.Balance{}, fmt.Errorf("%w: balance has no currency", ErrInvalidAmount)
	}

	return beancount.Balance{
		Meta:    beancount.Metadata{Source: SourceTag},
		Date:    beancount.Day(today).AddDate(0, 0, 1),
		Account: account,
		Amount:  beancount.Amount{Number: MajorUnits(cleared), Currency: cleared.Currency},
	}, nil
}

// SyncNote builds the sync marker note. The next sync resumes from its
// date, so it must not be later than the end of the fetched window.
func SyncNote(account string, date time.Time) beancount.Note {
	return beancount.Note{
		Meta:    beancount.Metadata{Source: SourceTag},
		Date:    beancount.Day(date),
		Account: account,
		Comment: SyncMarker,
	}
}

// SnapshotBalance builds a balance assertion and a sync marker note,
// both dated the day after today, for a sync that fetched up to today.
func SnapshotBalance(bal starling.Balance, account string, today time.Time) ([]beancount.Entry, error) {
	b, err := BalanceAssertion(bal, account, today)
	if err != nil {
		return nil, err
	}
	return []beancount.Entry{b, SyncNote(account, b.Date)}, nil
}
