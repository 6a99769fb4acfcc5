// Package syncpoint finds where the previous sync stopped.
package syncpoint

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/converter"
)

// Sentinel is the start date used when a ledger has no sync marker.
var Sentinel = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Resolver resolves the fetch start date from existing ledger entries.
type Resolver struct {
	lagDays int
}

// Result is a resolved sync point.
type Result struct {
	Account  string
	Start    time.Time // first date to fetch
	LastSync time.Time // date of the newest marker, zero on first run
	FirstRun bool
}

// New creates a Resolver. Negative lags are treated as zero.
func New(lagDays int) *Resolver {
	if lagDays < 0 {
		lagDays = 0
	}
	return &Resolver{lagDays: lagDays}
}

// LagDays returns the configured lag.
func (r *Resolver) LagDays() int {
	return r.lagDays
}

// Resolve returns the start date for account. The newest note on the
// account whose comment contains the sync marker is the last sync point;
// the lag is subtracted from it. Without a marker the Sentinel is returned
// unchanged and FirstRun is set.
func (r *Resolver) Resolve(entries []beancount.Entry, account string) Result {
	var last time.Time
	for _, e := range entries {
		note, ok := asNote(e)
		if !ok || note.Account != account || !strings.Contains(note.Comment, converter.SyncMarker) {
			continue
		}
		if note.Date.After(last) {
			last = note.Date
		}
	}

	if last.IsZero() {
		slog.Warn("No sync marker found, fetching from sentinel date",
			"account", account, "since", Sentinel.Format(beancount.DateLayout))
		return Result{Account: account, Start: Sentinel, FirstRun: true}
	}

	start := beancount.Day(last).AddDate(0, 0, -r.lagDays)
	slog.Debug("Resolved sync point", "account", account,
		"last_sync", last.Format(beancount.DateLayout), "start", start.Format(beancount.DateLayout))
	return Result{Account: account, Start: start, LastSync: last}
}

// Guidance returns operator instructions for seeding the first sync marker,
// or "" when a marker was found.
func (r Result) Guidance() string {
	if !r.FirstRun {
		return ""
	}
	return fmt.Sprintf("No %q note found for %s, so all transactions since %s will be fetched.\n"+
		"To start from a later date, add a note to the ledger, for example:\n\n"+
		"    2022-03-01 note %s %q\n",
		converter.SyncMarker, r.Account, r.Start.Format(beancount.DateLayout), r.Account, converter.SyncMarker)
}

func asNote(e beancount.Entry) (beancount.Note, bool) {
	switch n := e.(type) {
	case beancount.Note:
		return n, true
	case *beancount.Note:
		return *n, true
	}
	return beancount.Note{}, false
}
