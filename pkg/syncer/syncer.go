// Package syncer runs the account sync pipeline: sync point, feed,
// entries, deduplication and balance snapshot.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/config"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/feed"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/syncpoint"
)

// ErrNoHistory is returned when a dedup policy needs a history store and none is set.
var ErrNoHistory = errors.New("dedup policy requires a sync history")

// Client is the API surface the pipeline needs.
type Client interface {
	feed.Source
	PrimaryAccount(ctx context.Context) (starling.Account, error)
	Balance(ctx context.Context, accountUID string) (starling.Balance, error)
}

// History looks up feed items already written to the ledger.
type History interface {
	GetSyncedUIDs(account string) (map[string]bool, error)
}

// Options configures a Syncer for one account.
type Options struct {
	AccountID string      // token/account identifier, e.g. "joint_main"
	Window    feed.Window // default feed.WindowBetween
	LagDays   int
	Dedup     string  // config.DedupNone, DedupSkip or DedupComment
	History   History // required unless Dedup is none
	Now       func() time.Time
}

// Syncer syncs one account.
type Syncer struct {
	client     Client
	conv       *converter.Converter
	normalizer *feed.Normalizer
	resolver   *syncpoint.Resolver
	opts       Options

	account *starling.Account
}

// RunOptions controls a single run.
type RunOptions struct {
	Existing    []beancount.Entry // ledger entries scanned for the sync marker
	Since       time.Time         // overrides the sync point when set
	Until       time.Time         // exclusive; default tomorrow
	BalanceOnly bool
}

// Report is the outcome of a run.
type Report struct {
	AccountID  string
	Ledger     string
	SyncPoint  syncpoint.Result
	Since      time.Time
	Until      time.Time
	Fetched    int
	Result     converter.Result
	Duplicates int
	Entries    []beancount.Entry // transactions, then balance, then note
	Synced     []starling.FeedItem
}

// FailureGuidance returns operator instructions when feed items failed to
// convert, or "" when none did. Failed items are not retried once the
// sync marker has moved past them.
func (r *Report) FailureGuidance() string {
	if len(r.Result.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d feed items of %s could not be converted and were not written:\n", len(r.Result.Errors), r.Ledger)
	for _, e := range r.Result.Errors {
		fmt.Fprintf(&sb, "    %v\n", e)
	}
	fmt.Fprintf(&sb, "Fix the cause and re-run with --since %s to fetch them again.\n", r.Since.Format(beancount.DateLayout))
	return sb.String()
}

// New creates a Syncer.
func New(client Client, conv *converter.Converter, opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Dedup == "" {
		opts.Dedup = config.DedupNone
	}

	return &Syncer{
		client:     client,
		conv:       conv,
		normalizer: feed.NewNormalizer(client, opts.Window),
		resolver:   syncpoint.New(opts.LagDays),
		opts:       opts,
	}
}

// Ledger returns the ledger account the syncer writes to.
func (s *Syncer) Ledger() string {
	return s.conv.Account()
}

// Resolve returns the account behind the token, fetching it once.
// A listing without an account uid yields starling.ErrAccountNotFound.
func (s *Syncer) Resolve(ctx context.Context) (starling.Account, error) {
	if s.account != nil {
		return *s.account, nil
	}

	acc, err := s.client.PrimaryAccount(ctx)
	if err != nil {
		if errors.Is(err, starling.ErrAccountNotFound) {
			slog.Error("Account uid not found in accounts payload", "account", s.opts.AccountID, "error", err)
		}
		return starling.Account{}, fmt.Errorf("failed to resolve account %s: %w", s.opts.AccountID, err)
	}

	s.account = &acc
	return acc, nil
}

// SyncPoint resolves the fetch start from existing ledger entries.
func (s *Syncer) SyncPoint(existing []beancount.Entry) syncpoint.Result {
	return s.resolver.Resolve(existing, s.Ledger())
}

// Transactions fetches the feed for [since, until) and converts it.
func (s *Syncer) Transactions(ctx context.Context, since, until time.Time) (converter.Result, error) {
	acc, err := s.Resolve(ctx)
	if err != nil {
		return converter.Result{}, err
	}

	items, err := s.normalizer.Fetch(ctx, acc, since, until)
	if err != nil {
		return converter.Result{}, fmt.Errorf("failed to fetch feed: %w", err)
	}
	slog.Info("Fetched feed items", "account", s.opts.AccountID, "count", len(items))

	return s.conv.Convert(items), nil
}

// Balance fetches the balance and returns it as an assertion dated tomorrow.
func (s *Syncer) Balance(ctx context.Context) (beancount.Balance, error) {
	acc, err := s.Resolve(ctx)
	if err != nil {
		return beancount.Balance{}, err
	}

	bal, err := s.client.Balance(ctx, acc.AccountUID)
	if err != nil {
		return beancount.Balance{}, fmt.Errorf("failed to fetch balance: %w", err)
	}

	return converter.BalanceAssertion(bal, s.Ledger(), s.opts.Now())
}

// Snapshot fetches the balance and returns a balance assertion and a sync
// marker, both dated tomorrow.
func (s *Syncer) Snapshot(ctx context.Context) ([]beancount.Entry, error) {
	b, err := s.Balance(ctx)
	if err != nil {
		return nil, err
	}
	return []beancount.Entry{b, converter.SyncNote(s.Ledger(), b.Date)}, nil
}

// Run performs one sync of the account and returns the entries to write.
// A balance-only run fetches no feed and so writes no sync marker. The
// marker of a feed run is dated at the end of the fetched window.
func (s *Syncer) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	report := &Report{AccountID: s.opts.AccountID, Ledger: s.Ledger()}

	if !opts.BalanceOnly {
		if err := s.collect(ctx, opts, report); err != nil {
			return nil, err
		}
	}

	b, err := s.Balance(ctx)
	if err != nil {
		return nil, err
	}
	report.Entries = append(report.Entries, b)

	if !opts.BalanceOnly {
		report.Entries = append(report.Entries, converter.SyncNote(s.Ledger(), s.markerDate(report.Until)))
	}

	return report, nil
}

// markerDate returns the date the next sync should resume from: tomorrow,
// or the end of the window when the window stops earlier. The
// changes-since window has no end.
func (s *Syncer) markerDate(until time.Time) time.Time {
	tomorrow := beancount.Day(s.opts.Now()).AddDate(0, 0, 1)
	if s.normalizer.Window() == feed.WindowBetween && until.Before(tomorrow) {
		return until
	}
	return tomorrow
}

func (s *Syncer) collect(ctx context.Context, opts RunOptions, report *Report) error {
	report.SyncPoint = s.SyncPoint(opts.Existing)
	report.Since = report.SyncPoint.Start
	if !opts.Since.IsZero() {
		report.Since = beancount.Day(opts.Since)
	}
	report.Until = opts.Until
	if report.Until.IsZero() {
		report.Until = beancount.Day(s.opts.Now()).AddDate(0, 0, 1)
	}

	slog.Info("Syncing account", "account", s.opts.AccountID, "ledger", s.Ledger(),
		"since", report.Since.Format(beancount.DateLayout), "until", report.Until.Format(beancount.DateLayout))

	res, err := s.Transactions(ctx, report.Since, report.Until)
	if err != nil {
		return err
	}
	report.Fetched = len(res.Transactions) + res.Filtered + len(res.Errors)

	if err := s.dedup(&res, report); err != nil {
		return err
	}
	report.Result = res

	for _, txn := range res.Transactions {
		report.Entries = append(report.Entries, txn)
	}
	return nil
}

// dedup applies the dedup policy to res and fills report.Synced with the
// items that are new to the ledger.
func (s *Syncer) dedup(res *converter.Result, report *Report) error {
	if s.opts.Dedup == config.DedupNone {
		report.Synced = res.Items
		return nil
	}
	if s.opts.History == nil {
		return ErrNoHistory
	}

	seen, err := s.opts.History.GetSyncedUIDs(s.opts.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load sync history: %w", err)
	}

	var txns []beancount.Transaction
	var items []starling.FeedItem
	for i, txn := range res.Transactions {
		item := res.Items[i]
		if !seen[item.FeedItemUID] {
			txns = append(txns, txn)
			items = append(items, item)
			report.Synced = append(report.Synced, item)
			continue
		}

		report.Duplicates++
		if s.opts.Dedup == config.DedupComment {
			txn.Meta.Duplicate = true
			txns = append(txns, txn)
			items = append(items, item)
		}
	}

	if report.Duplicates > 0 {
		slog.Info("Already synced feed items", "account", s.opts.AccountID,
			"count", report.Duplicates, "policy", s.opts.Dedup)
	}

	res.Transactions = txns
	res.Items = items
	return nil
}
