package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/config"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/db"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/feed"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/starling"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/syncer"
)

var (
	dateSince   string
	dateUntil   string
	balanceOnly bool
	dryRun      bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync <account>...",
	Short: "Sync Starling transactions to Beancount",
	Long: `Sync transactions and the current balance of one or more accounts.

For each account this command:
1. Finds the last "bean-extract" note in the ledger (minus the lag)
2. Fetches the feed of the main space and every savings goal
3. Converts settled items to Beancount transactions
4. Adds a balance assertion and a new "bean-extract" note dated at the
   end of the fetched window (tomorrow unless --until is earlier)
5. Appends everything to the ledger and records sync history in SQLite

With --balance only the balance assertion is written and the sync point
is left where it is.

Accounts are token file names, e.g. "joint_main" syncs to Joint:Main.

Example:
  starling-sync sync joint_main personal
  starling-sync sync joint_main --since 2024-01-01 --until 2024-02-01 --dry-run
  starling-sync sync joint_main --balance`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSync,
}

func init() {
	// Flags
	syncCmd.Flags().StringVar(&dateSince, "since", "", "Start date (YYYY-MM-DD), overrides the ledger sync point")
	syncCmd.Flags().StringVar(&dateUntil, "until", "", "End date, exclusive (YYYY-MM-DD) (default tomorrow)")
	syncCmd.Flags().BoolVar(&balanceOnly, "balance", false, "Only write the balance assertion, keep the sync point")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (print entries, no file writes)")
}

func runSync(cmd *cobra.Command, args []string) {
	slog.Info("Starting sync", "accounts", args, "since", dateSince, "until", dateUntil,
		"balance_only", balanceOnly, "dry_run", dryRun)

	since, err := parseDateFlag(dateSince)
	exitOnError(err, "invalid --since")
	until, err := parseDateFlag(dateUntil)
	exitOnError(err, "invalid --until")
	if !since.IsZero() && !until.IsZero() && !since.Before(until) {
		exitOnError(fmt.Errorf("%s is not before %s", dateSince, dateUntil), "invalid date range")
	}

	env := loadEnvironment()
	existing := env.readLedger()
	ledgerPath := env.paths.GetLedgerPath()

	// Open database
	dbPath := env.paths.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewSyncHistory(conn)
	now := time.Now()

	for _, account := range args {
		token, err := config.LoadToken(env.paths.GetTokenDir(), account)
		exitOnError(err, "failed to load token")

		client := starling.NewClient(starling.ClientConfig{
			APIURL:      env.cfg.ResolveAPIURL(env.mapping),
			AccessToken: token,
			Timeout:     env.cfg.Starling.Timeout,
		})

		conv := converter.NewConverter(env.mapper, converter.Options{
			Account:  beancount.AccountName(account),
			Joint:    env.mapping.IsJoint(account),
			Users:    env.mapping.Users(),
			Statuses: env.cfg.Sync.Statuses,
		})
		slog.Debug("Converter ready", "account", account, "ledger", conv.Account(), "statuses", conv.Statuses())

		s := syncer.New(client, conv, syncer.Options{
			AccountID: account,
			Window:    feed.Window(env.cfg.Sync.Window),
			LagDays:   env.cfg.Sync.LagDays,
			Dedup:     env.cfg.Sync.Dedup,
			History:   history,
			Now:       func() time.Time { return now },
		})

		report, err := s.Run(cmd.Context(), syncer.RunOptions{
			Existing:    existing,
			Since:       since,
			Until:       until,
			BalanceOnly: balanceOnly,
		})
		exitOnError(err, fmt.Sprintf("failed to sync %s", account))

		printGuidance(report.SyncPoint.Guidance())
		printGuidance(report.FailureGuidance())

		header := syncHeader(report.Ledger, now)
		if dryRun {
			fmt.Printf("[DRY RUN] Would append to %s\n", ledgerPath)
			fmt.Println(header)
			exitOnError(beancount.WriteEntries(os.Stdout, report.Entries), "failed to print entries")
			continue
		}

		exitOnError(env.repo.AppendEntries(ledgerPath, report.Entries, header), "failed to append entries")
		recordReport(history, report, ledgerPath)

		color.New(color.FgGreen).Printf("%s: ", report.Ledger)
		fmt.Printf("%d transactions written (%d fetched, %d filtered, %d failed, %d duplicates)\n",
			len(report.Synced), report.Fetched, report.Result.Filtered, len(report.Result.Errors), report.Duplicates)
	}

	slog.Info("Sync completed", "accounts", len(args))
}

// recordReport stores the run, its synced items and the last balance.
// History failures are logged, the ledger is already written.
func recordReport(history *db.SyncHistory, report *syncer.Report, ledgerPath string) {
	if bal, ok := lastBalance(report.Entries); ok {
		value := fmt.Sprintf("%s %s %s", bal.Date.Format(beancount.DateLayout), bal.Amount.Number.StringFixed(2), bal.Amount.Currency)
		if err := history.SetMetadata(balanceKey(report.AccountID), value); err != nil {
			slog.Error("Failed to record balance", "account", report.AccountID, "error", err)
		}
	}

	if report.Since.IsZero() {
		return
	}

	run := &db.Run{
		Account:    report.AccountID,
		Since:      report.Since.Format(beancount.DateLayout),
		Until:      report.Until.Format(beancount.DateLayout),
		Fetched:    report.Fetched,
		Written:    len(report.Synced),
		Filtered:   report.Result.Filtered,
		Failed:     len(report.Result.Errors),
		Duplicates: report.Duplicates,
		LedgerFile: ledgerPath,
	}
	if err := history.RecordRun(run); err != nil {
		slog.Error("Failed to record run", "account", report.AccountID, "error", err)
		return
	}

	if err := history.RecordItems(historyItems(report.AccountID, run.RunID, ledgerPath, report.Synced)); err != nil {
		slog.Error("Failed to record synced items", "account", report.AccountID, "error", err)
	}
}

// historyItems converts synced feed items to history records.
// Items that no longer convert are left out.
func historyItems(account, runID, ledgerPath string, items []starling.FeedItem) []db.SyncedItem {
	records := make([]db.SyncedItem, 0, len(items))
	for _, item := range items {
		date, err := converter.ParseDate(item.TransactionTime)
		if err != nil {
			continue
		}
		amount, err := converter.SignedAmount(item.Amount, item.Direction)
		if err != nil {
			continue
		}

		records = append(records, db.SyncedItem{
			Account:         account,
			FeedItemUID:     item.FeedItemUID,
			TransactionDate: date.Format(beancount.DateLayout),
			Amount:          amount.String(),
			Currency:        item.Amount.Currency,
			RunID:           runID,
			LedgerFile:      ledgerPath,
		})
	}
	return records
}

func lastBalance(entries []beancount.Entry) (beancount.Balance, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if b, ok := entries[i].(beancount.Balance); ok {
			return b, true
		}
	}
	return beancount.Balance{}, false
}

func balanceKey(account string) string {
	return "balance:" + account
}

// syncHeader is the org-mode heading written above each appended block.
func syncHeader(ledger string, now time.Time) string {
	return fmt.Sprintf("* %s - %s", ledger, now.Format(beancount.DateLayout))
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(beancount.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t, nil
}
