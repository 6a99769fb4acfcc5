package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/syncpoint"
)

// sinceCmd represents the since command.
var sinceCmd = &cobra.Command{
	Use:   "since <account>...",
	Short: "Show the date the next sync starts from",
	Long: `Show the date the next sync of each account starts from.

The date is the last "bean-extract" note of the account in the ledger,
minus SYNC_LAG_DAYS. Without a note the sync starts from 2000-01-01.
No API calls are made.

Example:
  starling-sync since joint_main personal`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSince,
}

func runSince(cmd *cobra.Command, args []string) {
	env := loadEnvironment()
	entries := env.readLedger()
	resolver := syncpoint.New(env.cfg.Sync.LagDays)
	slog.Debug("Resolving sync points", "accounts", args, "lag_days", resolver.LagDays())

	for _, account := range args {
		result := resolver.Resolve(entries, beancount.AccountName(account))
		printGuidance(result.Guidance())
		fmt.Println(formatSince(result))
	}
}

func formatSince(r syncpoint.Result) string {
	if r.FirstRun {
		return fmt.Sprintf("%s\t%s\t(no sync marker)", r.Account, r.Start.Format(beancount.DateLayout))
	}
	return fmt.Sprintf("%s\t%s\t(last sync %s)", r.Account, r.Start.Format(beancount.DateLayout),
		r.LastSync.Format(beancount.DateLayout))
}
