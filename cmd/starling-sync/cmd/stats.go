package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/config"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/db"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/pathutil"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats [account]",
	Short: "Display sync statistics",
	Long: `Display statistics about synced feed items.

Shows:
- Total number of sync runs and synced items
- Last sync timestamp
- The most recent runs
- The last recorded balance (when an account is given)

Example:
  starling-sync stats
  starling-sync stats joint_main`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	account := ""
	if len(args) > 0 {
		account = args[0]
	}

	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// Validate required fields
	if err := cfg.Validate([]string{"beancount", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	// Initialize PathResolver
	pathResolver := pathutil.New(pathutil.Config{
		BeancountRoot: cfg.Beancount.Root,
		DatabasePath:  cfg.Beancount.DBPath,
	})

	// Open database connection
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	// Get sync history
	syncHistory := db.NewSyncHistory(conn)

	// Get statistics
	stats, err := syncHistory.GetStats(account)
	exitOnError(err, "failed to get statistics")

	runs, err := syncHistory.GetRuns(account, 5)
	exitOnError(err, "failed to get recent runs")

	// Display statistics
	fmt.Println("\n=== Sync Statistics ===")
	if account != "" {
		fmt.Printf("Account:            %s\n", account)
	} else {
		fmt.Printf("Accounts:           %d\n", stats.Accounts)
	}
	fmt.Printf("Database:           %s\n", conn.Path())
	fmt.Printf("Total sync runs:    %d\n", stats.TotalRuns)
	fmt.Printf("Total synced items: %d\n", stats.TotalItems)

	if stats.LastSync.Valid {
		fmt.Printf("Last sync:          %s\n", stats.LastSync.String)
	} else {
		fmt.Printf("Last sync:          (never)\n")
	}

	if account != "" {
		balance, err := syncHistory.GetMetadata(balanceKey(account))
		exitOnError(err, "failed to get last balance")
		if balance != "" {
			fmt.Printf("Last balance:       %s\n", balance)
		}
	}

	if len(runs) > 0 {
		fmt.Println("\nRecent runs:")
		for _, run := range runs {
			fmt.Printf("  %s  %-12s %s..%s  written %d, filtered %d, failed %d, duplicates %d\n",
				run.StartedAt.Format("2006-01-02 15:04"), run.Account, run.Since, run.Until,
				run.Written, run.Filtered, run.Failed, run.Duplicates)
		}
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
