// Package cmd provides CLI commands for starling-sync.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/beancount"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/config"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/starling-sync/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "starling-sync",
	Short: "Sync Starling bank transactions to Beancount",
	Long: `starling-sync is a CLI tool that fetches transactions and balances
from the Starling bank API and appends them to a Beancount ledger.

It supports:
- Incremental syncs from the last "bean-extract" note in the ledger
- Category to account mapping with a DEFAULT fallback
- Balance assertions for the synced account
- Optional duplicate detection with SQLite history
- Dry-run mode for testing

Example:
  starling-sync sync joint_main
  starling-sync sync personal --since 2024-01-01 --dry-run
  starling-sync since joint_main
  starling-sync stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug || verbose {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log raw API payloads (same as --debug)")

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(sinceCmd)
	rootCmd.AddCommand(statsCmd)
}

// environment is the configuration shared by the ledger commands.
type environment struct {
	cfg     *config.Config
	paths   *pathutil.PathResolver
	mapping *config.Mapping
	mapper  *converter.Mapper
	repo    *beancount.FileSystemRepository
}

// loadEnvironment loads configuration and the mapping file, exiting on error.
func loadEnvironment() *environment {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Validate required fields
	if err := cfg.Validate([]string{"beancount", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	paths := pathutil.New(pathutil.Config{
		BeancountRoot: cfg.Beancount.Root,
		LedgerPath:    cfg.Beancount.Ledger,
		TokenDir:      cfg.Starling.TokenDir,
		MappingPath:   cfg.Beancount.MappingPath,
		DatabasePath:  cfg.Beancount.DBPath,
	})

	slog.Debug("Loading mapping", "path", paths.GetMappingPath())
	mapping, err := config.LoadMapping(paths.GetMappingPath())
	exitOnError(err, "failed to load mapping")

	mapper, err := converter.NewMapper(mapping.Categories())
	exitOnError(err, "invalid category mapping")
	slog.Debug("Loaded mapping", "root", paths.GetBeancountRoot(),
		"categories", mapper.Categories(), "joint_accounts", mapping.JointAccounts())

	return &environment{
		cfg:     cfg,
		paths:   paths,
		mapping: mapping,
		mapper:  mapper,
		repo:    beancount.NewFileSystemRepository(paths),
	}
}

// readLedger reads the existing ledger entries, exiting on error.
func (e *environment) readLedger() []beancount.Entry {
	path := e.paths.GetLedgerPath()
	slog.Debug("Reading ledger", "path", path)

	entries, err := e.repo.ReadEntries(path)
	exitOnError(err, "failed to read ledger")
	return entries
}

// printGuidance prints first-run instructions for the operator.
func printGuidance(guidance string) {
	if guidance == "" {
		return
	}
	color.New(color.FgYellow).Fprintln(os.Stderr, guidance)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("Error:"), msg, err)
		os.Exit(1)
	}
}
