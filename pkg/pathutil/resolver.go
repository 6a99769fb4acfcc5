// Package pathutil provides centralized path management for the ledger, tokens and sync database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathResolver manages paths for the Beancount ledger, tokens, mapping file and database.
type PathResolver struct {
	beancountRoot string
	ledgerPath    string
	tokenDir      string
	mappingPath   string
	databasePath  string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// BeancountRoot is the root directory for the ledger (e.g., ~/accounting)
	BeancountRoot string
	// LedgerPath is the main ledger file scanned for sync markers and appended to
	LedgerPath string
	// TokenDir holds one bearer token file per account identifier
	TokenDir string
	// MappingPath is the category/joint account/user mapping YAML
	MappingPath string
	// DatabasePath is the path to the SQLite database file for sync history
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// Empty paths default to locations under BeancountRoot:
//
//	main.beancount, tokens/, config.yml, .sync/sync.db
//
// Relative paths are resolved against BeancountRoot.
func New(config Config) *PathResolver {
	root := config.BeancountRoot
	if root == "" {
		root = "."
	}

	return &PathResolver{
		beancountRoot: root,
		ledgerPath:    orDefault(root, config.LedgerPath, "main.beancount"),
		tokenDir:      orDefault(root, config.TokenDir, "tokens"),
		mappingPath:   orDefault(root, config.MappingPath, "config.yml"),
		databasePath:  orDefault(root, config.DatabasePath, filepath.Join(".sync", "sync.db")),
	}
}

func orDefault(root, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// GetBeancountRoot returns the Beancount root directory.
func (p *PathResolver) GetBeancountRoot() string {
	return p.beancountRoot
}

// GetLedgerPath returns the main ledger file path.
func (p *PathResolver) GetLedgerPath() string {
	return p.ledgerPath
}

// GetTokenDir returns the token directory.
func (p *PathResolver) GetTokenDir() string {
	return p.tokenDir
}

// GetMappingPath returns the mapping YAML path.
func (p *PathResolver) GetMappingPath() string {
	return p.mappingPath
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
