// Package config provides configuration management for starling-sync.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Starling  StarlingConfig
	Beancount BeancountConfig
	Sync      SyncConfig
	Debug     bool
}

// StarlingConfig represents banking API configuration.
type StarlingConfig struct {
	APIURL   string
	TokenDir string
	Timeout  time.Duration
}

// BeancountConfig represents Beancount-related configuration.
type BeancountConfig struct {
	Root        string
	Ledger      string
	DBPath      string
	MappingPath string
}

// SyncConfig holds the knobs of the sync pipeline.
type SyncConfig struct {
	LagDays  int
	Window   string   // "between" or "changes-since"
	Dedup    string   // "none", "skip" or "comment"
	Statuses []string // accepted feed item statuses; empty means the converter default
}

// Window strategies.
const (
	WindowBetween      = "between"
	WindowChangesSince = "changes-since"
)

// Dedup policies.
const (
	DedupNone    = "none"
	DedupSkip    = "skip"
	DedupComment = "comment"
)

// DefaultLagDays is the overlap re-fetched before the last sync marker.
const DefaultLagDays = 3

// DefaultAPIURL is the production API endpoint.
const DefaultAPIURL = "https://api.starlingbank.com"

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	lag, err := parseIntEnv("SYNC_LAG_DAYS", DefaultLagDays)
	if err != nil {
		return nil, err
	}
	if lag < 0 {
		return nil, fmt.Errorf("invalid SYNC_LAG_DAYS: must not be negative, got %d", lag)
	}

	timeout, err := parseDurationEnv("STARLING_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	window := getEnvOrDefault("SYNC_WINDOW", WindowBetween)
	if window != WindowBetween && window != WindowChangesSince {
		return nil, fmt.Errorf("invalid SYNC_WINDOW: %q (expected %q or %q)", window, WindowBetween, WindowChangesSince)
	}

	dedup := getEnvOrDefault("SYNC_DEDUP", DedupNone)
	switch dedup {
	case DedupNone, DedupSkip, DedupComment:
	default:
		return nil, fmt.Errorf("invalid SYNC_DEDUP: %q (expected none, skip or comment)", dedup)
	}

	config := &Config{
		Starling: StarlingConfig{
			APIURL:   os.Getenv("STARLING_API_URL"),
			TokenDir: os.Getenv("STARLING_TOKEN_DIR"),
			Timeout:  timeout,
		},
		Beancount: BeancountConfig{
			Root:        getEnvOrDefault("BEANCOUNT_ROOT", "."),
			Ledger:      os.Getenv("BEANCOUNT_LEDGER"),
			DBPath:      os.Getenv("BEANCOUNT_DB_PATH"),
			MappingPath: os.Getenv("STARLING_MAPPING"),
		},
		Sync: SyncConfig{
			LagDays:  lag,
			Window:   window,
			Dedup:    dedup,
			Statuses: splitList(os.Getenv("SYNC_STATUSES")),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// ResolveAPIURL returns STARLING_API_URL, else the mapping's base_url,
// else DefaultAPIURL.
func (c *Config) ResolveAPIURL(m *Mapping) string {
	if c.Starling.APIURL != "" {
		return c.Starling.APIURL
	}
	if m != nil && m.BaseURL() != "" {
		return m.BaseURL()
	}
	return DefaultAPIURL
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "starling":
			switch path[1] {
			case "apiUrl":
				value = c.Starling.APIURL
			case "tokenDir":
				value = c.Starling.TokenDir
			}
		case "beancount":
			switch path[1] {
			case "root":
				value = c.Beancount.Root
			case "ledger":
				value = c.Beancount.Ledger
			case "dbPath":
				value = c.Beancount.DBPath
			case "mappingPath":
				value = c.Beancount.MappingPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
