package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STARLING_API_URL", "STARLING_TOKEN_DIR", "STARLING_TIMEOUT", "STARLING_MAPPING",
		"BEANCOUNT_ROOT", "BEANCOUNT_LEDGER", "BEANCOUNT_DB_PATH",
		"SYNC_LAG_DAYS", "SYNC_WINDOW", "SYNC_DEDUP", "SYNC_STATUSES", "DEBUG",
	} {
		// Setenv registers the restore; Unsetenv lets godotenv fill the key.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// keep godotenv from picking up a stray .env
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.LagDays != DefaultLagDays {
		t.Errorf("LagDays = %d, expected %d", cfg.Sync.LagDays, DefaultLagDays)
	}
	if cfg.Sync.Window != WindowBetween {
		t.Errorf("Window = %q, expected %q", cfg.Sync.Window, WindowBetween)
	}
	if cfg.Sync.Dedup != DedupNone {
		t.Errorf("Dedup = %q, expected %q", cfg.Sync.Dedup, DedupNone)
	}
	if cfg.Starling.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, expected 30s", cfg.Starling.Timeout)
	}
	if cfg.Sync.Statuses != nil {
		t.Errorf("Statuses = %v, expected nil", cfg.Sync.Statuses)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envPath := filepath.Join(t.TempDir(), "test.env")
	content := strings.Join([]string{
		"STARLING_API_URL=http://localhost:9000",
		"STARLING_TOKEN_DIR=/tmp/tokens",
		"SYNC_LAG_DAYS=5",
		"SYNC_WINDOW=changes-since",
		"SYNC_DEDUP=comment",
		"SYNC_STATUSES=settled, declined ,",
		"DEBUG=true",
	}, "\n")
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Starling.APIURL != "http://localhost:9000" {
		t.Errorf("APIURL = %q", cfg.Starling.APIURL)
	}
	if cfg.Sync.LagDays != 5 {
		t.Errorf("LagDays = %d, expected 5", cfg.Sync.LagDays)
	}
	if cfg.Sync.Window != WindowChangesSince {
		t.Errorf("Window = %q", cfg.Sync.Window)
	}
	if cfg.Sync.Dedup != DedupComment {
		t.Errorf("Dedup = %q", cfg.Sync.Dedup)
	}
	if got := strings.Join(cfg.Sync.Statuses, ","); got != "SETTLED,DECLINED" {
		t.Errorf("Statuses = %q, expected SETTLED,DECLINED", got)
	}
	if !cfg.Debug {
		t.Error("Debug = false, expected true")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"lag not a number", "SYNC_LAG_DAYS", "three"},
		{"negative lag", "SYNC_LAG_DAYS", "-1"},
		{"unknown window", "SYNC_WINDOW", "weekly"},
		{"unknown dedup", "SYNC_DEDUP", "always"},
		{"bad timeout", "STARLING_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q returned nil error", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Starling:  StarlingConfig{APIURL: "http://localhost"},
		Beancount: BeancountConfig{Root: "."},
	}

	if err := cfg.Validate([]string{"starling", "apiUrl"}, []string{"beancount", "root"}); err != nil {
		t.Errorf("Validate() error = %v, expected nil", err)
	}

	err := cfg.Validate([]string{"starling", "tokenDir"}, []string{"beancount", "ledger"})
	if err == nil {
		t.Fatal("Validate() returned nil, expected missing fields")
	}
	for _, want := range []string{"starling.tokenDir", "beancount.ledger"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %s", err, want)
		}
	}
}

func TestResolveAPIURL(t *testing.T) {
	mapping := NewMapping(nil, nil, nil)
	mapping.baseURL = "http://from-mapping"

	tests := []struct {
		name     string
		env      string
		mapping  *Mapping
		expected string
	}{
		{"env wins", "http://from-env", mapping, "http://from-env"},
		{"mapping base_url", "", mapping, "http://from-mapping"},
		{"default", "", NewMapping(nil, nil, nil), DefaultAPIURL},
		{"no mapping", "", nil, DefaultAPIURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Starling: StarlingConfig{APIURL: tt.env}}
			if got := cfg.ResolveAPIURL(tt.mapping); got != tt.expected {
				t.Errorf("ResolveAPIURL() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
