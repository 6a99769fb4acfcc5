package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadToken(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "joint_main"), []byte("  secret-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "empty"), []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	token, err := LoadToken(dir, "joint_main")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if token != "secret-token" {
		t.Errorf("LoadToken() = %q, expected secret-token", token)
	}

	if _, err := LoadToken(dir, "empty"); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("LoadToken(empty) error = %v, expected ErrEmptyToken", err)
	}
	if _, err := LoadToken(dir, "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadToken(missing) error = %v, expected ErrNotExist", err)
	}
	if _, err := LoadToken(dir, "../escape"); err == nil {
		t.Error("LoadToken(../escape) returned nil error")
	}
}
