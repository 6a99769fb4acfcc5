package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyToken is returned when a token file exists but holds no token.
var ErrEmptyToken = errors.New("token file is empty")

// LoadToken reads the bearer token for an account identifier.
// Tokens live one per file, named after the account, in dir.
func LoadToken(dir, account string) (string, error) {
	if account == "" || strings.ContainsAny(account, `/\`) {
		return "", fmt.Errorf("invalid account identifier: %q", account)
	}

	path := filepath.Join(dir, account)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyToken)
	}
	return token, nil
}
