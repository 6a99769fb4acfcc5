package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// mappingFile is the on-disk layout of the mapping YAML.
//
//	base_url: https://api.starlingbank.com
//	categories:
//	  GROCERIES: Expenses:Food
//	  DEFAULT: Expenses:Unknown
//	joint_accounts: [joint_main]
//	user_ids:
//	  0b1c...: Alice
type mappingFile struct {
	BaseURL       string            `yaml:"base_url"`
	Categories    map[string]string `yaml:"categories"`
	JointAccounts []string          `yaml:"joint_accounts"`
	UserIDs       map[string]string `yaml:"user_ids"`
}

// Mapping is the read-only category, joint account and user configuration.
// It is built once at startup and shared by every pipeline stage.
type Mapping struct {
	baseURL    string
	categories map[string]string
	joint      map[string]bool
	users      map[string]string
}

// NewMapping builds a Mapping from plain values. The maps are copied.
func NewMapping(categories map[string]string, jointAccounts []string, users map[string]string) *Mapping {
	m := &Mapping{
		categories: make(map[string]string, len(categories)),
		joint:      make(map[string]bool, len(jointAccounts)),
		users:      make(map[string]string, len(users)),
	}
	for k, v := range categories {
		m.categories[k] = v
	}
	for _, acc := range jointAccounts {
		m.joint[acc] = true
	}
	for k, v := range users {
		m.users[k] = v
	}
	return m
}

// LoadMapping reads the mapping YAML file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := NewMapping(file.Categories, file.JointAccounts, file.UserIDs)
	m.baseURL = file.BaseURL
	return m, nil
}

// BaseURL returns the API base URL override, or "" when unset.
func (m *Mapping) BaseURL() string {
	return m.baseURL
}

// Categories returns a copy of the spending category to account mapping.
func (m *Mapping) Categories() map[string]string {
	result := make(map[string]string, len(m.categories))
	for k, v := range m.categories {
		result[k] = v
	}
	return result
}

// IsJoint reports whether the account identifier is a joint account.
func (m *Mapping) IsJoint(account string) bool {
	return m.joint[account]
}

// JointAccounts returns the joint account identifiers, sorted.
func (m *Mapping) JointAccounts() []string {
	accounts := make([]string, 0, len(m.joint))
	for acc := range m.joint {
		accounts = append(accounts, acc)
	}
	slices.Sort(accounts)
	return accounts
}

// UserName resolves an application user id to a display name.
func (m *Mapping) UserName(uid string) (string, bool) {
	name, ok := m.users[uid]
	return name, ok
}

// Users returns a copy of the user id to name mapping.
func (m *Mapping) Users() map[string]string {
	result := make(map[string]string, len(m.users))
	for k, v := range m.users {
		result[k] = v
	}
	return result
}
