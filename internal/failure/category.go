// Package failure classifies free-text error messages into a fixed taxonomy
// and advises whether a story should be retried, backed off, or escalated.
package failure

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a failure class from the taxonomy.
type Category string

// Built-in categories.
const (
	CategoryCode     Category = "code"
	CategoryTest     Category = "test"
	CategoryInfra    Category = "infra"
	CategoryExternal Category = "external"
	CategoryTimeout  Category = "timeout"
)

// ErrUnknownCategory is returned when a category is not present in the table.
var ErrUnknownCategory = errors.New("unknown failure category")

// Rule describes one category: its trigger patterns and the flags copied onto
// every failure classified into it.
type Rule struct {
	Category       Category `yaml:"category" json:"category"`
	Description    string   `yaml:"description" json:"description"`
	Patterns       []string `yaml:"patterns" json:"patterns"`
	Retryable      bool     `yaml:"retryable" json:"retryable"`
	NeedsBackoff   bool     `yaml:"needs_backoff" json:"needsBackoff"`
	ShouldEscalate bool     `yaml:"should_escalate" json:"shouldEscalate"`
}

// Table is an ordered list of rules. Classification scans it in order.
type Table []Rule

// DefaultTable returns the built-in taxonomy.
// "timeout" lives under the timeout category so that messages such as
// "timeout waiting for db" do not read as infrastructure trouble.
func DefaultTable() Table {
	return Table{
		{
			Category:    CategoryCode,
			Description: "Bug in implementation",
			Patterns:    []string{"error:", "exception:", "failed assertion", "null reference", "undefined"},
			Retryable:   true,
		},
		{
			Category:    CategoryTest,
			Description: "Test itself is incorrect",
			Patterns:    []string{"expected:", "actual:", "assertion failed", "test setup failed"},
			Retryable:   true,
		},
		{
			Category:    CategoryInfra,
			Description: "Infrastructure issue (DB, network, filesystem)",
			Patterns: []string{
				"connection refused", "connection reset", "database", "network",
				"permission denied", "disk full", "no space left", "econnrefused", "dns",
			},
			Retryable:    true,
			NeedsBackoff: true,
		},
		{
			Category:       CategoryExternal,
			Description:    "External service unavailable",
			Patterns:       []string{"api key", "authentication", "rate limit", "401", "403", "503", "service unavailable"},
			ShouldEscalate: true,
		},
		{
			Category:     CategoryTimeout,
			Description:  "Operation timed out",
			Patterns:     []string{"timed out", "timeout", "deadline exceeded"},
			Retryable:    true,
			NeedsBackoff: true,
		},
	}
}

// Validate checks that the table is usable for classification.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("failure table is empty")
	}
	seen := make(map[Category]bool, len(t))
	for i, r := range t {
		if r.Category == "" {
			return fmt.Errorf("rule %d: category is required", i)
		}
		if seen[r.Category] {
			return fmt.Errorf("rule %d: duplicate category %q", i, r.Category)
		}
		seen[r.Category] = true
		for _, p := range r.Patterns {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("rule %d (%s): empty pattern", i, r.Category)
			}
		}
	}
	if !seen[CategoryCode] {
		return fmt.Errorf("failure table must define the %q fallback category", CategoryCode)
	}
	return nil
}

// tableFile is the on-disk shape of a failure table.
type tableFile struct {
	Categories Table `yaml:"categories"`
}

// LoadTable reads a failure table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read failure table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a failure table from YAML.
func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse failure table: %w", err)
	}
	if err := f.Categories.Validate(); err != nil {
		return nil, err
	}
	return f.Categories, nil
}
