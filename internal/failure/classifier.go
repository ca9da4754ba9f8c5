package failure

import (
	"fmt"
	"strings"
)

// Classifier maps messages to categories using an ordered table.
// It holds no mutable state.
type Classifier struct {
	table Table
	index map[Category]Rule
}

// NewClassifier creates a classifier over table. A nil table uses DefaultTable.
func NewClassifier(table Table) *Classifier {
	if table == nil {
		table = DefaultTable()
	}
	lowered := make(Table, len(table))
	index := make(map[Category]Rule, len(table))
	for i, r := range table {
		patterns := make([]string, len(r.Patterns))
		for j, p := range r.Patterns {
			patterns[j] = strings.ToLower(p)
		}
		r.Patterns = patterns
		lowered[i] = r
		index[r.Category] = r
	}
	return &Classifier{table: lowered, index: index}
}

// Classify returns the first category whose pattern appears in message,
// case-insensitively. Messages matching nothing are code failures.
func (c *Classifier) Classify(message string) Category {
	lower := strings.ToLower(message)
	for _, r := range c.table {
		for _, p := range r.Patterns {
			if strings.Contains(lower, p) {
				return r.Category
			}
		}
	}
	return CategoryCode
}

// Rule returns the rule for a category.
func (c *Classifier) Rule(category Category) (Rule, error) {
	r, ok := c.index[category]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return r, nil
}

// Table returns the classifier's rules in scan order.
func (c *Classifier) Table() Table {
	out := make(Table, len(c.table))
	copy(out, c.table)
	return out
}
