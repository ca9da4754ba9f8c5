package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Counter is the durable iteration counter, stored as a single integer in a
// text file. A missing or unreadable file counts as zero.
type Counter struct {
	path string
}

// NewCounter creates a counter backed by the file at path.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Get returns the current count.
func (c *Counter) Get() int {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Increment adds one to the count and persists it, returning the new value.
// On a write failure the new value is still returned along with the error.
func (c *Counter) Increment() (int, error) {
	n := c.Get() + 1
	if err := c.write(n); err != nil {
		return n, err
	}
	return n, nil
}

// Reset sets the count back to zero by removing the file.
func (c *Counter) Reset() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to reset iteration counter: %w", err)
	}
	return nil
}

func (c *Counter) write(n int) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(n)), 0644); err != nil {
		return fmt.Errorf("failed to write iteration counter: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename iteration counter: %w", err)
	}
	return nil
}
