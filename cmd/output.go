package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes other than 0 and 1.
const (
	ExitEscalate      = 2
	ExitCriticalAlert = 3
	ExitAwaitingUser  = 10
	ExitFixTimedOut   = 11
	ExitFixWaiting    = 12
)

// ExitError carries a specific process exit code. Err may be nil when the
// command already printed its result and only the status code matters.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitWith signals a non-error exit code after output was written.
func exitWith(code int) error {
	return &ExitError{Code: code}
}

// writeJSON prints v as indented JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// printf writes a formatted line to stdout.
func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
