// Package verifier runs user-supplied check commands under a hard timeout and
// captures their outcome as data.
package verifier

import (
	"context"
	"time"
)

// Result contains the outcome of running a single check command.
type Result struct {
	// Command is the shell command line that was executed.
	Command string `json:"command"`

	// Passed indicates whether the command exited with code 0.
	Passed bool `json:"passed"`

	// ExitCode is the process exit code, or -1 if it never produced one.
	ExitCode int `json:"exitCode"`

	// Stdout is the trimmed standard output.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the trimmed standard error.
	Stderr string `json:"stderr,omitempty"`

	// TimedOut is true when the command was killed at its deadline.
	TimedOut bool `json:"timedOut,omitempty"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`
}

// Runner runs a check command. Failures of the command itself are reported
// in the Result, never as a Go error.
type Runner interface {
	Run(ctx context.Context, command string) Result
}
