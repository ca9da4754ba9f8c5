package verifier

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a check command when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// DefaultMaxOutputBytes is how much of stdout and stderr is kept.
const DefaultMaxOutputBytes = 500

// ShellRunner implements Runner by executing commands through sh -c.
type ShellRunner struct {
	workDir        string
	timeout        time.Duration
	maxOutputBytes int
}

// NewShellRunner creates a ShellRunner that runs commands in workDir.
// If workDir is empty, commands run in the current working directory.
func NewShellRunner(workDir string) *ShellRunner {
	return &ShellRunner{
		workDir:        workDir,
		timeout:        DefaultTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
}

// SetTimeout sets the per-command deadline. Non-positive values restore the default.
func (r *ShellRunner) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r.timeout = timeout
}

// SetMaxOutputBytes sets how many trailing bytes of each stream are kept.
func (r *ShellRunner) SetMaxOutputBytes(n int) {
	r.maxOutputBytes = n
}

// Run executes command and returns its result.
func (r *ShellRunner) Run(ctx context.Context, command string) Result {
	start := time.Now()

	if command == "" {
		return Result{
			Command:  command,
			ExitCode: -1,
			Stderr:   "error: empty command",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	// Don't let a grandchild holding the pipes keep Wait blocked past the deadline.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Command:  command,
		Passed:   err == nil,
		ExitCode: 0,
		Stdout:   Tail(stdout.String(), r.maxOutputBytes),
		Stderr:   Tail(stderr.String(), r.maxOutputBytes),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
		}
		if result.Stderr == "" && !result.TimedOut {
			result.Stderr = Tail(err.Error(), r.maxOutputBytes)
		}
	}

	return result
}

// Ensure ShellRunner implements Runner.
var _ Runner = (*ShellRunner)(nil)
