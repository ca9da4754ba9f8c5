package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 10 * time.Second

// ShellManager implements the Manager interface by shelling out to git.
type ShellManager struct {
	workDir string
	timeout time.Duration
}

// NewShellManager creates a new ShellManager for the given working directory.
func NewShellManager(workDir string) *ShellManager {
	return &ShellManager{
		workDir: workDir,
		timeout: DefaultTimeout,
	}
}

// SetTimeout sets the per-command deadline. Non-positive values restore the default.
func (m *ShellManager) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m.timeout = timeout
}

// runGit executes a git command under the manager's deadline and returns stdout.
func (m *ShellManager) runGit(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		command := "git " + strings.Join(args, " ")
		stderrStr := strings.TrimSpace(stderr.String())
		stderrLower := strings.ToLower(stderrStr)

		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return "", &GitError{Command: command, Err: ErrTimeout}
		case strings.Contains(stderrLower, "not a git repository"):
			return "", &GitError{Command: command, Output: stderrStr, Err: ErrNotAGitRepo}
		case strings.Contains(stderrLower, "ambiguous argument 'head'"),
			strings.Contains(stderrLower, "unknown revision"):
			return "", &GitError{Command: command, Output: stderrStr, Err: ErrNoCommits}
		}

		return "", &GitError{Command: command, Output: stderrStr, Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// CurrentCommit returns the current HEAD commit hash.
func (m *ShellManager) CurrentCommit(ctx context.Context) (string, error) {
	return m.runGit(ctx, "rev-parse", "HEAD")
}

// Stash stashes uncommitted changes to tracked files. Untracked files, such
// as the workflow state directory, are left in place.
func (m *ShellManager) Stash(ctx context.Context, message string) error {
	_, err := m.runGit(ctx, "stash", "push", "-m", message)
	return err
}

// ResetHard resets the working tree and index to ref.
func (m *ShellManager) ResetHard(ctx context.Context, ref string) error {
	_, err := m.runGit(ctx, "reset", "--hard", ref)
	return err
}

// Ensure ShellManager implements Manager interface.
var _ Manager = (*ShellManager)(nil)
