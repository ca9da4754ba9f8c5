package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yarlson/go-wiggum/internal/intervention"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

func newAddBlockerCmd() *cobra.Command {
	var severity string

	cmd := &cobra.Command{
		Use:   "add-blocker <description>",
		Short: "Record a blocker and mark the workflow blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			index, err := a.manager.AddBlocker(cmd.Context(), args[0], workflow.Severity(severity))
			if err != nil {
				return err
			}
			printf(cmd, "Added blocker %d: %s", index, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", string(workflow.SeverityMedium), "low, medium, high or critical")

	return cmd
}

func newResolveBlockerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-blocker <index>",
		Short: "Resolve a blocker by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.manager.ResolveBlocker(cmd.Context(), index); err != nil {
				return err
			}
			printf(cmd, "Resolved blocker at index %d", index)
			return nil
		},
	}
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid blocker index %q", s)
	}
	return n, nil
}

func newAwaitUserFixCmd() *cobra.Command {
	var (
		checkCommand string
		timeout      int
	)

	cmd := &cobra.Command{
		Use:   "await-user-fix <blocker-index> <description>",
		Short: "Pause the workflow until the user fixes an issue",
		Long:  "Pause the workflow for a fix only a human can make. Exits with status 10.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid blocker index %q", args[0])
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ins, err := a.gate().RequestUserFix(cmd.Context(), intervention.Request{
				BlockerIndex:   index,
				Description:    args[1],
				CheckCommand:   checkCommand,
				TimeoutMinutes: timeout,
			})
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, ins); err != nil {
				return err
			}
			return exitWith(ExitAwaitingUser)
		},
	}

	cmd.Flags().StringVar(&checkCommand, "check-command", "", "command that succeeds once the fix is in place")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "minutes to wait before escalating (0 uses config)")

	return cmd
}

func newCheckUserFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-user-fix",
		Short: "Check whether the workflow may resume after a user fix",
		Long: `Exits 0 when the workflow can resume, 11 when the user fix timed out and 12 while still waiting.

A fix signaled with user-fix-complete whose check command fails also exits 12:
the intervention stays open and the result carries "verified": false with the
command output, so the user can fix again and re-signal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.gate().CheckUserFix(cmd.Context())
			if err != nil {
				return err
			}
			return reportCheck(cmd, res)
		},
	}
}

// reportCheck prints a check result and maps it to an exit code.
func reportCheck(cmd *cobra.Command, res *intervention.CheckResult) error {
	if err := writeJSON(cmd, res); err != nil {
		return err
	}
	switch {
	case res.CanResume:
		return nil
	case res.TimedOut:
		return exitWith(ExitFixTimedOut)
	default:
		return exitWith(ExitFixWaiting)
	}
}

func newUserFixCompleteCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "user-fix-complete",
		Short: "Signal that the requested fix is done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.gate().SignalFixComplete(cmd.Context(), notes)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "what was done")

	return cmd
}

func newWaitUserFixCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait-user-fix",
		Short: "Block until the user signals the fix, then check it",
		Long: `Watch the state file until user-fix-complete is run, then verify the fix.
Exit codes match check-user-fix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			gate := a.gate()
			err = intervention.WaitForSignal(cmd.Context(), a.store, a.layout.StatePath(), timeout)
			if errors.Is(err, intervention.ErrWaitTimeout) {
				printf(cmd, "No fix signaled within %s", timeout)
				return exitWith(ExitFixWaiting)
			}
			if err != nil {
				return err
			}
			res, err := gate.CheckUserFix(cmd.Context())
			if err != nil {
				return err
			}
			return reportCheck(cmd, res)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits indefinitely)")

	return cmd
}
