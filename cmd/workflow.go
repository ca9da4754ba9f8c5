package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdinternal "github.com/yarlson/go-wiggum/cmd/internal"
)

func newInitCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "init <goal>",
		Short: "Start or resume a workflow",
		Long:  "Create a workflow for the goal. A workflow that is still in progress is resumed instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "agent session ID")

	return cmd
}

func runInit(cmd *cobra.Command, goal, sessionID string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.layout.EnsureDir(); err != nil {
		return err
	}

	rec, resumed, err := a.manager.Init(cmd.Context(), goal, sessionID)
	if err != nil {
		return err
	}

	printf(cmd, "Initialized workflow: %s", rec.WorkflowID)
	if resumed && len(rec.Stories) > 0 {
		printf(cmd, "Resuming with %d existing stories", len(rec.Stories))
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workflow summary",
		Long:  "Display goal, progress, current story, metrics, due checkpoints and open blockers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, text)
		},
	}

	cmd.Flags().BoolVar(&text, "text", false, "human-readable output instead of JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, text bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	summary, err := a.manager.Summary()
	if err != nil {
		return err
	}
	if text {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), cmdinternal.FormatSummary(summary))
		return nil
	}
	return writeJSON(cmd, summary)
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Show session recovery information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			info, err := a.manager.RecoveryInfo()
			if err != nil {
				return err
			}
			return writeJSON(cmd, info)
		},
	}
}

func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Mark the workflow completed",
		Long:  "Mark the workflow completed, reset the iteration counter and archive the progress log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if _, err := a.manager.Complete(cmd.Context()); err != nil {
				return err
			}
			printf(cmd, "Workflow completed")
			return nil
		},
	}
}

func newIterationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "iteration",
		Short: "Show the current iteration count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			printf(cmd, "Current iteration: %d", a.counter.Get())
			return nil
		},
	}
}

func newElapsedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elapsed",
		Short: "Show minutes since the workflow started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			minutes, err := a.manager.ElapsedMinutes()
			if err != nil {
				return err
			}
			printf(cmd, "Elapsed: %.1f minutes", minutes)
			return nil
		},
	}
}

func newCompactContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact-context",
		Short: "Print a minimal plain-text summary for context recovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			text, err := a.manager.CompactContext()
			if err != nil {
				return err
			}
			printf(cmd, "%s", text)
			return nil
		},
	}
}

func newResumeContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume-context",
		Short: "Show the context needed to resume after a user fix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			rc, err := a.manager.ResumeContext()
			if err != nil {
				return err
			}
			return writeJSON(cmd, rc)
		},
	}
}

func newSetPhaseCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "set-phase <phase>",
		Short: "Record the workflow phase and active agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.manager.SetPhaseLabel(cmd.Context(), args[0], agent); err != nil {
				return err
			}
			printf(cmd, "Phase: %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "agent now active")

	return cmd
}
