package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yarlson/go-wiggum/internal/hook"
)

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Agent runtime hooks",
	}
	cmd.AddCommand(newHookStopCmd())
	return cmd
}

func newHookStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Decide whether the agent may stop",
		Long: `Read the stop hook document from stdin and write the decision to stdout.

The decision blocks the exit while the workflow is incomplete. It allows the
exit on completion, escalation, a pending user fix or the iteration cap. Any
internal problem allows the exit so the agent is never trapped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookStop(cmd)
		},
	}
}

func runHookStop(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	in, err := hook.DecodeInput(cmd.InOrStdin())
	if err != nil {
		return hook.UnparseableDecision().Encode(out)
	}

	a, err := newApp(cmd)
	if err != nil {
		newLogger(cmd.ErrOrStderr(), "").Error("stop hook setup failed", "error", err)
		return hook.UnparseableDecision().Encode(out)
	}
	if err := a.layout.EnsureDir(); err != nil {
		a.logger.Warn("failed to create state directory", "error", err)
	}

	return a.controller().Decide(cmd.Context(), in).Encode(out)
}
