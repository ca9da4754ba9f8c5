package cmd

import (
	"github.com/spf13/cobra"
)

func newMarkWorkingStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-working-state",
		Short: "Remember the current commit as known-good",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sha, err := a.manager.MarkWorkingState(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Marked working state: %s", shortSHA(sha))
			return nil
		},
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback-to-checkpoint",
		Short: "Stash changes and reset to the last known-good commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			sha, err := a.manager.RollbackToCheckpoint(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Rolled back to %s", shortSHA(sha))
			return nil
		},
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
