package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/yarlson/go-wiggum/internal/workflow"
)

func newTDDPhaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tdd-phase <id> <phase>",
		Short: "Record a story's TDD phase (red, green, refactor, verify)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			phase := workflow.Phase(strings.ToLower(args[1]))
			if err := a.manager.SetPhase(cmd.Context(), args[0], phase); err != nil {
				return err
			}
			printf(cmd, "TDD phase for %s: %s", args[0], strings.ToUpper(string(phase)))
			return nil
		},
	}
}

func newTDDStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tdd-status <id>",
		Short: "Show a story's TDD phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			phase, err := a.manager.Phase(args[0])
			if err != nil {
				return err
			}
			label := string(phase)
			if label == "" {
				label = "not started"
			}
			printf(cmd, "TDD phase for %s: %s", args[0], label)
			return nil
		},
	}
}

func newTDDValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tdd-validate <id> <next-phase>",
		Short: "Check whether a TDD phase change follows red, green, refactor, verify",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			tr, err := a.manager.ValidatePhaseTransition(args[0], workflow.Phase(strings.ToLower(args[1])))
			if err != nil {
				return err
			}
			return writeJSON(cmd, tr)
		},
	}
}
