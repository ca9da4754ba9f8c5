package cmd

import (
	"github.com/spf13/cobra"
)

func newAddDecisionCmd() *cobra.Command {
	var (
		phase     string
		rationale string
	)

	cmd := &cobra.Command{
		Use:   "add-decision <decision>",
		Short: "Record an architectural or scoping decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.manager.AddDecision(cmd.Context(), phase, args[0], rationale); err != nil {
				return err
			}
			printf(cmd, "Added decision")
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "phase the decision belongs to (default: current phase)")
	cmd.Flags().StringVar(&rationale, "rationale", "", "why the decision was made")

	return cmd
}

func newAddClarificationCmd() *cobra.Command {
	var (
		phase    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "add-clarification <question> <answer>",
		Short: "Record a human answer to a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.manager.AddClarification(cmd.Context(), args[0], args[1], phase, category); err != nil {
				return err
			}
			q := []rune(args[0])
			if len(q) > 30 {
				q = q[:30]
			}
			printf(cmd, "Added clarification: %s...", string(q))
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "phase the question came up in")
	cmd.Flags().StringVar(&category, "category", "", "clarification category")

	return cmd
}

func newGetClarificationsCmd() *cobra.Command {
	var (
		phase    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "get-clarifications",
		Short: "List recorded clarifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			list, err := a.manager.Clarifications(phase, category)
			if err != nil {
				return err
			}
			return writeJSON(cmd, list)
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "only this phase")
	cmd.Flags().StringVar(&category, "category", "", "only this category")

	return cmd
}

func newClarificationSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clarification-summary",
		Short: "Print clarifications as markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			summary, err := a.manager.ClarificationSummary()
			if err != nil {
				return err
			}
			printf(cmd, "%s", summary)
			return nil
		},
	}
}
