package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yarlson/go-wiggum/internal/failure"
)

func newAddFailureCmd() *cobra.Command {
	var (
		category string
		details  []string
	)

	cmd := &cobra.Command{
		Use:   "add-failure <id> <message>",
		Short: "Record a failure for a story",
		Long:  "Record a failure. The category is inferred from the message unless --category is set.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctxDetails, err := parseDetails(details)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			f, err := a.manager.RecordFailure(cmd.Context(), args[0], args[1], failure.Category(category), ctxDetails)
			if err != nil {
				return err
			}
			printf(cmd, "Added failure: %s [%s]", f.ID, f.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "failure category (code, test, infra, external, timeout)")
	cmd.Flags().StringArrayVar(&details, "detail", nil, "context as key=value (repeatable)")

	return cmd
}

// parseDetails turns key=value flags into a map.
func parseDetails(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid detail %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func newGetFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-failures <id>",
		Short: "List failures recorded for a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			failures, err := a.manager.StoryFailures(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, failures)
		},
	}
}

func newRetryRecommendationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-recommendation <id>",
		Short: "Advise whether to retry a story",
		Long:  "Print the retry recommendation for a story. Exits with status 2 when escalation is advised.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			rec, err := a.manager.RecommendRetry(args[0])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, rec); err != nil {
				return err
			}
			if rec.Escalate {
				return exitWith(ExitEscalate)
			}
			return nil
		},
	}
}
