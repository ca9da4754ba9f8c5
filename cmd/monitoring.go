package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	cmdinternal "github.com/yarlson/go-wiggum/cmd/internal"
	"github.com/yarlson/go-wiggum/internal/alert"
)

func newProgressCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show recent progress log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			entries, err := a.progress.Recent(lines)
			if err != nil {
				return err
			}
			for _, e := range entries {
				printf(cmd, "%s", e)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lines, "lines", 20, "number of entries")

	return cmd
}

func newTrimProgressCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "trim-progress",
		Short: "Keep only the most recent progress log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if lines <= 0 {
				lines = a.cfg.Progress.MaxLines
			}
			trimmed, err := a.progress.Trim(lines)
			if err != nil {
				return err
			}
			if trimmed {
				printf(cmd, "Progress file trimmed to %d lines", lines)
			} else {
				printf(cmd, "Progress file within %d lines", lines)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lines, "lines", 0, "lines to keep (0 uses config)")

	return cmd
}

func newCheckAlertsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check-alerts",
		Short: "Evaluate time and iteration alerts",
		Long:  "Recompute alerts and store them on the workflow. Exits with status 3 when any alert is critical.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			alerts, err := a.alertEngine().Check(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, alerts); err != nil {
					return err
				}
			} else {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), cmdinternal.FormatAlerts(alerts))
			}
			if alert.HasCritical(alerts) {
				return exitWith(ExitCriticalAlert)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print alerts as JSON")

	return cmd
}

func newCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Record a human review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return recordCheckpoint(cmd, a.manager.CheckpointDue, a.manager.RecordHumanReview, "Human review")
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Record a progress report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return recordCheckpoint(cmd, a.manager.ProgressReportDue, a.manager.RecordProgressReport, "Progress report")
		},
	}
}

// recordCheckpoint records a review or report and says whether it was due.
func recordCheckpoint(cmd *cobra.Command, due func() (bool, error), record func(context.Context) error, label string) error {
	wasDue, err := due()
	if err != nil {
		return err
	}
	if err := record(cmd.Context()); err != nil {
		return err
	}
	if wasDue {
		printf(cmd, "%s recorded", label)
	} else {
		printf(cmd, "%s recorded (was not due)", label)
	}
	return nil
}
