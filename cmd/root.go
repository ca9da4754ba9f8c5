package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	stateDir string
	verbose  bool
)

// GetConfigFile returns the config file path from the flag.
func GetConfigFile() string {
	return cfgFile
}

// commandGroup is one titled section of the command registry.
type commandGroup struct {
	id       string
	title    string
	commands []func() *cobra.Command
}

// commandGroups lists every subcommand by section.
var commandGroups = []commandGroup{
	{id: "workflow", title: "Workflow:", commands: []func() *cobra.Command{
		newInitCmd, newStatusCmd, newRecoverCmd, newCompleteCmd, newIterationCmd,
		newElapsedCmd, newCompactContextCmd, newResumeContextCmd, newSetPhaseCmd,
	}},
	{id: "stories", title: "Stories:", commands: []func() *cobra.Command{
		newAddStoryCmd, newUpdateStoryCmd, newNextStoryCmd, newVerifyCmd,
		newVerifyStatusCmd, newScanDependenciesCmd,
	}},
	{id: "tdd", title: "TDD:", commands: []func() *cobra.Command{
		newTDDPhaseCmd, newTDDStatusCmd, newTDDValidateCmd,
	}},
	{id: "failures", title: "Failures:", commands: []func() *cobra.Command{
		newAddFailureCmd, newGetFailuresCmd, newRetryRecommendationCmd,
	}},
	{id: "notes", title: "Decisions and Clarifications:", commands: []func() *cobra.Command{
		newAddDecisionCmd, newAddClarificationCmd, newGetClarificationsCmd, newClarificationSummaryCmd,
	}},
	{id: "blockers", title: "Blockers and User Intervention:", commands: []func() *cobra.Command{
		newAddBlockerCmd, newResolveBlockerCmd, newAwaitUserFixCmd, newCheckUserFixCmd,
		newUserFixCompleteCmd, newWaitUserFixCmd,
	}},
	{id: "monitoring", title: "Progress and Alerts:", commands: []func() *cobra.Command{
		newProgressCmd, newTrimProgressCmd, newCheckAlertsCmd, newCheckpointCmd, newReportCmd,
	}},
	{id: "recovery", title: "Recovery:", commands: []func() *cobra.Command{
		newMarkWorkingStateCmd, newRollbackCmd,
	}},
	{id: "hooks", title: "Hooks:", commands: []func() *cobra.Command{
		newHookCmd,
	}},
}

// NewRootCmd creates the root command for the wiggum CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wiggum",
		Short: "State and continuation control for long-running agent workflows",
		Long: `Wiggum keeps the durable state of an autonomous coding workflow: stories and
their verification checks, TDD phases, failures, blockers and user fixes.

Its stop hook decides whether the agent may exit or must keep iterating,
so a workflow can run for hours until every story is verified.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./wiggum.yaml or ~/.config/wiggum/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "dir", "", "state directory (default: .wiggum)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")

	for _, g := range commandGroups {
		rootCmd.AddGroup(&cobra.Group{ID: g.id, Title: g.title})
		for _, newCmd := range g.commands {
			c := newCmd()
			c.GroupID = g.id
			rootCmd.AddCommand(c)
		}
	}

	return rootCmd
}

// Execute runs the root command and exits with the command's status code.
func Execute() {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	os.Exit(1)
}
