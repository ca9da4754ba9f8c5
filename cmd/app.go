package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yarlson/go-wiggum/internal/alert"
	"github.com/yarlson/go-wiggum/internal/config"
	"github.com/yarlson/go-wiggum/internal/failure"
	"github.com/yarlson/go-wiggum/internal/git"
	"github.com/yarlson/go-wiggum/internal/hook"
	"github.com/yarlson/go-wiggum/internal/intervention"
	"github.com/yarlson/go-wiggum/internal/memory"
	"github.com/yarlson/go-wiggum/internal/state"
	"github.com/yarlson/go-wiggum/internal/verifier"
	"github.com/yarlson/go-wiggum/internal/workflow"
)

// app holds the components wired for one command invocation.
type app struct {
	cfg      *config.Config
	layout   state.Layout
	logger   *slog.Logger
	store    *workflow.FileStore
	counter  *state.Counter
	progress *memory.ProgressLog
	manager  *workflow.Manager
}

// newApp loads configuration and wires the state components rooted at the
// current working directory.
func newApp(cmd *cobra.Command) (*app, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigWithFile(workDir, GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dir := cfg.State.Dir
	if stateDir != "" {
		dir = stateDir
	}
	layout := state.NewLayout(workDir, dir)
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)

	classifier := failure.NewClassifier(nil)
	if cfg.Failures.TableFile != "" {
		table, err := failure.LoadTable(cfg.Failures.TableFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load failure table: %w", err)
		}
		classifier = failure.NewClassifier(table)
	}

	counter := state.NewCounter(layout.IterationPath())
	progress := memory.NewProgressLog(layout.ProgressPath())

	store := workflow.NewFileStore(layout.StatePath())
	store.SetLockTimeout(cfg.LockTimeout())
	store.SetIterationSource(counter.Get)
	store.SetLogger(logger)

	gitManager := git.NewShellManager(workDir)
	gitManager.SetTimeout(cfg.GitTimeout())

	manager := workflow.NewManager(workflow.ManagerDeps{
		Store:       store,
		Counter:     counter,
		Progress:    progress,
		Classifier:  classifier,
		Git:         gitManager,
		ArchivePath: layout.ProgressArchivePath(),
		Timeouts: workflow.Timeouts{
			StoryMaxMinutes:        cfg.Timeouts.StoryMaxMinutes,
			IterationMaxMinutes:    cfg.Timeouts.IterationMaxMinutes,
			QuestionTimeoutMinutes: cfg.Timeouts.QuestionTimeoutMinutes,
		},
		Checkpoints: workflow.CheckpointPolicy{
			ReviewEveryStories: cfg.Checkpoints.ReviewEveryStories,
			ReportEveryStories: cfg.Checkpoints.ReportEveryStories,
			ReportEvery:        time.Duration(cfg.Alerts.ProgressReportMinutes) * time.Minute,
		},
		Logger: logger,
	})

	return &app{
		cfg:      cfg,
		layout:   layout,
		logger:   logger,
		store:    store,
		counter:  counter,
		progress: progress,
		manager:  manager,
	}, nil
}

func (a *app) alertEngine() *alert.Engine {
	e := alert.NewEngine(a.store, a.counter)
	e.SetThresholds(alert.Thresholds{
		ProgressReport:   time.Duration(a.cfg.Alerts.ProgressReportMinutes) * time.Minute,
		ExtendedWorkflow: time.Duration(a.cfg.Alerts.ExtendedWorkflowMinutes) * time.Minute,
		VeryLongWorkflow: time.Duration(a.cfg.Alerts.VeryLongWorkflowMinutes) * time.Minute,
		HighIterations:   a.cfg.Alerts.HighIterationCount,
	})
	e.SetLogger(a.logger)
	return e
}

func (a *app) gate() *intervention.Gate {
	runner := verifier.NewShellRunner(a.layout.Root())
	runner.SetTimeout(a.cfg.CheckTimeout())
	return intervention.NewGate(intervention.GateDeps{
		Store:          a.store,
		Runner:         runner,
		Progress:       a.progress,
		Logger:         a.logger,
		DefaultTimeout: time.Duration(a.cfg.Intervention.TimeoutMinutes) * time.Minute,
	})
}

func (a *app) controller() *hook.Controller {
	return hook.NewController(hook.ControllerDeps{
		Store:         a.store,
		Counter:       a.counter,
		Progress:      a.progress,
		MaxIterations: a.cfg.MaxIterations,
		Logger:        a.logger,
	})
}

// newLogger builds the diagnostic logger. Diagnostics go to stderr so that
// stdout stays machine-readable.
func newLogger(w io.Writer, level string) *slog.Logger {
	if verbose {
		level = "debug"
	}
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
