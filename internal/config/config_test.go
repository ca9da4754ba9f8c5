package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_WithValidFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(MaxIterationsEnv, "")
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "wiggum.yaml")

	configContent := `
state:
  dir: ".agent-state"
hook:
  max_iterations: 40
timeouts:
  story_max_minutes: 45
  iteration_max_minutes: 15
  question_timeout_minutes: 3
intervention:
  timeout_minutes: 90
  check_timeout_seconds: 30
git:
  timeout_seconds: 5
alerts:
  progress_report_minutes: 20
  extended_workflow_minutes: 60
  very_long_workflow_minutes: 180
  high_iteration_count: 25
checkpoints:
  review_every_stories: 4
  report_every_stories: 2
failures:
  table_file: "failures.yaml"
progress:
  max_lines: 200
store:
  lock_timeout_seconds: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, ".agent-state", cfg.State.Dir)
	assert.Equal(t, 40, cfg.Hook.MaxIterations)
	assert.Equal(t, 45, cfg.Timeouts.StoryMaxMinutes)
	assert.Equal(t, 15, cfg.Timeouts.IterationMaxMinutes)
	assert.Equal(t, 3, cfg.Timeouts.QuestionTimeoutMinutes)
	assert.Equal(t, 90, cfg.Intervention.TimeoutMinutes)
	assert.Equal(t, 30*time.Second, cfg.CheckTimeout())
	assert.Equal(t, 5*time.Second, cfg.GitTimeout())
	assert.Equal(t, 20, cfg.Alerts.ProgressReportMinutes)
	assert.Equal(t, 60, cfg.Alerts.ExtendedWorkflowMinutes)
	assert.Equal(t, 180, cfg.Alerts.VeryLongWorkflowMinutes)
	assert.Equal(t, 25, cfg.Alerts.HighIterationCount)
	assert.Equal(t, 4, cfg.Checkpoints.ReviewEveryStories)
	assert.Equal(t, 2, cfg.Checkpoints.ReportEveryStories)
	assert.Equal(t, "failures.yaml", cfg.Failures.TableFile)
	assert.Equal(t, 200, cfg.Progress.MaxLines)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverridesMaxIterations(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(MaxIterationsEnv, "12")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Hook.MaxIterations)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(MaxIterationsEnv, "")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultStateDir, cfg.State.Dir)
	assert.Equal(t, DefaultMaxIterations, cfg.Hook.MaxIterations)
	assert.Equal(t, DefaultStoryMaxMinutes, cfg.Timeouts.StoryMaxMinutes)
	assert.Equal(t, DefaultIterationMaxMinutes, cfg.Timeouts.IterationMaxMinutes)
	assert.Equal(t, DefaultQuestionTimeoutMinutes, cfg.Timeouts.QuestionTimeoutMinutes)
	assert.Equal(t, DefaultInterventionMinutes, cfg.Intervention.TimeoutMinutes)
	assert.Equal(t, 60*time.Second, cfg.CheckTimeout())
	assert.Equal(t, 10*time.Second, cfg.GitTimeout())
	assert.Equal(t, DefaultProgressReportMinutes, cfg.Alerts.ProgressReportMinutes)
	assert.Equal(t, DefaultExtendedWorkflowMinutes, cfg.Alerts.ExtendedWorkflowMinutes)
	assert.Equal(t, DefaultVeryLongWorkflowMinutes, cfg.Alerts.VeryLongWorkflowMinutes)
	assert.Equal(t, DefaultHighIterationCount, cfg.Alerts.HighIterationCount)
	assert.Equal(t, DefaultReviewEveryStories, cfg.Checkpoints.ReviewEveryStories)
	assert.Equal(t, DefaultReportEveryStories, cfg.Checkpoints.ReportEveryStories)
	assert.Empty(t, cfg.Failures.TableFile)
	assert.Equal(t, DefaultProgressMaxLines, cfg.Progress.MaxLines)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "wiggum.yaml"), []byte("hook: [unclosed"), 0644))

	_, err := LoadConfig(tmpDir)
	assert.Error(t, err)
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "wiggum.yaml"), []byte("alerts:\n  high_iteration_count: 10\n"), 0644))

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Alerts.HighIterationCount)
	assert.Equal(t, DefaultProgressReportMinutes, cfg.Alerts.ProgressReportMinutes)
}

func TestLoadConfig_GlobalFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(MaxIterationsEnv, "")
	global := filepath.Join(xdg, "wiggum", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(global), 0755))
	require.NoError(t, os.WriteFile(global, []byte("hook:\n  max_iterations: 40\n"), 0644))

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Hook.MaxIterations)
}

func TestLoadConfigFromPath(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadConfigFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultStateDir, cfg.State.Dir)
	})

	t.Run("reads explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("state:\n  dir: custom\n"), 0644))

		cfg, err := LoadConfigFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, "custom", cfg.State.Dir)
	})
}

func TestMaxIterations(t *testing.T) {
	t.Run("uses config value without env", func(t *testing.T) {
		t.Setenv(MaxIterationsEnv, "")
		cfg := &Config{Hook: HookConfig{MaxIterations: 30}}
		assert.Equal(t, 30, cfg.MaxIterations())
	})

	t.Run("env overrides config value", func(t *testing.T) {
		t.Setenv(MaxIterationsEnv, "7")
		cfg := &Config{Hook: HookConfig{MaxIterations: 30}}
		assert.Equal(t, 7, cfg.MaxIterations())
	})

	t.Run("env is read on every call", func(t *testing.T) {
		cfg := &Config{Hook: HookConfig{MaxIterations: 30}}
		t.Setenv(MaxIterationsEnv, "5")
		assert.Equal(t, 5, cfg.MaxIterations())
		t.Setenv(MaxIterationsEnv, "9")
		assert.Equal(t, 9, cfg.MaxIterations())
	})

	t.Run("garbage env falls back to config", func(t *testing.T) {
		t.Setenv(MaxIterationsEnv, "lots")
		cfg := &Config{Hook: HookConfig{MaxIterations: 30}}
		assert.Equal(t, 30, cfg.MaxIterations())
	})

	t.Run("zero everywhere falls back to default", func(t *testing.T) {
		t.Setenv(MaxIterationsEnv, "")
		cfg := &Config{}
		assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations())
	})
}
