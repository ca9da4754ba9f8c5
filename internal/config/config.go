// Package config loads wiggum configuration from wiggum.yaml and the environment.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all wiggum configuration
type Config struct {
	State        StateConfig        `mapstructure:"state"`
	Hook         HookConfig         `mapstructure:"hook"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts"`
	Intervention InterventionConfig `mapstructure:"intervention"`
	Git          GitConfig          `mapstructure:"git"`
	Alerts       AlertsConfig       `mapstructure:"alerts"`
	Checkpoints  CheckpointsConfig  `mapstructure:"checkpoints"`
	Failures     FailuresConfig     `mapstructure:"failures"`
	Progress     ProgressConfig     `mapstructure:"progress"`
	Store        StoreConfig        `mapstructure:"store"`
	Log          LogConfig          `mapstructure:"log"`
}

// StateConfig holds the location of the state directory
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// HookConfig holds continuation hook settings
type HookConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// TimeoutsConfig holds the per-workflow timeout budget written into new records
type TimeoutsConfig struct {
	StoryMaxMinutes        int `mapstructure:"story_max_minutes"`
	IterationMaxMinutes    int `mapstructure:"iteration_max_minutes"`
	QuestionTimeoutMinutes int `mapstructure:"question_timeout_minutes"`
}

// InterventionConfig holds user intervention settings
type InterventionConfig struct {
	TimeoutMinutes      int `mapstructure:"timeout_minutes"`
	CheckTimeoutSeconds int `mapstructure:"check_timeout_seconds"`
}

// GitConfig holds git wrapper settings
type GitConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AlertsConfig holds alert thresholds
type AlertsConfig struct {
	ProgressReportMinutes   int `mapstructure:"progress_report_minutes"`
	ExtendedWorkflowMinutes int `mapstructure:"extended_workflow_minutes"`
	VeryLongWorkflowMinutes int `mapstructure:"very_long_workflow_minutes"`
	HighIterationCount      int `mapstructure:"high_iteration_count"`
}

// CheckpointsConfig holds human review and progress report cadence
type CheckpointsConfig struct {
	ReviewEveryStories int `mapstructure:"review_every_stories"`
	ReportEveryStories int `mapstructure:"report_every_stories"`
}

// FailuresConfig holds failure classification settings
type FailuresConfig struct {
	TableFile string `mapstructure:"table_file"`
}

// ProgressConfig holds progress log settings
type ProgressConfig struct {
	MaxLines int `mapstructure:"max_lines"`
}

// StoreConfig holds state store settings
type StoreConfig struct {
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds"`
}

// LogConfig holds diagnostic logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LockTimeout returns the store lock timeout as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Store.LockTimeoutSeconds) * time.Second
}

// CheckTimeout returns the intervention check command timeout as a duration.
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.Intervention.CheckTimeoutSeconds) * time.Second
}

// GitTimeout returns the git command timeout as a duration.
func (c *Config) GitTimeout() time.Duration {
	return time.Duration(c.Git.TimeoutSeconds) * time.Second
}

// LoadConfigWithFile loads configuration from a specific file if provided,
// otherwise falls back to LoadConfig with the working directory.
func LoadConfigWithFile(workDir, configFile string) (*Config, error) {
	if configFile != "" {
		return LoadConfigFromPath(configFile)
	}
	return LoadConfig(workDir)
}

// LoadConfig loads configuration for the project in dir, using the first
// file from ConfigCandidates. If no config file exists, defaults are returned.
func LoadConfig(dir string) (*Config, error) {
	path := ResolveConfigFile(dir)
	if path == "" {
		return unmarshal(newViper())
	}
	return LoadConfigFromPath(path)
}

// LoadConfigFromPath loads configuration from a specific file path
func LoadConfigFromPath(configPath string) (*Config, error) {
	v := newViper()

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return unmarshal(v)
		}
		return nil, err
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// MaxIterations resolves the continuation hook's iteration cap.
// The environment override is consulted on every call so each hook
// decision sees the value current at that moment.
func (c *Config) MaxIterations() int {
	v := viper.New()
	v.SetDefault("max_iterations", c.Hook.MaxIterations)
	_ = v.BindEnv("max_iterations", MaxIterationsEnv)

	n := v.GetInt("max_iterations")
	if n <= 0 {
		if c.Hook.MaxIterations > 0 {
			return c.Hook.MaxIterations
		}
		return DefaultMaxIterations
	}
	return n
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	_ = v.BindEnv("hook.max_iterations", MaxIterationsEnv)
	_ = v.BindEnv("log.level", "WIGGUM_LOG_LEVEL")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults sets all default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("state.dir", DefaultStateDir)

	v.SetDefault("hook.max_iterations", DefaultMaxIterations)

	v.SetDefault("timeouts.story_max_minutes", DefaultStoryMaxMinutes)
	v.SetDefault("timeouts.iteration_max_minutes", DefaultIterationMaxMinutes)
	v.SetDefault("timeouts.question_timeout_minutes", DefaultQuestionTimeoutMinutes)

	v.SetDefault("intervention.timeout_minutes", DefaultInterventionMinutes)
	v.SetDefault("intervention.check_timeout_seconds", DefaultCheckTimeoutSeconds)

	v.SetDefault("git.timeout_seconds", DefaultGitTimeoutSeconds)

	v.SetDefault("alerts.progress_report_minutes", DefaultProgressReportMinutes)
	v.SetDefault("alerts.extended_workflow_minutes", DefaultExtendedWorkflowMinutes)
	v.SetDefault("alerts.very_long_workflow_minutes", DefaultVeryLongWorkflowMinutes)
	v.SetDefault("alerts.high_iteration_count", DefaultHighIterationCount)

	v.SetDefault("checkpoints.review_every_stories", DefaultReviewEveryStories)
	v.SetDefault("checkpoints.report_every_stories", DefaultReportEveryStories)

	v.SetDefault("failures.table_file", "")

	v.SetDefault("progress.max_lines", DefaultProgressMaxLines)

	v.SetDefault("store.lock_timeout_seconds", DefaultLockTimeoutSecs)

	v.SetDefault("log.level", DefaultLogLevel)
}
