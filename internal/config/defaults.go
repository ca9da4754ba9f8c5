package config

// State defaults
const (
	DefaultStateDir = ".wiggum"
)

// Hook defaults
const (
	DefaultMaxIterations    = 100
	MaxIterationsEnv        = "MAX_WORKFLOW_ITERATIONS"
	DefaultLockTimeoutSecs  = 10
	DefaultProgressMaxLines = 100
)

// Timeout defaults, in minutes unless noted.
const (
	DefaultStoryMaxMinutes        = 30
	DefaultIterationMaxMinutes    = 10
	DefaultQuestionTimeoutMinutes = 5
	DefaultInterventionMinutes    = 60
	DefaultCheckTimeoutSeconds    = 60
	DefaultGitTimeoutSeconds      = 10
)

// Alert defaults
const (
	DefaultProgressReportMinutes   = 30
	DefaultExtendedWorkflowMinutes = 120
	DefaultVeryLongWorkflowMinutes = 240
	DefaultHighIterationCount      = 50
)

// Checkpoint defaults
const (
	DefaultReviewEveryStories = 5
	DefaultReportEveryStories = 3
)

// Logging defaults
const (
	DefaultLogLevel = "warn"
)
