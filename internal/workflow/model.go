// Package workflow holds the persistent workflow record and the operations
// that move its stories, phases, blockers and checkpoints forward.
package workflow

import (
	"time"

	"github.com/yarlson/go-wiggum/internal/failure"
)

// Status is the overall state of a workflow.
type Status string

// Workflow status values.
const (
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusBlocked      Status = "blocked"
	StatusAwaitingUser Status = "awaiting_user"
)

// StoryStatus is the lifecycle state of a story.
type StoryStatus string

// Valid story status values.
const (
	StoryPending    StoryStatus = "pending"
	StoryInProgress StoryStatus = "in_progress"
	StoryTesting    StoryStatus = "testing"
	StoryReview     StoryStatus = "review"
	StoryVerified   StoryStatus = "verified"
	StoryCompleted  StoryStatus = "completed"
	StoryBlocked    StoryStatus = "blocked"
	StorySkipped    StoryStatus = "skipped"
)

// validStoryStatuses contains all valid story status values for quick lookup.
var validStoryStatuses = map[StoryStatus]bool{
	StoryPending:    true,
	StoryInProgress: true,
	StoryTesting:    true,
	StoryReview:     true,
	StoryVerified:   true,
	StoryCompleted:  true,
	StoryBlocked:    true,
	StorySkipped:    true,
}

// IsValid returns true if the status is a valid StoryStatus value.
func (s StoryStatus) IsValid() bool {
	return validStoryStatuses[s]
}

// IsActive reports whether the story is the one currently being worked.
func (s StoryStatus) IsActive() bool {
	return s == StoryInProgress || s == StoryTesting || s == StoryReview
}

// Check names a verification check.
type Check string

// Verification check names.
const (
	CheckTestsPass       Check = "testsPass"
	CheckCoverageMet     Check = "coverageMet"
	CheckReviewApproved  Check = "reviewApproved"
	CheckSecurityCleared Check = "securityCleared"
)

// Checks lists the verification checks in display order.
var Checks = []Check{CheckTestsPass, CheckCoverageMet, CheckReviewApproved, CheckSecurityCleared}

// IsValid returns true if the check is one of the four recognized names.
func (c Check) IsValid() bool {
	switch c {
	case CheckTestsPass, CheckCoverageMet, CheckReviewApproved, CheckSecurityCleared:
		return true
	}
	return false
}

// VerificationChecks gates story completion.
type VerificationChecks struct {
	TestsPass       bool `json:"testsPass"`
	CoverageMet     bool `json:"coverageMet"`
	ReviewApproved  bool `json:"reviewApproved"`
	SecurityCleared bool `json:"securityCleared"`
}

// Get returns the value of a check.
func (v VerificationChecks) Get(c Check) bool {
	switch c {
	case CheckTestsPass:
		return v.TestsPass
	case CheckCoverageMet:
		return v.CoverageMet
	case CheckReviewApproved:
		return v.ReviewApproved
	case CheckSecurityCleared:
		return v.SecurityCleared
	}
	return false
}

func (v *VerificationChecks) set(c Check, passed bool) {
	switch c {
	case CheckTestsPass:
		v.TestsPass = passed
	case CheckCoverageMet:
		v.CoverageMet = passed
	case CheckReviewApproved:
		v.ReviewApproved = passed
	case CheckSecurityCleared:
		v.SecurityCleared = passed
	}
}

// AllPassed reports whether every check is true.
func (v VerificationChecks) AllPassed() bool {
	return v.TestsPass && v.CoverageMet && v.ReviewApproved && v.SecurityCleared
}

// Phase is a TDD phase.
type Phase string

// TDD phases in cycle order.
const (
	PhaseRed      Phase = "red"
	PhaseGreen    Phase = "green"
	PhaseRefactor Phase = "refactor"
	PhaseVerify   Phase = "verify"
)

// IsValid returns true if the phase is one of the four TDD phases.
func (p Phase) IsValid() bool {
	_, ok := nextPhase[p]
	return ok
}

// Severity grades blockers.
type Severity string

// Blocker severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true for a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Record is the single persisted workflow document.
type Record struct {
	// Version increments on every successful save; used to reject stale writes.
	Version int `json:"version"`

	WorkflowID      string     `json:"workflowId"`
	SessionID       string     `json:"sessionId"`
	StartedAt       time.Time  `json:"startedAt"`
	LastUpdated     time.Time  `json:"lastUpdated"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Goal            string     `json:"goal"`
	Status          Status     `json:"status"`
	CurrentPhase    string     `json:"currentPhase"`
	CurrentAgent    string     `json:"currentAgent"`
	TotalIterations int        `json:"totalIterations"`

	Stories        []Story           `json:"stories"`
	Decisions      []Decision        `json:"decisions"`
	Clarifications []Clarification   `json:"clarifications"`
	Failures       []failure.Failure `json:"failures"`
	Checkpoints    Checkpoints       `json:"checkpoints"`
	Blockers       []Blocker         `json:"blockers"`
	Metrics        Metrics           `json:"metrics"`
	Timeouts       Timeouts          `json:"timeouts"`
	Alerts         []Alert           `json:"alerts"`

	UserIntervention  *UserIntervention `json:"userIntervention,omitempty"`
	LastWorkingCommit string            `json:"lastWorkingCommit,omitempty"`
	LastWorkingAt     *time.Time        `json:"lastWorkingAt,omitempty"`
}

// Story is a unit of work gated by verification checks.
type Story struct {
	ID                   string             `json:"id"`
	Title                string             `json:"title"`
	Size                 string             `json:"size"`
	Status               StoryStatus        `json:"status"`
	AcceptanceCriteria   []string           `json:"acceptanceCriteria"`
	SecuritySensitive    bool               `json:"securitySensitive"`
	AssignedAgent        string             `json:"assignedAgent,omitempty"`
	Attempts             int                `json:"attempts"`
	Iterations           []Attempt          `json:"iterations"`
	VerificationChecks   VerificationChecks `json:"verificationChecks"`
	TDDPhase             Phase              `json:"tddPhase,omitempty"`
	TDDPhaseStarted      *time.Time         `json:"tddPhaseStarted,omitempty"`
	TDDHistory           []PhaseEntry       `json:"tddHistory,omitempty"`
	DetectedDependencies []Dependency       `json:"detectedDependencies,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	LastUpdated          time.Time          `json:"lastUpdated"`
	CompletedAt          *time.Time         `json:"completedAt,omitempty"`
}

// Attempt snapshots one transition of a story into in_progress.
type Attempt struct {
	Attempt         int       `json:"attempt"`
	StartedAt       time.Time `json:"startedAt"`
	GlobalIteration int       `json:"globalIteration"`
}

// PhaseEntry is one TDD history entry.
type PhaseEntry struct {
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
	Iteration int       `json:"iteration"`
}

// Dependency is an external service detected in a story's text.
type Dependency struct {
	Type            string `json:"type"`
	KeywordMatched  string `json:"keywordMatched"`
	Category        string `json:"category"`
	MockStrategy    string `json:"mockStrategy"`
	RequiresSecrets bool   `json:"requiresSecrets"`
}

// Decision records an architectural or scoping choice.
type Decision struct {
	Phase     string    `json:"phase"`
	Decision  string    `json:"decision"`
	Rationale string    `json:"rationale,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Clarification is a persisted human answer.
type Clarification struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Phase     string    `json:"phase"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Blocker is a recorded obstacle. Only the resolution fields change after creation.
type Blocker struct {
	Description     string     `json:"description"`
	Severity        Severity   `json:"severity"`
	CreatedAt       time.Time  `json:"createdAt"`
	Resolved        bool       `json:"resolved"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy      string     `json:"resolvedBy,omitempty"`
	AwaitingUserFix bool       `json:"awaitingUserFix,omitempty"`
	CheckCommand    string     `json:"checkCommand,omitempty"`
}

// Checkpoints tracks human review and progress report cadence.
type Checkpoints struct {
	LastHumanReview    time.Time `json:"lastHumanReview"`
	StoriesSinceReview int       `json:"storiesSinceReview"`
	LastProgressReport time.Time `json:"lastProgressReport"`
	StoriesSinceReport int       `json:"storiesSinceReport"`
	LastTimeCheck      time.Time `json:"lastTimeCheck"`
}

// Metrics aggregates counters across the workflow.
type Metrics struct {
	StoriesCompleted    int                      `json:"storiesCompleted"`
	TotalAttempts       int                      `json:"totalAttempts"`
	FailedVerifications int                      `json:"failedVerifications"`
	FailuresByCategory  map[failure.Category]int `json:"failuresByCategory"`
}

// Timeouts holds per-workflow minute budgets.
type Timeouts struct {
	StoryMaxMinutes        int `json:"storyMaxMinutes"`
	IterationMaxMinutes    int `json:"iterationMaxMinutes"`
	QuestionTimeoutMinutes int `json:"questionTimeoutMinutes"`
}

// AlertType names an alert condition.
type AlertType string

// Alert types.
const (
	AlertProgressReportDue AlertType = "progress_report_due"
	AlertExtendedWorkflow  AlertType = "extended_workflow"
	AlertVeryLongWorkflow  AlertType = "very_long_workflow"
	AlertStoryTimeout      AlertType = "story_timeout"
	AlertHighIterations    AlertType = "high_iterations"
)

// AlertSeverity grades alerts.
type AlertSeverity string

// Alert severities.
const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is one entry of the point-in-time alert snapshot.
type Alert struct {
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
	StoryID  string        `json:"storyId,omitempty"`
}

// UserIntervention is a pending or acknowledged request for a human fix.
type UserIntervention struct {
	BlockerIndex   int        `json:"blockerId"`
	Description    string     `json:"description"`
	CheckCommand   string     `json:"checkCommand,omitempty"`
	RequestedAt    time.Time  `json:"requestedAt"`
	TimeoutMinutes int        `json:"timeoutMinutes"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Story returns a pointer to the story with id, or nil.
func (r *Record) Story(id string) *Story {
	for i := range r.Stories {
		if r.Stories[i].ID == id {
			return &r.Stories[i]
		}
	}
	return nil
}

// NextStory returns the current story: the first active one, else the first
// pending one, else nil.
func (r *Record) NextStory() *Story {
	if s := r.ActiveStory(); s != nil {
		return s
	}
	return r.FirstPending()
}

// FirstPending returns the first pending story, or nil.
func (r *Record) FirstPending() *Story {
	for i := range r.Stories {
		if r.Stories[i].Status == StoryPending {
			return &r.Stories[i]
		}
	}
	return nil
}

// ActiveStory returns the first in_progress, testing or review story, or nil.
func (r *Record) ActiveStory() *Story {
	for i := range r.Stories {
		if r.Stories[i].Status.IsActive() {
			return &r.Stories[i]
		}
	}
	return nil
}

// UnresolvedBlockers returns blockers that are still open.
func (r *Record) UnresolvedBlockers() []Blocker {
	var out []Blocker
	for _, b := range r.Blockers {
		if !b.Resolved {
			out = append(out, b)
		}
	}
	return out
}

// AllStoriesCompleted reports whether there is at least one story and every
// story is completed.
func (r *Record) AllStoriesCompleted() bool {
	if len(r.Stories) == 0 {
		return false
	}
	for _, s := range r.Stories {
		if s.Status != StoryCompleted {
			return false
		}
	}
	return true
}

// StoryCounts tallies stories by progress bucket.
type StoryCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Blocked    int `json:"blocked"`
	Percentage int `json:"percentage"`
}

// Counts returns the story tallies.
func (r *Record) Counts() StoryCounts {
	c := StoryCounts{Total: len(r.Stories)}
	for _, s := range r.Stories {
		switch {
		case s.Status == StoryCompleted:
			c.Completed++
		case s.Status.IsActive():
			c.InProgress++
		case s.Status == StoryPending:
			c.Pending++
		case s.Status == StoryBlocked:
			c.Blocked++
		}
	}
	if c.Total > 0 {
		c.Percentage = (c.Completed*100 + c.Total/2) / c.Total
	}
	return c
}
