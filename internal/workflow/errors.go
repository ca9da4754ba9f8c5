package workflow

import (
	"errors"
	"fmt"
)

// Error types for workflow operations.
var (
	// ErrNoWorkflow is returned when no workflow record exists.
	ErrNoWorkflow = errors.New("no active workflow")

	// ErrStoryNotFound is returned when a story ID is unknown.
	ErrStoryNotFound = errors.New("story not found")

	// ErrInvalidStatus is returned for a status outside the fixed set.
	ErrInvalidStatus = errors.New("invalid story status")

	// ErrInvalidCheck is returned for an unrecognized verification check name.
	ErrInvalidCheck = errors.New("invalid verification check")

	// ErrInvalidPhase is returned for an unknown TDD phase.
	ErrInvalidPhase = errors.New("invalid TDD phase")

	// ErrInvalidSeverity is returned for an unknown blocker severity.
	ErrInvalidSeverity = errors.New("invalid blocker severity")

	// ErrBlockerNotFound is returned when a blocker index is out of range.
	ErrBlockerNotFound = errors.New("blocker not found")

	// ErrStaleWrite is returned when a save is based on an outdated read.
	ErrStaleWrite = errors.New("workflow record was modified since it was loaded")

	// ErrNoIntervention is returned when no user intervention is pending.
	ErrNoIntervention = errors.New("no intervention pending")

	// ErrNoWorkingCommit is returned when rollback has no known-good commit.
	ErrNoWorkingCommit = errors.New("no working commit recorded")
)

// NotFoundError wraps ErrStoryNotFound with the story ID that was not found.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("story not found: %s", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrStoryNotFound
}

// ValidationError carries the rejected value and unwraps to the matching sentinel.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %q", e.Err, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StaleWriteError reports the versions involved in a rejected save.
type StaleWriteError struct {
	Expected int
	Actual   int
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("%v (loaded version %d, stored version %d)", ErrStaleWrite, e.Expected, e.Actual)
}

func (e *StaleWriteError) Unwrap() error {
	return ErrStaleWrite
}
