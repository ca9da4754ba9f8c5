// Package hook implements the continuation controller run when the agent
// tries to stop. Each invocation decides whether the outer loop may exit.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnparseable is returned when the hook input is not a JSON object.
var ErrUnparseable = errors.New("unparseable hook input")

// maxInputBytes bounds how much of stdin is read.
const maxInputBytes = 32 << 20

// Input is the document the agent runtime sends on stdin.
type Input struct {
	HookEventName        string `json:"hook_event_name,omitempty"`
	SessionID            string `json:"session_id,omitempty"`
	Transcript           string `json:"transcript,omitempty"`
	TranscriptPath       string `json:"transcript_path,omitempty"`
	LastAssistantMessage string `json:"lastAssistantMessage,omitempty"`
	StopHookActive       bool   `json:"stop_hook_active,omitempty"`
}

// Text is the combined transcript and last output scanned for markers.
func (in *Input) Text() string {
	return in.Transcript + "\n" + in.LastAssistantMessage
}

// DecodeInput reads one hook input document from r.
func DecodeInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read hook input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrUnparseable
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return &in, nil
}

// Verdict is the allow/block answer given to the agent runtime.
type Verdict string

// Verdicts.
const (
	Allow Verdict = "allow"
	Block Verdict = "block"
)

// Outcome names why a decision was reached.
type Outcome string

// Outcomes.
const (
	OutcomeBlockedExit  Outcome = "blocked_exit"
	OutcomeAwaitingUser Outcome = "awaiting_user"
	OutcomeComplete     Outcome = "complete"
	OutcomeEscalated    Outcome = "escalated"
	OutcomeContinue     Outcome = "continue"
	OutcomeUnparseable  Outcome = "unparseable"
)

// Decision is the document written to stdout.
type Decision struct {
	Decision       Verdict `json:"decision"`
	Reason         string  `json:"reason"`
	ContinuePrompt string  `json:"continuePrompt,omitempty"`
	UserMessage    string  `json:"userMessage,omitempty"`
	Outcome        Outcome `json:"outcome"`
	Iteration      int     `json:"iteration,omitempty"`
}

// UnparseableDecision lets the loop exit when the input cannot be understood,
// so a malformed request never traps the agent.
func UnparseableDecision() *Decision {
	return &Decision{Decision: Allow, Outcome: OutcomeUnparseable}
}

// Encode writes d as a single JSON line.
func (d *Decision) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(d)
}
