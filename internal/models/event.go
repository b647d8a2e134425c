package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes runner events.
type EventType string

const (
	// Run events
	EventTypeRunSubmitted EventType = "run.submitted"
	EventTypeRunReplaced  EventType = "run.replaced"
	EventTypeRunCompleted EventType = "run.completed"

	// Step events
	EventTypeStepDispatched EventType = "step.dispatched"
	EventTypeStepFailed     EventType = "step.failed"
	EventTypeStepWaited     EventType = "step.waited"
	EventTypeStepDeferred   EventType = "step.deferred"
)

// RunEvent is emitted by the runner for every state transition worth recording.
type RunEvent struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// RunID is the run the event belongs to.
	RunID string `json:"run_id"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Timestamp is the tick time at which the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks if the event is valid.
func (e *RunEvent) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(e.RunID) == "" {
		validation.AddMessage("run_id", "run_id is required")
	}
	return validation.Err()
}

// RunSubmittedPayload is the payload for run.submitted events.
type RunSubmittedPayload struct {
	Source    string `json:"source,omitempty"`
	Channel   string `json:"channel,omitempty"`
	StepCount int    `json:"step_count"`
	SendCount int    `json:"send_count"`
}

// RunReplacedPayload is the payload for run.replaced events.
type RunReplacedPayload struct {
	ReplacedBy   string `json:"replaced_by"`
	DroppedSteps int    `json:"dropped_steps"`
	SentBefore   int    `json:"sent_before"`
	FailedBefore int    `json:"failed_before"`
}

// StepDispatchedPayload is the payload for step.dispatched events.
type StepDispatchedPayload struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// StepFailedPayload is the payload for step.failed events.
type StepFailedPayload struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Error    string   `json:"error"`
}

// StepWaitedPayload is the payload for step.waited events.
type StepWaitedPayload struct {
	Seconds float64   `json:"seconds"`
	Until   time.Time `json:"until"`
}

// StepDeferredPayload is the payload for step.deferred events.
type StepDeferredPayload struct {
	Category Category  `json:"category"`
	Until    time.Time `json:"until"`
}

// RunCompletedPayload is the payload for run.completed events.
type RunCompletedPayload struct {
	Sent    int     `json:"sent"`
	Failed  int     `json:"failed"`
	Outcome Outcome `json:"outcome"`
	Status  string  `json:"status"`
}

// Run is the persisted summary of one submission.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source,omitempty"`
	Channel     string     `json:"channel,omitempty"`
	StepCount   int        `json:"step_count"`
	SendCount   int        `json:"send_count"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Sent        int        `json:"sent"`
	Failed      int        `json:"failed"`
	Outcome     Outcome    `json:"outcome"`
}
