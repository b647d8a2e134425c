// Package models defines the core data types shared across VenuePlus packages.
package models

import (
	"fmt"
	"math"
	"time"
)

// maxWaitSeconds is the longest pause a time.Duration can hold.
const maxWaitSeconds = float64(math.MaxInt64) / float64(time.Second)

// StepKind defines the kind of macro step.
type StepKind string

const (
	StepKindWait StepKind = "wait"
	StepKindSend StepKind = "send"
)

// Step is one atomic scheduled unit: a timed pause or a send action.
// Steps are values; treat them as immutable once built.
type Step struct {
	// Kind selects which of the fields below is meaningful.
	Kind StepKind `json:"kind"`

	// Seconds is the pause length for wait steps. Never negative.
	Seconds float64 `json:"seconds,omitempty"`

	// Text is the fully formed command or message for send steps.
	Text string `json:"text,omitempty"`
}

// Wait builds a pause step. Negative durations clamp to zero and durations
// beyond what time.Duration can hold, including +Inf, clamp to the maximum.
func Wait(seconds float64) Step {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if seconds > maxWaitSeconds {
		seconds = maxWaitSeconds
	}
	return Step{Kind: StepKindWait, Seconds: seconds}
}

// Send builds a send step for an already formatted line.
func Send(text string) Step {
	return Step{Kind: StepKindSend, Text: text}
}

// IsWait reports whether the step is a pause.
func (s Step) IsWait() bool { return s.Kind == StepKindWait }

// IsSend reports whether the step is a send action.
func (s Step) IsSend() bool { return s.Kind == StepKindSend }

// Duration converts the pause length to a time.Duration.
func (s Step) Duration() time.Duration {
	if s.Kind != StepKindWait || s.Seconds <= 0 || math.IsNaN(s.Seconds) {
		return 0
	}
	if s.Seconds >= maxWaitSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s.Seconds * float64(time.Second))
}

// String renders the step for logs and CLI output.
func (s Step) String() string {
	switch s.Kind {
	case StepKindWait:
		return fmt.Sprintf("Wait(%gs)", s.Seconds)
	case StepKindSend:
		return fmt.Sprintf("Send(%q)", s.Text)
	default:
		return fmt.Sprintf("Step(%s)", s.Kind)
	}
}

// CountSends returns the number of send steps in a batch.
func CountSends(steps []Step) int {
	n := 0
	for _, step := range steps {
		if step.IsSend() {
			n++
		}
	}
	return n
}
