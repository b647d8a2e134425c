// Package outcome derives the transient status line shown for a macro run.
package outcome

import (
	"fmt"
	"time"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// DefaultTTL is how long a status line stays visible after the last refresh.
const DefaultTTL = 2 * time.Second

// Status texts.
const (
	TextInProgress = "Sending..."
	textAllSent    = "All messages sent (%d)."
	textPartial    = "Partially sent: %d sent, %d failed."
	textFailed     = "Failed to send (%d failed)."
)

// Tracker holds the status text and its expiry.
type Tracker struct {
	ttl       time.Duration
	outcome   models.Outcome
	text      string
	expiresAt time.Time
}

// NewTracker creates a tracker with the given visibility window.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{ttl: ttl}
}

// SetTTL changes the visibility window for future refreshes.
func (t *Tracker) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t.ttl = ttl
}

// Begin marks a run as in progress.
func (t *Tracker) Begin(now time.Time) {
	t.outcome = models.OutcomeInProgress
	t.text = TextInProgress
	t.expiresAt = now.Add(t.ttl)
}

// Touch keeps an in-progress status visible.
func (t *Tracker) Touch(now time.Time) {
	if t.outcome != models.OutcomeInProgress {
		return
	}
	t.expiresAt = now.Add(t.ttl)
}

// Complete computes the final status from the run counters.
func (t *Tracker) Complete(sent, failed int, now time.Time) models.Outcome {
	t.outcome = Classify(sent, failed)
	t.text = Text(t.outcome, sent, failed)
	t.expiresAt = now.Add(t.ttl)
	return t.outcome
}

// Reset clears the status.
func (t *Tracker) Reset() {
	t.outcome = models.OutcomeNone
	t.text = ""
	t.expiresAt = time.Time{}
}

// Text returns the status line, or "" once it has expired.
func (t *Tracker) Text(now time.Time) string {
	if t.text == "" || now.After(t.expiresAt) {
		return ""
	}
	return t.text
}

// Outcome returns the visible outcome, or OutcomeNone once expired.
func (t *Tracker) Outcome(now time.Time) models.Outcome {
	if t.text == "" || now.After(t.expiresAt) {
		return models.OutcomeNone
	}
	return t.outcome
}

// ExpiresAt returns when the current text stops being visible.
func (t *Tracker) ExpiresAt() time.Time {
	return t.expiresAt
}

// Classify maps final counters to an outcome. A run that sent nothing is a
// failure, including an empty batch.
func Classify(sent, failed int) models.Outcome {
	switch {
	case failed == 0 && sent > 0:
		return models.OutcomeAllSent
	case failed > 0 && sent > 0:
		return models.OutcomePartial
	default:
		return models.OutcomeFailed
	}
}

// Text renders the status line for an outcome.
func Text(o models.Outcome, sent, failed int) string {
	switch o {
	case models.OutcomeInProgress:
		return TextInProgress
	case models.OutcomeAllSent:
		return fmt.Sprintf(textAllSent, sent)
	case models.OutcomePartial:
		return fmt.Sprintf(textPartial, sent, failed)
	case models.OutcomeFailed:
		return fmt.Sprintf(textFailed, failed)
	default:
		return ""
	}
}
