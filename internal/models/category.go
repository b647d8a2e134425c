package models

// Category selects which cooldown track, if any, applies to a send step.
type Category string

const (
	CategoryUncategorized Category = "uncategorized"
	CategoryWhisper       Category = "whisper"
	CategoryChat          Category = "chat"
)

// Throttled reports whether sends in this category are spaced by a cooldown.
func (c Category) Throttled() bool {
	return c == CategoryWhisper || c == CategoryChat
}

// Outcome summarises the state of a run for status display.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomeInProgress Outcome = "in_progress"
	OutcomeAllSent    Outcome = "all_sent"
	OutcomePartial    Outcome = "partial"
	OutcomeFailed     Outcome = "failed"

	// OutcomeReplaced marks a run cut short by a newer submission. It only
	// appears in run history.
	OutcomeReplaced Outcome = "replaced"
)

// Final reports whether the outcome describes a finished run.
func (o Outcome) Final() bool {
	switch o {
	case OutcomeAllSent, OutcomePartial, OutcomeFailed, OutcomeReplaced:
		return true
	default:
		return false
	}
}
