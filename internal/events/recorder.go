// Package events records runner events into run history.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// RunStore is the minimal interface needed to write run summaries.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	Complete(ctx context.Context, run *models.Run) error
}

// EventStore is the minimal interface needed to write run events.
type EventStore interface {
	Create(ctx context.Context, event *models.RunEvent) error
}

// Recorder turns runner events into history rows.
type Recorder struct {
	runs   RunStore
	events EventStore
	logger zerolog.Logger
}

// NewRecorder creates a recorder. Both stores are required.
func NewRecorder(runs RunStore, events EventStore) *Recorder {
	return &Recorder{
		runs:   runs,
		events: events,
		logger: logging.Component("events"),
	}
}

// Emit stores event and updates the run summary it belongs to.
func (r *Recorder) Emit(ctx context.Context, event models.RunEvent) error {
	if r.runs == nil || r.events == nil {
		return errors.New("event recorder stores are required")
	}

	var err error
	switch event.Type {
	case models.EventTypeRunSubmitted:
		err = r.recordSubmitted(ctx, event)
	case models.EventTypeRunCompleted:
		err = r.recordCompleted(ctx, event)
	case models.EventTypeRunReplaced:
		err = r.recordReplaced(ctx, event)
	}
	if err != nil {
		return err
	}

	if err := r.events.Create(ctx, &event); err != nil {
		return fmt.Errorf("record %s: %w", event.Type, err)
	}
	return nil
}

func (r *Recorder) recordSubmitted(ctx context.Context, event models.RunEvent) error {
	var payload models.RunSubmittedPayload
	if err := decodePayload(event, &payload); err != nil {
		return err
	}

	run := &models.Run{
		ID:          event.RunID,
		Source:      payload.Source,
		Channel:     payload.Channel,
		StepCount:   payload.StepCount,
		SendCount:   payload.SendCount,
		SubmittedAt: event.Timestamp,
		Outcome:     models.OutcomeInProgress,
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", event.RunID, err)
	}
	return nil
}

func (r *Recorder) recordCompleted(ctx context.Context, event models.RunEvent) error {
	var payload models.RunCompletedPayload
	if err := decodePayload(event, &payload); err != nil {
		return err
	}
	return r.complete(ctx, event, payload.Sent, payload.Failed, payload.Outcome)
}

func (r *Recorder) recordReplaced(ctx context.Context, event models.RunEvent) error {
	var payload models.RunReplacedPayload
	if err := decodePayload(event, &payload); err != nil {
		return err
	}
	r.logger.Debug().
		Str("run_id", event.RunID).
		Str("replaced_by", payload.ReplacedBy).
		Int("dropped_steps", payload.DroppedSteps).
		Msg("recording replaced run")
	return r.complete(ctx, event, payload.SentBefore, payload.FailedBefore, models.OutcomeReplaced)
}

func (r *Recorder) complete(ctx context.Context, event models.RunEvent, sent, failed int, outcome models.Outcome) error {
	completedAt := event.Timestamp
	run := &models.Run{
		ID:          event.RunID,
		CompletedAt: &completedAt,
		Sent:        sent,
		Failed:      failed,
		Outcome:     outcome,
	}
	if err := r.runs.Complete(ctx, run); err != nil {
		return fmt.Errorf("complete run %s: %w", event.RunID, err)
	}
	return nil
}

func decodePayload(event models.RunEvent, target any) error {
	if len(event.Payload) == 0 {
		return fmt.Errorf("%s event for run %s has no payload", event.Type, event.RunID)
	}
	if err := json.Unmarshal(event.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return nil
}
