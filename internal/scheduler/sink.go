package scheduler

import (
	"context"
	"errors"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// EventSink receives runner events. Emit is called synchronously while the
// runner is locked, so implementations must not call back into the runner.
type EventSink interface {
	Emit(ctx context.Context, event models.RunEvent) error
}

// NoopSink drops all events.
type NoopSink struct{}

// Emit ignores events.
func (NoopSink) Emit(ctx context.Context, event models.RunEvent) error {
	return nil
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, event models.RunEvent) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event models.RunEvent) error {
	return f(ctx, event)
}

// FanOut delivers each event to every sink in order and joins their errors.
func FanOut(sinks ...EventSink) EventSink {
	return SinkFunc(func(ctx context.Context, event models.RunEvent) error {
		var errs []error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Emit(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
