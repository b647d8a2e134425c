// Package dispatch defines the boundary that validates and delivers one chat line.
package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// Validation errors. Every rejection wraps exactly one of these.
var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrDisallowedCharacters = errors.New("message contains disallowed characters")
)

// Dispatcher delivers one fully formed command or message. Implementations
// are called synchronously from the runner's tick and must not call back
// into the runner.
type Dispatcher interface {
	Dispatch(ctx context.Context, message string) error
}

// Func adapts a function to the Dispatcher interface.
type Func func(ctx context.Context, message string) error

// Dispatch calls f.
func (f Func) Dispatch(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Error describes a rejected message.
type Error struct {
	// Reason is one of the package validation errors.
	Reason error

	// Message is the rejected text.
	Message string

	// Detail adds context such as the measured size.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("dispatch rejected: %v (%s)", e.Reason, e.Detail)
	}
	return fmt.Sprintf("dispatch rejected: %v", e.Reason)
}

// Unwrap exposes the reason for errors.Is.
func (e *Error) Unwrap() error {
	return e.Reason
}

// Discard accepts every message and delivers nothing.
var Discard Dispatcher = Func(func(context.Context, string) error { return nil })

// Multi delivers to each dispatcher in order and stops at the first error.
func Multi(dispatchers ...Dispatcher) Dispatcher {
	return Func(func(ctx context.Context, message string) error {
		for _, d := range dispatchers {
			if d == nil {
				continue
			}
			if err := d.Dispatch(ctx, message); err != nil {
				return err
			}
		}
		return nil
	})
}
