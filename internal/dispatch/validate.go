package dispatch

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultMaxBytes is the host's limit on one encoded chat line.
const DefaultMaxBytes = 500

// disallowed matches characters the host chat box strips: control
// characters (including line breaks), private-use glyphs and the
// replacement character left behind by invalid input.
var disallowed = runes.Predicate(func(r rune) bool {
	return r == utf8.RuneError ||
		unicode.Is(unicode.Cc, r) ||
		unicode.Is(unicode.Co, r) ||
		unicode.Is(unicode.Cs, r)
})

// Sanitize removes disallowed characters from the message.
func Sanitize(message string) string {
	out, _, err := transform.String(runes.Remove(disallowed), message)
	if err != nil {
		return ""
	}
	return out
}

// Validator checks a message against the host's chat rules.
type Validator struct {
	// MaxBytes is the maximum UTF-8 encoded size.
	// Default: 500.
	MaxBytes int
}

// DefaultValidator returns a validator with the host's limits.
func DefaultValidator() Validator {
	return Validator{MaxBytes: DefaultMaxBytes}
}

// Validate returns nil when the message can be delivered unchanged.
func (v Validator) Validate(message string) error {
	if strings.TrimSpace(message) == "" {
		return &Error{Reason: ErrEmptyMessage, Message: message}
	}

	limit := v.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if size := len(message); size > limit {
		return &Error{
			Reason:  ErrMessageTooLong,
			Message: message,
			Detail:  fmt.Sprintf("%d bytes, limit %d", size, limit),
		}
	}

	if !utf8.ValidString(message) || Sanitize(message) != message {
		return &Error{Reason: ErrDisallowedCharacters, Message: message}
	}

	return nil
}

// Validated wraps next so that only messages passing v are delivered. A nil
// next validates without delivering.
func Validated(next Dispatcher, v Validator) Dispatcher {
	return Func(func(ctx context.Context, message string) error {
		if err := v.Validate(message); err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return next.Dispatch(ctx, message)
	})
}
