package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// WriterDispatcher prints each delivered line to an io.Writer, prefixed with
// the delivery time.
type WriterDispatcher struct {
	mu         sync.Mutex
	out        io.Writer
	now        func() time.Time
	timeFormat string
}

// NewWriterDispatcher creates a dispatcher writing to out. An empty
// timeFormat prints bare lines.
func NewWriterDispatcher(out io.Writer, timeFormat string) *WriterDispatcher {
	return &WriterDispatcher{
		out:        out,
		now:        time.Now,
		timeFormat: timeFormat,
	}
}

// Dispatch writes the message as one line.
func (w *WriterDispatcher) Dispatch(ctx context.Context, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.timeFormat == "" {
		_, err = fmt.Fprintln(w.out, message)
	} else {
		_, err = fmt.Fprintf(w.out, "[%s] %s\n", w.now().Format(w.timeFormat), message)
	}
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
