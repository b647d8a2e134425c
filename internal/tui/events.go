package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// DefaultFeedSize is the number of run events kept for display.
const DefaultFeedSize = 8

// EventFeed keeps the most recent run events for the events panel. It only
// records, so it is safe to register as a runner event sink.
type EventFeed struct {
	mu     sync.Mutex
	size   int
	events []models.RunEvent
}

// NewEventFeed creates a feed holding up to size events.
func NewEventFeed(size int) *EventFeed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &EventFeed{size: size, events: make([]models.RunEvent, 0, size)}
}

// Emit records an event, dropping the oldest when full.
func (f *EventFeed) Emit(ctx context.Context, event models.RunEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == f.size {
		copy(f.events, f.events[1:])
		f.events = f.events[:f.size-1]
	}
	f.events = append(f.events, event)
	return nil
}

// Recent returns the recorded events, oldest first.
func (f *EventFeed) Recent() []models.RunEvent {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.RunEvent, len(f.events))
	copy(out, f.events)
	return out
}

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ThemeChangedMsg switches the palette after a config reload.
type ThemeChangedMsg struct {
	Theme string
}

// waitForTheme delivers the next theme name sent on ch.
func waitForTheme(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		theme, ok := <-ch
		if !ok {
			return nil
		}
		return ThemeChangedMsg{Theme: theme}
	}
}
