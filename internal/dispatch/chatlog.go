package dispatch

import (
	"context"
	"sync"
	"time"
)

// DefaultChatLogSize is the line capacity used by interactive hosts.
const DefaultChatLogSize = 200

// Entry is one delivered chat line.
type Entry struct {
	Time time.Time
	Text string
}

// ChatLog is a dispatcher that keeps the last N delivered lines in memory.
type ChatLog struct {
	mu      sync.Mutex
	size    int
	entries []Entry
	next    int
	full    bool
	total   int64
	now     func() time.Time
}

// NewChatLog returns a chat log sized for the provided line count.
func NewChatLog(size int) *ChatLog {
	if size <= 0 {
		size = 1
	}
	return &ChatLog{
		size:    size,
		entries: make([]Entry, size),
		now:     time.Now,
	}
}

// Dispatch stores the message.
func (l *ChatLog) Dispatch(ctx context.Context, message string) error {
	l.Add(Entry{Time: l.now(), Text: message})
	return nil
}

// Add stores an entry in the ring.
func (l *ChatLog) Add(entry Entry) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry
	l.total++
	l.next++
	if l.next >= l.size {
		l.next = 0
		l.full = true
	}
}

// Total returns how many lines were ever delivered.
func (l *ChatLog) Total() int64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Snapshot returns the buffered entries in chronological order.
func (l *ChatLog) Snapshot() []Entry {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Entry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}

	out := make([]Entry, l.size)
	copy(out, l.entries[l.next:])
	copy(out[l.size-l.next:], l.entries[:l.next])
	return out
}
