// Package cooldown enforces minimum spacing between same-category chat sends.
package cooldown

import (
	"sync"
	"time"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// Config defines the minimum spacing per throttled category.
type Config struct {
	// Whisper is the spacing between whisper sends.
	// Default: 1 second.
	Whisper time.Duration

	// Chat is the spacing between public chat sends.
	// Default: 1/6 second.
	Chat time.Duration
}

// DefaultConfig mirrors the host chat system's flood protection.
func DefaultConfig() Config {
	return Config{
		Whisper: time.Second,
		Chat:    time.Second / 6,
	}
}

func (c Config) interval(cat models.Category) time.Duration {
	switch cat {
	case models.CategoryWhisper:
		return c.Whisper
	case models.CategoryChat:
		return c.Chat
	default:
		return 0
	}
}

// track holds the ready-at clock and counters for one category.
type track struct {
	readyAt  time.Time
	sends    int64
	deferred int64
	lastSend time.Time
}

// Gate holds the "earliest next send" clock for each throttled category.
// One Gate is owned per host; runners that should share flood protection
// are given the same Gate.
type Gate struct {
	mu      sync.Mutex
	config  Config
	whisper track
	chat    track
}

// Option configures the Gate.
type Option func(*Gate)

// WithConfig sets custom category intervals. Non-positive values fall back
// to the defaults.
func WithConfig(cfg Config) Option {
	return func(g *Gate) {
		g.config = normalize(cfg)
	}
}

// NewGate creates a gate where every category is immediately eligible.
func NewGate(opts ...Option) *Gate {
	g := &Gate{config: DefaultConfig()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Whisper <= 0 {
		cfg.Whisper = def.Whisper
	}
	if cfg.Chat <= 0 {
		cfg.Chat = def.Chat
	}
	return cfg
}

func (g *Gate) track(cat models.Category) *track {
	switch cat {
	case models.CategoryWhisper:
		return &g.whisper
	case models.CategoryChat:
		return &g.chat
	default:
		return nil
	}
}

// Eligible reports whether a send in the category may happen at now.
// Uncategorized sends are always eligible.
func (g *Gate) Eligible(cat models.Category, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.track(cat)
	if t == nil {
		return true
	}
	return !now.Before(t.readyAt)
}

// Defer counts a send that was held back because the category was not
// eligible.
func (g *Gate) Defer(cat models.Category) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t := g.track(cat); t != nil {
		t.deferred++
	}
}

// ReadyAt returns the earliest time the category is eligible again. The zero
// time means immediately.
func (g *Gate) ReadyAt(cat models.Category) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t := g.track(cat); t != nil {
		return t.readyAt
	}
	return time.Time{}
}

// RecordSend pushes the category's ready-at clock forward from now.
func (g *Gate) RecordSend(cat models.Category, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.track(cat)
	if t == nil {
		return
	}
	t.readyAt = now.Add(g.config.interval(cat))
	t.lastSend = now
	t.sends++
}

// Apply swaps the intervals at runtime. Existing ready-at clocks are kept.
func (g *Gate) Apply(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.config = normalize(cfg)
}

// Config returns the active intervals.
func (g *Gate) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

// Reset makes every category immediately eligible and clears counters.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.whisper = track{}
	g.chat = track{}
}

// CategoryStats reports gate activity for one category.
type CategoryStats struct {
	Category models.Category
	Interval time.Duration
	ReadyAt  time.Time
	LastSend time.Time
	Sends    int64
	Deferred int64
}

// Stats returns statistics for the throttled categories.
func (g *Gate) Stats() []CategoryStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]CategoryStats, 0, 2)
	for _, cat := range []models.Category{models.CategoryWhisper, models.CategoryChat} {
		t := g.track(cat)
		out = append(out, CategoryStats{
			Category: cat,
			Interval: g.config.interval(cat),
			ReadyAt:  t.readyAt,
			LastSend: t.lastSend,
			Sends:    t.sends,
			Deferred: t.deferred,
		})
	}
	return out
}
