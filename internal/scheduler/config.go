package scheduler

import (
	"time"

	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/outcome"
)

// Config contains runner configuration.
type Config struct {
	// StatusTTL is how long the status line stays visible after the last
	// refresh.
	// Default: 2 seconds.
	StatusTTL time.Duration

	// TickInterval is the cadence hosts use when driving Tick from a loop.
	// The runner itself does not depend on it.
	// Default: 50 milliseconds.
	TickInterval time.Duration

	// MaxDispatchPerTick caps dispatches in a single tick. Zero means no cap.
	MaxDispatchPerTick int

	// Parser fills batching defaults for SubmitText.
	Parser macro.Options
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StatusTTL:    outcome.DefaultTTL,
		TickInterval: 50 * time.Millisecond,
		Parser:       macro.DefaultOptions(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.StatusTTL <= 0 {
		c.StatusTTL = def.StatusTTL
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.MaxDispatchPerTick < 0 {
		c.MaxDispatchPerTick = 0
	}
	if c.Parser.MaxBatchLines <= 0 {
		c.Parser.MaxBatchLines = def.Parser.MaxBatchLines
	}
	if c.Parser.AutoPause <= 0 {
		c.Parser.AutoPause = def.Parser.AutoPause
	}
	if c.Parser.Channel == "" {
		c.Parser.Channel = def.Parser.Channel
	}
	return c
}
