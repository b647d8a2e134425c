// Package macro compiles typed macro text and macro library files into steps.
package macro

import (
	"math"
	"strconv"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

const (
	// DefaultMaxBatchLines is the host's contiguous-line ceiling per burst.
	DefaultMaxBatchLines = 15

	// DefaultAutoPause is the synthetic pause inserted after a full batch.
	DefaultAutoPause = 0.2

	commentMarker = "//"
	waitMarker    = "/wait"
	commandMarker = "/"
)

// Options controls how plain lines are routed and batched.
type Options struct {
	// Channel receives plain (non-command) lines.
	Channel models.Channel

	// Target is the whisper destination when Channel is whisper.
	Target models.Target

	// MaxBatchLines is the number of counted lines before an automatic pause.
	// Default: 15.
	MaxBatchLines int

	// AutoPause is the length in seconds of the automatic pause.
	// Default: 0.2.
	AutoPause float64
}

// DefaultOptions returns options for the say channel with default batching.
func DefaultOptions() Options {
	return Options{
		Channel:       models.ChannelSay,
		MaxBatchLines: DefaultMaxBatchLines,
		AutoPause:     DefaultAutoPause,
	}
}

func (o Options) normalized() Options {
	if o.MaxBatchLines <= 0 {
		o.MaxBatchLines = DefaultMaxBatchLines
	}
	if o.AutoPause < 0 || math.IsNaN(o.AutoPause) || math.IsInf(o.AutoPause, 0) {
		o.AutoPause = DefaultAutoPause
	}
	if o.Channel == "" {
		o.Channel = models.ChannelSay
	}
	return o
}

// Parse turns raw macro text into an ordered list of steps. It never fails:
// lines it cannot route are dropped and bad wait durations become zero.
func Parse(text string, opts Options) []models.Step {
	opts = opts.normalized()

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	steps := make([]models.Step, 0)
	counted := 0

	emit := func(line string) {
		steps = append(steps, models.Send(line))
		counted++
		if counted >= opts.MaxBatchLines {
			steps = append(steps, models.Wait(opts.AutoPause))
			counted = 0
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}

		if seconds, ok := parseWait(line); ok {
			steps = append(steps, models.Wait(seconds))
			counted = 0
			continue
		}

		if strings.HasPrefix(line, commandMarker) {
			emit(line)
			continue
		}

		formatted, ok := FormatLine(line, opts.Channel, opts.Target)
		if !ok {
			continue
		}
		emit(formatted)
	}

	return steps
}

// FormatLine wraps plain message content into the channel's chat command.
// It reports false when the line cannot be routed, such as a whisper with no
// target.
func FormatLine(line string, channel models.Channel, target models.Target) (string, bool) {
	if channel == models.ChannelWhisper {
		if !target.Resolved() {
			return "", false
		}
		marker, _ := channel.Marker()
		return marker + " " + target.String() + " " + line, true
	}

	marker, ok := channel.Marker()
	if !ok {
		return "", false
	}
	return marker + " " + line, true
}

// parseWait recognizes "/wait" as a whole leading token and returns the
// trailing duration, defaulting to zero when missing or unparsable.
func parseWait(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.EqualFold(fields[0], waitMarker) {
		return 0, false
	}
	if len(fields) < 2 {
		return 0, true
	}

	seconds, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, true
	}
	return seconds, true
}
