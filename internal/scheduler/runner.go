// Package scheduler drains macro step queues through the cooldown gate.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/outcome"
)

// Runner errors.
var (
	ErrQueueEmpty      = errors.New("dequeue on empty queue")
	ErrUnknownStep     = errors.New("unknown step kind")
	ErrDispatcherPanic = errors.New("dispatcher panicked")
)

// Submission describes a batch handed to the runner.
type Submission struct {
	Steps []models.Step

	// Source and Channel are informational and recorded with the run.
	Source  string
	Channel models.Channel
}

// Snapshot is a point-in-time view of the current run.
type Snapshot struct {
	RunID         string
	Source        string
	Channel       models.Channel
	Pending       int
	Sent          int
	Failed        int
	Outcome       models.Outcome
	Settled       bool
	SubmittedAt   time.Time
	CompletedAt   time.Time
	NextAllowedAt time.Time
}

// Active reports whether a run exists and still has work queued.
func (s Snapshot) Active() bool {
	return s.RunID != "" && !s.Settled
}

// stepResult is the outcome of dispatching one send step.
type stepResult struct {
	err error
}

// run is the state of one submission.
type run struct {
	id            string
	source        string
	channel       models.Channel
	queue         []models.Step
	stepCount     int
	sendCount     int
	nextAllowedAt time.Time
	sent          int
	failed        int
	outcome       models.Outcome
	settled       bool
	submittedAt   time.Time
	completedAt   time.Time
}

func (r *run) dequeue() (models.Step, error) {
	if len(r.queue) == 0 {
		return models.Step{}, ErrQueueEmpty
	}
	step := r.queue[0]
	r.queue[0] = models.Step{}
	r.queue = r.queue[1:]
	return step, nil
}

func (r *run) fold(res stepResult) {
	if res.err != nil {
		r.failed++
		return
	}
	r.sent++
}

// Option configures the Runner.
type Option func(*Runner)

// WithClock sets the clock used by Drain.
func WithClock(clock Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithEventSink sets the sink receiving run events.
func WithEventSink(sink EventSink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner owns the step queue and counters for one run at a time.
type Runner struct {
	mu         sync.Mutex
	config     Config
	gate       *cooldown.Gate
	dispatcher dispatch.Dispatcher
	tracker    *outcome.Tracker
	clock      Clock
	sink       EventSink
	logger     zerolog.Logger

	current *run
}

// New creates a Runner. A nil gate gets a private gate with default
// intervals; a nil dispatcher discards messages.
func New(cfg Config, gate *cooldown.Gate, d dispatch.Dispatcher, opts ...Option) *Runner {
	cfg = cfg.normalized()
	if gate == nil {
		gate = cooldown.NewGate()
	}
	if d == nil {
		d = dispatch.Discard
	}

	r := &Runner{
		config:     cfg,
		gate:       gate,
		dispatcher: d,
		tracker:    outcome.NewTracker(cfg.StatusTTL),
		clock:      RealClock(),
		sink:       NoopSink{},
		logger:     logging.Component("scheduler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Gate returns the cooldown gate the runner consults.
func (r *Runner) Gate() *cooldown.Gate {
	return r.gate
}

// Config returns the active configuration.
func (r *Runner) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// Apply swaps the configuration at runtime.
func (r *Runner) Apply(cfg Config) {
	cfg = cfg.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
	r.tracker.SetTTL(cfg.StatusTTL)
}

// Submit replaces the current run with steps and returns the new run id.
func (r *Runner) Submit(steps []models.Step, now time.Time) string {
	return r.SubmitRun(Submission{Steps: steps}, now)
}

// SubmitText parses text and submits the result. Zero batching options are
// taken from the runner configuration.
func (r *Runner) SubmitText(text string, opts macro.Options, now time.Time) string {
	cfg := r.Config()
	if opts.MaxBatchLines <= 0 {
		opts.MaxBatchLines = cfg.Parser.MaxBatchLines
	}
	if opts.AutoPause <= 0 {
		opts.AutoPause = cfg.Parser.AutoPause
	}
	if opts.Channel == "" {
		opts.Channel = cfg.Parser.Channel
	}

	return r.SubmitRun(Submission{
		Steps:   macro.Parse(text, opts),
		Source:  "text",
		Channel: opts.Channel,
	}, now)
}

// SubmitRun cancels whatever remains of the current run and starts a new
// one. Counters and status are reset; cooldown clocks are not.
func (r *Runner) SubmitRun(sub Submission, now time.Time) string {
	ctx := context.Background()
	id := uuid.NewString()

	steps := make([]models.Step, len(sub.Steps))
	copy(steps, sub.Steps)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.current; prev != nil && !prev.settled {
		r.emit(ctx, prev.id, models.EventTypeRunReplaced, now, models.RunReplacedPayload{
			ReplacedBy:   id,
			DroppedSteps: len(prev.queue),
			SentBefore:   prev.sent,
			FailedBefore: prev.failed,
		})
		r.logger.Info().
			Str("run_id", prev.id).
			Str("replaced_by", id).
			Int("dropped_steps", len(prev.queue)).
			Msg("run replaced")
	}

	r.current = &run{
		id:          id,
		source:      sub.Source,
		channel:     sub.Channel,
		queue:       steps,
		stepCount:   len(steps),
		sendCount:   models.CountSends(steps),
		outcome:     models.OutcomeInProgress,
		submittedAt: now,
	}
	r.tracker.Begin(now)

	r.emit(ctx, id, models.EventTypeRunSubmitted, now, models.RunSubmittedPayload{
		Source:    sub.Source,
		Channel:   string(sub.Channel),
		StepCount: r.current.stepCount,
		SendCount: r.current.sendCount,
	})
	r.logger.Debug().
		Str("run_id", id).
		Int("steps", r.current.stepCount).
		Int("sends", r.current.sendCount).
		Msg("run submitted")

	return id
}

// Tick advances the current run as far as now allows. It never blocks on
// timers and never returns dispatch errors; those are folded into the run
// counters.
func (r *Runner) Tick(ctx context.Context, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current
	if cur == nil || cur.settled {
		return
	}

	if now.Before(cur.nextAllowedAt) {
		r.tracker.Touch(now)
		return
	}

	maxDispatch := r.config.MaxDispatchPerTick
	dispatched := 0

drain:
	for len(cur.queue) > 0 {
		step := cur.queue[0]

		switch step.Kind {
		case models.StepKindWait:
			if !r.pop(cur) {
				break drain
			}
			cur.nextAllowedAt = now.Add(step.Duration())
			r.emit(ctx, cur.id, models.EventTypeStepWaited, now, models.StepWaitedPayload{
				Seconds: step.Seconds,
				Until:   cur.nextAllowedAt,
			})
			break drain

		case models.StepKindSend:
			if maxDispatch > 0 && dispatched >= maxDispatch {
				break drain
			}

			category := cooldown.Classify(step.Text)
			if !r.gate.Eligible(category, now) {
				r.gate.Defer(category)
				cur.nextAllowedAt = r.gate.ReadyAt(category)
				r.emit(ctx, cur.id, models.EventTypeStepDeferred, now, models.StepDeferredPayload{
					Category: category,
					Until:    cur.nextAllowedAt,
				})
				break drain
			}

			res := r.dispatch(ctx, step.Text)
			cur.fold(res)
			r.gate.RecordSend(category, now)
			if !r.pop(cur) {
				break drain
			}
			cur.nextAllowedAt = now
			dispatched++

			if res.err != nil {
				r.logger.Warn().Err(res.err).Str("run_id", cur.id).Str("category", string(category)).Msg("dispatch failed")
				r.emit(ctx, cur.id, models.EventTypeStepFailed, now, models.StepFailedPayload{
					Text:     step.Text,
					Category: category,
					Error:    res.err.Error(),
				})
			} else {
				r.logger.Debug().Str("run_id", cur.id).Str("category", string(category)).Msg("dispatched")
				r.emit(ctx, cur.id, models.EventTypeStepDispatched, now, models.StepDispatchedPayload{
					Text:     step.Text,
					Category: category,
				})
			}

		default:
			r.logger.Error().
				Err(fmt.Errorf("%w: %q", ErrUnknownStep, step.Kind)).
				Str("run_id", cur.id).
				Int("dropped_steps", len(cur.queue)).
				Msg("invariant violation, completing run")
			cur.queue = nil
		}
	}

	if len(cur.queue) == 0 {
		r.complete(ctx, cur, now)
		return
	}
	r.tracker.Touch(now)
}

// pop dequeues the front step. An empty queue is logged and the run is left
// to complete.
func (r *Runner) pop(cur *run) bool {
	if _, err := cur.dequeue(); err != nil {
		r.logger.Error().Err(err).Str("run_id", cur.id).Msg("invariant violation, completing run")
		cur.queue = nil
		return false
	}
	return true
}

func (r *Runner) dispatch(ctx context.Context, text string) (res stepResult) {
	defer func() {
		if p := recover(); p != nil {
			res = stepResult{err: fmt.Errorf("%w: %v", ErrDispatcherPanic, p)}
		}
	}()
	return stepResult{err: r.dispatcher.Dispatch(ctx, text)}
}

func (r *Runner) complete(ctx context.Context, cur *run, now time.Time) {
	cur.settled = true
	cur.completedAt = now
	cur.outcome = r.tracker.Complete(cur.sent, cur.failed, now)

	r.emit(ctx, cur.id, models.EventTypeRunCompleted, now, models.RunCompletedPayload{
		Sent:    cur.sent,
		Failed:  cur.failed,
		Outcome: cur.outcome,
		Status:  outcome.Text(cur.outcome, cur.sent, cur.failed),
	})
	r.logger.Info().
		Str("run_id", cur.id).
		Int("sent", cur.sent).
		Int("failed", cur.failed).
		Str("outcome", string(cur.outcome)).
		Msg("run completed")
}

func (r *Runner) emit(ctx context.Context, runID string, eventType models.EventType, now time.Time, payload any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			r.logger.Warn().Err(err).Str("type", string(eventType)).Msg("failed to encode event payload")
		} else {
			raw = data
		}
	}

	event := models.RunEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Type:      eventType,
		Timestamp: now,
		Payload:   raw,
	}
	if err := r.sink.Emit(ctx, event); err != nil {
		r.logger.Warn().Err(err).Str("type", string(eventType)).Msg("failed to emit event")
	}
}

// Status returns the transient status line, or "" once it has expired.
func (r *Runner) Status(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker.Text(now)
}

// Outcome returns the visible outcome, or OutcomeNone once the status has
// expired.
func (r *Runner) Outcome(now time.Time) models.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracker.Outcome(now)
}

// Snapshot returns the state of the current run.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) snapshotLocked() Snapshot {
	cur := r.current
	if cur == nil {
		return Snapshot{}
	}
	return Snapshot{
		RunID:         cur.id,
		Source:        cur.source,
		Channel:       cur.channel,
		Pending:       len(cur.queue),
		Sent:          cur.sent,
		Failed:        cur.failed,
		Outcome:       cur.outcome,
		Settled:       cur.settled,
		SubmittedAt:   cur.submittedAt,
		CompletedAt:   cur.completedAt,
		NextAllowedAt: cur.nextAllowedAt,
	}
}

// NextWake returns when the current run can next make progress. The second
// value is false when there is nothing left to do.
func (r *Runner) NextWake() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current
	if cur == nil || cur.settled {
		return time.Time{}, false
	}
	return cur.nextAllowedAt, true
}

// Drain ticks the current run to completion, sleeping on the runner clock
// between wake times. It returns early with the context error on
// cancellation; the run is left where it stopped.
func (r *Runner) Drain(ctx context.Context) (Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return r.Snapshot(), err
		}

		r.Tick(ctx, r.clock.Now())

		wake, pending := r.NextWake()
		if !pending {
			return r.Snapshot(), nil
		}

		wait := wake.Sub(r.clock.Now())
		if wait < 0 {
			wait = 0
		}
		if err := r.clock.Sleep(ctx, wait); err != nil {
			return r.Snapshot(), err
		}
	}
}
