package scheduler

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

var t0 = time.Date(2026, 6, 12, 20, 0, 0, 0, time.UTC)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type delivery struct {
	at   time.Time
	text string
}

// recorder is a dispatcher that timestamps each call using now.
type recorder struct {
	now    func() time.Time
	fail   func(call int, text string) error
	calls  int
	events []delivery
}

func (r *recorder) Dispatch(ctx context.Context, message string) error {
	r.calls++
	r.events = append(r.events, delivery{at: r.now(), text: message})
	if r.fail != nil {
		return r.fail(r.calls, message)
	}
	return nil
}

func (r *recorder) texts() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.text)
	}
	return out
}

// sinkRecorder collects emitted events.
type sinkRecorder struct {
	mu     sync.Mutex
	events []models.RunEvent
}

func (s *sinkRecorder) Emit(ctx context.Context, event models.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *sinkRecorder) types() []models.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestRunner(t *testing.T, d dispatch.Dispatcher, opts ...Option) (*Runner, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	opts = append([]Option{WithClock(clock), WithLogger(zerolog.Nop())}, opts...)
	return New(DefaultConfig(), cooldown.NewGate(), d, opts...), clock
}

func sayOptions() macro.Options {
	opts := macro.DefaultOptions()
	opts.Channel = models.ChannelSay
	return opts
}

func TestWaitLineSpacesSayMessages(t *testing.T) {
	rec := &recorder{}
	sink := &sinkRecorder{}
	runner, clock := newTestRunner(t, rec, WithEventSink(sink))
	rec.now = clock.Now

	runner.SubmitText("Hello\n/wait 1\nHello again", sayOptions(), clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 0, snap.Failed)
	assert.Equal(t, models.OutcomeAllSent, snap.Outcome)
	assert.Equal(t, []string{"/say Hello", "/say Hello again"}, rec.texts())
	require.Len(t, rec.events, 2)
	assert.GreaterOrEqual(t, rec.events[1].at.Sub(rec.events[0].at), time.Second)
	assert.Equal(t, "All messages sent (2).", runner.Status(clock.Now()))

	assert.Equal(t, []models.EventType{
		models.EventTypeRunSubmitted,
		models.EventTypeStepDispatched,
		models.EventTypeStepWaited,
		models.EventTypeStepDispatched,
		models.EventTypeRunCompleted,
	}, sink.types())
}

func TestAlwaysFailingDispatcherReportsFailed(t *testing.T) {
	rec := &recorder{fail: func(int, string) error { return errors.New("rejected") }}
	runner, clock := newTestRunner(t, rec)
	rec.now = clock.Now

	runner.Submit([]models.Step{
		models.Send("/say one"),
		models.Send("/say two"),
		models.Send("/say three"),
	}, clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Sent)
	assert.Equal(t, 3, snap.Failed)
	assert.Equal(t, models.OutcomeFailed, snap.Outcome)
	assert.Equal(t, "Failed to send (3 failed).", runner.Status(clock.Now()))
}

func TestOneFailedSendReportsPartial(t *testing.T) {
	rec := &recorder{fail: func(call int, _ string) error {
		if call == 2 {
			return errors.New("rejected")
		}
		return nil
	}}
	runner, clock := newTestRunner(t, rec)
	rec.now = clock.Now

	runner.Submit([]models.Step{
		models.Send("/em waves"),
		models.Send("/em bows"),
		models.Send("/em cheers"),
	}, clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, models.OutcomePartial, snap.Outcome)
	assert.Equal(t, "Partially sent: 2 sent, 1 failed.", runner.Status(clock.Now()))
}

func TestEmptyInputReportsFailed(t *testing.T) {
	rec := &recorder{}
	runner, clock := newTestRunner(t, rec)
	rec.now = clock.Now

	runner.SubmitText("", sayOptions(), clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Settled)
	assert.Equal(t, models.OutcomeFailed, snap.Outcome)
	assert.Equal(t, "Failed to send (0 failed).", runner.Status(clock.Now()))
	assert.Empty(t, rec.events)
	assert.Empty(t, clock.sleeps)
}

func TestHugeWaitHoldsRemainingSteps(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit(macro.Parse("/em first\n/wait 1e12\n/em second", sayOptions()), now)
	runner.Tick(context.Background(), now)
	now = now.Add(time.Millisecond)
	runner.Tick(context.Background(), now)

	assert.Equal(t, []string{"/em first"}, rec.texts())
	wake, ok := runner.NextWake()
	require.True(t, ok)
	assert.True(t, wake.After(t0.Add(100*365*24*time.Hour)), "wake %v should be far in the future", wake)
	assert.False(t, runner.Snapshot().Settled)
}

func TestInfiniteWaitHoldsRemainingSteps(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit([]models.Step{
		models.Send("/em first"),
		models.Wait(math.Inf(1)),
		models.Send("/em second"),
	}, now)
	runner.Tick(context.Background(), now)
	now = now.Add(time.Millisecond)
	runner.Tick(context.Background(), now)

	assert.Equal(t, []string{"/em first"}, rec.texts())
	wake, ok := runner.NextWake()
	require.True(t, ok)
	assert.True(t, wake.After(now))
}

func TestDeferredSendsAreCounted(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit([]models.Step{
		models.Send("/p one"),
		models.Send("/p two"),
	}, now)
	runner.Tick(context.Background(), now)
	now = now.Add(time.Millisecond)
	runner.Tick(context.Background(), now)

	require.Len(t, rec.events, 1)
	var deferred int64
	for _, s := range runner.Gate().Stats() {
		if s.Category == models.CategoryChat {
			deferred = s.Deferred
		}
	}
	assert.Equal(t, int64(1), deferred)
}

func TestWhisperSpacingUnderFrequentTicks(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	steps := make([]models.Step, 0, 4)
	for i := 0; i < 4; i++ {
		steps = append(steps, models.Send("/tell Tataru Taru@Sargatanas hi"))
	}
	runner.Submit(steps, now)

	for i := 0; i < 500; i++ {
		runner.Tick(context.Background(), now)
		now = now.Add(10 * time.Millisecond)
	}

	require.Len(t, rec.events, 4)
	for i := 1; i < len(rec.events); i++ {
		assert.GreaterOrEqual(t, rec.events[i].at.Sub(rec.events[i-1].at), time.Second)
	}
	assert.True(t, runner.Snapshot().Settled)
}

func TestChatSpacingUnderFrequentTicks(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	steps := make([]models.Step, 0, 10)
	for i := 0; i < 10; i++ {
		steps = append(steps, models.Send("/p line"))
	}
	runner.Submit(steps, now)

	for i := 0; i < 3000; i++ {
		runner.Tick(context.Background(), now)
		now = now.Add(time.Millisecond)
	}

	require.Len(t, rec.events, 10)
	for i := 1; i < len(rec.events); i++ {
		assert.GreaterOrEqual(t, rec.events[i].at.Sub(rec.events[i-1].at), time.Second/6)
	}
}

func TestUncategorizedDrainsInOneTick(t *testing.T) {
	rec := &recorder{now: func() time.Time { return t0 }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit([]models.Step{
		models.Send("/em waves"),
		models.Send("/wave motion"),
		models.Send("/dance"),
		models.Send("/a alliance hello"),
	}, t0)
	runner.Tick(context.Background(), t0)

	assert.Len(t, rec.events, 4)
	snap := runner.Snapshot()
	assert.True(t, snap.Settled)
	assert.Equal(t, models.OutcomeAllSent, snap.Outcome)
}

func TestWaitStepHonoured(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit([]models.Step{
		models.Send("/em first"),
		models.Wait(0.5),
		models.Send("/em second"),
	}, now)

	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 1)

	for i := 0; i < 49; i++ {
		now = now.Add(10 * time.Millisecond)
		runner.Tick(context.Background(), now)
	}
	now = t0.Add(499 * time.Millisecond)
	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "Sending...", runner.Status(now))

	now = t0.Add(500 * time.Millisecond)
	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 2)
	assert.True(t, runner.Snapshot().Settled)
}

func TestSubmitReplacesRunButKeepsCooldowns(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	sink := &sinkRecorder{}
	runner, _ := newTestRunner(t, rec, WithEventSink(sink))

	first := runner.Submit([]models.Step{
		models.Send("/tell Tataru Taru one"),
		models.Wait(10),
		models.Send("/tell Tataru Taru two"),
	}, now)
	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 1)

	now = t0.Add(100 * time.Millisecond)
	second := runner.Submit([]models.Step{models.Send("/tell Tataru Taru three")}, now)
	assert.NotEqual(t, first, second)

	snap := runner.Snapshot()
	assert.Equal(t, second, snap.RunID)
	assert.Equal(t, 0, snap.Sent)
	assert.Equal(t, 1, snap.Pending)
	assert.Equal(t, "Sending...", runner.Status(now))

	var replaced *models.RunEvent
	for i := range sink.events {
		if sink.events[i].Type == models.EventTypeRunReplaced {
			replaced = &sink.events[i]
		}
	}
	require.NotNil(t, replaced)
	assert.Equal(t, first, replaced.RunID)
	assert.Contains(t, string(replaced.Payload), `"dropped_steps":1`)

	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 1, "whisper cooldown must carry across submissions")

	now = t0.Add(time.Second)
	runner.Tick(context.Background(), now)
	require.Len(t, rec.events, 2)
	assert.Equal(t, "/tell Tataru Taru three", rec.events[1].text)
}

func TestSharedAndSeparateGates(t *testing.T) {
	ctx := context.Background()
	newRunner := func(gate *cooldown.Gate, rec *recorder) *Runner {
		return New(DefaultConfig(), gate, rec, WithLogger(zerolog.Nop()))
	}
	clockAt := func() time.Time { return t0 }

	shared := cooldown.NewGate()
	recA := &recorder{now: clockAt}
	recB := &recorder{now: clockAt}
	a := newRunner(shared, recA)
	b := newRunner(shared, recB)
	a.Submit([]models.Step{models.Send("/say from a")}, t0)
	b.Submit([]models.Step{models.Send("/say from b")}, t0)
	a.Tick(ctx, t0)
	b.Tick(ctx, t0)
	assert.Len(t, recA.events, 1)
	assert.Empty(t, recB.events)
	wake, pending := b.NextWake()
	assert.True(t, pending)
	assert.Equal(t, t0.Add(time.Second/6), wake)

	recC := &recorder{now: clockAt}
	recD := &recorder{now: clockAt}
	c := newRunner(cooldown.NewGate(), recC)
	d := newRunner(cooldown.NewGate(), recD)
	c.Submit([]models.Step{models.Send("/say from c")}, t0)
	d.Submit([]models.Step{models.Send("/say from d")}, t0)
	c.Tick(ctx, t0)
	d.Tick(ctx, t0)
	assert.Len(t, recC.events, 1)
	assert.Len(t, recD.events, 1)
}

func TestMaxDispatchPerTick(t *testing.T) {
	rec := &recorder{now: func() time.Time { return t0 }}
	cfg := DefaultConfig()
	cfg.MaxDispatchPerTick = 2
	runner := New(cfg, cooldown.NewGate(), rec, WithLogger(zerolog.Nop()))

	steps := make([]models.Step, 5)
	for i := range steps {
		steps[i] = models.Send("/em step")
	}
	runner.Submit(steps, t0)

	runner.Tick(context.Background(), t0)
	assert.Len(t, rec.events, 2)
	runner.Tick(context.Background(), t0)
	assert.Len(t, rec.events, 4)
	runner.Tick(context.Background(), t0)
	assert.Len(t, rec.events, 5)
	assert.True(t, runner.Snapshot().Settled)
}

func TestStatusExpiry(t *testing.T) {
	now := t0
	rec := &recorder{now: func() time.Time { return now }}
	runner, _ := newTestRunner(t, rec)

	runner.Submit([]models.Step{models.Send("/em a"), models.Wait(10), models.Send("/em b")}, now)
	for !now.After(t0.Add(9 * time.Second)) {
		runner.Tick(context.Background(), now)
		now = now.Add(time.Second)
	}
	assert.Equal(t, "Sending...", runner.Status(t0.Add(10500*time.Millisecond)))

	done := t0.Add(10 * time.Second)
	runner.Tick(context.Background(), done)
	assert.Equal(t, "All messages sent (2).", runner.Status(done.Add(2*time.Second)))
	assert.Empty(t, runner.Status(done.Add(2*time.Second+time.Nanosecond)))
	assert.Equal(t, models.OutcomeNone, runner.Outcome(done.Add(3*time.Second)))
	assert.Equal(t, models.OutcomeAllSent, runner.Snapshot().Outcome)
}

func TestSentPlusFailedEqualsSendCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prefixes := []string{"/say ", "/tell Tataru Taru ", "/em ", "/p ", "/l3 "}

	for batch := 0; batch < 25; batch++ {
		rec := &recorder{fail: func(call int, _ string) error {
			if call%3 == 0 {
				return errors.New("rejected")
			}
			return nil
		}}
		runner, clock := newTestRunner(t, rec)
		rec.now = clock.Now

		n := rng.Intn(30)
		steps := make([]models.Step, 0, n)
		for i := 0; i < n; i++ {
			if rng.Intn(5) == 0 {
				steps = append(steps, models.Wait(rng.Float64()))
				continue
			}
			steps = append(steps, models.Send(prefixes[rng.Intn(len(prefixes))]+"msg"))
		}

		runner.Submit(steps, clock.Now())
		snap, err := runner.Drain(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.CountSends(steps), snap.Sent+snap.Failed, "batch %d", batch)
		assert.True(t, snap.Settled)
	}
}

func TestDispatcherPanicCountsAsFailure(t *testing.T) {
	d := dispatch.Func(func(context.Context, string) error { panic("boom") })
	runner, clock := newTestRunner(t, d)

	runner.Submit([]models.Step{models.Send("/em a")}, clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, models.OutcomeFailed, snap.Outcome)
}

func TestValidationFailuresAreCounted(t *testing.T) {
	rec := &recorder{}
	runner, clock := newTestRunner(t, dispatch.Validated(rec, dispatch.DefaultValidator()))
	rec.now = clock.Now

	runner.Submit([]models.Step{
		models.Send("/say " + strings.Repeat("x", 600)),
		models.Send("/say fine"),
	}, clock.Now())
	snap, err := runner.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Sent)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, []string{"/say fine"}, rec.texts())
}

func TestIdleAndSettledTicksAreNoops(t *testing.T) {
	sink := &sinkRecorder{}
	runner, clock := newTestRunner(t, dispatch.Discard, WithEventSink(sink))

	runner.Tick(context.Background(), clock.Now())
	assert.Equal(t, Snapshot{}, runner.Snapshot())
	_, pending := runner.NextWake()
	assert.False(t, pending)
	assert.Empty(t, runner.Status(clock.Now()))

	runner.Submit([]models.Step{models.Send("/em a")}, clock.Now())
	runner.Tick(context.Background(), clock.Now())
	count := len(sink.types())
	runner.Tick(context.Background(), clock.Now())
	runner.Tick(context.Background(), clock.Now().Add(time.Minute))
	assert.Len(t, sink.types(), count)
}

func TestDrainStopsOnCancel(t *testing.T) {
	runner, clock := newTestRunner(t, dispatch.Discard)
	runner.Submit([]models.Step{models.Wait(5), models.Send("/em late")}, clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := runner.Drain(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, snap.Active())
}

func TestUnknownStepCompletesRun(t *testing.T) {
	runner, clock := newTestRunner(t, dispatch.Discard)
	runner.Submit([]models.Step{models.Send("/em a"), {Kind: "bogus"}, models.Send("/em b")}, clock.Now())

	runner.Tick(context.Background(), clock.Now())
	snap := runner.Snapshot()
	assert.True(t, snap.Settled)
	assert.Equal(t, 1, snap.Sent)
	assert.Equal(t, models.OutcomeAllSent, snap.Outcome)
}

func TestApplyConfig(t *testing.T) {
	runner, _ := newTestRunner(t, dispatch.Discard)
	runner.Apply(Config{StatusTTL: 5 * time.Second, MaxDispatchPerTick: -1})

	cfg := runner.Config()
	assert.Equal(t, 5*time.Second, cfg.StatusTTL)
	assert.Equal(t, 0, cfg.MaxDispatchPerTick)
	assert.Equal(t, macro.DefaultMaxBatchLines, cfg.Parser.MaxBatchLines)

	runner.Submit(nil, t0)
	runner.Tick(context.Background(), t0)
	assert.NotEmpty(t, runner.Status(t0.Add(4*time.Second)))
}
