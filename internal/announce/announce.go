// Package announce fires library macros on cron schedules.
package announce

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

// Service errors.
var (
	ErrNoJobs          = errors.New("no announcement jobs configured")
	ErrUnknownJob      = errors.New("unknown announcement job")
	ErrAlreadyRunning  = errors.New("announce service already running")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrThrottled       = errors.New("announcement throttled")
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is one scheduled announcement.
type Job struct {
	Name     string
	Schedule string
	Macro    string
	Vars     map[string]string
}

// Upcoming is the next firing of a job.
type Upcoming struct {
	Job  string
	Next time.Time
}

// ValidateSchedule parses a five-field cron spec or descriptor such as
// "@hourly".
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	return nil
}

type entry struct {
	job      Job
	macro    *macro.Macro
	schedule cron.Schedule
}

// Option configures the Service.
type Option func(*Service)

// WithLocation sets the time zone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNow sets the time source used when a job fires and for ticking.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMinGap refuses to fire any job sooner than gap after the previous
// announcement, so overlapping schedules do not cut each other off. Zero
// disables the check.
func WithMinGap(gap time.Duration) Option {
	return func(s *Service) {
		if gap > 0 {
			s.limiter = rate.NewLimiter(rate.Every(gap), 1)
		}
	}
}

// Service submits compiled macros to a runner when their schedule fires and
// drives the runner's ticks while it runs.
type Service struct {
	runner  *scheduler.Runner
	opts    macro.Options
	entries []entry
	loc     *time.Location
	now     func() time.Time
	logger  zerolog.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	running bool
	fired   map[string]int
}

// New validates jobs against the macro library and returns a Service.
func New(runner *scheduler.Runner, library []*macro.Macro, opts macro.Options, jobs []Job, options ...Option) (*Service, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	s := &Service{
		runner: runner,
		opts:   opts,
		loc:    time.Local,
		now:    time.Now,
		logger: logging.Component("announce"),
		fired:  make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}

	seen := make(map[string]struct{}, len(jobs))
	var errs []error
	for i, job := range jobs {
		if strings.TrimSpace(job.Name) == "" {
			job.Name = fmt.Sprintf("%s#%d", job.Macro, i+1)
		}
		if _, dup := seen[job.Name]; dup {
			errs = append(errs, fmt.Errorf("job %q: duplicate name", job.Name))
			continue
		}
		seen[job.Name] = struct{}{}

		schedule, err := parser.Parse(strings.TrimSpace(job.Schedule))
		if err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w %q: %v", job.Name, ErrInvalidSchedule, job.Schedule, err))
			continue
		}
		m := macro.FindMacro(library, job.Macro)
		if m == nil {
			errs = append(errs, fmt.Errorf("job %q: macro %q not found", job.Name, job.Macro))
			continue
		}
		if _, err := macro.RenderMacro(m, job.Vars); err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", job.Name, err))
			continue
		}
		s.entries = append(s.entries, entry{job: job, macro: m, schedule: schedule})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Jobs returns the configured jobs in order.
func (s *Service) Jobs() []Job {
	out := make([]Job, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.job)
	}
	return out
}

// Upcoming lists the next firing time of every job after now, soonest first.
func (s *Service) Upcoming(now time.Time) []Upcoming {
	out := make([]Upcoming, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Upcoming{Job: e.job.Name, Next: e.schedule.Next(now.In(s.loc))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Fire compiles the named job's macro and submits it, replacing whatever the
// runner was sending. It returns the new run id.
func (s *Service) Fire(name string) (string, error) {
	var target *entry
	for i := range s.entries {
		if s.entries[i].job.Name == name {
			target = &s.entries[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if s.limiter != nil && !s.limiter.AllowN(s.now(), 1) {
		s.logger.Warn().Str("job", name).Msg("skipping announcement, previous one too recent")
		return "", fmt.Errorf("%w: %s", ErrThrottled, name)
	}

	steps, resolved, err := macro.Compile(target.macro, target.job.Vars, s.opts)
	if err != nil {
		return "", fmt.Errorf("compile job %q: %w", name, err)
	}

	runID := s.runner.SubmitRun(scheduler.Submission{
		Steps:   steps,
		Source:  "announce:" + name,
		Channel: resolved.Channel,
	}, s.now())

	s.mu.Lock()
	s.fired[name]++
	s.mu.Unlock()

	s.logger.Info().
		Str("job", name).
		Str("macro", target.macro.Name).
		Str("run_id", runID).
		Int("steps", len(steps)).
		Msg("announcement fired")
	return runID, nil
}

// Fired returns how many times each job has fired.
func (s *Service) Fired() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.fired))
	for k, v := range s.fired {
		out[k] = v
	}
	return out
}

// Run starts the cron scheduler and ticks the runner every tickInterval
// until ctx is cancelled. Cancellation is a clean shutdown.
func (s *Service) Run(ctx context.Context, tickInterval time.Duration) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if tickInterval <= 0 {
		tickInterval = scheduler.DefaultConfig().TickInterval
	}

	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))
	for _, e := range s.entries {
		name := e.job.Name
		if _, err := c.AddFunc(e.job.Schedule, func() {
			if _, err := s.Fire(name); err != nil {
				s.logger.Error().Err(err).Str("job", name).Msg("announcement failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule job %q: %w", name, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.Start()
		s.logger.Info().Int("jobs", len(s.entries)).Str("tz", s.loc.String()).Msg("announce scheduler started")
		<-gctx.Done()
		<-c.Stop().Done()
		s.logger.Info().Msg("announce scheduler stopped")
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.runner.Tick(gctx, s.now())
			}
		}
	})

	return g.Wait()
}
