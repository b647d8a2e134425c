package cli

import (
	"context"
	"fmt"

	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/db"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/events"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

// engine bundles the gate, runner and optional history store for one
// command invocation.
type engine struct {
	config   *config.Config
	gate     *cooldown.Gate
	runner   *scheduler.Runner
	database *db.DB
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if !cfg.Database.Enabled {
		return nil, &PreflightError{
			Message:  "run history is disabled",
			Hint:     "Set database.enabled: true in the config file",
			NextStep: "venueplus --help",
		}
	}

	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, err
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return database, nil
}

// newEngine wires the dispatcher behind the configured validator. History is
// recorded when withHistory is set and the database is enabled; extra sinks
// receive every run event as well.
func newEngine(ctx context.Context, cfg *config.Config, d dispatch.Dispatcher, withHistory bool, sinks ...scheduler.EventSink) (*engine, error) {
	e := &engine{
		config: cfg,
		gate:   cooldown.NewGate(cooldown.WithConfig(cfg.GateConfig())),
	}

	if withHistory && cfg.Database.Enabled {
		database, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		e.database = database
		recorder := events.NewRecorder(db.NewRunRepository(database), db.NewEventRepository(database))
		sinks = append([]scheduler.EventSink{recorder}, sinks...)
	}

	opts := []scheduler.Option{scheduler.WithLogger(logging.Component("runner"))}
	if len(sinks) > 0 {
		opts = append(opts, scheduler.WithEventSink(scheduler.FanOut(sinks...)))
	}
	e.runner = scheduler.New(cfg.SchedulerConfig(), e.gate, dispatch.Validated(d, cfg.Validator()), opts...)
	return e, nil
}

// apply pushes reloaded settings into the live gate and runner.
func (e *engine) apply(cfg *config.Config) {
	e.gate.Apply(cfg.GateConfig())
	e.runner.Apply(cfg.SchedulerConfig())
	e.config = cfg
}

// watchConfig re-applies cooldown and runner settings when the config file
// changes, then calls each hook with the new config.
func (e *engine) watchConfig(hooks ...func(*config.Config)) {
	if configLoader == nil {
		return
	}
	logger := logging.Component("config")
	configLoader.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("config reload rejected")
			return
		}
		e.apply(cfg)
		for _, hook := range hooks {
			hook(cfg)
		}
		logger.Info().
			Dur("whisper", cfg.Cooldown.Whisper).
			Dur("chat", cfg.Cooldown.Chat).
			Msg("config reloaded")
	})
}

func (e *engine) Close() error {
	if e.database != nil {
		return e.database.Close()
	}
	return nil
}
