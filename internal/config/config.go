// Package config loads VenuePlus settings from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// VENUEPLUS_COOLDOWN_WHISPER=2s.
const EnvPrefix = "VENUEPLUS"

// Config is the full application configuration.
type Config struct {
	Macro    MacroConfig    `mapstructure:"macro"`
	Cooldown CooldownConfig `mapstructure:"cooldown"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	TUI      TUIConfig      `mapstructure:"tui"`
	Macros   MacrosConfig   `mapstructure:"macros"`
	Announce AnnounceConfig `mapstructure:"announce"`

	// ConfigPath is the file that was read, if any.
	ConfigPath string `mapstructure:"-"`
}

// MacroConfig controls parsing.
type MacroConfig struct {
	MaxBatchLines int     `mapstructure:"max_batch_lines"`
	AutoPause     float64 `mapstructure:"auto_pause"`
	Channel       string  `mapstructure:"channel"`
}

// CooldownConfig holds per-category send spacing.
type CooldownConfig struct {
	Whisper time.Duration `mapstructure:"whisper"`
	Chat    time.Duration `mapstructure:"chat"`
}

// RunnerConfig controls the step runner.
type RunnerConfig struct {
	StatusTTL          time.Duration `mapstructure:"status_ttl"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	MaxDispatchPerTick int           `mapstructure:"max_dispatch_per_tick"`
}

// DispatchConfig controls message validation.
type DispatchConfig struct {
	MaxBytes int `mapstructure:"max_bytes"`
}

// DatabaseConfig controls run history storage.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig controls the base logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TUIConfig controls the terminal UI.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// MacrosConfig points at an extra macro library directory.
type MacrosConfig struct {
	Dir string `mapstructure:"dir"`
}

// AnnounceConfig lists scheduled announcement jobs.
type AnnounceConfig struct {
	Jobs []JobConfig `mapstructure:"jobs"`

	// MinGap is the shortest time allowed between two announcements.
	MinGap time.Duration `mapstructure:"min_gap"`
}

// JobConfig is one scheduled macro.
type JobConfig struct {
	Name     string            `mapstructure:"name"`
	Schedule string            `mapstructure:"schedule"`
	Macro    string            `mapstructure:"macro"`
	Vars     map[string]string `mapstructure:"vars"`
}

// DefaultDatabasePath returns the default history database location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".venueplus", "history.db")
	}
	return filepath.Join(home, ".local", "share", "venueplus", "history.db")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".venueplus", "config.yaml")
	}
	return filepath.Join(home, ".config", "venueplus", "config.yaml")
}

// Validate checks the configuration for values the runtime cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Macro.MaxBatchLines <= 0 {
		errs = append(errs, fmt.Errorf("macro.max_batch_lines must be positive, got %d", c.Macro.MaxBatchLines))
	}
	if c.Macro.AutoPause < 0 {
		errs = append(errs, fmt.Errorf("macro.auto_pause must not be negative, got %v", c.Macro.AutoPause))
	}
	if c.Macro.Channel != "" {
		if _, err := models.ParseChannel(c.Macro.Channel); err != nil {
			errs = append(errs, fmt.Errorf("macro.channel: %w", err))
		}
	}
	if c.Cooldown.Whisper <= 0 {
		errs = append(errs, fmt.Errorf("cooldown.whisper must be positive, got %s", c.Cooldown.Whisper))
	}
	if c.Cooldown.Chat <= 0 {
		errs = append(errs, fmt.Errorf("cooldown.chat must be positive, got %s", c.Cooldown.Chat))
	}
	if c.Runner.StatusTTL <= 0 {
		errs = append(errs, fmt.Errorf("runner.status_ttl must be positive, got %s", c.Runner.StatusTTL))
	}
	if c.Runner.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("runner.tick_interval must be positive, got %s", c.Runner.TickInterval))
	}
	if c.Runner.MaxDispatchPerTick < 0 {
		errs = append(errs, fmt.Errorf("runner.max_dispatch_per_tick must not be negative, got %d", c.Runner.MaxDispatchPerTick))
	}
	if c.Dispatch.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_bytes must be positive, got %d", c.Dispatch.MaxBytes))
	}
	if c.Database.Enabled && strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required when database.enabled is true"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Announce.MinGap < 0 {
		errs = append(errs, fmt.Errorf("announce.min_gap must not be negative, got %s", c.Announce.MinGap))
	}
	for i, job := range c.Announce.Jobs {
		if strings.TrimSpace(job.Schedule) == "" || strings.TrimSpace(job.Macro) == "" {
			errs = append(errs, fmt.Errorf("announce.jobs[%d]: schedule and macro are required", i))
		}
	}
	return errors.Join(errs...)
}

// GateConfig converts to the cooldown gate configuration.
func (c *Config) GateConfig() cooldown.Config {
	return cooldown.Config{Whisper: c.Cooldown.Whisper, Chat: c.Cooldown.Chat}
}

// ParserOptions converts to macro parser options.
func (c *Config) ParserOptions() macro.Options {
	opts := macro.DefaultOptions()
	opts.MaxBatchLines = c.Macro.MaxBatchLines
	opts.AutoPause = c.Macro.AutoPause
	if ch, err := models.ParseChannel(c.Macro.Channel); err == nil {
		opts.Channel = ch
	}
	return opts
}

// SchedulerConfig converts to the runner configuration.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		StatusTTL:          c.Runner.StatusTTL,
		TickInterval:       c.Runner.TickInterval,
		MaxDispatchPerTick: c.Runner.MaxDispatchPerTick,
		Parser:             c.ParserOptions(),
	}
}

// Validator returns the dispatch validator.
func (c *Config) Validator() dispatch.Validator {
	return dispatch.Validator{MaxBytes: c.Dispatch.MaxBytes}
}

// LoggingSettings converts to the logging configuration.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}
