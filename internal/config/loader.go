package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// Loader reads configuration and can watch the file for changes.
type Loader struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for path. An empty path uses
// DefaultConfigPath; a missing file is not an error.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	return &Loader{v: v, path: path}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("macro.max_batch_lines", macro.DefaultMaxBatchLines)
	v.SetDefault("macro.auto_pause", macro.DefaultAutoPause)
	v.SetDefault("macro.channel", string(models.ChannelSay))
	v.SetDefault("cooldown.whisper", time.Second)
	v.SetDefault("cooldown.chat", time.Second/6)
	v.SetDefault("runner.status_ttl", 2*time.Second)
	v.SetDefault("runner.tick_interval", 50*time.Millisecond)
	v.SetDefault("runner.max_dispatch_per_tick", 0)
	v.SetDefault("dispatch.max_bytes", dispatch.DefaultMaxBytes)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("tui.theme", "default")
	v.SetDefault("macros.dir", "")
	v.SetDefault("announce.min_gap", time.Duration(0))
}

// Load reads the configuration.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigPath = l.v.ConfigFileUsed()
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Macros.Dir = expandHome(cfg.Macros.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Set overrides a key, e.g. from a command-line flag.
func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// Watch calls fn with the reloaded configuration whenever the config file is
// written. A reload that fails validation is passed to fn as an error and
// the previous settings stay in effect.
func (l *Loader) Watch(fn func(*Config, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		fn(cfg, err)
	})
	l.v.WatchConfig()
}

// Load reads configuration from path. See NewLoader.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
