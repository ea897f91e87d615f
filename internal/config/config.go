package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	defaultPollInterval     = 100 * time.Millisecond
	defaultRebuildInterval  = 250 * time.Millisecond
	defaultShutdownTimeout  = time.Second
	defaultWatchDebounce    = 500 * time.Millisecond
	minRebuildInterval      = 150 * time.Millisecond
	maxRebuildInterval      = 400 * time.Millisecond
	envPrefix               = "TUNES_"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultStateBackendName = "json"
)

type Config struct {
	MusicFolder string `koanf:"music_folder"` // folder scanned for songs

	State    StateConfig    `koanf:"state"`
	Playback PlaybackConfig `koanf:"playback"`
	Library  LibraryConfig  `koanf:"library"`
	Log      LogConfig      `koanf:"log"`
}

// StateConfig locates the persisted user document.
type StateConfig struct {
	File         string `koanf:"file"`          // empty means $XDG_DATA_HOME/tunes/user.json
	Backend      string `koanf:"backend"`       // "json" or "sqlite" (default: "json")
	ImagesFolder string `koanf:"images_folder"` // playlist icons (default: next to the document)
}

// PlaybackConfig tunes the playback engine.
type PlaybackConfig struct {
	PollIntervalMS    int `koanf:"poll_interval_ms"`    // position sampling (default: 100)
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"` // poller join bound (default: 1000)
}

// LibraryConfig tunes the library view.
type LibraryConfig struct {
	RebuildIntervalMS int `koanf:"rebuild_interval_ms"` // passive rebuild rate limit (150-400, default: 250)
	WatchDebounceMS   int `koanf:"watch_debounce_ms"`   // folder watcher debounce (default: 500)
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `koanf:"level"`  // logrus level name (default: "info")
	Format string `koanf:"format"` // "text" or "json" (default: "text")
	File   string `koanf:"file"`   // empty means stderr
}

// Load reads the config files in priority order, then applies .env and
// TUNES_* environment overrides.
func Load() (*Config, error) {
	return load(getConfigPaths())
}

// LoadFrom reads configuration from a specific file path only.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return load([]string{path})
}

func load(configPaths []string) (*Config, error) {
	k := koanf.New(".")

	// Last wins
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	applyEnvOverrides(cfg)

	cfg.MusicFolder = expandPath(cfg.MusicFolder)
	if cfg.MusicFolder == "" {
		cfg.MusicFolder = xdg.UserDirs.Music
	}
	cfg.State.File = expandPath(cfg.State.File)
	cfg.State.ImagesFolder = expandPath(cfg.State.ImagesFolder)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.State.Backend = strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if cfg.State.Backend == "" {
		cfg.State.Backend = defaultStateBackendName
	}

	return cfg, nil
}

// applyEnvOverrides applies TUNES_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "MUSIC_FOLDER"); v != "" {
		cfg.MusicFolder = v
	}
	if v := os.Getenv(envPrefix + "STATE_FILE"); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv(envPrefix + "STATE_BACKEND"); v != "" {
		cfg.State.Backend = v
	}
	if v := os.Getenv(envPrefix + "IMAGES_FOLDER"); v != "" {
		cfg.State.ImagesFolder = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/tunes/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tunes", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// PollInterval returns the playback position sampling interval.
func (c *Config) PollInterval() time.Duration {
	if c.Playback.PollIntervalMS <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.Playback.PollIntervalMS) * time.Millisecond
}

// ShutdownTimeout bounds how long closing the engine waits for its poller.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.Playback.ShutdownTimeoutMS <= 0 {
		return defaultShutdownTimeout
	}
	return time.Duration(c.Playback.ShutdownTimeoutMS) * time.Millisecond
}

// RebuildInterval returns the minimum time between passive library rebuilds,
// clamped to 150-400ms.
func (c *Config) RebuildInterval() time.Duration {
	if c.Library.RebuildIntervalMS <= 0 {
		return defaultRebuildInterval
	}
	d := time.Duration(c.Library.RebuildIntervalMS) * time.Millisecond
	return min(max(d, minRebuildInterval), maxRebuildInterval)
}

// WatchDebounce returns the quiet period the folder watcher waits for.
func (c *Config) WatchDebounce() time.Duration {
	if c.Library.WatchDebounceMS <= 0 {
		return defaultWatchDebounce
	}
	return time.Duration(c.Library.WatchDebounceMS) * time.Millisecond
}

// LogLevel returns the configured level name or the default.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return defaultLogLevel
	}
	return c.Log.Level
}

// LogFormat returns the configured log format or the default.
func (c *Config) LogFormat() string {
	if c.Log.Format == "" {
		return defaultLogFormat
	}
	return c.Log.Format
}
