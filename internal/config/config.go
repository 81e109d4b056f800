// Package config loads the coherence configuration: defaults, then the
// TOML file at ~/.coherence/config.toml, then COHERENCE_* environment
// overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file inside the data directory.
const FileName = "config.toml"

// Bounds applied by Validate.
const (
	MinPollInterval  = time.Second
	MaxPollInterval  = 5 * time.Minute
	MinFeedTimeout   = 100 * time.Millisecond
	MinFrameInterval = 8 * time.Millisecond
	MaxFrameInterval = time.Second
)

// Config is the full runtime configuration.
type Config struct {
	// DataDir holds the SQLite database and the config file.
	DataDir string `toml:"data_dir"`

	// Ephemeral keeps counters in memory only.
	Ephemeral bool   `toml:"ephemeral"`
	LogLevel  string `toml:"log_level"`

	Feed  FeedConfig  `toml:"feed"`
	Watch WatchConfig `toml:"watch"`
}

// FeedConfig describes the external coherence service. The feed is
// off while Command is empty.
type FeedConfig struct {
	Command      string        `toml:"command"`
	Args         []string      `toml:"args"`
	Env          []string      `toml:"env"`
	PollInterval time.Duration `toml:"poll_interval"`
	Timeout      time.Duration `toml:"timeout"`
	PushBreath   bool          `toml:"push_breath"`
	ResetOnStart bool          `toml:"reset_on_start"`
}

// Enabled reports whether a service command is configured.
func (f FeedConfig) Enabled() bool { return strings.TrimSpace(f.Command) != "" }

// WatchConfig tunes the terminal view.
type WatchConfig struct {
	FrameInterval time.Duration `toml:"frame_interval"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".coherence"),
		LogLevel: "info",
		Feed: FeedConfig{
			PollInterval: 5 * time.Second,
			Timeout:      3 * time.Second,
		},
		Watch: WatchConfig{
			FrameInterval: 16 * time.Millisecond,
		},
	}
}

// DefaultPath returns ~/.coherence/config.toml.
func DefaultPath() string {
	return filepath.Join(DefaultConfig().DataDir, FileName)
}

// Load reads path (DefaultPath when empty), applies environment
// overrides and validates. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies COHERENCE_* variables on top of c.
func (c *Config) ApplyEnvOverrides() error {
	var errs []error

	if v, ok := os.LookupEnv("COHERENCE_DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv("COHERENCE_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("COHERENCE_EPHEMERAL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: COHERENCE_EPHEMERAL: %w", err))
		}
		c.Ephemeral = b
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_COMMAND"); ok {
		c.Feed.Command = v
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_ARGS"); ok {
		c.Feed.Args = strings.Fields(v)
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: COHERENCE_FEED_POLL_INTERVAL: %w", err))
		} else {
			c.Feed.PollInterval = d
		}
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: COHERENCE_FEED_TIMEOUT: %w", err))
		} else {
			c.Feed.Timeout = d
		}
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_PUSH_BREATH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: COHERENCE_FEED_PUSH_BREATH: %w", err))
		}
		c.Feed.PushBreath = b
	}
	if v, ok := os.LookupEnv("COHERENCE_FEED_RESET_ON_START"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: COHERENCE_FEED_RESET_ON_START: %w", err))
		}
		c.Feed.ResetOnStart = b
	}

	return errors.Join(errs...)
}

// Validate rejects unusable values and clamps intervals into range.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" && !c.Ephemeral {
		errs = append(errs, errors.New("config: data_dir is empty"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	c.Feed.PollInterval = clampDuration(c.Feed.PollInterval, MinPollInterval, MaxPollInterval)
	c.Feed.Timeout = clampDuration(c.Feed.Timeout, MinFeedTimeout, c.Feed.PollInterval)
	c.Watch.FrameInterval = clampDuration(c.Watch.FrameInterval, MinFrameInterval, MaxFrameInterval)

	return errors.Join(errs...)
}

// DBPath is where the SQLite store lives.
func (c Config) DBPath() string { return filepath.Join(c.DataDir, "coherence.db") }

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: log_level %q: want debug, info, warn or error", s)
	}
	return l, nil
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	switch {
	case d < lo:
		return lo
	case d > hi:
		return hi
	}
	return d
}
