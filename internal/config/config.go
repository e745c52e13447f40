// Package config holds the daemon settings: file locations, timings, the
// provider binaries and their launch defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/famish99/multiroomd/internal/provider"
)

// Config represents the daemon configuration
type Config struct {
	// Player records and the running-state snapshot
	PlayersFile string `yaml:"players_file"`
	StateFile   string `yaml:"state_file"`

	// Per-player process logs
	LogDir string `yaml:"log_dir"`

	// Control server address
	Listen string `yaml:"listen"`

	SweepInterval time.Duration `yaml:"sweep_interval"`
	PushTimeout   time.Duration `yaml:"push_timeout"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`
	KillTimeout   time.Duration `yaml:"kill_timeout"`
	StartGrace    time.Duration `yaml:"start_grace"`
	StateMaxAge   time.Duration `yaml:"state_max_age"`

	// Retry failed launches on the null device
	NullFallback bool `yaml:"null_fallback"`

	Binaries    BinariesConfig    `yaml:"binaries"`
	Squeezelite SqueezeliteConfig `yaml:"squeezelite"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BinariesConfig names the executable of each provider.
type BinariesConfig struct {
	Squeezelite string `yaml:"squeezelite"`
	Sendspin    string `yaml:"sendspin"`
	Snapcast    string `yaml:"snapcast"`
}

// SqueezeliteConfig holds the launch defaults for new squeezelite players.
type SqueezeliteConfig struct {
	BufferSize   int    `yaml:"buffer_size"`
	BufferParams string `yaml:"buffer_params"`
	CloseTimeout int    `yaml:"close_timeout"`
	SampleRate   int    `yaml:"sample_rate"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the default configuration
func Default() *Config {
	sq := provider.DefaultSqueezeliteOptions()
	return &Config{
		PlayersFile:   filepath.Join("config", "players.yaml"),
		StateFile:     filepath.Join("config", "player_states.yaml"),
		LogDir:        "logs",
		Listen:        "localhost:6690",
		SweepInterval: 2 * time.Second,
		PushTimeout:   time.Second,
		StopTimeout:   5 * time.Second,
		KillTimeout:   2 * time.Second,
		StartGrace:    500 * time.Millisecond,
		StateMaxAge:   5 * time.Minute,
		NullFallback:  true,
		Binaries: BinariesConfig{
			Squeezelite: sq.Binary,
			Sendspin:    "sendspin",
			Snapcast:    "snapclient",
		},
		Squeezelite: SqueezeliteConfig{
			BufferSize:   sq.BufferSize,
			BufferParams: sq.BufferParams,
			CloseTimeout: sq.CloseTimeout,
			SampleRate:   sq.SampleRate,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file on top of the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.PlayersFile != "", "players_file must be set")
	check(c.LogDir != "", "log_dir must be set")
	check(c.Listen != "", "listen must be set")
	check(inRange(c.StopTimeout, time.Second, time.Minute), "stop_timeout must be between 1s and 60s, got %s", c.StopTimeout)
	check(inRange(c.SweepInterval, time.Second, time.Minute), "sweep_interval must be between 1s and 60s, got %s", c.SweepInterval)
	check(c.PushTimeout > 0, "push_timeout must be positive")
	check(c.KillTimeout > 0, "kill_timeout must be positive")
	check(c.StartGrace >= 0, "start_grace must not be negative")
	check(c.StateMaxAge >= 0, "state_max_age must not be negative")
	if msg := provider.ValidateBufferParams(c.Squeezelite.BufferParams); msg != "" {
		check(false, "squeezelite.buffer_params: %s", msg)
	}
	check(c.Squeezelite.BufferSize > 0, "squeezelite.buffer_size must be positive")
	check(c.Squeezelite.SampleRate > 0, "squeezelite.sample_rate must be positive")
	check(validLevel(c.Logging.Level), "logging.level must be one of %v, got %q", LogLevels, c.Logging.Level)

	return err
}

// SqueezeliteOptions converts the settings to provider options.
func (c *Config) SqueezeliteOptions() provider.SqueezeliteOptions {
	return provider.SqueezeliteOptions{
		Binary:       c.Binaries.Squeezelite,
		BufferSize:   c.Squeezelite.BufferSize,
		BufferParams: c.Squeezelite.BufferParams,
		CloseTimeout: c.Squeezelite.CloseTimeout,
		SampleRate:   c.Squeezelite.SampleRate,
	}
}

func inRange(d, lo, hi time.Duration) bool {
	return d >= lo && d <= hi
}
