package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/famish99/multiroomd/internal/provider"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MULTIROOMD_"

// LogLevels accepted by logging.level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// LoadEnvFile loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies MULTIROOMD_* overrides. An invalid value keeps the
// current setting and is reported as a warning.
func (c *Config) ApplyEnv() []string {
	var warnings []string
	warn := func(key, value, msg string) {
		warnings = append(warnings, fmt.Sprintf("%s%s=%q ignored: %s", EnvPrefix, key, value, msg))
	}

	if v, ok := lookup("PLAYERS_FILE"); ok && v != "" {
		c.PlayersFile = v
	}
	if v, ok := lookup("STATE_FILE"); ok && v != "" {
		c.StateFile = v
	}
	if v, ok := lookup("LOG_DIR"); ok && v != "" {
		c.LogDir = v
	}
	if v, ok := lookup("LISTEN"); ok && v != "" {
		c.Listen = v
	}

	if v, ok := lookup("STOP_TIMEOUT"); ok {
		if d, err := seconds(v, 1, 60); err != nil {
			warn("STOP_TIMEOUT", v, err.Error())
		} else {
			c.StopTimeout = d
		}
	}
	if v, ok := lookup("SWEEP_INTERVAL"); ok {
		if d, err := seconds(v, 1, 60); err != nil {
			warn("SWEEP_INTERVAL", v, err.Error())
		} else {
			c.SweepInterval = d
		}
	}

	if v, ok := lookup("BUFFER_PARAMS"); ok {
		if msg := provider.ValidateBufferParams(v); msg != "" {
			warn("BUFFER_PARAMS", v, msg)
		} else {
			c.Squeezelite.BufferParams = v
		}
	}

	if v, ok := lookup("NULL_FALLBACK"); ok {
		switch v {
		case "1", "true":
			c.NullFallback = true
		case "0", "false":
			c.NullFallback = false
		default:
			warn("NULL_FALLBACK", v, "must be 0 or 1")
		}
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		level := strings.ToLower(v)
		if validLevel(level) {
			c.Logging.Level = level
		} else {
			warn("LOG_LEVEL", v, "must be one of "+strings.Join(LogLevels, ", "))
		}
	}

	return warnings
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	return strings.TrimSpace(v), ok
}

func seconds(v string, lo, hi int) (time.Duration, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("must be a whole number of seconds")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return time.Duration(n) * time.Second, nil
}

func validLevel(level string) bool {
	for _, l := range LogLevels {
		if l == level {
			return true
		}
	}
	return false
}
