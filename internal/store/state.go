package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunningState records which players were running when the daemon last
// saved it.
type RunningState struct {
	SavedAt time.Time `yaml:"saved_at"`
	Running []string  `yaml:"running"`
}

// StateFile persists RunningState.
type StateFile struct {
	path string
	now  func() time.Time
}

// NewStateFile creates a state file at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path, now: time.Now}
}

// Save writes the running names with the current time.
func (f *StateFile) Save(running []string) error {
	if running == nil {
		running = []string{}
	}
	data, err := yaml.Marshal(RunningState{SavedAt: f.now().UTC(), Running: running})
	if err != nil {
		return fmt.Errorf("failed to encode running state: %w", err)
	}
	return WriteFileAtomic(f.path, data, 0o644)
}

// Load returns the names saved within maxAge. A missing or stale file
// yields no names and no error.
func (f *StateFile) Load(maxAge time.Duration) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read running state: %w", err)
	}

	var state RunningState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse running state: %w", err)
	}
	if maxAge > 0 && f.now().Sub(state.SavedAt) > maxAge {
		return nil, nil
	}
	return state.Running, nil
}
