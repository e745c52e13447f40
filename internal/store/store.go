// Package store persists player records to a YAML file keyed by player name.
//
// Every mutation is written to disk before it becomes visible in memory, and
// every write goes through a temporary file and a rename, so the file on disk
// is always one that Load can read.
package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
)

// ValidateFunc checks a record before it is persisted.
type ValidateFunc func(rec model.Record) error

// Store holds the players file and its in-memory copy.
type Store struct {
	mu       sync.RWMutex
	path     string
	players  map[string]model.Record
	validate ValidateFunc
	logger   *zap.Logger
}

// New creates a store for path. Call Load to read the file.
func New(path string, validate ValidateFunc, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:     path,
		players:  map[string]model.Record{},
		validate: validate,
		logger:   logger.Named("store"),
	}
}

// Path returns the players file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the players file and replaces the in-memory copy with every
// entry that could be decoded. Entries that could not be decoded are
// reported in the error list and skipped. A missing file is an empty store.
func (s *Store) Load() (map[string]model.Record, []error) {
	players, errs := ReadFile(s.path)
	for _, err := range errs {
		s.logger.Warn("skipping unreadable player entry", zap.String("file", s.path), zap.Error(err))
	}

	s.mu.Lock()
	s.players = players
	s.mu.Unlock()

	s.logger.Info("players loaded", zap.String("file", s.path), zap.Int("count", len(players)))
	return cloneAll(players), errs
}

// ReadFile decodes a players file. See Store.Load.
func ReadFile(path string) (map[string]model.Record, []error) {
	players := map[string]model.Record{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return players, nil
		}
		return players, []error{fmt.Errorf("failed to read players file: %w", err)}
	}
	return Decode(data)
}

// Decode parses players file content one entry at a time so a bad entry
// does not hide the good ones.
func Decode(data []byte) (map[string]model.Record, []error) {
	players := map[string]model.Record{}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return players, []error{fmt.Errorf("failed to parse players file: %w", err)}
	}
	if len(doc.Content) == 0 {
		return players, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return players, []error{fmt.Errorf("players file line %d: expected a mapping of player names", root.Line)}
	}

	var errs []error
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		name := key.Value

		rec := model.Record{Enabled: true, Volume: model.DefaultVolume}
		if err := value.Decode(&rec); err != nil {
			errs = append(errs, fmt.Errorf("player %q (line %d): %w", name, key.Line, err))
			continue
		}
		if rec.Name == "" {
			rec.Name = name
		}
		if rec.Name != name {
			errs = append(errs, fmt.Errorf("player %q (line %d): name field %q does not match its key", name, key.Line, rec.Name))
			continue
		}
		if fe := model.ValidateName(name); fe != nil {
			errs = append(errs, fmt.Errorf("player %q (line %d): %s", name, key.Line, fe.Message))
			continue
		}
		if _, dup := players[name]; dup {
			errs = append(errs, fmt.Errorf("player %q (line %d): duplicate entry", name, key.Line))
			continue
		}
		if rec.ProviderConfig == nil {
			rec.ProviderConfig = map[string]any{}
		}
		players[name] = rec
	}
	return players, errs
}

// Save atomically writes players and makes them the in-memory copy.
func (s *Store) Save(players map[string]model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(players); err != nil {
		return err
	}
	s.players = cloneAll(players)
	return nil
}

// Get returns a copy of the named record.
func (s *Store) Get(name string) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.players[name]
	if !ok {
		return model.Record{}, false
	}
	return rec.Clone(), true
}

// Has reports whether name is configured.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.players[name]
	return ok
}

// All returns a copy of every record.
func (s *Store) All() map[string]model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.players)
}

// Names returns the configured names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.players))
	for name := range s.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create adds a new record. The name must not be taken.
func (s *Store) Create(rec model.Record) error {
	return s.mutate(func(players map[string]model.Record) error {
		if _, ok := players[rec.Name]; ok {
			return errdefs.Duplicate(rec.Name)
		}
		if err := s.check(rec); err != nil {
			return err
		}
		players[rec.Name] = rec.Clone()
		return nil
	})
}

// Upsert validates rec and stores it under its name.
func (s *Store) Upsert(rec model.Record) error {
	return s.mutate(func(players map[string]model.Record) error {
		if err := s.check(rec); err != nil {
			return err
		}
		players[rec.Name] = rec.Clone()
		return nil
	})
}

// Replace stores rec in place of the record named old. When the names
// differ this is a rename and rec.Name must not be taken.
func (s *Store) Replace(old string, rec model.Record) error {
	return s.mutate(func(players map[string]model.Record) error {
		if _, ok := players[old]; !ok {
			return fmt.Errorf("%w: %s", errdefs.ErrNotFound, old)
		}
		if rec.Name != old {
			if _, taken := players[rec.Name]; taken {
				return errdefs.Duplicate(rec.Name)
			}
		}
		if err := s.check(rec); err != nil {
			return err
		}
		delete(players, old)
		players[rec.Name] = rec.Clone()
		return nil
	})
}

// Rename moves a record to a new name.
func (s *Store) Rename(old, newName string) error {
	rec, ok := s.Get(old)
	if !ok {
		return fmt.Errorf("%w: %s", errdefs.ErrNotFound, old)
	}
	rec.Name = newName
	return s.Replace(old, rec)
}

// Delete removes a record. Deleting an unknown name is ErrNotFound.
func (s *Store) Delete(name string) error {
	return s.mutate(func(players map[string]model.Record) error {
		if _, ok := players[name]; !ok {
			return fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
		}
		delete(players, name)
		return nil
	})
}

// SetVolume records a player's volume.
func (s *Store) SetVolume(name string, level int) error {
	return s.mutate(func(players map[string]model.Record) error {
		rec, ok := players[name]
		if !ok {
			return fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
		}
		if !model.ValidVolume(level) {
			return errdefs.Invalid("volume", "must be between 0 and 100, got %d", level)
		}
		rec.Volume = level
		players[name] = rec
		return nil
	})
}

func (s *Store) check(rec model.Record) error {
	if s.validate == nil {
		if fe := model.ValidateName(rec.Name); fe != nil {
			return errdefs.Validation([]errdefs.FieldError{*fe})
		}
		return nil
	}
	return s.validate(rec)
}

// mutate applies fn to a copy of the records, persists the copy and only
// then swaps it in.
func (s *Store) mutate(fn func(players map[string]model.Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.Record, len(s.players)+1)
	for name, rec := range s.players {
		next[name] = rec
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.players = next
	return nil
}

func (s *Store) write(players map[string]model.Record) error {
	data, err := yaml.Marshal(players)
	if err != nil {
		return fmt.Errorf("%w: failed to encode players: %v", errdefs.ErrPersistence, err)
	}
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		s.logger.Error("failed to write players file", zap.String("file", s.path), zap.Error(err))
		return fmt.Errorf("%w: %v", errdefs.ErrPersistence, err)
	}
	return nil
}

func cloneAll(players map[string]model.Record) map[string]model.Record {
	out := make(map[string]model.Record, len(players))
	for name, rec := range players {
		out[name] = rec.Clone()
	}
	return out
}
