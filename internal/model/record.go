package model

import (
	"strings"
	"unicode/utf8"

	"github.com/famish99/multiroomd/internal/errdefs"
)

const (
	// MaxNameLength is the longest player name accepted.
	MaxNameLength = 64

	// DefaultVolume is used when neither hardware nor a stored value is known.
	DefaultVolume = 75

	// NullDevice produces no audio. Every provider accepts it.
	NullDevice = "null"

	// DefaultDevice is the system default output.
	DefaultDevice = "default"
)

// Record is the persisted configuration of one player.
//
// Extra keeps keys this version does not know about so they survive a
// load/save round trip.
type Record struct {
	Name           string         `yaml:"name" json:"name"`
	Provider       string         `yaml:"provider" json:"provider"`
	Device         string         `yaml:"device" json:"device"`
	Enabled        bool           `yaml:"enabled" json:"enabled"`
	Volume         int            `yaml:"volume" json:"volume"`
	Autostart      bool           `yaml:"autostart" json:"autostart"`
	ProviderConfig map[string]any `yaml:"provider_config,omitempty" json:"provider_config,omitempty"`
	Extra          map[string]any `yaml:",inline" json:"-"`
}

// NewRecord returns a record carrying the defaults applied to new players.
func NewRecord(name, provider, device string) Record {
	return Record{
		Name:           name,
		Provider:       provider,
		Device:         device,
		Enabled:        true,
		Volume:         DefaultVolume,
		ProviderConfig: map[string]any{},
	}
}

// Clone returns a deep enough copy that the maps can be mutated independently.
func (r Record) Clone() Record {
	out := r
	out.ProviderConfig = cloneMap(r.ProviderConfig)
	out.Extra = cloneMap(r.Extra)
	return out
}

// ConfigString returns a provider_config value as a string, or "".
func (r Record) ConfigString(key string) string {
	v, ok := r.ProviderConfig[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(toString(v))
}

// ValidateName checks the identity rules shared by every provider.
func ValidateName(name string) *errdefs.FieldError {
	switch {
	case name == "":
		return &errdefs.FieldError{Field: "name", Message: "player name is required"}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &errdefs.FieldError{Field: "name", Message: "player name too long (max 64 characters)"}
	case strings.ContainsAny(name, "/\\\x00"):
		return &errdefs.FieldError{Field: "name", Message: "player name contains invalid characters"}
	case strings.TrimSpace(name) != name:
		return &errdefs.FieldError{Field: "name", Message: "player name has leading or trailing whitespace"}
	}
	return nil
}

// ValidVolume reports whether level is a percentage.
func ValidVolume(level int) bool {
	return level >= 0 && level <= 100
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
