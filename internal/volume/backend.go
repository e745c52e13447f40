// Package volume reads and writes player volume. Local players are driven
// through the OS mixer; synchronized-multiroom players through the companion
// server that owns their volume.
package volume

import (
	"context"

	"github.com/famish99/multiroomd/internal/model"
)

// Kind says where the authoritative volume lives.
type Kind string

const (
	// Local means the record's volume field is authoritative.
	Local Kind = "local"
	// Remote means the record's volume field is only a cache.
	Remote Kind = "remote"
)

// Reading is a volume value and where it came from.
type Reading struct {
	Level   int    `json:"level"`
	Control string `json:"control,omitempty"`
	Cached  bool   `json:"cached"`
}

// Result describes an applied volume change.
type Result struct {
	Control string `json:"control,omitempty"`
	Detail  string `json:"detail"`
}

// Backend is one volume strategy. Implementations hold no per-player state.
type Backend interface {
	Kind() Kind
	GetVolume(ctx context.Context, rec model.Record) (Reading, error)
	SetVolume(ctx context.Context, rec model.Record, level int) (Result, error)
}

// ControlLister is a Backend that can name the controls it may drive.
type ControlLister interface {
	Controls(ctx context.Context, device string) []string
}

// Stored is the last level recorded for rec, or the default.
func Stored(rec model.Record) int {
	if model.ValidVolume(rec.Volume) {
		return rec.Volume
	}
	return model.DefaultVolume
}
