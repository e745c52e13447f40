package player

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/volume"
)

// GetVolume reads a player's volume from its backend. A remote reading
// refreshes the cached level in the players file.
func (o *Orchestrator) GetVolume(ctx context.Context, name string) (volume.Reading, error) {
	unlock := o.locks.lock(name)
	defer unlock()

	rec, ok := o.store.Get(name)
	if !ok {
		return volume.Reading{}, notFound(name)
	}
	backend, err := o.backend(rec)
	if err != nil {
		return volume.Reading{}, err
	}

	reading, err := backend.GetVolume(ctx, rec)
	if err != nil {
		return reading, err
	}
	if backend.Kind() == volume.Remote && !reading.Cached && reading.Level != rec.Volume {
		if err := o.store.SetVolume(name, reading.Level); err != nil {
			o.logger.Warn("failed to cache remote volume", zap.String("player", name), zap.Error(err))
		}
	}
	return reading, nil
}

// SetVolume applies level through the player's backend and records it.
// Levels outside 0..100 are rejected before any backend is touched.
func (o *Orchestrator) SetVolume(ctx context.Context, name string, level int) (volume.Result, error) {
	if !model.ValidVolume(level) {
		return volume.Result{}, errdefs.Invalid("volume", "must be between 0 and 100, got %d", level)
	}

	unlock := o.locks.lock(name)
	defer unlock()

	rec, ok := o.store.Get(name)
	if !ok {
		return volume.Result{}, notFound(name)
	}
	backend, err := o.backend(rec)
	if err != nil {
		return volume.Result{}, err
	}

	res, err := backend.SetVolume(ctx, rec, level)
	if err != nil {
		o.logger.Warn("volume change failed", zap.String("player", name), zap.Int("level", level), zap.Error(err))
		return volume.Result{}, err
	}

	if err := o.store.SetVolume(name, level); err != nil {
		if backend.Kind() == volume.Remote {
			// the server owns the level, the stale cache is refreshed on the next read
			o.logger.Warn("failed to cache remote volume", zap.String("player", name), zap.Error(err))
			return res, nil
		}
		if _, rbErr := backend.SetVolume(ctx, rec, rec.Volume); rbErr != nil {
			o.logger.Error("failed to restore previous volume", zap.String("player", name), zap.Error(rbErr))
		}
		return volume.Result{}, err
	}

	o.logger.Info("volume set", zap.String("player", name), zap.Int("level", level), zap.String("control", res.Control))
	return res, nil
}

// MixerControls lists the mixer controls for a player's output device.
// Players whose volume lives on a remote server have none.
func (o *Orchestrator) MixerControls(ctx context.Context, name string) ([]string, error) {
	rec, ok := o.store.Get(name)
	if !ok {
		return nil, notFound(name)
	}
	backend, err := o.backend(rec)
	if err != nil {
		return nil, err
	}
	lister, ok := backend.(volume.ControlLister)
	if !ok {
		return nil, errdefs.Invalid("provider", "%s players have no local mixer controls", rec.Provider)
	}
	return lister.Controls(ctx, rec.Device), nil
}

func (o *Orchestrator) backend(rec model.Record) (volume.Backend, error) {
	p, err := o.registry.Get(rec.Provider)
	if err != nil {
		return nil, err
	}
	backend := p.VolumeBackend()
	if backend == nil {
		return nil, &errdefs.VolumeError{Device: rec.Device, Err: errors.New("provider has no volume control")}
	}
	return backend, nil
}
