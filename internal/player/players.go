package player

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
)

// Update lists the fields to change. Nil fields are left alone.
// ProviderConfig is merged key by key; a nil value removes the key.
type Update struct {
	Name           *string
	Provider       *string
	Device         *string
	Enabled        *bool
	Volume         *int
	Autostart      *bool
	ProviderConfig map[string]any
}

// Create validates rec, fills its defaults and unique id, persists it and
// starts it when autostart is set. A failed autostart does not undo the
// create; the detail reports it.
func (o *Orchestrator) Create(ctx context.Context, rec model.Record) (Result, error) {
	unlock := o.locks.lock(rec.Name)
	defer unlock()

	if o.store.Has(rec.Name) {
		return Result{}, errdefs.Duplicate(rec.Name)
	}
	prepared, err := o.registry.Prepare(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if err := o.store.Create(prepared); err != nil {
		return Result{}, err
	}

	o.logger.Info("player created",
		zap.String("player", prepared.Name),
		zap.String("provider", prepared.Provider),
		zap.String("device", prepared.Device))

	detail := fmt.Sprintf("player %s created", prepared.Name)
	if prepared.Autostart && prepared.Enabled {
		res, err := o.start(ctx, prepared)
		if err != nil {
			detail += fmt.Sprintf(", but autostart failed: %v", err)
		} else {
			detail += ", " + res.Detail
		}
		o.saveRunning()
	}
	return Result{Detail: detail}, nil
}

// Update changes a player's fields. A running player whose command line
// changes, or that is renamed, is stopped and started again under the new
// configuration. Disabling a running player stops it. A rename also drops
// any exited process left under the old name.
func (o *Orchestrator) Update(ctx context.Context, name string, upd Update) (Result, error) {
	names := []string{name}
	if upd.Name != nil {
		names = append(names, *upd.Name)
	}
	unlock := o.locks.lock(names...)
	defer unlock()

	current, ok := o.store.Get(name)
	if !ok {
		return Result{}, notFound(name)
	}

	prepared, err := o.registry.Prepare(ctx, applyUpdate(current, upd))
	if err != nil {
		return Result{}, err
	}
	renamed := prepared.Name != name
	if renamed && o.store.Has(prepared.Name) {
		return Result{}, errdefs.Duplicate(prepared.Name)
	}

	running := o.sup.IsRunning(name)
	disabling := running && !prepared.Enabled
	restart := running && prepared.Enabled && (renamed || o.commandChanged(current, prepared))
	stop := restart || disabling || renamed
	if stop {
		if _, err := o.sup.Stop(name, o.opts.StopTimeout); err != nil {
			return Result{}, err
		}
	}

	if renamed {
		err = o.store.Replace(name, prepared)
	} else {
		err = o.store.Upsert(prepared)
	}
	if err != nil {
		if running && stop {
			o.restoreProcess(ctx, current)
		}
		return Result{}, err
	}
	if renamed || prepared.Provider != current.Provider {
		o.registry.Release(name)
	}

	o.logger.Info("player updated", zap.String("player", name), zap.String("name", prepared.Name))
	detail := fmt.Sprintf("player %s updated", prepared.Name)
	if renamed {
		detail = fmt.Sprintf("player %s renamed to %s", name, prepared.Name)
	}

	switch {
	case restart:
		if res, err := o.start(ctx, prepared); err != nil {
			detail += fmt.Sprintf(", but restart failed: %v", err)
		} else {
			detail += ", " + res.Detail
		}
		o.saveRunning()
	case disabling:
		detail += ", stopped because it is disabled"
		o.saveRunning()
	}
	return Result{Detail: detail}, nil
}

// Delete stops the player and removes it from the players file.
func (o *Orchestrator) Delete(ctx context.Context, name string) (Result, error) {
	unlock := o.locks.lock(name)
	defer unlock()

	current, ok := o.store.Get(name)
	if !ok {
		return Result{}, notFound(name)
	}

	wasRunning := o.sup.IsRunning(name)
	if _, err := o.sup.Stop(name, o.opts.StopTimeout); err != nil {
		return Result{}, err
	}
	if err := o.store.Delete(name); err != nil {
		if wasRunning {
			o.restoreProcess(ctx, current)
		}
		return Result{}, err
	}
	if wasRunning {
		o.saveRunning()
	}
	o.registry.Release(name)

	o.logger.Info("player deleted", zap.String("player", name))
	return Result{Detail: fmt.Sprintf("player %s deleted", name)}, nil
}

// restoreProcess restarts a player whose configuration change could not be
// persisted.
func (o *Orchestrator) restoreProcess(ctx context.Context, rec model.Record) {
	if _, err := o.start(ctx, rec); err != nil {
		o.logger.Error("failed to restart player after rollback", zap.String("player", rec.Name), zap.Error(err))
	}
}

func (o *Orchestrator) commandChanged(before, after model.Record) bool {
	oldCmd, err := o.registry.Command(before, o.sup.LogPath(before.Name))
	if err != nil {
		return true
	}
	newCmd, err := o.registry.Command(after, o.sup.LogPath(after.Name))
	if err != nil {
		return true
	}
	return !reflect.DeepEqual(oldCmd, newCmd)
}

func applyUpdate(rec model.Record, upd Update) model.Record {
	out := rec.Clone()
	if upd.Name != nil {
		out.Name = *upd.Name
	}
	if upd.Provider != nil && *upd.Provider != out.Provider {
		out.Provider = *upd.Provider
		// fields of the old provider do not carry over
		out.ProviderConfig = map[string]any{}
	}
	if upd.Device != nil {
		out.Device = *upd.Device
	}
	if upd.Enabled != nil {
		out.Enabled = *upd.Enabled
	}
	if upd.Volume != nil {
		out.Volume = *upd.Volume
	}
	if upd.Autostart != nil {
		out.Autostart = *upd.Autostart
	}
	if out.ProviderConfig == nil {
		out.ProviderConfig = map[string]any{}
	}
	for k, v := range upd.ProviderConfig {
		if v == nil {
			delete(out.ProviderConfig, k)
			continue
		}
		out.ProviderConfig[k] = v
	}
	return out
}
