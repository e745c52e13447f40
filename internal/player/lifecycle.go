package player

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/provider"
	"github.com/famish99/multiroomd/internal/supervisor"
)

// Start launches a configured player.
func (o *Orchestrator) Start(ctx context.Context, name string) (Result, error) {
	unlock := o.locks.lock(name)
	defer unlock()

	rec, ok := o.store.Get(name)
	if !ok {
		return Result{}, notFound(name)
	}
	if !rec.Enabled {
		return Result{}, errdefs.Invalid("enabled", "player %s is disabled", name)
	}

	res, err := o.start(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	o.saveRunning()
	return res, nil
}

// Stop stops a player. Stopping a player that is not running succeeds.
// A process that exited under a name no longer configured is still cleared.
func (o *Orchestrator) Stop(_ context.Context, name string) (Result, error) {
	unlock := o.locks.lock(name)
	defer unlock()

	if !o.store.Has(name) && o.sup.Status(name) == supervisor.Stopped {
		return Result{}, notFound(name)
	}

	res, err := o.sup.Stop(name, o.opts.StopTimeout)
	if err != nil {
		return Result{}, err
	}
	o.registry.Release(name)
	o.saveRunning()
	return Result{Detail: res.Detail}, nil
}

// start runs rec's command. Callers hold rec's lock.
func (o *Orchestrator) start(ctx context.Context, rec model.Record) (Result, error) {
	p, err := o.registry.Get(rec.Provider)
	if err != nil {
		return Result{}, err
	}
	logPath := o.sup.LogPath(rec.Name)

	info, err := o.sup.Start(ctx, rec.Name, p.BuildCommand(rec, logPath))
	if err == nil {
		return Result{Detail: fmt.Sprintf("%s started (pid %d)", rec.Name, info.PID)}, nil
	}

	fb, ok := p.(provider.FallbackCommander)
	if !ok || !o.opts.NullFallback || rec.Device == model.NullDevice || !errors.Is(err, errdefs.ErrLaunch) {
		return Result{}, err
	}

	o.logger.Warn("launch failed, retrying on the null device",
		zap.String("player", rec.Name),
		zap.String("device", rec.Device),
		zap.Error(err))

	info, fbErr := o.sup.Start(ctx, rec.Name, fb.FallbackCommand(rec, logPath))
	if fbErr != nil {
		return Result{}, err
	}
	return Result{Detail: fmt.Sprintf("%s started on the null device (pid %d) because %s failed: %v",
		rec.Name, info.PID, rec.Device, err)}, nil
}
