// Package player is the orchestration core: it composes the provider
// registry, the players file, the process supervisor and the device
// inventory behind the operations the control surface exposes.
package player

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/device"
	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/provider"
	"github.com/famish99/multiroomd/internal/sendspin"
	"github.com/famish99/multiroomd/internal/store"
	"github.com/famish99/multiroomd/internal/supervisor"
)

// Options tunes the orchestrator.
type Options struct {
	StopTimeout   time.Duration
	SweepInterval time.Duration
	PushTimeout   time.Duration
	StateMaxAge   time.Duration
	// NullFallback retries a failed launch on the null device when the
	// provider supports it.
	NullFallback bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		StopTimeout:   supervisor.DefaultStopTimeout,
		SweepInterval: 2 * time.Second,
		PushTimeout:   time.Second,
		StateMaxAge:   5 * time.Minute,
		NullFallback:  true,
	}
}

// Deps are the components the orchestrator composes.
type Deps struct {
	Registry   *provider.Registry
	Store      *store.Store
	State      *store.StateFile // optional
	Supervisor *supervisor.Supervisor
	Devices    *device.Inventory
}

// Orchestrator owns player configuration and process state. Mutations of
// one player are serialized; different players proceed independently.
type Orchestrator struct {
	registry *provider.Registry
	store    *store.Store
	state    *store.StateFile
	sup      *supervisor.Supervisor
	devices  *device.Inventory

	locks  *nameLocks
	opts   Options
	logger *zap.Logger

	stateMu sync.Mutex
}

// Result carries the human readable outcome of an operation.
type Result struct {
	Detail string `json:"detail"`
}

// Listing is every configured player and whether it runs.
type Listing struct {
	Players map[string]model.Record `json:"players"`
	Running map[string]bool         `json:"running"`
}

// Status is one player's record and process state.
type Status struct {
	Record  model.Record     `json:"record"`
	Running bool             `json:"running"`
	State   supervisor.State `json:"state"`
	Process *supervisor.Info `json:"process,omitempty"`
}

// New creates an orchestrator. Zero option fields take the defaults.
func New(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	def := DefaultOptions()
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = def.StopTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = def.SweepInterval
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = def.PushTimeout
	}
	if opts.StateMaxAge <= 0 {
		opts.StateMaxAge = def.StateMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: deps.Registry,
		store:    deps.Store,
		state:    deps.State,
		sup:      deps.Supervisor,
		devices:  deps.Devices,
		locks:    newNameLocks(),
		opts:     opts,
		logger:   logger.Named("orchestrator"),
	}
}

// ListPlayers returns every record and its liveness.
func (o *Orchestrator) ListPlayers() Listing {
	players := o.store.All()
	running := make(map[string]bool, len(players))
	for name := range players {
		running[name] = o.sup.IsRunning(name)
	}
	return Listing{Players: players, Running: running}
}

// ListProviders describes the registered providers.
func (o *Orchestrator) ListProviders() []provider.Info {
	return o.registry.Info()
}

// ListDevices enumerates output devices. A missing listing tool still
// yields the virtual devices together with the error.
func (o *Orchestrator) ListDevices(ctx context.Context) ([]model.AudioDevice, error) {
	return o.devices.List(ctx)
}

// Player returns one player's record and process state.
func (o *Orchestrator) Player(name string) (Status, error) {
	rec, ok := o.store.Get(name)
	if !ok {
		return Status{}, notFound(name)
	}
	st := Status{
		Record:  rec,
		Running: o.sup.IsRunning(name),
		State:   o.sup.Status(name),
	}
	if info, ok := o.sup.Info(name); ok {
		st.Process = &info
	}
	return st, nil
}

// IsRunning polls one player's process.
func (o *Orchestrator) IsRunning(name string) bool {
	return o.sup.IsRunning(name)
}

// AllStatuses reports liveness for every configured or tracked player.
func (o *Orchestrator) AllStatuses() map[string]bool {
	statuses := o.sup.AllStatuses()
	for _, name := range o.store.Names() {
		if _, ok := statuses[name]; !ok {
			statuses[name] = false
		}
	}
	return statuses
}

func (o *Orchestrator) saveRunning() {
	if o.state == nil {
		return
	}
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	if err := o.state.Save(o.sup.Running()); err != nil {
		o.logger.Warn("failed to save running state", zap.Error(err))
	}
}

// Restore starts autostart players and the players that were running when
// the state file was last saved, if it is recent enough.
func (o *Orchestrator) Restore(ctx context.Context) []string {
	want := map[string]bool{}
	for name, rec := range o.store.All() {
		if rec.Autostart {
			want[name] = true
		}
	}
	if o.state != nil {
		names, err := o.state.Load(o.opts.StateMaxAge)
		if err != nil {
			o.logger.Warn("ignoring running state", zap.Error(err))
		}
		for _, name := range names {
			want[name] = true
		}
	}

	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var started []string
	for _, name := range names {
		rec, ok := o.store.Get(name)
		if !ok {
			o.logger.Warn("skipping unknown player from running state", zap.String("player", name))
			continue
		}
		if !rec.Enabled {
			continue
		}
		if _, err := o.Start(ctx, name); err != nil {
			o.logger.Error("failed to restore player", zap.String("player", name), zap.Error(err))
			continue
		}
		started = append(started, name)
	}

	o.logger.Info("players restored", zap.Strings("players", started))
	return started
}

// NowPlaying reports the track a player's server is playing.
func (o *Orchestrator) NowPlaying(name string) (sendspin.NowPlaying, error) {
	rec, ok := o.store.Get(name)
	if !ok {
		return sendspin.NowPlaying{}, notFound(name)
	}
	return o.registry.NowPlaying(rec)
}

// Shutdown records which players were running and stops them all.
func (o *Orchestrator) Shutdown() {
	o.saveRunning()
	o.sup.Cleanup(o.opts.StopTimeout)
	o.registry.Close()
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
}
