// Package provider holds the player backends. A provider knows how to turn a
// player record into a process command line, which provider_config fields it
// accepts, how to derive its unique id and which volume backend drives it.
package provider

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/sendspin"
	"github.com/famish99/multiroomd/internal/volume"
)

// DefaultID is used when a record names no provider.
const DefaultID = "squeezelite"

// Provider is one player backend.
type Provider interface {
	ID() string
	DisplayName() string
	Binary() string
	Schema() []Field
	DefaultConfig() map[string]any
	// ValidateConfig checks values beyond their declared types.
	ValidateConfig(cfg map[string]any) []errdefs.FieldError
	// BuildCommand is pure: the same record and log path always yield the
	// same arguments.
	BuildCommand(rec model.Record, logPath string) []string
	VolumeBackend() volume.Backend
	// UniqueIDField names the provider_config field holding the unique id.
	UniqueIDField() string
	GenerateUniqueID(name string) string
}

// FallbackCommander is implemented by providers that can keep a player
// registered with its server on the null device when the real device fails.
type FallbackCommander interface {
	FallbackCommand(rec model.Record, logPath string) []string
}

// Preparer is implemented by providers that need to derive provider_config
// values from the environment when a record is created or updated.
type Preparer interface {
	Prepare(ctx context.Context, rec model.Record) model.Record
}

// NowPlayingSource is implemented by providers that can report the track a
// player's server is playing. Release drops any connection kept for name.
type NowPlayingSource interface {
	NowPlaying(rec model.Record) (sendspin.NowPlaying, error)
	Release(name string)
}

// Info is the listing entry for one provider.
type Info struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Binary      string  `json:"binary"`
	Available   bool    `json:"available"`
	Schema      []Field `json:"config_schema"`
}

// Registry is the closed set of providers, selected by the record's type tag.
type Registry struct {
	providers map[string]Provider
	lookPath  func(string) (string, error)
}

// NewRegistry registers providers by ID.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		lookPath:  exec.LookPath,
	}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the provider for id. An unknown id is a validation error.
func (r *Registry) Get(id string) (Provider, error) {
	if id == "" {
		id = DefaultID
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, errdefs.Invalid("provider", "unknown provider %q (available: %s)", id, strings.Join(r.IDs(), ", "))
	}
	return p, nil
}

// Info lists every provider with its schema and binary availability.
func (r *Registry) Info() []Info {
	infos := make([]Info, 0, len(r.providers))
	for _, id := range r.IDs() {
		p := r.providers[id]
		_, err := r.lookPath(p.Binary())
		infos = append(infos, Info{
			ID:          id,
			DisplayName: p.DisplayName(),
			Binary:      p.Binary(),
			Available:   err == nil,
			Schema:      p.Schema(),
		})
	}
	return infos
}

// Prepare validates rec against its provider and fills defaults and the
// unique id. The input is not modified.
func (r *Registry) Prepare(ctx context.Context, rec model.Record) (model.Record, error) {
	out, p, err := r.complete(rec)
	if err != nil {
		return rec, err
	}
	if prep, ok := p.(Preparer); ok {
		out = prep.Prepare(ctx, out)
	}
	return out, nil
}

// Validate reports whether rec is acceptable to its provider.
func (r *Registry) Validate(rec model.Record) error {
	_, _, err := r.complete(rec)
	return err
}

func (r *Registry) complete(rec model.Record) (model.Record, Provider, error) {
	out := rec.Clone()
	if out.Provider == "" {
		out.Provider = DefaultID
	}
	if out.ProviderConfig == nil {
		out.ProviderConfig = map[string]any{}
	}

	var errs []errdefs.FieldError
	if fe := model.ValidateName(out.Name); fe != nil {
		errs = append(errs, *fe)
	}
	if strings.TrimSpace(out.Device) == "" {
		errs = append(errs, errdefs.FieldError{Field: "device", Message: "audio device is required"})
	}
	if !model.ValidVolume(out.Volume) {
		errs = append(errs, errdefs.FieldError{Field: "volume", Message: "must be between 0 and 100"})
	}

	p, err := r.Get(out.Provider)
	if err != nil {
		return rec, nil, err
	}

	for k, v := range p.DefaultConfig() {
		if _, ok := out.ProviderConfig[k]; !ok {
			out.ProviderConfig[k] = v
		}
	}
	if typeErrs := coerce(p.Schema(), out.ProviderConfig); len(typeErrs) > 0 {
		errs = append(errs, typeErrs...)
	} else {
		errs = append(errs, p.ValidateConfig(out.ProviderConfig)...)
	}
	if len(errs) > 0 {
		return rec, nil, errdefs.Validation(errs)
	}

	if field := p.UniqueIDField(); field != "" && configString(out.ProviderConfig, field, "") == "" {
		out.ProviderConfig[field] = p.GenerateUniqueID(out.Name)
	}
	return out, p, nil
}

// Command builds the launch command for rec with its provider.
func (r *Registry) Command(rec model.Record, logPath string) ([]string, error) {
	p, err := r.Get(rec.Provider)
	if err != nil {
		return nil, err
	}
	cmd := p.BuildCommand(rec, logPath)
	if len(cmd) == 0 {
		return nil, fmt.Errorf("provider %s built an empty command", p.ID())
	}
	return cmd, nil
}

// NowPlaying asks rec's provider for the track its server is playing.
func (r *Registry) NowPlaying(rec model.Record) (sendspin.NowPlaying, error) {
	p, err := r.Get(rec.Provider)
	if err != nil {
		return sendspin.NowPlaying{}, err
	}
	src, ok := p.(NowPlayingSource)
	if !ok {
		return sendspin.NowPlaying{}, errdefs.Invalid("provider", "%s players do not report now-playing metadata", p.ID())
	}
	return src.NowPlaying(rec)
}

// Release drops the connections any provider keeps for the player name.
func (r *Registry) Release(name string) {
	for _, p := range r.providers {
		if src, ok := p.(NowPlayingSource); ok {
			src.Release(name)
		}
	}
}

// Close releases provider resources on shutdown.
func (r *Registry) Close() {
	for _, p := range r.providers {
		if c, ok := p.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
