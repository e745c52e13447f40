package volume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/snapcast"
)

const defaultRemoteTimeout = 3 * time.Second

// Target locates a player's client on its companion server.
type Target struct {
	Host     string
	Port     int
	ClientID string
}

// TargetFunc derives the Target from a record's provider_config.
type TargetFunc func(rec model.Record) Target

// RemoteAPI asks the companion server for volume. The record's volume field
// is only a cache and is returned when the server cannot be reached.
type RemoteAPI struct {
	target  TargetFunc
	Timeout time.Duration
	logger  *zap.Logger
}

// NewRemote creates a remote backend.
func NewRemote(target TargetFunc, logger *zap.Logger) *RemoteAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteAPI{target: target, Timeout: defaultRemoteTimeout, logger: logger.Named("remote-volume")}
}

func (r *RemoteAPI) Kind() Kind { return Remote }

// GetVolume reads the client's volume. On failure the cached level is
// returned together with a VolumeError naming the endpoint.
func (r *RemoteAPI) GetVolume(ctx context.Context, rec model.Record) (Reading, error) {
	cached := Reading{Level: Stored(rec), Cached: true}

	client, t, err := r.client(rec)
	if err != nil {
		return cached, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	status, err := client.ClientStatus(ctx, t.ClientID)
	if err != nil {
		r.logger.Warn("snapserver unreachable, using cached volume",
			zap.String("player", rec.Name),
			zap.String("endpoint", client.Addr()),
			zap.Error(err))
		return cached, &errdefs.VolumeError{Device: rec.Device, Endpoint: client.Addr(), Err: err}
	}
	return Reading{Level: status.Config.Volume.Percent, Control: "snapserver"}, nil
}

// SetVolume sets the client's volume on the server, keeping its mute state.
func (r *RemoteAPI) SetVolume(ctx context.Context, rec model.Record, level int) (Result, error) {
	client, t, err := r.client(rec)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	// Client.SetVolume replaces the whole volume object, so the mute state
	// is read back first and sent unchanged.
	status, err := client.ClientStatus(ctx, t.ClientID)
	if err != nil {
		return Result{}, &errdefs.VolumeError{Device: rec.Device, Endpoint: client.Addr(), Err: err}
	}
	want := snapcast.Volume{Muted: status.Config.Volume.Muted, Percent: level}

	applied, err := client.SetClientVolume(ctx, t.ClientID, want)
	if err != nil {
		return Result{}, &errdefs.VolumeError{Device: rec.Device, Endpoint: client.Addr(), Err: err}
	}
	return Result{
		Control: "snapserver",
		Detail:  fmt.Sprintf("volume set to %d%% on %s", applied.Percent, client.Addr()),
	}, nil
}

func (r *RemoteAPI) client(rec model.Record) (*snapcast.Client, Target, error) {
	t := r.target(rec)
	if t.Host == "" {
		return nil, t, &errdefs.VolumeError{
			Device:   rec.Device,
			Endpoint: "discovery",
			Err:      errors.New("server_host is not configured, the server address is only known to the client"),
		}
	}
	if t.ClientID == "" {
		return nil, t, &errdefs.VolumeError{Device: rec.Device, Err: errors.New("no client id configured")}
	}
	return snapcast.NewClient(t.Host, t.Port), t, nil
}
