package provider

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/sendspin"
	"github.com/famish99/multiroomd/internal/volume"
)

// LogLevels accepted by the sendspin client.
var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR"}

// IndexResolver maps an ALSA hardware device to a PortAudio device index.
type IndexResolver func(device string) (int, error)

// Sendspin is the native streaming client. It addresses devices through
// PortAudio, so hardware-form device strings are translated to an index
// when the record is prepared. Players with a server_url can report what
// their server is playing.
type Sendspin struct {
	binary   string
	mixer    volume.Backend
	resolve  IndexResolver
	metadata *sendspin.Manager
	logger   *zap.Logger
}

// NewSendspin creates the provider. resolve may be nil, in which case
// hardware devices fall back to the client's default output.
func NewSendspin(binary string, mixer volume.Backend, resolve IndexResolver, logger *zap.Logger) *Sendspin {
	if binary == "" {
		binary = "sendspin"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sendspin")
	return &Sendspin{
		binary:   binary,
		mixer:    mixer,
		resolve:  resolve,
		metadata: sendspin.NewManager(logger),
		logger:   logger,
	}
}

// Metadata exposes the per-player metadata clients.
func (s *Sendspin) Metadata() *sendspin.Manager { return s.metadata }

// NowPlaying reports the track rec's server is playing. The first call for a
// player connects its metadata client, so it reports disconnected until the
// server answers.
func (s *Sendspin) NowPlaying(rec model.Record) (sendspin.NowPlaying, error) {
	url := configString(rec.ProviderConfig, "server_url", "")
	if url == "" {
		return sendspin.NowPlaying{}, errdefs.Invalid("server_url",
			"now-playing needs a configured server_url, discovered servers are only known to the client")
	}
	return s.metadata.Client(rec.Name, url).NowPlaying(), nil
}

// Release stops the metadata client of a removed or stopped player.
func (s *Sendspin) Release(name string) { s.metadata.Remove(name) }

// Close stops every metadata client.
func (s *Sendspin) Close() { s.metadata.Close() }

func (s *Sendspin) ID() string                    { return "sendspin" }
func (s *Sendspin) DisplayName() string           { return "Sendspin" }
func (s *Sendspin) Binary() string                { return s.binary }
func (s *Sendspin) VolumeBackend() volume.Backend { return s.mixer }
func (s *Sendspin) UniqueIDField() string         { return "client_id" }

func (s *Sendspin) GenerateUniqueID(name string) string {
	return ClientIDFromName(name)
}

func (s *Sendspin) Schema() []Field {
	return []Field{
		{Name: "server_url", Label: "Server URL", Type: TypeString,
			Description: "ws:// or wss:// address, empty for mDNS discovery"},
		{Name: "client_id", Label: "Client id", Type: TypeString,
			Description: "Generated from the name when empty"},
		{Name: "delay_ms", Label: "Static delay (ms)", Type: TypeInt, Default: 0, Min: intPtr(-5000), Max: intPtr(5000)},
		{Name: "log_level", Label: "Log level", Type: TypeEnum, Default: "INFO", Options: LogLevels},
		{Name: "audio_device_index", Label: "PortAudio device", Type: TypeInt, Min: intPtr(0),
			Description: "Resolved from the hardware device"},
	}
}

func (s *Sendspin) DefaultConfig() map[string]any {
	return map[string]any{
		"server_url": "",
		"delay_ms":   0,
		"log_level":  "INFO",
	}
}

func (s *Sendspin) ValidateConfig(cfg map[string]any) []errdefs.FieldError {
	var errs []errdefs.FieldError
	if url := configString(cfg, "server_url", ""); url != "" &&
		!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		errs = append(errs, errdefs.FieldError{Field: "server_url", Message: "must start with ws:// or wss://"})
	}
	return errs
}

// Prepare resolves a hardware device to its PortAudio index. A device that
// cannot be resolved now is not an error: it may be plugged in later.
func (s *Sendspin) Prepare(_ context.Context, rec model.Record) model.Record {
	delete(rec.ProviderConfig, "audio_device_index")
	if !isHardwareDevice(rec.Device) || s.resolve == nil {
		return rec
	}

	idx, err := s.resolve(rec.Device)
	if err != nil {
		s.logger.Warn("no PortAudio device for hardware device, sendspin will use its default output",
			zap.String("player", rec.Name),
			zap.String("device", rec.Device),
			zap.Error(err))
		return rec
	}
	rec.ProviderConfig["audio_device_index"] = idx
	return rec
}

func (s *Sendspin) BuildCommand(rec model.Record, _ string) []string {
	cfg := rec.ProviderConfig
	id := configString(cfg, "client_id", "")
	if id == "" {
		id = ClientIDFromName(rec.Name)
	}

	cmd := []string{s.binary, "--headless", "--name", rec.Name, "--id", id}

	switch device := rec.Device; {
	case device == "" || device == model.DefaultDevice || device == model.NullDevice:
	case isHardwareDevice(device):
		if idx := configInt(cfg, "audio_device_index", -1); idx >= 0 {
			cmd = append(cmd, "--audio-device", strconv.Itoa(idx))
		}
	default:
		cmd = append(cmd, "--audio-device", device)
	}

	if url := configString(cfg, "server_url", ""); url != "" {
		cmd = append(cmd, "--url", url)
	}
	if delay := configInt(cfg, "delay_ms", 0); delay != 0 {
		cmd = append(cmd, "--static-delay-ms", strconv.Itoa(delay))
	}
	cmd = append(cmd, "--log-level", configString(cfg, "log_level", "INFO"))
	return cmd
}

func isHardwareDevice(device string) bool {
	return strings.HasPrefix(device, "hw:") || strings.HasPrefix(device, "plughw:")
}
