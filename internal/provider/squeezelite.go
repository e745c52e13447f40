package provider

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/volume"
)

var (
	macRe          = regexp.MustCompile(`^(?i)[0-9a-f]{2}(:[0-9a-f]{2}){5}$`)
	bufferParamsRe = regexp.MustCompile(`^(\d+):(\d+)$`)
)

// SqueezeliteOptions are the tuning defaults applied to new players.
type SqueezeliteOptions struct {
	Binary       string
	BufferSize   int
	BufferParams string
	CloseTimeout int
	SampleRate   int
}

// DefaultSqueezeliteOptions returns the stock tuning.
func DefaultSqueezeliteOptions() SqueezeliteOptions {
	return SqueezeliteOptions{
		Binary:       "squeezelite",
		BufferSize:   80,
		BufferParams: "500:2000",
		CloseTimeout: 5,
		SampleRate:   44100,
	}
}

// Squeezelite is the SlimProto client for Lyrion Music Server.
type Squeezelite struct {
	opts  SqueezeliteOptions
	mixer volume.Backend
}

// NewSqueezelite creates the provider. Zero option fields take the defaults.
func NewSqueezelite(opts SqueezeliteOptions, mixer volume.Backend) *Squeezelite {
	def := DefaultSqueezeliteOptions()
	if opts.Binary == "" {
		opts.Binary = def.Binary
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = def.BufferSize
	}
	if opts.BufferParams == "" {
		opts.BufferParams = def.BufferParams
	}
	if opts.CloseTimeout == 0 {
		opts.CloseTimeout = def.CloseTimeout
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = def.SampleRate
	}
	return &Squeezelite{opts: opts, mixer: mixer}
}

func (s *Squeezelite) ID() string                    { return "squeezelite" }
func (s *Squeezelite) DisplayName() string           { return "Squeezelite" }
func (s *Squeezelite) Binary() string                { return s.opts.Binary }
func (s *Squeezelite) VolumeBackend() volume.Backend { return s.mixer }
func (s *Squeezelite) UniqueIDField() string         { return "mac_address" }

func (s *Squeezelite) GenerateUniqueID(name string) string {
	return MACFromName(name)
}

func (s *Squeezelite) Schema() []Field {
	return []Field{
		{Name: "server_ip", Label: "Server", Type: TypeString,
			Description: "Lyrion server host[:port], empty for discovery"},
		{Name: "mac_address", Label: "MAC address", Type: TypeString,
			Description: "Player id, generated from the name when empty"},
		{Name: "buffer_size", Label: "ALSA buffer", Type: TypeInt, Default: s.opts.BufferSize, Min: intPtr(1), Max: intPtr(100000)},
		{Name: "buffer_params", Label: "Stream:output buffer (KB)", Type: TypeString, Default: s.opts.BufferParams},
		{Name: "close_timeout", Label: "Close output after idle (s)", Type: TypeInt, Default: s.opts.CloseTimeout, Min: intPtr(0), Max: intPtr(3600)},
		{Name: "sample_rate", Label: "Null device sample rate", Type: TypeInt, Default: s.opts.SampleRate, Min: intPtr(8000), Max: intPtr(768000)},
	}
}

func (s *Squeezelite) DefaultConfig() map[string]any {
	return map[string]any{
		"server_ip":     "",
		"buffer_size":   s.opts.BufferSize,
		"buffer_params": s.opts.BufferParams,
		"close_timeout": s.opts.CloseTimeout,
		"sample_rate":   s.opts.SampleRate,
	}
}

func (s *Squeezelite) ValidateConfig(cfg map[string]any) []errdefs.FieldError {
	var errs []errdefs.FieldError
	if mac := configString(cfg, "mac_address", ""); mac != "" && !macRe.MatchString(mac) {
		errs = append(errs, errdefs.FieldError{Field: "mac_address", Message: "must look like aa:bb:cc:dd:ee:ff"})
	}
	if server := configString(cfg, "server_ip", ""); strings.ContainsAny(server, " \t/") {
		errs = append(errs, errdefs.FieldError{Field: "server_ip", Message: "must be a host or host:port"})
	}
	if params := configString(cfg, "buffer_params", ""); params != "" {
		if msg := ValidateBufferParams(params); msg != "" {
			errs = append(errs, errdefs.FieldError{Field: "buffer_params", Message: msg})
		}
	}
	return errs
}

// ValidateBufferParams checks a stream:output buffer pair. It returns an
// empty string when params is valid.
func ValidateBufferParams(params string) string {
	match := bufferParamsRe.FindStringSubmatch(params)
	if match == nil {
		return "must be two numbers separated by a colon, like 500:2000"
	}
	for _, part := range match[1:] {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 100000 {
			return "values must be between 1 and 100000"
		}
	}
	return ""
}

func (s *Squeezelite) BuildCommand(rec model.Record, logPath string) []string {
	return s.command(rec, rec.Device, logPath)
}

// FallbackCommand runs the same player on the null device.
func (s *Squeezelite) FallbackCommand(rec model.Record, logPath string) []string {
	return s.command(rec, model.NullDevice, logPath)
}

func (s *Squeezelite) command(rec model.Record, device, logPath string) []string {
	cfg := rec.ProviderConfig
	mac := configString(cfg, "mac_address", "")
	if mac == "" {
		mac = MACFromName(rec.Name)
	}

	cmd := []string{s.opts.Binary, "-n", rec.Name, "-o", device, "-m", mac}
	if server := configString(cfg, "server_ip", ""); server != "" {
		cmd = append(cmd, "-s", server)
	}
	cmd = append(cmd, "-f", logPath)
	cmd = append(cmd,
		"-a", strconv.Itoa(configInt(cfg, "buffer_size", s.opts.BufferSize)),
		"-b", configString(cfg, "buffer_params", s.opts.BufferParams),
		"-C", strconv.Itoa(configInt(cfg, "close_timeout", s.opts.CloseTimeout)),
	)
	if device == model.NullDevice {
		cmd = append(cmd, "-r", strconv.Itoa(configInt(cfg, "sample_rate", s.opts.SampleRate)))
	}
	return cmd
}
