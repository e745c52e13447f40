package provider

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/snapcast"
	"github.com/famish99/multiroomd/internal/volume"
)

// DefaultSnapserverPort is the audio stream port.
const DefaultSnapserverPort = 1704

// Snapcast is the synchronized multiroom client. Its volume belongs to the
// server, so it uses the remote backend keyed by host id.
type Snapcast struct {
	binary string
	remote *volume.RemoteAPI
}

// NewSnapcast creates the provider.
func NewSnapcast(binary string, logger *zap.Logger) *Snapcast {
	if binary == "" {
		binary = "snapclient"
	}
	return &Snapcast{
		binary: binary,
		remote: volume.NewRemote(SnapcastTarget, logger),
	}
}

func (s *Snapcast) ID() string                    { return "snapcast" }
func (s *Snapcast) DisplayName() string           { return "Snapcast" }
func (s *Snapcast) Binary() string                { return s.binary }
func (s *Snapcast) VolumeBackend() volume.Backend { return s.remote }
func (s *Snapcast) UniqueIDField() string         { return "host_id" }

func (s *Snapcast) GenerateUniqueID(name string) string {
	return HostIDFromName(name)
}

func (s *Snapcast) Schema() []Field {
	return []Field{
		{Name: "server_host", Label: "Server host", Type: TypeString,
			Description: "Empty lets snapclient discover the server"},
		{Name: "server_port", Label: "Stream port", Type: TypeInt, Default: DefaultSnapserverPort, Min: intPtr(1), Max: intPtr(65535)},
		{Name: "control_port", Label: "Control port", Type: TypeInt, Default: snapcast.DefaultControlPort, Min: intPtr(1), Max: intPtr(65535)},
		{Name: "host_id", Label: "Host id", Type: TypeString,
			Description: "Generated from the name when empty"},
		{Name: "latency", Label: "Latency (ms)", Type: TypeInt, Default: 0, Min: intPtr(0), Max: intPtr(10000)},
		{Name: "daemonize", Label: "Daemonize", Type: TypeBool, Default: false},
	}
}

func (s *Snapcast) DefaultConfig() map[string]any {
	return map[string]any{
		"server_host":  "",
		"server_port":  DefaultSnapserverPort,
		"control_port": snapcast.DefaultControlPort,
		"latency":      0,
		"daemonize":    false,
	}
}

func (s *Snapcast) ValidateConfig(cfg map[string]any) []errdefs.FieldError {
	var errs []errdefs.FieldError
	if configBool(cfg, "daemonize") {
		errs = append(errs, errdefs.FieldError{Field: "daemonize", Message: "supervised players must run in the foreground"})
	}
	if host := configString(cfg, "server_host", ""); strings.ContainsAny(host, " \t/") {
		errs = append(errs, errdefs.FieldError{Field: "server_host", Message: "must be a host name or address"})
	}
	return errs
}

func (s *Snapcast) BuildCommand(rec model.Record, logPath string) []string {
	cfg := rec.ProviderConfig
	cmd := []string{s.binary}

	if host := configString(cfg, "server_host", ""); host != "" {
		cmd = append(cmd,
			"--host", host,
			"--port", strconv.Itoa(configInt(cfg, "server_port", DefaultSnapserverPort)))
	}

	if rec.Device == model.NullDevice {
		cmd = append(cmd, "--player", "file:filename=null")
	} else {
		cmd = append(cmd, "--soundcard", rec.Device)
	}

	hostID := configString(cfg, "host_id", "")
	if hostID == "" {
		hostID = HostIDFromName(rec.Name)
	}
	cmd = append(cmd, "--hostID", hostID)

	if latency := configInt(cfg, "latency", 0); latency != 0 {
		cmd = append(cmd, "--latency", strconv.Itoa(latency))
	}
	if configBool(cfg, "daemonize") {
		cmd = append(cmd, "--daemon")
	}
	return append(cmd, "--logsink", "file:"+logPath)
}

// SnapcastTarget locates the record's client on its server's control port.
func SnapcastTarget(rec model.Record) volume.Target {
	cfg := rec.ProviderConfig
	hostID := configString(cfg, "host_id", "")
	if hostID == "" {
		hostID = HostIDFromName(rec.Name)
	}
	return volume.Target{
		Host:     configString(cfg, "server_host", ""),
		Port:     configInt(cfg, "control_port", snapcast.DefaultControlPort),
		ClientID: hostID,
	}
}
