package volume

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/execx"
	"github.com/famish99/multiroomd/internal/model"
)

// ReadControls is the order mixer controls are queried in.
var ReadControls = []string{"Master", "PCM", "Speaker", "Headphone", "Digital", "Capture"}

// DefaultControls is reported when a card's controls cannot be listed.
var DefaultControls = []string{"Master", "PCM"}

// WriteControls is the order mixer controls are set in. Capture is never
// written.
var WriteControls = []string{"Master", "PCM", "Speaker", "Headphone", "Digital"}

var (
	percentRe  = regexp.MustCompile(`\[(\d{1,3})%\]`)
	scontrolRe = regexp.MustCompile(`Simple mixer control '([^']+)'`)
	hwCardRe   = regexp.MustCompile(`^(?:plug)?hw:(\d+)`)
	cardNameRe = regexp.MustCompile(`CARD=([^,]+)`)
)

// Mixer drives ALSA simple mixer controls with amixer.
type Mixer struct {
	runner execx.Runner
	binary string
	logger *zap.Logger
}

// NewMixer creates a mixer backend.
func NewMixer(runner execx.Runner, logger *zap.Logger) *Mixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mixer{runner: runner, binary: "amixer", logger: logger.Named("mixer")}
}

func (m *Mixer) Kind() Kind { return Local }

// CardForDevice extracts the sound card from an ALSA device string.
// Virtual devices have no card.
func CardForDevice(device string) (string, bool) {
	if model.IsVirtualDevice(device) {
		return "", false
	}
	if match := hwCardRe.FindStringSubmatch(device); match != nil {
		return match[1], true
	}
	if match := cardNameRe.FindStringSubmatch(device); match != nil {
		return match[1], true
	}
	return "", false
}

// GetVolume returns the first readable control's level. When no control can
// be read the stored level is returned as a cached reading.
func (m *Mixer) GetVolume(ctx context.Context, rec model.Record) (Reading, error) {
	cached := Reading{Level: Stored(rec), Cached: true}

	card, ok := CardForDevice(rec.Device)
	if !ok {
		return cached, nil
	}

	for _, control := range ReadControls {
		out, err := m.runner.Run(ctx, m.binary, "-c", card, "sget", control)
		if err != nil {
			if errors.Is(err, errdefs.ErrToolUnavailable) {
				m.logger.Warn("amixer unavailable, using stored volume", zap.String("device", rec.Device), zap.Error(err))
				return cached, nil
			}
			continue
		}
		if level, ok := parsePercent(out.Stdout); ok {
			return Reading{Level: level, Control: control}, nil
		}
	}

	m.logger.Debug("no readable mixer control", zap.String("device", rec.Device))
	return cached, nil
}

// SetVolume applies level to the first control that accepts it.
func (m *Mixer) SetVolume(ctx context.Context, rec model.Record, level int) (Result, error) {
	card, ok := CardForDevice(rec.Device)
	if !ok {
		return Result{Detail: fmt.Sprintf("%s has no hardware mixer, volume stored as %d%%", rec.Device, level)}, nil
	}

	value := strconv.Itoa(level) + "%"
	var attempted []string
	var lastErr error
	for _, control := range WriteControls {
		attempted = append(attempted, control)
		_, err := m.runner.Run(ctx, m.binary, "-c", card, "sset", control, value)
		if err == nil {
			m.logger.Debug("volume set",
				zap.String("device", rec.Device),
				zap.String("control", control),
				zap.Int("level", level))
			return Result{Control: control, Detail: fmt.Sprintf("volume set to %d%% using %s", level, control)}, nil
		}
		lastErr = err
		if errors.Is(err, errdefs.ErrToolUnavailable) {
			break
		}
	}

	return Result{}, &errdefs.VolumeError{Device: rec.Device, Attempted: attempted, Err: lastErr}
}

// Controls lists the simple mixer controls of the device's card. Devices
// without a card, and cards amixer cannot list, report DefaultControls.
func (m *Mixer) Controls(ctx context.Context, device string) []string {
	card, ok := CardForDevice(device)
	if !ok {
		return append([]string(nil), DefaultControls...)
	}
	out, err := m.runner.Run(ctx, m.binary, "-c", card, "scontrols")
	if err != nil {
		m.logger.Debug("could not list mixer controls", zap.String("device", device), zap.Error(err))
		return append([]string(nil), DefaultControls...)
	}
	var controls []string
	for _, line := range strings.Split(string(out.Stdout), "\n") {
		if match := scontrolRe.FindStringSubmatch(line); match != nil {
			controls = append(controls, match[1])
		}
	}
	if len(controls) == 0 {
		return append([]string(nil), DefaultControls...)
	}
	return controls
}

func parsePercent(out []byte) (int, bool) {
	match := percentRe.FindSubmatch(out)
	if match == nil {
		return 0, false
	}
	level, err := strconv.Atoi(string(match[1]))
	if err != nil || !model.ValidVolume(level) {
		return 0, false
	}
	return level, true
}
