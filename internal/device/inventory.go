// Package device enumerates the host's audio output endpoints.
package device

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/execx"
	"github.com/famish99/multiroomd/internal/model"
)

// ParseRule identifies the aplay output grammar handled by ParseAplay.
// Bump it when the pattern below changes.
const ParseRule = "aplay-l/1"

// Hardware lines look like:
//
//	card 0: PCH [HDA Intel PCH], device 0: ALC887-VD Analog [ALC887-VD Analog]
//
// Groups: card number, card id, card name, device number, device name, device long name.
var hardwareLine = regexp.MustCompile(`^card (\d+): (\S+) \[([^\]]*)\], device (\d+): ([^\[]*?)\s*(?:\[([^\]]*)\])?\s*$`)

// Inventory lists devices through aplay.
type Inventory struct {
	runner execx.Runner
	binary string
	logger *zap.Logger
}

// NewInventory creates an inventory using runner to invoke aplay.
func NewInventory(runner execx.Runner, logger *zap.Logger) *Inventory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inventory{
		runner: runner,
		binary: "aplay",
		logger: logger.Named("devices"),
	}
}

// List enumerates devices afresh on every call. The virtual devices are always
// present. When aplay is missing or fails, only those are returned together
// with an error wrapping errdefs.ErrToolUnavailable; the devices are still usable.
func (inv *Inventory) List(ctx context.Context) ([]model.AudioDevice, error) {
	devices := model.VirtualDevices()

	out, err := inv.runner.Run(ctx, inv.binary, "-l")
	if err != nil {
		inv.logger.Warn("Could not list hardware audio devices, using virtual devices only", zap.Error(err))
		return devices, fmt.Errorf("%w: list devices: %v", errdefs.ErrToolUnavailable, err)
	}

	hw := ParseAplay(out.Stdout)
	if len(hw) == 0 {
		inv.logger.Info("No hardware audio devices found")
	} else {
		inv.logger.Debug("Found hardware audio devices", zap.Int("count", len(hw)))
	}

	seen := make(map[string]bool, len(devices)+len(hw))
	for _, d := range devices {
		seen[d.ID] = true
	}
	for _, d := range hw {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		devices = append(devices, d)
	}
	return devices, nil
}

// ParseAplay extracts hardware devices from `aplay -l` output. Lines that do
// not match the card/device pattern are ignored.
func ParseAplay(output []byte) []model.AudioDevice {
	var devices []model.AudioDevice

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		m := hardwareLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		card, cardName, index, devName := m[1], m[3], m[4], m[5]
		id := fmt.Sprintf("hw:%s,%s", card, index)

		name := cardName
		if devName != "" && devName != cardName {
			name = cardName + " - " + devName
		}
		devices = append(devices, model.AudioDevice{
			ID:          id,
			DisplayName: fmt.Sprintf("%s (%s)", name, id),
			Card:        card,
			Index:       index,
		})
	}
	return devices
}
