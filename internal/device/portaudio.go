//go:build portaudio

package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/famish99/multiroomd/internal/errdefs"
)

var paMu sync.Mutex

// PortAudioIndex maps an ALSA hardware device string (hw:1,0 or plughw:1,0)
// to the PortAudio output device index that wraps it. The ALSA host API
// names its devices "<card>: <device> (hw:1,0)", which is what is matched.
func PortAudioIndex(device string) (int, error) {
	hw := strings.TrimPrefix(device, "plug")
	if !strings.HasPrefix(hw, "hw:") {
		return -1, fmt.Errorf("%s is not a hardware device", device)
	}

	paMu.Lock()
	defer paMu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return -1, fmt.Errorf("%w: portaudio: %v", errdefs.ErrToolUnavailable, err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return -1, fmt.Errorf("%w: portaudio devices: %v", errdefs.ErrToolUnavailable, err)
	}

	needle := "(" + hw + ")"
	for i, d := range devices {
		if d.MaxOutputChannels > 0 && strings.Contains(d.Name, needle) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no PortAudio output device for %s", device)
}
