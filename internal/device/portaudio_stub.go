//go:build !portaudio

package device

import (
	"fmt"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// PortAudioIndex needs the portaudio build tag (and cgo with libportaudio).
func PortAudioIndex(device string) (int, error) {
	return -1, fmt.Errorf("%w: built without portaudio support, cannot map %s", errdefs.ErrToolUnavailable, device)
}
