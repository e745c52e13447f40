package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// cmdGetVolume: getvol NAME
func (r *request) cmdGetVolume() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}

	reading, err := r.server.core.GetVolume(r.server.ctx, r.args[0])
	if err != nil && !(reading.Cached && errors.Is(err, errdefs.ErrVolumeControl)) {
		return r.fail(err)
	}

	var b strings.Builder
	if err != nil {
		fmt.Fprintf(&b, "warning: %s\n", err)
	}
	fmt.Fprintf(&b, "volume: %d\n", reading.Level)
	if reading.Control != "" {
		fmt.Fprintf(&b, "control: %s\n", reading.Control)
	}
	fmt.Fprintf(&b, "cached: %s\n", flag(reading.Cached))
	b.WriteString("OK\n")
	return b.String()
}

// cmdSetVolume: setvol NAME LEVEL
func (r *request) cmdSetVolume() string {
	if resp, ok := r.need(2, 2); !ok {
		return resp
	}

	level, err := strconv.Atoi(r.args[1])
	if err != nil {
		return r.ack(ackErrorArg, "volume must be an integer: %q", r.args[1])
	}

	res, err := r.server.core.SetVolume(r.server.ctx, r.args[0], level)
	if err != nil {
		return r.fail(err)
	}

	var b strings.Builder
	if res.Control != "" {
		fmt.Fprintf(&b, "control: %s\n", res.Control)
	}
	fmt.Fprintf(&b, "detail: %s\n", res.Detail)
	b.WriteString("OK\n")
	return b.String()
}

// cmdControls: controls NAME
func (r *request) cmdControls() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}

	controls, err := r.server.core.MixerControls(r.server.ctx, r.args[0])
	if err != nil {
		return r.fail(err)
	}

	var b strings.Builder
	for _, c := range controls {
		fmt.Fprintf(&b, "control: %s\n", c)
	}
	b.WriteString("OK\n")
	return b.String()
}
