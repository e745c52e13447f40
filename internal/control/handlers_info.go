package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// cmdProviders lists providers with their config fields.
func (r *request) cmdProviders() string {
	if resp, ok := r.need(0, 0); !ok {
		return resp
	}

	var b strings.Builder
	for _, p := range r.server.core.ListProviders() {
		fmt.Fprintf(&b, "provider: %s\n", p.ID)
		fmt.Fprintf(&b, "name: %s\n", p.DisplayName)
		fmt.Fprintf(&b, "binary: %s\n", p.Binary)
		fmt.Fprintf(&b, "available: %s\n", flag(p.Available))
		for _, f := range p.Schema {
			line := fmt.Sprintf("field: %s %s", f.Name, f.Type)
			if f.Default != nil {
				line += fmt.Sprintf(" default=%v", f.Default)
			}
			if len(f.Options) > 0 {
				line += " options=" + strings.Join(f.Options, ",")
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("OK\n")
	return b.String()
}

// cmdDevices lists output devices. Without the listing tool only the
// virtual devices are returned, with a warning line.
func (r *request) cmdDevices() string {
	if resp, ok := r.need(0, 0); !ok {
		return resp
	}

	devices, err := r.server.core.ListDevices(r.server.ctx)
	if err != nil && !errors.Is(err, errdefs.ErrToolUnavailable) {
		return r.fail(err)
	}

	var b strings.Builder
	if err != nil {
		fmt.Fprintf(&b, "warning: %s\n", err)
	}
	for _, d := range devices {
		fmt.Fprintf(&b, "device: %s\n", d.ID)
		fmt.Fprintf(&b, "name: %s\n", d.DisplayName)
		fmt.Fprintf(&b, "virtual: %s\n", flag(d.Virtual))
	}
	b.WriteString("OK\n")
	return b.String()
}

// cmdNowPlaying: nowplaying NAME
func (r *request) cmdNowPlaying() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}

	np, err := r.server.core.NowPlaying(r.args[0])
	if err != nil {
		return r.fail(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "connected: %s\n", flag(np.Connected))
	fmt.Fprintf(&b, "playing: %s\n", flag(np.Playing))
	fmt.Fprintf(&b, "stale: %s\n", flag(np.Stale))
	if np.Playing {
		fmt.Fprintf(&b, "Title: %s\n", np.Title)
		fmt.Fprintf(&b, "Artist: %s\n", np.Artist)
		fmt.Fprintf(&b, "Album: %s\n", np.Album)
		if np.Year != nil {
			fmt.Fprintf(&b, "Date: %d\n", *np.Year)
		}
		if np.Track != nil {
			fmt.Fprintf(&b, "Track: %d\n", *np.Track)
		}
		if np.ArtworkURL != "" {
			fmt.Fprintf(&b, "artwork: %s\n", np.ArtworkURL)
		}
		fmt.Fprintf(&b, "elapsed: %.3f\n", float64(np.ProgressMS)/1000)
		fmt.Fprintf(&b, "duration: %.3f\n", float64(np.DurationMS)/1000)
		fmt.Fprintf(&b, "progress: %d\n", np.ProgressPercent())
	}
	b.WriteString("OK\n")
	return b.String()
}
