package control

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/player"
)

// cmdPlayers lists every player with its record and liveness.
func (r *request) cmdPlayers() string {
	if resp, ok := r.need(0, 0); !ok {
		return resp
	}

	listing := r.server.core.ListPlayers()
	names := make([]string, 0, len(listing.Players))
	for name := range listing.Players {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		writeRecord(&b, listing.Players[name])
		fmt.Fprintf(&b, "running: %s\n", flag(listing.Running[name]))
	}
	b.WriteString("OK\n")
	return b.String()
}

// cmdStatus reports liveness of every player, or details of one.
func (r *request) cmdStatus() string {
	if resp, ok := r.need(0, 1); !ok {
		return resp
	}

	var b strings.Builder
	if len(r.args) == 0 {
		statuses := r.server.core.AllStatuses()
		names := make([]string, 0, len(statuses))
		for name := range statuses {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "player: %s\nrunning: %s\n", name, flag(statuses[name]))
		}
		b.WriteString("OK\n")
		return b.String()
	}

	st, err := r.server.core.Player(r.args[0])
	if err != nil {
		return r.fail(err)
	}
	writeRecord(&b, st.Record)
	fmt.Fprintf(&b, "running: %s\n", flag(st.Running))
	fmt.Fprintf(&b, "state: %s\n", st.State)
	if p := st.Process; p != nil {
		fmt.Fprintf(&b, "pid: %d\n", p.PID)
		fmt.Fprintf(&b, "started: %s\n", p.StartedAt.UTC().Format("2006-01-02T15:04:05Z"))
		fmt.Fprintf(&b, "log: %s\n", p.LogPath)
		fmt.Fprintf(&b, "command: %s\n", strings.Join(p.Command, " "))
	}
	b.WriteString("OK\n")
	return b.String()
}

// cmdCreate: create NAME PROVIDER DEVICE [key=value ...]
func (r *request) cmdCreate() string {
	if resp, ok := r.need(3, -1); !ok {
		return resp
	}

	rec := model.NewRecord(r.args[0], r.args[1], r.args[2])
	for _, kv := range r.args[3:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return r.ack(ackErrorArg, "expected key=value, got %q", kv)
		}
		var err error
		switch key {
		case "enabled":
			rec.Enabled, err = parseFlag(value)
		case "autostart":
			rec.Autostart, err = parseFlag(value)
		case "volume":
			rec.Volume, err = strconv.Atoi(value)
		default:
			rec.ProviderConfig[key] = value
		}
		if err != nil {
			return r.ack(ackErrorArg, "invalid %s: %q", key, value)
		}
	}

	res, err := r.server.core.Create(r.server.ctx, rec)
	if err != nil {
		return r.fail(err)
	}
	return detail(res.Detail)
}

// cmdUpdate: update NAME key=value ...; an empty value removes a
// provider_config key.
func (r *request) cmdUpdate() string {
	if resp, ok := r.need(2, -1); !ok {
		return resp
	}

	var upd player.Update
	for _, kv := range r.args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return r.ack(ackErrorArg, "expected key=value, got %q", kv)
		}
		switch key {
		case "name":
			upd.Name = &value
		case "provider":
			upd.Provider = &value
		case "device":
			upd.Device = &value
		case "enabled", "autostart":
			b, err := parseFlag(value)
			if err != nil {
				return r.ack(ackErrorArg, "invalid %s: %q", key, value)
			}
			if key == "enabled" {
				upd.Enabled = &b
			} else {
				upd.Autostart = &b
			}
		case "volume":
			n, err := strconv.Atoi(value)
			if err != nil {
				return r.ack(ackErrorArg, "invalid volume: %q", value)
			}
			upd.Volume = &n
		default:
			if upd.ProviderConfig == nil {
				upd.ProviderConfig = map[string]any{}
			}
			if value == "" {
				upd.ProviderConfig[key] = nil
			} else {
				upd.ProviderConfig[key] = value
			}
		}
	}

	res, err := r.server.core.Update(r.server.ctx, r.args[0], upd)
	if err != nil {
		return r.fail(err)
	}
	return detail(res.Detail)
}

func (r *request) cmdDelete() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}
	res, err := r.server.core.Delete(r.server.ctx, r.args[0])
	if err != nil {
		return r.fail(err)
	}
	return detail(res.Detail)
}

func (r *request) cmdStart() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}
	res, err := r.server.core.Start(r.server.ctx, r.args[0])
	if err != nil {
		return r.fail(err)
	}
	return detail(res.Detail)
}

func (r *request) cmdStop() string {
	if resp, ok := r.need(1, 1); !ok {
		return resp
	}
	res, err := r.server.core.Stop(r.server.ctx, r.args[0])
	if err != nil {
		return r.fail(err)
	}
	return detail(res.Detail)
}

func writeRecord(b *strings.Builder, rec model.Record) {
	fmt.Fprintf(b, "player: %s\n", rec.Name)
	fmt.Fprintf(b, "provider: %s\n", rec.Provider)
	fmt.Fprintf(b, "device: %s\n", rec.Device)
	fmt.Fprintf(b, "enabled: %s\n", flag(rec.Enabled))
	fmt.Fprintf(b, "volume: %d\n", rec.Volume)
	fmt.Fprintf(b, "autostart: %s\n", flag(rec.Autostart))

	keys := make([]string, 0, len(rec.ProviderConfig))
	for k := range rec.ProviderConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "config.%s: %v\n", k, rec.ProviderConfig[k])
	}
}

func detail(msg string) string {
	return fmt.Sprintf("detail: %s\nOK\n", strings.ReplaceAll(msg, "\n", " "))
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return strconv.ParseBool(s)
}
