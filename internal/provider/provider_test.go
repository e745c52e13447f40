package provider

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/volume"
)

func testRegistry(resolve IndexResolver) *Registry {
	mixer := volume.NewMixer(nil, nil)
	return NewRegistry(
		NewSqueezelite(SqueezeliteOptions{}, mixer),
		NewSendspin("", mixer, resolve, nil),
		NewSnapcast("", nil),
	)
}

func TestMACFromName(t *testing.T) {
	mac := MACFromName("Kitchen")
	if mac != MACFromName("Kitchen") {
		t.Fatal("MAC generation is not deterministic")
	}
	if !macRe.MatchString(mac) {
		t.Fatalf("malformed MAC %q", mac)
	}
	if mac == MACFromName("Living Room") {
		t.Error("different names produced the same MAC")
	}

	// locally administered, unicast
	v, err := strconv.ParseUint(mac[:2], 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	first := byte(v)
	if first&0x02 == 0 || first&0x01 != 0 {
		t.Errorf("first octet %02x must be locally administered unicast", first)
	}
}

func TestClientIDFromName(t *testing.T) {
	id := ClientIDFromName("Living Room Speakers Upstairs")
	if !strings.HasPrefix(id, "sendspin-living-room-speakers-") {
		t.Errorf("unexpected client id %q", id)
	}
	if len(id) != len("sendspin-")+20+1+8 {
		t.Errorf("unexpected client id length %d: %q", len(id), id)
	}
	if id != ClientIDFromName("Living Room Speakers Upstairs") {
		t.Error("client id is not deterministic")
	}
}

func TestHostIDFromName(t *testing.T) {
	if HostIDFromName("Patio") != HostIDFromName("Patio") {
		t.Error("host id is not deterministic")
	}
	if HostIDFromName("Patio") == HostIDFromName("Garage") {
		t.Error("different names produced the same host id")
	}
}

func TestPrepare_GeneratesUniqueID(t *testing.T) {
	reg := testRegistry(nil)
	rec := model.NewRecord("Kitchen", "", "hw:1,0")

	got, err := reg.Prepare(context.Background(), rec)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if got.Provider != "squeezelite" {
		t.Errorf("expected default provider, got %q", got.Provider)
	}
	if got.ProviderConfig["mac_address"] != MACFromName("Kitchen") {
		t.Errorf("expected generated MAC, got %v", got.ProviderConfig["mac_address"])
	}
	if got.ProviderConfig["buffer_params"] != "500:2000" {
		t.Errorf("expected default buffer params, got %v", got.ProviderConfig["buffer_params"])
	}
	if len(rec.ProviderConfig) != 0 {
		t.Error("Prepare modified its input")
	}
}

func TestPrepare_KeepsExplicitID(t *testing.T) {
	reg := testRegistry(nil)
	rec := model.NewRecord("Kitchen", "squeezelite", "hw:1,0")
	rec.ProviderConfig["mac_address"] = "02:00:00:00:00:01"

	got, err := reg.Prepare(context.Background(), rec)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if got.ProviderConfig["mac_address"] != "02:00:00:00:00:01" {
		t.Errorf("explicit MAC replaced: %v", got.ProviderConfig["mac_address"])
	}
}

func TestPrepare_ValidationErrors(t *testing.T) {
	reg := testRegistry(nil)

	tests := []struct {
		name  string
		rec   func() model.Record
		field string
	}{
		{"unknown provider", func() model.Record { return model.NewRecord("A", "airplay", "null") }, "provider"},
		{"bad name", func() model.Record { return model.NewRecord("a/b", "squeezelite", "null") }, "name"},
		{"missing device", func() model.Record { return model.NewRecord("A", "squeezelite", "") }, "device"},
		{"bad mac", func() model.Record {
			r := model.NewRecord("A", "squeezelite", "null")
			r.ProviderConfig["mac_address"] = "not-a-mac"
			return r
		}, "mac_address"},
		{"bad buffer params", func() model.Record {
			r := model.NewRecord("A", "squeezelite", "null")
			r.ProviderConfig["buffer_params"] = "500:0"
			return r
		}, "buffer_params"},
		{"bad server url", func() model.Record {
			r := model.NewRecord("A", "sendspin", "null")
			r.ProviderConfig["server_url"] = "http://host"
			return r
		}, "server_url"},
		{"bad log level", func() model.Record {
			r := model.NewRecord("A", "sendspin", "null")
			r.ProviderConfig["log_level"] = "TRACE"
			return r
		}, "log_level"},
		{"daemonize", func() model.Record {
			r := model.NewRecord("A", "snapcast", "null")
			r.ProviderConfig["daemonize"] = true
			return r
		}, "daemonize"},
		{"port out of range", func() model.Record {
			r := model.NewRecord("A", "snapcast", "null")
			r.ProviderConfig["control_port"] = "70000"
			return r
		}, "control_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Prepare(context.Background(), tt.rec())
			if !errors.Is(err, errdefs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var vErr *errdefs.ValidationError
			errors.As(err, &vErr)
			found := false
			for _, f := range vErr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, vErr.Fields)
			}
		})
	}
}

func TestPrepare_CoercesStrings(t *testing.T) {
	reg := testRegistry(nil)
	rec := model.NewRecord("Patio", "snapcast", "default")
	rec.ProviderConfig["latency"] = "120"
	rec.ProviderConfig["daemonize"] = "false"

	got, err := reg.Prepare(context.Background(), rec)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if got.ProviderConfig["latency"] != 120 {
		t.Errorf("latency = %#v, expected int 120", got.ProviderConfig["latency"])
	}
	if got.ProviderConfig["daemonize"] != false {
		t.Errorf("daemonize = %#v", got.ProviderConfig["daemonize"])
	}
}

func TestSqueezeliteCommand(t *testing.T) {
	p := NewSqueezelite(SqueezeliteOptions{}, nil)
	rec := model.NewRecord("Kitchen", "squeezelite", "hw:1,0")
	rec.ProviderConfig["mac_address"] = "02:aa:bb:cc:dd:ee"
	rec.ProviderConfig["server_ip"] = "192.168.1.10"

	expected := []string{
		"squeezelite", "-n", "Kitchen", "-o", "hw:1,0", "-m", "02:aa:bb:cc:dd:ee",
		"-s", "192.168.1.10", "-f", "/logs/Kitchen.log",
		"-a", "80", "-b", "500:2000", "-C", "5",
	}
	got := p.BuildCommand(rec, "/logs/Kitchen.log")
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("command = %v\nexpected %v", got, expected)
	}
	if !reflect.DeepEqual(got, p.BuildCommand(rec, "/logs/Kitchen.log")) {
		t.Error("BuildCommand is not deterministic")
	}

	fallback := p.FallbackCommand(rec, "/logs/Kitchen.log")
	if fallback[4] != "null" || fallback[len(fallback)-2] != "-r" || fallback[len(fallback)-1] != "44100" {
		t.Errorf("unexpected fallback command %v", fallback)
	}
}

func TestSqueezeliteCommand_NullNoServer(t *testing.T) {
	p := NewSqueezelite(SqueezeliteOptions{BufferParams: "200:800"}, nil)
	rec := model.NewRecord("Test", "squeezelite", "null")

	got := p.BuildCommand(rec, "t.log")
	if contains(got, "-s") {
		t.Errorf("empty server must be omitted: %v", got)
	}
	if !contains(got, "200:800") || !contains(got, "-r") {
		t.Errorf("unexpected command %v", got)
	}
	if got[6] != MACFromName("Test") {
		t.Errorf("expected generated MAC, got %s", got[6])
	}
}

func TestSendspinCommand(t *testing.T) {
	resolve := func(device string) (int, error) {
		if device == "hw:1,0" {
			return 4, nil
		}
		return -1, errors.New("no such device")
	}
	reg := testRegistry(resolve)
	p, _ := reg.Get("sendspin")

	rec := model.NewRecord("Office", "sendspin", "hw:1,0")
	rec.ProviderConfig["server_url"] = "ws://10.0.0.2:8927/sendspin"
	rec.ProviderConfig["delay_ms"] = 40
	rec, err := reg.Prepare(context.Background(), rec)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	expected := []string{
		"sendspin", "--headless", "--name", "Office", "--id", ClientIDFromName("Office"),
		"--audio-device", "4",
		"--url", "ws://10.0.0.2:8927/sendspin",
		"--static-delay-ms", "40",
		"--log-level", "INFO",
	}
	if got := p.BuildCommand(rec, ""); !reflect.DeepEqual(got, expected) {
		t.Errorf("command = %v\nexpected %v", got, expected)
	}

	// unresolvable hardware device uses the client's default output
	rec.Device = "hw:3,0"
	rec, _ = reg.Prepare(context.Background(), rec)
	if got := p.BuildCommand(rec, ""); contains(got, "--audio-device") {
		t.Errorf("hardware device leaked into command: %v", got)
	}

	rec.Device = "USB Audio"
	if got := p.BuildCommand(rec, ""); !contains(got, "USB Audio") {
		t.Errorf("PortAudio device name should pass through: %v", got)
	}
}

func TestSnapcastCommand(t *testing.T) {
	p := NewSnapcast("", nil)

	rec := model.NewRecord("Patio", "snapcast", "hw:2,0")
	rec.ProviderConfig["server_host"] = "snapserver.lan"
	rec.ProviderConfig["latency"] = 60
	expected := []string{
		"snapclient", "--host", "snapserver.lan", "--port", "1704",
		"--soundcard", "hw:2,0", "--hostID", HostIDFromName("Patio"),
		"--latency", "60", "--logsink", "file:/logs/Patio.log",
	}
	if got := p.BuildCommand(rec, "/logs/Patio.log"); !reflect.DeepEqual(got, expected) {
		t.Errorf("command = %v\nexpected %v", got, expected)
	}

	discovery := model.NewRecord("Patio", "snapcast", "null")
	got := p.BuildCommand(discovery, "p.log")
	if contains(got, "--host") {
		t.Errorf("empty server_host must trigger discovery: %v", got)
	}
	if !contains(got, "file:filename=null") {
		t.Errorf("null device should use the file player: %v", got)
	}
}

func TestSnapcastTarget(t *testing.T) {
	rec := model.NewRecord("Patio", "snapcast", "default")
	rec.ProviderConfig["server_host"] = "10.0.0.5"
	target := SnapcastTarget(rec)
	if target.Host != "10.0.0.5" || target.Port != 1705 || target.ClientID != HostIDFromName("Patio") {
		t.Errorf("unexpected target %+v", target)
	}
}

func TestRegistryInfo(t *testing.T) {
	reg := testRegistry(nil)
	reg.lookPath = func(file string) (string, error) {
		if file == "squeezelite" {
			return "/usr/bin/squeezelite", nil
		}
		return "", errors.New("not found")
	}

	infos := reg.Info()
	if len(infos) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Available != (info.ID == "squeezelite") {
			t.Errorf("%s available = %v", info.ID, info.Available)
		}
		if len(info.Schema) == 0 {
			t.Errorf("%s has no schema", info.ID)
		}
	}
}

func TestRegistryNowPlaying(t *testing.T) {
	reg := testRegistry(nil)
	t.Cleanup(reg.Close)

	kitchen := model.NewRecord("Kitchen", "squeezelite", "hw:1,0")
	if _, err := reg.NowPlaying(kitchen); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("squeezelite now-playing: expected validation error, got %v", err)
	}

	den, err := reg.Prepare(context.Background(), model.NewRecord("Den", "sendspin", "default"))
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if _, err := reg.NowPlaying(den); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("no server_url: expected validation error, got %v", err)
	}

	den.ProviderConfig["server_url"] = "ws://127.0.0.1:1/sendspin"
	np, err := reg.NowPlaying(den)
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}
	if np.Connected || np.Playing {
		t.Errorf("unreachable server reported %+v", np)
	}

	p, _ := reg.Get("sendspin")
	metadata := p.(*Sendspin).Metadata()
	if _, ok := metadata.Lookup("Den"); !ok {
		t.Fatal("expected a metadata client for Den")
	}
	reg.Release("Den")
	if _, ok := metadata.Lookup("Den"); ok {
		t.Error("Release left the metadata client running")
	}
}
