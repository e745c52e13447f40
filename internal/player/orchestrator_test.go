package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/famish99/multiroomd/internal/device"
	"github.com/famish99/multiroomd/internal/errdefs"
	"github.com/famish99/multiroomd/internal/execx"
	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/provider"
	"github.com/famish99/multiroomd/internal/store"
	"github.com/famish99/multiroomd/internal/supervisor"
	"github.com/famish99/multiroomd/internal/volume"
)

// recordingMixer fails every control except the working ones and counts
// calls.
type recordingMixer struct {
	mu      sync.Mutex
	working map[string]bool
	calls   int
	sets    []string
}

func (m *recordingMixer) Run(_ context.Context, _ string, args ...string) (execx.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(args) >= 4 && m.working[args[3]] {
		if args[2] == "sset" {
			m.sets = append(m.sets, args[4])
		}
		return execx.Output{Stdout: []byte("Mono: Playback 40 [50%] [on]\n")}, nil
	}
	return execx.Output{}, &execx.ExitError{Command: "amixer", ExitCode: 1}
}

func (m *recordingMixer) lastSet() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sets) == 0 {
		return ""
	}
	return m.sets[len(m.sets)-1]
}

func (m *recordingMixer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fixture struct {
	o     *Orchestrator
	store *store.Store
	state *store.StateFile
	mixer *recordingMixer
	dir   string
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFixture(t *testing.T, squeezeliteBody string) *fixture {
	t.Helper()
	dir := t.TempDir()

	if squeezeliteBody == "" {
		squeezeliteBody = "exec sleep 30"
	}
	squeezelite := writeScript(t, dir, "squeezelite", squeezeliteBody)
	sendspin := writeScript(t, dir, "sendspin", `echo "no audio backend" >&2; exit 2`)

	mixer := &recordingMixer{working: map[string]bool{"PCM": true}}
	mixerBackend := volume.NewMixer(mixer, nil)
	reg := provider.NewRegistry(
		provider.NewSqueezelite(provider.SqueezeliteOptions{Binary: squeezelite}, mixerBackend),
		provider.NewSendspin(sendspin, mixerBackend, nil, nil),
		provider.NewSnapcast(squeezelite, nil),
	)

	st := store.New(filepath.Join(dir, "config", "players.yaml"), reg.Validate, nil)
	state := store.NewStateFile(filepath.Join(dir, "state.yaml"))
	sup := supervisor.New(supervisor.Options{LogDir: filepath.Join(dir, "logs"), StartGrace: 100 * time.Millisecond}, nil)
	aplay := execx.RunnerFunc(func(context.Context, string, ...string) (execx.Output, error) {
		return execx.Output{}, errdefs.ErrToolUnavailable
	})

	o := New(Deps{
		Registry:   reg,
		Store:      st,
		State:      state,
		Supervisor: sup,
		Devices:    device.NewInventory(aplay, nil),
	}, Options{
		StopTimeout:   2 * time.Second,
		SweepInterval: 20 * time.Millisecond,
		PushTimeout:   50 * time.Millisecond,
		NullFallback:  true,
	}, nil)
	t.Cleanup(o.Shutdown)

	return &fixture{o: o, store: st, state: state, mixer: mixer, dir: dir}
}

// breakStore makes every later players file write fail by putting a regular
// file where its directory should be.
func breakStore(t *testing.T, f *fixture) {
	t.Helper()
	configDir := filepath.Join(f.dir, "config")
	if err := os.RemoveAll(configDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestKitchenScenario(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rec, ok := f.store.Get("Kitchen")
	if !ok {
		t.Fatal("Kitchen not persisted")
	}
	if rec.ProviderConfig["mac_address"] != provider.MACFromName("Kitchen") {
		t.Errorf("expected generated MAC, got %v", rec.ProviderConfig["mac_address"])
	}

	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !f.o.AllStatuses()["Kitchen"] {
		t.Fatal("expected Kitchen running")
	}

	if _, err := f.o.Stop(ctx, "Kitchen"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if running, ok := f.o.AllStatuses()["Kitchen"]; !ok || running {
		t.Errorf("expected Kitchen listed as stopped, got %v, %v", running, ok)
	}
}

func TestCreateDuplicate(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0")); err != nil {
		t.Fatal(err)
	}
	_, err := f.o.Create(ctx, model.NewRecord("Kitchen", "snapcast", "null"))
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Provider != "squeezelite" || rec.Device != "hw:1,0" {
		t.Errorf("first record changed: %+v", rec)
	}
}

func TestCreateInvalid(t *testing.T) {
	f := newFixture(t, "")
	rec := model.NewRecord("Office", "sendspin", "default")
	rec.ProviderConfig["server_url"] = "http://nope"

	if _, err := f.o.Create(context.Background(), rec); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.store.Has("Office") {
		t.Error("invalid record persisted")
	}
}

func TestCreateAutostartFailureKeepsRecord(t *testing.T) {
	f := newFixture(t, "")
	rec := model.NewRecord("Office", "sendspin", "default")
	rec.Autostart = true

	res, err := f.o.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.Contains(res.Detail, "autostart failed") || !strings.Contains(res.Detail, "no audio backend") {
		t.Errorf("detail should report the failed start: %q", res.Detail)
	}
	if !f.store.Has("Office") || f.o.IsRunning("Office") {
		t.Error("expected Office persisted and stopped")
	}
}

func TestSetVolume(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))

	res, err := f.o.SetVolume(ctx, "Kitchen", 65)
	if err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if res.Control != "PCM" {
		t.Errorf("expected PCM control, got %q", res.Control)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Volume != 65 {
		t.Errorf("stored volume = %d, expected 65", rec.Volume)
	}

	for _, level := range []int{0, 100} {
		if _, err := f.o.SetVolume(ctx, "Kitchen", level); err != nil {
			t.Errorf("SetVolume(%d) failed: %v", level, err)
		}
	}
}

func TestSetVolume_OutOfRange(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))

	for _, level := range []int{150, -5} {
		if _, err := f.o.SetVolume(ctx, "Kitchen", level); !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("SetVolume(%d) = %v, expected validation error", level, err)
		}
	}
	if n := f.mixer.count(); n != 0 {
		t.Errorf("mixer called %d times for rejected levels", n)
	}
}

func TestSetVolume_NoControlKeepsStored(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	f.mixer.mu.Lock()
	f.mixer.working = map[string]bool{}
	f.mixer.mu.Unlock()

	_, err := f.o.SetVolume(ctx, "Kitchen", 20)
	if !errors.Is(err, errdefs.ErrVolumeControl) {
		t.Fatalf("expected ErrVolumeControl, got %v", err)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Volume != model.DefaultVolume {
		t.Errorf("stored volume changed to %d", rec.Volume)
	}
}

func TestGetVolume(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))

	reading, err := f.o.GetVolume(ctx, "Kitchen")
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if reading.Level != 50 || reading.Control != "PCM" {
		t.Errorf("unexpected reading %+v", reading)
	}

	if _, err := f.o.GetVolume(ctx, "Nobody"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRunning(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.o.Delete(ctx, "Kitchen"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if f.o.IsRunning("Kitchen") {
		t.Error("expected process stopped")
	}
	if _, ok := f.o.ListPlayers().Players["Kitchen"]; ok {
		t.Error("expected Kitchen removed")
	}
	if _, err := f.o.Delete(ctx, "Kitchen"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "null"))

	for i := 0; i < 2; i++ {
		if _, err := f.o.Stop(ctx, "Kitchen"); err != nil {
			t.Fatalf("Stop %d failed: %v", i, err)
		}
	}
}

func TestRenameRunning(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	f.o.Create(ctx, model.NewRecord("Patio", "squeezelite", "null"))
	f.o.Start(ctx, "Kitchen")

	taken := "Patio"
	if _, err := f.o.Update(ctx, "Kitchen", Update{Name: &taken}); !errors.Is(err, errdefs.ErrAlreadyExists) {
		t.Fatalf("expected rename onto Patio to fail, got %v", err)
	}
	if !f.o.IsRunning("Kitchen") {
		t.Fatal("failed rename must leave Kitchen running")
	}

	newName := "Dining"
	if _, err := f.o.Update(ctx, "Kitchen", Update{Name: &newName}); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if f.o.IsRunning("Kitchen") || !f.o.IsRunning("Dining") {
		t.Errorf("expected Dining running and Kitchen gone: %v", f.o.AllStatuses())
	}
	if f.store.Has("Kitchen") || !f.store.Has("Dining") {
		t.Error("rename not persisted")
	}
}

func TestUpdateRestartsOnCommandChange(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	f.o.Start(ctx, "Kitchen")
	before, _ := f.o.Player("Kitchen")

	vol := 30
	if _, err := f.o.Update(ctx, "Kitchen", Update{Volume: &vol}); err != nil {
		t.Fatal(err)
	}
	same, _ := f.o.Player("Kitchen")
	if same.Process.PID != before.Process.PID {
		t.Error("volume-only update should not restart the player")
	}

	dev := "hw:2,0"
	if _, err := f.o.Update(ctx, "Kitchen", Update{Device: &dev}); err != nil {
		t.Fatal(err)
	}
	after, _ := f.o.Player("Kitchen")
	if !after.Running || after.Process.PID == before.Process.PID {
		t.Errorf("device change should restart the player: %+v", after)
	}
}

func TestNullDeviceFallback(t *testing.T) {
	f := newFixture(t, `for a; do [ "$a" = null ] && exec sleep 30; done
echo "failed to open output device" >&2
exit 1`)
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Garage", "squeezelite", "hw:5,0"))

	res, err := f.o.Start(ctx, "Garage")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !strings.Contains(res.Detail, "null device") {
		t.Errorf("detail should mention the fallback: %q", res.Detail)
	}
	if !f.o.IsRunning("Garage") {
		t.Error("expected Garage running on the null device")
	}
}

func TestStartDisabled(t *testing.T) {
	f := newFixture(t, "")
	rec := model.NewRecord("Kitchen", "squeezelite", "null")
	rec.Enabled = false
	f.o.Create(context.Background(), rec)

	if _, err := f.o.Start(context.Background(), "Kitchen"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	auto := model.NewRecord("Auto", "squeezelite", "null")
	auto.Autostart = true
	f.store.Create(auto)
	f.store.Create(model.NewRecord("Remembered", "squeezelite", "null"))
	f.store.Create(model.NewRecord("Idle", "squeezelite", "null"))

	if err := f.state.Save([]string{"Remembered", "Deleted"}); err != nil {
		t.Fatal(err)
	}

	started := f.o.Restore(ctx)
	if strings.Join(started, ",") != "Auto,Remembered" {
		t.Errorf("restored %v, expected Auto and Remembered", started)
	}
	if f.o.IsRunning("Idle") {
		t.Error("Idle should not be started")
	}
}

func TestSweepPushes(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "null"))
	f.o.Start(ctx, "Kitchen")

	pushes := make(chan map[string]bool, 100)
	notifier := NotifierFunc(func(ctx context.Context, statuses map[string]bool) error {
		select {
		case pushes <- statuses:
		default:
		}
		return nil
	})

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.o.RunSweep(sweepCtx, notifier)

	select {
	case st := <-pushes:
		if !st["Kitchen"] {
			t.Errorf("expected Kitchen running in push, got %v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status pushed")
	}
}

func TestSweepSurvivesSlowNotifier(t *testing.T) {
	f := newFixture(t, "")

	var mu sync.Mutex
	calls := 0
	slow := NotifierFunc(func(ctx context.Context, _ map[string]bool) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		f.o.RunSweep(ctx, slow)
		close(finished)
	}()

	time.Sleep(400 * time.Millisecond)
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls < 3 {
		t.Errorf("expected repeated pushes despite timeouts, got %d", calls)
	}
}

func TestNameLocks(t *testing.T) {
	locks := newNameLocks()
	unlock := locks.lock("b", "a", "a")

	acquired := make(chan struct{})
	go func() {
		u := locks.lock("a")
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock on a should block while held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a not released")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Errorf("expected no lingering locks, got %d", len(locks.locks))
	}
}

func TestRenameCrashedClearsOldName(t *testing.T) {
	f := newFixture(t, "exec sleep 0.4")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(700 * time.Millisecond)
	if running, ok := f.o.AllStatuses()["Kitchen"]; !ok || running {
		t.Fatalf("expected Kitchen crashed, got %v, %v", running, ok)
	}

	newName := "Dining"
	if _, err := f.o.Update(ctx, "Kitchen", Update{Name: &newName}); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	statuses := f.o.AllStatuses()
	if _, ok := statuses["Kitchen"]; ok {
		t.Errorf("old name still listed: %v", statuses)
	}
	if running, ok := statuses["Dining"]; !ok || running {
		t.Errorf("expected Dining listed as stopped: %v", statuses)
	}
	if _, err := f.o.Stop(ctx, "Kitchen"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("Stop of the old name: expected ErrNotFound, got %v", err)
	}
}

func TestDisableRunningStops(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatal(err)
	}

	disabled := false
	res, err := f.o.Update(ctx, "Kitchen", Update{Enabled: &disabled})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if f.o.IsRunning("Kitchen") {
		t.Error("disabled player is still running")
	}
	if !strings.Contains(res.Detail, "stopped") {
		t.Errorf("detail does not mention the stop: %q", res.Detail)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Enabled {
		t.Error("disable not persisted")
	}
	if names, err := f.state.Load(time.Minute); err != nil || len(names) != 0 {
		t.Errorf("state file still lists %v (%v)", names, err)
	}
}

func TestUpdatePersistenceFailureRestarts(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatal(err)
	}
	breakStore(t, f)

	dev := "hw:2,0"
	if _, err := f.o.Update(ctx, "Kitchen", Update{Device: &dev}); !errors.Is(err, errdefs.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !f.o.IsRunning("Kitchen") {
		t.Error("Kitchen not restarted after the failed update")
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Device != "hw:1,0" {
		t.Errorf("device changed to %s", rec.Device)
	}
}

func TestDeletePersistenceFailureRestarts(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.Start(ctx, "Kitchen"); err != nil {
		t.Fatal(err)
	}
	breakStore(t, f)

	if _, err := f.o.Delete(ctx, "Kitchen"); !errors.Is(err, errdefs.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !f.o.IsRunning("Kitchen") {
		t.Error("Kitchen not restarted after the failed delete")
	}
	if !f.store.Has("Kitchen") {
		t.Error("Kitchen removed despite the failed write")
	}
}

func TestSetVolumePersistenceFailureRestoresLevel(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	if _, err := f.o.SetVolume(ctx, "Kitchen", 75); err != nil {
		t.Fatal(err)
	}
	breakStore(t, f)

	if _, err := f.o.SetVolume(ctx, "Kitchen", 30); !errors.Is(err, errdefs.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if got := f.mixer.lastSet(); got != "75%" {
		t.Errorf("last mixer write = %q, expected the previous 75%%", got)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Volume != 75 {
		t.Errorf("stored volume = %d, expected 75", rec.Volume)
	}
}

func TestUpdateRejectedLeavesRecord(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))

	vol := 130
	if _, err := f.o.Update(ctx, "Kitchen", Update{Volume: &vol}); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rec, _ := f.store.Get("Kitchen"); rec.Volume != model.DefaultVolume {
		t.Errorf("volume changed to %d", rec.Volume)
	}
}

func TestMixerControls(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	f.o.Create(ctx, model.NewRecord("Patio", "snapcast", "default"))

	controls, err := f.o.MixerControls(ctx, "Kitchen")
	if err != nil {
		t.Fatalf("MixerControls failed: %v", err)
	}
	if strings.Join(controls, ",") != strings.Join(volume.DefaultControls, ",") {
		t.Errorf("controls = %v, expected the defaults", controls)
	}

	if _, err := f.o.MixerControls(ctx, "Patio"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("remote player: expected validation error, got %v", err)
	}
	if _, err := f.o.MixerControls(ctx, "Nobody"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNowPlaying(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.o.Create(ctx, model.NewRecord("Kitchen", "squeezelite", "hw:1,0"))
	den := model.NewRecord("Den", "sendspin", "default")
	den.ProviderConfig = map[string]any{"server_url": "ws://127.0.0.1:1/sendspin"}
	if _, err := f.o.Create(ctx, den); err != nil {
		t.Fatal(err)
	}

	np, err := f.o.NowPlaying("Den")
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}
	if np.Connected || np.Playing {
		t.Errorf("unreachable server reported %+v", np)
	}

	if _, err := f.o.NowPlaying("Kitchen"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("squeezelite player: expected validation error, got %v", err)
	}
	if _, err := f.o.NowPlaying("Nobody"); !errors.Is(err, errdefs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
