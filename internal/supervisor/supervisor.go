// Package supervisor owns the player processes running on this host.
//
// Each player name maps to at most one handle. A handle is registered only
// once its process has survived the start grace window and is removed when
// the process is stopped. Liveness is read from the process itself, so a
// player that exits on its own shows as not running without a stop call.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/famish99/multiroomd/internal/errdefs"
)

const (
	DefaultStopTimeout = 5 * time.Second
	DefaultKillTimeout = 2 * time.Second
	DefaultStartGrace  = 500 * time.Millisecond

	logTailBytes = 2048
)

// Options configures a Supervisor.
type Options struct {
	LogDir      string
	StartGrace  time.Duration
	KillTimeout time.Duration
}

// Info is a snapshot of a registered process.
type Info struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	LogPath   string    `json:"log_path"`
	Command   []string  `json:"command"`
	State     State     `json:"state"`
}

// StopResult describes how a stop ended.
type StopResult struct {
	Forced bool
	Detail string
}

type handle struct {
	name      string
	command   []string
	logPath   string
	startedAt time.Time
	cmd       *exec.Cmd

	stopping atomic.Bool
	done     chan struct{}
	exitErr  error // valid once done is closed
}

func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Supervisor starts, stops and polls player processes.
type Supervisor struct {
	mu          sync.Mutex
	handles     map[string]*handle
	transitions map[string]State // Starting or Stopping while in progress

	opts   Options
	logger *zap.Logger
}

// New creates a Supervisor.
func New(opts Options, logger *zap.Logger) *Supervisor {
	if opts.StartGrace <= 0 {
		opts.StartGrace = DefaultStartGrace
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = DefaultKillTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		handles:     make(map[string]*handle),
		transitions: make(map[string]State),
		opts:        opts,
		logger:      logger.Named("supervisor"),
	}
}

// LogPath returns where a player's output is appended.
func (s *Supervisor) LogPath(name string) string {
	return filepath.Join(s.opts.LogDir, name+".log")
}

// Start launches command for name. It fails if the player is already
// running, if the process cannot be started, or if it exits within the
// start grace window; in those cases nothing is registered.
func (s *Supervisor) Start(ctx context.Context, name string, command []string) (Info, error) {
	if len(command) == 0 {
		return Info{}, &errdefs.LaunchError{Player: name, Err: errors.New("empty command")}
	}

	s.mu.Lock()
	if h, ok := s.handles[name]; ok && !h.exited() {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s (pid %d)", errdefs.ErrAlreadyRunning, name, h.cmd.Process.Pid)
	}
	if st, busy := s.transitions[name]; busy {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s is %s", errdefs.ErrAlreadyRunning, name, st)
	}
	delete(s.handles, name)
	s.transitions[name] = Starting
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.transitions, name)
		s.mu.Unlock()
	}()

	logPath := s.LogPath(name)
	logFile, offset, err := openLog(logPath, command)
	if err != nil {
		return Info{}, &errdefs.LaunchError{Player: name, Command: command, Err: err}
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", errdefs.ErrToolUnavailable, err)
		}
		s.logger.Error("failed to launch player", zap.String("player", name), zap.Strings("command", command), zap.Error(err))
		return Info{}, &errdefs.LaunchError{Player: name, Command: command, Err: err}
	}

	h := &handle{
		name:      name,
		command:   command,
		logPath:   logPath,
		startedAt: time.Now(),
		cmd:       cmd,
		done:      make(chan struct{}),
	}
	go s.wait(h, logFile)

	grace := time.NewTimer(s.opts.StartGrace)
	defer grace.Stop()

	select {
	case <-h.done:
		output := readTail(logPath, offset, logTailBytes)
		s.logger.Error("player exited during startup",
			zap.String("player", name),
			zap.Strings("command", command),
			zap.Error(h.exitErr),
			zap.String("output", output))
		err := h.exitErr
		if err == nil {
			err = errors.New("exited immediately")
		}
		return Info{}, &errdefs.LaunchError{Player: name, Command: command, Output: output, Err: err}

	case <-ctx.Done():
		h.stopping.Store(true)
		kill(cmd)
		<-h.done
		return Info{}, &errdefs.LaunchError{Player: name, Command: command, Err: ctx.Err()}

	case <-grace.C:
	}

	s.mu.Lock()
	s.handles[name] = h
	s.mu.Unlock()

	s.logger.Info("player started",
		zap.String("player", name),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("log", logPath))
	return h.info(Running), nil
}

func (s *Supervisor) wait(h *handle, logFile *os.File) {
	err := h.cmd.Wait()
	logFile.Close()
	h.exitErr = err
	close(h.done)

	if !h.stopping.Load() {
		s.logger.Warn("player process exited",
			zap.String("player", h.name),
			zap.Int("pid", h.cmd.Process.Pid),
			zap.Error(err))
	}
}

// Stop terminates name's process: SIGTERM to its process group, then
// SIGKILL once timeout passes. Stopping a player that is not running
// succeeds.
func (s *Supervisor) Stop(name string, timeout time.Duration) (StopResult, error) {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	s.mu.Lock()
	h, ok := s.handles[name]
	if !ok {
		s.mu.Unlock()
		return StopResult{Detail: fmt.Sprintf("%s is not running", name)}, nil
	}
	s.transitions[name] = Stopping
	s.mu.Unlock()

	res, err := s.stop(h, timeout)

	s.mu.Lock()
	delete(s.transitions, name)
	if err == nil && s.handles[name] == h {
		delete(s.handles, name)
	}
	s.mu.Unlock()
	return res, err
}

func (s *Supervisor) stop(h *handle, timeout time.Duration) (StopResult, error) {
	pid := h.cmd.Process.Pid
	if h.exited() {
		return StopResult{Detail: fmt.Sprintf("%s had already exited (%v)", h.name, exitReason(h.exitErr))}, nil
	}

	h.stopping.Store(true)
	if err := terminate(h.cmd); err != nil {
		s.logger.Warn("failed to send terminate signal", zap.String("player", h.name), zap.Int("pid", pid), zap.Error(err))
	}

	select {
	case <-h.done:
		s.logger.Info("player stopped", zap.String("player", h.name), zap.Int("pid", pid))
		return StopResult{Detail: fmt.Sprintf("%s stopped", h.name)}, nil
	case <-time.After(timeout):
	}

	s.logger.Warn("player did not stop in time, killing",
		zap.String("player", h.name),
		zap.Int("pid", pid),
		zap.Duration("timeout", timeout),
		zap.Error(errdefs.ErrStopTimeout))
	if err := kill(h.cmd); err != nil {
		s.logger.Warn("failed to send kill signal", zap.String("player", h.name), zap.Int("pid", pid), zap.Error(err))
	}

	select {
	case <-h.done:
		return StopResult{
			Forced: true,
			Detail: fmt.Sprintf("%s did not exit within %s and was killed", h.name, timeout),
		}, nil
	case <-time.After(s.opts.KillTimeout):
	}

	s.logger.Error("player survived kill", zap.String("player", h.name), zap.Int("pid", pid))
	return StopResult{}, &errdefs.StopError{
		Player: h.name,
		PID:    pid,
		Kind:   errdefs.ErrStopFailure,
		Err:    fmt.Errorf("still alive %s after kill", s.opts.KillTimeout),
	}
}

// IsRunning polls name's process.
func (s *Supervisor) IsRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[name]
	return ok && !h.exited()
}

// Status returns name's lifecycle state.
func (s *Supervisor) Status(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(name)
}

func (s *Supervisor) statusLocked(name string) State {
	if st, ok := s.transitions[name]; ok {
		return st
	}
	h, ok := s.handles[name]
	switch {
	case !ok:
		return Stopped
	case h.exited():
		return Crashed
	default:
		return Running
	}
}

// AllStatuses reports liveness of every tracked player.
func (s *Supervisor) AllStatuses() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[string]bool, len(s.handles))
	for name, h := range s.handles {
		statuses[name] = !h.exited()
	}
	return statuses
}

// Running returns the names of live players, sorted.
func (s *Supervisor) Running() []string {
	var names []string
	for name, alive := range s.AllStatuses() {
		if alive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Info returns a snapshot of name's process, if one is registered.
func (s *Supervisor) Info(name string) (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[name]
	if !ok {
		return Info{}, false
	}
	return h.info(s.statusLocked(name)), true
}

// Cleanup stops every tracked process concurrently. Failures are logged.
func (s *Supervisor) Cleanup(timeout time.Duration) {
	s.mu.Lock()
	names := make([]string, 0, len(s.handles))
	for name := range s.handles {
		names = append(names, name)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, name := range names {
		name := name
		g.Go(func() error {
			if _, err := s.Stop(name, timeout); err != nil {
				s.logger.Error("cleanup failed to stop player", zap.String("player", name), zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()

	if len(names) > 0 {
		s.logger.Info("all players stopped", zap.Int("count", len(names)))
	}
}

func (h *handle) info(state State) Info {
	return Info{
		Name:      h.name,
		PID:       h.cmd.Process.Pid,
		StartedAt: h.startedAt,
		LogPath:   h.logPath,
		Command:   append([]string(nil), h.command...),
		State:     state,
	}
}

// openLog opens the player log for appending and writes a start marker.
// The returned offset is where this run's output begins.
func openLog(path string, command []string) (*os.File, int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, 0, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open log file: %w", err)
	}
	fmt.Fprintf(f, "--- %s starting: %s\n", time.Now().Format(time.RFC3339), strings.Join(command, " "))

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat log file: %w", err)
	}
	return f, info.Size(), nil
}

// readTail returns at most limit bytes written to path after offset.
func readTail(path string, offset int64, limit int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	if info.Size()-offset > limit {
		offset = info.Size() - limit
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(f, limit))
	return strings.TrimSpace(string(data))
}

func exitReason(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
