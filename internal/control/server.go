// Package control serves the orchestrator over a line-oriented TCP protocol
// modelled on MPD: a greeting line, one command per line, responses of
// "key: value" lines terminated by OK or an ACK error line, command lists,
// and idle notifications fed by the liveness sweep.
package control

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/famish99/multiroomd/internal/model"
	"github.com/famish99/multiroomd/internal/player"
	"github.com/famish99/multiroomd/internal/provider"
	"github.com/famish99/multiroomd/internal/sendspin"
	"github.com/famish99/multiroomd/internal/volume"
)

// ProtocolVersion is sent in the greeting.
const ProtocolVersion = "1.0.0"

// Core is the set of orchestrator operations the server exposes.
type Core interface {
	ListPlayers() player.Listing
	Player(name string) (player.Status, error)
	AllStatuses() map[string]bool
	ListProviders() []provider.Info
	ListDevices(ctx context.Context) ([]model.AudioDevice, error)
	Create(ctx context.Context, rec model.Record) (player.Result, error)
	Update(ctx context.Context, name string, upd player.Update) (player.Result, error)
	Delete(ctx context.Context, name string) (player.Result, error)
	Start(ctx context.Context, name string) (player.Result, error)
	Stop(ctx context.Context, name string) (player.Result, error)
	GetVolume(ctx context.Context, name string) (volume.Reading, error)
	SetVolume(ctx context.Context, name string, level int) (volume.Result, error)
	MixerControls(ctx context.Context, name string) ([]string, error)
	NowPlaying(name string) (sendspin.NowPlaying, error)
}

// Server implements the control protocol.
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	core     Core
	addr     string
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger

	// Idle connection management
	idleMu     sync.RWMutex
	idleConns  map[*idleConnection]bool
	lastStatus map[string]bool
}

// NewServer creates a control server for core on addr.
func NewServer(addr string, core Core, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:      addr,
		core:      core,
		logger:    logger.Named("control"),
		idleConns: make(map[*idleConnection]bool),
	}
}

// Start listens on the configured address and serves connections in the
// background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("control server listening", zap.String("addr", listener.Addr().String()))

	go s.acceptLoop(listener)

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes the listener and cancels in-flight commands.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	s.cancel()
	return s.listener.Close()
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}

		go s.handleConnection(conn)
	}
}
