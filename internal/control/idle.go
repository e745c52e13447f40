package control

import (
	"context"
	"maps"

	"go.uber.org/zap"
)

// SubsystemPlayer is reported when any player's liveness changes.
const SubsystemPlayer = "player"

// idleConnection represents a connection waiting in idle mode
type idleConnection struct {
	subsystems map[string]bool // empty watches everything
	notify     chan string
}

func (s *Server) registerIdle(idle *idleConnection) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	s.idleConns[idle] = true
	s.logger.Debug("idle connection registered", zap.Int("total", len(s.idleConns)))
}

func (s *Server) unregisterIdle(idle *idleConnection) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	delete(s.idleConns, idle)
	s.logger.Debug("idle connection unregistered", zap.Int("total", len(s.idleConns)))
}

// PushStatus receives the liveness sweep's result and wakes idle clients
// when it differs from the previous one. It never blocks on a client.
func (s *Server) PushStatus(_ context.Context, statuses map[string]bool) error {
	s.idleMu.Lock()
	changed := !maps.Equal(s.lastStatus, statuses)
	if changed {
		s.lastStatus = maps.Clone(statuses)
	}
	s.idleMu.Unlock()

	if changed {
		s.NotifySubsystemChange(SubsystemPlayer)
	}
	return nil
}

// NotifySubsystemChange notifies all idle connections about a subsystem
// change.
func (s *Server) NotifySubsystemChange(subsystem string) {
	s.idleMu.RLock()
	defer s.idleMu.RUnlock()

	for idle := range s.idleConns {
		if len(idle.subsystems) == 0 || idle.subsystems[subsystem] {
			select {
			case idle.notify <- subsystem:
			default:
				s.logger.Debug("idle notification channel full")
			}
		}
	}
}
