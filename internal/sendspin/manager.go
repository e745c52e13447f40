package sendspin

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ClientIDPrefix prefixes the client id a player's metadata client announces.
const ClientIDPrefix = "multiroomd-metadata-"

// Manager owns one metadata client per player.
type Manager struct {
	mu      sync.Mutex
	clients map[string]*Client
	logger  *zap.Logger

	// ReconnectDelay is applied to clients created after it is set.
	ReconnectDelay time.Duration
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		logger:         logger.Named("metadata"),
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Client returns the running client for player, starting one when needed.
// A client following a different url is replaced. An empty url yields nil.
func (m *Manager) Client(player, url string) *Client {
	if url == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[player]; ok {
		if c.URL() == url {
			return c
		}
		c.Stop()
		delete(m.clients, player)
	}

	c := NewClient(url, ClientIDPrefix+player, m.logger.With(zap.String("player", player)))
	c.ReconnectDelay = m.ReconnectDelay
	c.Start()
	m.clients[player] = c
	return c
}

// Lookup returns player's client if one exists.
func (m *Manager) Lookup(player string) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[player]
	return c, ok
}

// Remove stops and forgets player's client.
func (m *Manager) Remove(player string) {
	m.mu.Lock()
	c, ok := m.clients[player]
	delete(m.clients, player)
	m.mu.Unlock()

	if ok {
		c.Stop()
	}
}

// Close stops every client.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.Stop()
	}
}
