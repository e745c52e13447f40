package sendspin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultReconnectDelay is the pause after a failed or dropped connection.
	DefaultReconnectDelay = 5 * time.Second
	// DefaultPingInterval keeps idle connections alive.
	DefaultPingInterval = 30 * time.Second

	writeWait = 5 * time.Second
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type clientHello struct {
	ClientID       string   `json:"client_id"`
	SupportedRoles []string `json:"supported_roles"`
}

type serverState struct {
	Metadata *struct {
		Title      string `json:"title"`
		Artist     string `json:"artist"`
		Album      string `json:"album"`
		ArtworkURL string `json:"artwork_url"`
		Year       *int   `json:"year"`
		Track      *int   `json:"track"`
		Progress   struct {
			TrackProgress int `json:"track_progress"`
			TrackDuration int `json:"track_duration"`
		} `json:"progress"`
	} `json:"metadata"`
}

// Client keeps one metadata-role connection open to a server, reconnecting
// until stopped. It is safe for concurrent use.
type Client struct {
	url      string
	clientID string
	logger   *zap.Logger
	dialer   *websocket.Dialer

	ReconnectDelay time.Duration
	PingInterval   time.Duration

	mu        sync.Mutex
	meta      Metadata
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}
	now       func() time.Time
}

// NewClient creates a stopped client for the server at url.
func NewClient(url, clientID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		url:            url,
		clientID:       clientID,
		logger:         logger.With(zap.String("url", url)),
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ReconnectDelay: DefaultReconnectDelay,
		PingInterval:   DefaultPingInterval,
		now:            time.Now,
	}
	c.meta.UpdatedAt = c.now()
	return c
}

// URL returns the server address.
func (c *Client) URL() string {
	return c.url
}

// Start connects in the background. Starting a running client does nothing.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
	c.logger.Info("metadata client started")
}

// Stop closes the connection and waits for the background loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info("metadata client stopped")
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Metadata returns the last reported track.
func (c *Client) Metadata() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// NowPlaying returns the last reported track with the connection state.
func (c *Client) NowPlaying() NowPlaying {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NowPlaying{
		Metadata:  c.meta,
		Connected: c.connected,
		Stale:     c.meta.Stale(c.now()),
	}
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := c.session(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("metadata connection failed, reconnecting",
			zap.Duration("delay", c.ReconnectDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.ReconnectDelay):
		}
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	hello, err := json.Marshal(clientHello{ClientID: c.clientID, SupportedRoles: []string{MetadataRole}})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(envelope{Type: "client/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}
	c.setConnected(true)
	c.logger.Debug("connected")

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.ping(conn, pingDone)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		// binary frames carry artwork, which is not followed
		if kind == websocket.TextMessage {
			c.handle(data)
		}
	}
}

func (c *Client) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("invalid message", zap.Error(err))
		return
	}

	switch msg.Type {
	case "server/hello":
		c.logger.Info("server hello received", zap.ByteString("payload", msg.Payload))

	case "server/state":
		var state serverState
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			c.logger.Warn("invalid server/state payload", zap.Error(err))
			return
		}
		if state.Metadata == nil {
			return
		}
		m := state.Metadata
		c.mu.Lock()
		c.meta = Metadata{
			Title:      m.Title,
			Artist:     m.Artist,
			Album:      m.Album,
			ArtworkURL: m.ArtworkURL,
			Year:       m.Year,
			Track:      m.Track,
			ProgressMS: m.Progress.TrackProgress,
			DurationMS: m.Progress.TrackDuration,
			Playing:    true,
			UpdatedAt:  c.now(),
		}
		c.mu.Unlock()
		c.logger.Debug("metadata updated", zap.String("artist", m.Artist), zap.String("title", m.Title))

	case "stream/start":
		c.logger.Debug("stream started")

	case "stream/end":
		c.mu.Lock()
		c.meta = Metadata{UpdatedAt: c.now()}
		c.mu.Unlock()
		c.logger.Debug("stream ended")
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
