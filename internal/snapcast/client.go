// Package snapcast talks to a Snapcast server's JSON-RPC control port, which
// owns the authoritative volume of every synchronized-multiroom client.
package snapcast

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultControlPort is the server's TCP JSON-RPC port.
const DefaultControlPort = 1705

const defaultDialTimeout = 3 * time.Second

// Volume is a client's volume as the server reports it.
type Volume struct {
	Muted   bool `json:"muted"`
	Percent int  `json:"percent"`
}

// ClientStatus is the subset of Client.GetStatus the core uses.
type ClientStatus struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
	Config    struct {
		Name    string `json:"name"`
		Latency int    `json:"latency"`
		Volume  Volume `json:"volume"`
	} `json:"config"`
	Host struct {
		Name string `json:"name"`
		IP   string `json:"ip"`
		MAC  string `json:"mac"`
	} `json:"host"`
}

// RPCError is an error object returned by the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("snapserver error %d: %s", e.Code, e.Message)
}

type request struct {
	ID      string `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Client issues one request per connection. The server pushes notifications
// on the same socket, so lines without our request id are skipped.
type Client struct {
	addr        string
	DialTimeout time.Duration
}

// NewClient creates a client for host:port.
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultControlPort
	}
	return &Client{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		DialTimeout: defaultDialTimeout,
	}
}

// Addr returns the control endpoint.
func (c *Client) Addr() string {
	return c.addr
}

// Call sends method with params and decodes the result into out (if non-nil).
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	dialer := net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(c.DialTimeout))
	}

	req := request{
		ID:      uuid.NewString(),
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", method, err)
	}
	if _, err := conn.Write(append(payload, '\r', '\n')); err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read %s response: %w", method, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var resp response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return fmt.Errorf("invalid response from %s: %w", c.addr, err)
		}
		if !sameID(resp.ID, req.ID) {
			// notification or someone else's reply
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("invalid %s result: %w", method, err)
		}
		return nil
	}
}

// ClientStatus fetches one client's status.
func (c *Client) ClientStatus(ctx context.Context, id string) (*ClientStatus, error) {
	var result struct {
		Client *ClientStatus `json:"client"`
	}
	if err := c.Call(ctx, "Client.GetStatus", map[string]any{"id": id}, &result); err != nil {
		return nil, err
	}
	if result.Client == nil {
		return nil, errors.New("Client.GetStatus returned no client")
	}
	return result.Client, nil
}

// SetClientVolume sets a client's volume and returns what the server applied.
func (c *Client) SetClientVolume(ctx context.Context, id string, v Volume) (Volume, error) {
	var result struct {
		Volume Volume `json:"volume"`
	}
	params := map[string]any{"id": id, "volume": v}
	if err := c.Call(ctx, "Client.SetVolume", params, &result); err != nil {
		return Volume{}, err
	}
	return result.Volume, nil
}

func sameID(raw json.RawMessage, id string) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == id
}
