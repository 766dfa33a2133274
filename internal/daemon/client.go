package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// Client talks to a running daemon over its Unix socket, used by the CLI
// commands and by tests that exercise the control surface end to end.
type Client struct {
	socketPath string
	authToken  string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient builds a Client for cfg.
func NewClient(cfg Config) *Client {
	return &Client{socketPath: cfg.SocketPath, authToken: cfg.AuthToken, timeout: cfg.Timeout}
}

// Connect dials the daemon's socket.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, daemonerr.New(daemonerr.InvalidState, "failed to connect to daemon", err)
	}
	return conn, nil
}

// IsRunning reports whether the daemon is accepting connections and
// answers ping.
func (c *Client) IsRunning() bool {
	conn, err := c.Connect()
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	var result PingResult
	return c.Call(context.Background(), conn, MethodPing, nil, &result) == nil && result.Pong
}

// Call sends a single RPC and decodes its result into out (which may be
// nil to discard the result).
func (c *Client) Call(ctx context.Context, conn net.Conn, method string, params any, out any) error {
	req := Request{JSONRPC: "2.0", Method: method, Params: params, ID: c.nextID(), AuthToken: c.authToken}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to set deadline", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to send request", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to receive response", err)
	}
	if resp.Error != nil {
		return daemonerr.New(daemonerr.InvalidState, resp.Error.Message, nil)
	}
	if out == nil || resp.Result == nil {
		return nil
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to marshal result", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to decode result", err)
	}
	return nil
}

// CallNew dials a fresh connection, issues one RPC, and closes it — the
// shape every one-shot CLI command uses.
func (c *Client) CallNew(ctx context.Context, method string, params any, out any) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()
	return c.Call(ctx, conn, method, params, out)
}

func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.requestID.Add(1))
}
