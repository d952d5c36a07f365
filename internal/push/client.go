package push

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

var errClientAlreadyStarted = errors.New("push: client already started")
var errClientNotStarted = errors.New("push: client not started")

// dialTimeout bounds how long the editor waits to connect to the front
// end's advertised push-channel port.
const dialTimeout = 2 * time.Second

// Client is the editor-side sender for the push channel. It dials the
// front end's ephemeral port once and keeps the connection open for the
// lifetime of the editor session, writing one newline-delimited JSON
// notification per call to Send.
type Client struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewClient builds a Client targeting the front end's advertised push
// address (host:port).
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

// Start dials the front end. Calling Start twice without an intervening
// Close returns an error.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return errClientAlreadyStarted
	}

	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("push: dial %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}

// Send encodes and writes a single notification. Safe for concurrent use.
func (c *Client) Send(n Notification) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errClientNotStarted
	}

	line, err := n.Encode()
	if err != nil {
		return fmt.Errorf("push: encode notification: %w", err)
	}
	if _, err := conn.Write(line); err != nil {
		return fmt.Errorf("push: write notification: %w", err)
	}
	return nil
}

// Close tears down the underlying connection. Safe to call more than
// once; subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("push: close connection: %w", err)
	}
	return nil
}
