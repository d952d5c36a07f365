package bridge

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// unnamedClient is the placeholder display name a connection carries until
// the peer identifies itself via the client-identity notification.
const unnamedClient = "unknown"

var connIDCounter uint64

// connection is one live TCP peer held by the bridge server. endpoint is its
// unique key in the server's connection map.
type connection struct {
	id          uint64
	endpoint    string
	remoteAddr  string
	conn        net.Conn
	connectedAt time.Time

	mu   sync.Mutex
	name string

	closeOnce sync.Once
	closed    bool
}

func newConnection(endpoint string, conn net.Conn) *connection {
	return &connection{
		id:          atomic.AddUint64(&connIDCounter, 1),
		endpoint:    endpoint,
		remoteAddr:  conn.RemoteAddr().String(),
		conn:        conn,
		connectedAt: time.Now(),
		name:        unnamedClient,
	}
}

// Name returns the connection's current display name.
func (c *connection) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// setName replaces the display name once the peer identifies itself,
// preserving ConnectedAt.
func (c *connection) setName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// write frames and writes data to the connection. Safe to call concurrently
// with close, but not with another write: the bridge server serializes
// writes to a given connection through its owning handler, except for
// broadcast, which takes its own path and tolerates interleaving at the
// kernel socket level.
func (c *connection) write(framed []byte) error {
	_, err := c.conn.Write(framed)
	return err
}

// close shuts down the connection's underlying socket exactly once.
func (c *connection) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ClientInfo is the read-only snapshot of a connection exposed by
// ConnectedClients.
type ClientInfo struct {
	ID          uint64    `json:"id"`
	Endpoint    string    `json:"endpoint"`
	RemoteAddr  string    `json:"remote_addr"`
	Name        string    `json:"name"`
	ConnectedAt time.Time `json:"connected_at"`
}
