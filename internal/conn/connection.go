// internal/conn/connection.go
package conn

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tactics-relay/internal/models"
)

// Connection is the process-wide handle for one live socket. The relay only
// ever talks to a client through Write; the transport drains OutChan.
type Connection struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	// Subject is the verified token subject, empty when upgrade auth is off.
	Subject string

	// OutChan is drained by the socket's write pump. It is closed by Close.
	OutChan chan models.Message

	cancel func()

	mu     sync.Mutex
	closed bool
}

// NewConnection allocates a handle with a fresh identity. cancel, if non-nil,
// is invoked on Close to stop the transport goroutines.
func NewConnection(remoteAddr string, outboxSize int, cancel func()) *Connection {
	if outboxSize <= 0 {
		outboxSize = 1
	}
	return &Connection{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		OutChan:     make(chan models.Message, outboxSize),
		cancel:      cancel,
	}
}

// Write pushes a message onto OutChan without blocking. It returns false if
// the connection is closed or its outbox is full, in which case the message is dropped.
func (c *Connection) Write(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.OutChan <- msg:
		return true
	default:
		return false
	}
}

// Lifetime reports how long the connection has been open.
func (c *Connection) Lifetime() time.Duration {
	return time.Since(c.ConnectedAt)
}

// Close marks the connection closed, closes OutChan and cancels the transport.
// It is safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.OutChan)
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
