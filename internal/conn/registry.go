// internal/conn/registry.go
package conn

import (
	"errors"
	"sync"

	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrUnknownConnection   = errors.New("connection not registered")
	ErrOutboxFull          = errors.New("connection outbox closed or full")
)

// Registry tracks live connections by identity.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	logger *logrus.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		logger: logger,
	}
}

// Register adds c under its ID.
func (r *Registry) Register(c *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.ID]; exists {
		return ErrDuplicateConnection
	}
	r.conns[c.ID] = c
	return nil
}

// Deregister removes the connection and returns it. The caller decides whether to Close it.
func (r *Registry) Deregister(id string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return c, ok
}

// Get looks up a connection by identity.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Send delivers msg to one connection without blocking. A closed or saturated
// connection drops the message and yields ErrOutboxFull.
func (r *Registry) Send(id string, msg models.Message) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrUnknownConnection
	}
	if !c.Write(msg) {
		r.logger.WithFields(logrus.Fields{
			"conn": id,
			"type": msg.Type,
		}).Warn("outbox closed or full, dropped message")
		return ErrOutboxFull
	}
	return nil
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes and forgets every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for id, c := range r.conns {
		conns = append(conns, c)
		delete(r.conns, id)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
