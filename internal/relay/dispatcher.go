// internal/relay/dispatcher.go
package relay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/tactics-relay/internal/conn"
	"github.com/jason-s-yu/tactics-relay/internal/gate"
	"github.com/jason-s-yu/tactics-relay/internal/journal"
	"github.com/jason-s-yu/tactics-relay/internal/lobby"
	"github.com/jason-s-yu/tactics-relay/internal/metrics"
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultInboxSize is used when Options.InboxSize is not positive.
const DefaultInboxSize = 256

var ErrStopped = errors.New("relay dispatcher stopped")

// Event is anything the transport hands to the dispatcher.
type Event interface{ isEvent() }

// Connect announces a freshly accepted socket.
type Connect struct {
	Conn *conn.Connection
}

// Disconnect announces that a socket is gone for good.
type Disconnect struct {
	ConnID string
}

// Inbound carries one raw text frame read from a socket.
type Inbound struct {
	ConnID string
	Frame  []byte
}

func (Connect) isEvent()    {}
func (Disconnect) isEvent() {}
func (Inbound) isEvent()    {}

// Connections is the connection registry as seen by the dispatcher.
type Connections interface {
	Register(c *conn.Connection) error
	Deregister(id string) (*conn.Connection, bool)
	Send(id string, msg models.Message) error
	Len() int
}

// Options tunes the dispatcher. Zero values select the defaults.
type Options struct {
	InboxSize int
	// LegacyGameAction enables the unvalidated game_action peer relay.
	LegacyGameAction bool
}

// Dispatcher is the single writer of lobby state. One goroutine runs Run and
// handles every event to completion before taking the next, so the lobby
// store needs no locking.
type Dispatcher struct {
	inbox chan Event
	done  chan struct{}

	conns   Connections
	store   *lobby.Store
	gate    *gate.Gate
	journal journal.Journal
	metrics *metrics.Metrics
	logger  *logrus.Logger

	legacy bool
}

// New wires a dispatcher. journal and metrics may be nil.
func New(logger *logrus.Logger, conns Connections, store *lobby.Store, g *gate.Gate, j journal.Journal, m *metrics.Metrics, opts Options) *Dispatcher {
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	if j == nil {
		j = journal.Noop{}
	}
	return &Dispatcher{
		inbox:   make(chan Event, opts.InboxSize),
		done:    make(chan struct{}),
		conns:   conns,
		store:   store,
		gate:    g,
		journal: j,
		metrics: m,
		logger:  logger,
		legacy:  opts.LegacyGameAction,
	}
}

// Submit queues an event. It blocks while the inbox is full and fails once
// ctx is cancelled or the dispatcher has stopped.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.inbox <- ev:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the inbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	d.logger.Info("relay dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.WithField("lobbies", d.store.Len()).Info("relay dispatcher stopping")
			return ctx.Err()
		case ev := <-d.inbox:
			d.handle(ev)
		}
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) handle(ev Event) {
	switch e := ev.(type) {
	case Connect:
		d.onConnect(e.Conn)
	case Disconnect:
		d.onDisconnect(e.ConnID)
	case Inbound:
		d.onFrame(e.ConnID, e.Frame)
	}
}

func (d *Dispatcher) onConnect(c *conn.Connection) {
	if err := d.conns.Register(c); err != nil {
		d.logger.WithError(err).WithField("conn", c.ID).Warn("could not register connection")
		c.Close()
		return
	}
	if d.metrics != nil {
		d.metrics.ConnectionsOpen.Set(float64(d.conns.Len()))
		d.metrics.ConnectionsTotal.Inc()
	}
	fields := logrus.Fields{"conn": c.ID, "remote": c.RemoteAddr}
	if c.Subject != "" {
		fields["subject"] = c.Subject
	}
	d.logger.WithFields(fields).Debug("connection registered")
	d.send(c.ID, models.EventConnected, models.Connected{ConnectionID: c.ID})
}

func (d *Dispatcher) onDisconnect(connID string) {
	for _, dep := range d.store.Disconnect(connID) {
		d.notifyDeparture(dep, departureDisconnected)
	}
	if c, ok := d.conns.Deregister(connID); ok {
		d.logger.WithFields(logrus.Fields{"conn": connID, "lifetime": c.Lifetime()}).Debug("connection closed")
		c.Close()
	}
	d.syncGauges()
}

func (d *Dispatcher) onFrame(connID string, frame []byte) {
	var env models.Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Type == "" {
		d.logger.WithField("conn", connID).Debug("malformed frame")
		d.sendError(connID, "Invalid JSON format", models.ReasonInvalidPayload)
		return
	}
	if d.metrics != nil {
		d.metrics.InboundFrames.WithLabelValues(string(env.Type)).Inc()
	}

	switch env.Type {
	case models.EventCreateLobby:
		d.createLobby(connID, env.Data)
	case models.EventJoinLobby:
		d.joinLobby(connID, env.Data)
	case models.EventLeaveLobby:
		d.leaveLobby(connID, env.Data)
	case models.EventCharacterSelect:
		d.selectCharacter(connID, env.Data)
	case models.EventCommandRequest:
		d.authoritativeCommand(connID, env.Data)
	case models.EventLegacyGameAction:
		d.legacyGameAction(connID, env.Data)
	case models.EventPing:
		d.send(connID, models.EventPong, nil)
	default:
		d.logger.WithFields(logrus.Fields{"conn": connID, "type": env.Type}).Debug("unknown event type")
		d.sendError(connID, "Unknown event type", models.ReasonUnsupportedAction)
	}
}

func (d *Dispatcher) send(connID string, typ models.EventType, data any) {
	if err := d.conns.Send(connID, models.Message{Type: typ, Data: data}); err != nil {
		if d.metrics != nil {
			d.metrics.MessagesDropped.Inc()
		}
		if errors.Is(err, conn.ErrUnknownConnection) {
			d.logger.WithFields(logrus.Fields{"conn": connID, "type": typ}).Debug("recipient already gone")
		}
	}
}

func (d *Dispatcher) broadcast(connIDs []string, typ models.EventType, data any) {
	for _, id := range connIDs {
		d.send(id, typ, data)
	}
}

func (d *Dispatcher) sendError(connID, text string, code models.Reason) {
	d.send(connID, models.EventErrorMessage, models.ErrorMessage{Message: text, Code: code})
}

func (d *Dispatcher) reject(connID, action string, reason models.Reason) {
	if d.metrics != nil {
		d.metrics.CommandsRejected.WithLabelValues(string(reason)).Inc()
	}
	d.logger.WithFields(logrus.Fields{"conn": connID, "action": action, "reason": reason}).Debug("request rejected")
	d.send(connID, models.EventCommandRejected, models.CommandRejected{Action: action, Reason: reason})
}

func (d *Dispatcher) syncGauges() {
	if d.metrics == nil {
		return
	}
	d.metrics.ConnectionsOpen.Set(float64(d.conns.Len()))
	d.metrics.LobbiesLive.Set(float64(d.store.Len()))
}
