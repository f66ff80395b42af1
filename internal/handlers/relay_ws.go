// internal/handlers/relay_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tactics-relay/internal/conn"
	"github.com/jason-s-yu/tactics-relay/internal/middleware"
	"github.com/jason-s-yu/tactics-relay/internal/relay"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol negotiated with relay clients.
const Subprotocol = "relay"

// WSConfig tunes a relay socket. Zero values select the defaults.
type WSConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	ReadLimit    int64
}

func (c WSConfig) withDefaults() WSConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = 32
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	return c
}

// submitTimeout bounds how long a closing socket waits to report its departure.
const submitTimeout = 5 * time.Second

// RelayWSHandler upgrades the request and bridges the socket to the dispatcher.
// Every frame read is handed over as a relay.Inbound; the dispatcher answers
// through the connection's outbox, which the write pump drains.
func RelayWSHandler(logger *logrus.Logger, d *relay.Dispatcher, cfg WSConfig) http.HandlerFunc {
	cfg = cfg.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		// clients that offer no subprotocol are still welcome
		if r.Header.Get("Sec-WebSocket-Protocol") != "" && c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the relay subprotocol")
			return
		}
		c.SetReadLimit(cfg.ReadLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		rc := conn.NewConnection(remoteAddr, cfg.OutboxSize, cancel)
		rc.Subject, _ = middleware.SubjectFrom(r.Context())
		if err := d.Submit(ctx, relay.Connect{Conn: rc}); err != nil {
			c.Close(RelayUnavailableError, "relay is shutting down")
			return
		}
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		go writePump(ctx, c, rc, logger, cfg)
		readErr := readPump(ctx, c, d, rc, logger)

		// ---- Cleanup after readPump exits ----
		submitCtx, submitCancel := context.WithTimeout(context.Background(), submitTimeout)
		if err := d.Submit(submitCtx, relay.Disconnect{ConnID: rc.ID}); err != nil && !errors.Is(err, relay.ErrStopped) {
			logger.WithError(err).WithField("conn", rc.ID).Warn("could not report disconnect")
		}
		submitCancel()
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// readPump forwards text frames to the dispatcher until the socket closes.
// It returns nil for a normal closure.
func readPump(ctx context.Context, c *websocket.Conn, d *relay.Dispatcher, rc *conn.Connection, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.WithField("conn", rc.ID).Warnf("received non-text message type %d, ignoring", typ)
			continue
		}

		if err := d.Submit(ctx, relay.Inbound{ConnID: rc.ID, Frame: msg}); err != nil {
			return err
		}
	}
}

// writePump drains the outbox onto the socket and pings on an interval.
func writePump(ctx context.Context, c *websocket.Conn, rc *conn.Connection, logger *logrus.Logger, cfg WSConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-rc.OutChan:
			if !ok {
				// the dispatcher closed the outbox
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.WithField("conn", rc.ID).Warnf("failed to marshal outgoing %s: %v", msg.Type, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithField("conn", rc.ID).Warnf("failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout*3)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithField("conn", rc.ID).Warnf("failed to send ping: %v, assuming disconnect", err)
				return
			}
		}
	}
}
