// Package ws pushes bot events (cycles, trades, risk trips) to connected
// WebSocket clients. The hub is a pure fan-out: the trading loop publishes
// events in-process and every connected client receives each event as one
// JSON text frame. Clients never send data upstream; their read side exists
// only to service pings and detect disconnects.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a client may stay silent before being dropped.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendBufferSize = 64
	// broadcastBuffer absorbs event bursts from the trading loop; when it is
	// full the event is dropped rather than blocking a trade cycle.
	broadcastBuffer = 256
)

// Origin checks are handled by the CORS middleware and token auth in front of
// the upgrade; the upgrader itself accepts any origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns the set of connected clients. All membership changes and fan-out
// happen on the Run goroutine, so no locking is needed.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	logger     *slog.Logger
}

// NewHub creates a Hub. Run must be started before HandleWS accepts clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBuffer),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.logger.Info("hub stopped")
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("client connected",
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("clients", len(h.clients)),
			)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("client disconnected",
					slog.String("remote_addr", c.remoteAddr),
					slog.Int("clients", len(h.clients)),
				)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// The client is not draining its queue; drop it rather
					// than letting one slow reader stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast encodes v as JSON and queues it for every connected client. It
// never blocks the caller: when the hub is saturated the event is dropped.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("event encode failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, event dropped")
	}
}

// HandleWS upgrades the HTTP request and attaches the client to the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		remoteAddr: r.RemoteAddr,
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// client is one WebSocket connection. writePump is the sole writer on the
// connection; readPump is the sole reader.
type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// readPump discards anything the client sends and unregisters on error. It
// also refreshes the read deadline on every pong.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send queue to the connection and keeps it alive with
// periodic pings. A closed send channel means the hub dropped the client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
