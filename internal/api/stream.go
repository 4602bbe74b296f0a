package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	clientBacklog  = 16
	maxStreamConns = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is read-only telemetry on an internal surface
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans live alerts out to connected websocket clients. It doubles
// as an AlertSink, so delivery goes through the same dispatcher path as
// the webhook and log sinks. A slow client is disconnected, never
// buffered without bound.
type Hub struct {
	log zerolog.Logger

	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan contracts.AlertMessage
	clients    map[*streamClient]struct{}
	done       chan struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan contracts.AlertMessage
}

// NewHub creates the stream hub. Call Run before serving.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "api.stream").Logger(),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan contracts.AlertMessage, 64),
		clients:    make(map[*streamClient]struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client set; it exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			// Unblocks pumps still parked on register/unregister
			close(h.done)
			return

		case c := <-h.register:
			if len(h.clients) >= maxStreamConns {
				h.log.Warn().Msg("stream connection limit reached, client rejected")
				close(c.send)
				continue
			}
			h.clients[c] = struct{}{}
			h.log.Debug().Int("clients", len(h.clients)).Msg("stream client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client cannot keep up; drop it
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Name implements contracts.AlertSink.
func (h *Hub) Name() string { return "stream" }

// Send implements contracts.AlertSink. Broadcasting to zero clients is
// a successful no-op; a full broadcast buffer drops the message rather
// than stall the dispatcher.
func (h *Hub) Send(_ context.Context, msg contracts.AlertMessage) error {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("symbol", msg.Symbol).Msg("stream broadcast buffer full, message dropped")
	}
	return nil
}

// Serve upgrades the connection and attaches it to the hub.
// GET /api/stream
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &streamClient{conn: conn, send: make(chan contracts.AlertMessage, clientBacklog)}
	if !h.attach(c) {
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// attach hands the client to Run; false means the hub already shut down.
func (h *Hub) attach(c *streamClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// detach hands the client back to Run. Safe after shutdown: once Run
// has exited nobody drains unregister, so the done channel takes over.
func (h *Hub) detach(c *streamClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// writePump pushes alerts and keepalive pings to one client.
func (h *Hub) writePump(c *streamClient) {
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
			if err := c.conn.WriteJSON(msg); err != nil {
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

// readPump discards client frames and detects disconnects.
func (h *Hub) readPump(c *streamClient) {
	defer func() {
		h.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
