package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

var (
	ErrNotReady  = errors.New("observer is not open")
	ErrQueueFull = errors.New("observer send queue is full")
)

type clientState int

const (
	stateOpen clientState = iota
	stateClosing
	stateClosed
)

// Client is a WebSocket observer. Messages are queued by Send and written by
// a dedicated goroutine; frames from the peer are read only to detect close.
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger *slog.Logger
	send   chan []byte

	mu    sync.Mutex
	state clientState
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    h,
		logger: h.logger,
		send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return ErrNotReady
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages; the write pump then sends a close frame.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateOpen {
		c.state = stateClosing
		close(c.send)
	}
}

// shutdown closes the connection; the client is closed from then on.
func (c *Client) shutdown() {
	c.Close()
	c.mu.Lock()
	c.state = stateClosed
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", "observer_id", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Client-to-server messages carry no meaning; drain them.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("websocket closed unexpectedly", "observer_id", c.id, "err", err)
			}
			return
		}
	}
}

// NewUpgrader accepts any origin when allowed is empty or contains "*".
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 || slices.Contains(allowed, "*") {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		},
	}
}

// ServeWS upgrades the request and registers the connection as an observer.
func (h *Hub) ServeWS(upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written an HTTP error.
			h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "err", err)
			return
		}
		c := newClient(h, conn)
		h.Register(c)
		go c.writePump()
		go c.readPump()
	}
}
