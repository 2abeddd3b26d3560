// Package preview streams annotated camera frames to browsers over
// websockets while a sampling run is in progress.
package preview

import (
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/justestif/go-moodify/internal/vision"
)

const (
	// DefaultQuality is the JPEG quality used for preview frames.
	DefaultQuality = 70

	writeWait  = 2 * time.Second
	sendBuffer = 2
)

// clearMessage tells the page to hide the preview.
var clearMessage = []byte(`{"type":"clear"}`)

type message struct {
	kind    int
	payload []byte
}

type client struct {
	conn *websocket.Conn
	send chan message
}

// Hub fans frames out to every connected viewer. Viewers that fall behind
// lose frames rather than slowing down sampling.
type Hub struct {
	quality  int
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(h *Hub) {
		if q > 0 && q <= 100 {
			h.quality = q
		}
	}
}

// WithLogger sets the hub's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a Hub with no viewers.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		quality: DefaultQuality,
		logger:  slog.Default(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Render encodes frame as JPEG and sends it to every viewer. It does nothing
// when nobody is watching.
func (h *Hub) Render(frame image.Image) {
	if h.Viewers() == 0 {
		return
	}
	data, err := vision.EncodeJPEG(frame, h.quality)
	if err != nil {
		h.logger.Warn("encoding preview frame", "error", err)
		return
	}
	h.broadcast(message{kind: websocket.BinaryMessage, payload: data})
}

// Clear tells viewers the run has ended.
func (h *Hub) Clear() {
	h.broadcast(message{kind: websocket.TextMessage, payload: clearMessage})
}

func (h *Hub) broadcast(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		offer(c.send, msg)
	}
}

// offer queues msg, evicting the oldest queued message if the buffer is full.
func offer(ch chan message, msg message) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// ServeHTTP upgrades the request and keeps the viewer registered until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("preview upgrade failed", "error", err)
		return
	}

	// The HTTP server's read timeout still applies to the hijacked conn.
	_ = conn.SetReadDeadline(time.Time{})

	c := &client{conn: conn, send: make(chan message, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()

	// Viewers never send anything; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	<-done
	_ = conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(msg.kind, msg.payload); err != nil {
			h.logger.Debug("preview write failed", "error", err)
			_ = c.conn.Close()
			// Drain until the reader notices the closed connection.
			for range c.send {
			}
			return
		}
	}
}
