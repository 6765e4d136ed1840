// Package wsfeed pushes board snapshots and change events to websocket clients.
package wsfeed

import (
	"io"
	"net/http"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/evanschultz/vboard/internal/adapters/server/common"
)

// Connection timing defaults.
const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	defaultBuffer    = 32
)

// Options configures the websocket feed.
type Options struct {
	Logger *charmLog.Logger
	// CheckOrigin overrides the upgrader origin check. Nil accepts any origin.
	CheckOrigin  func(*http.Request) bool
	PingInterval time.Duration
	PongWait     time.Duration
	Buffer       int
}

// Handler upgrades requests and streams board events until the client leaves.
type Handler struct {
	feed         common.BoardFeed
	upgrader     websocket.Upgrader
	logger       *charmLog.Logger
	pingInterval time.Duration
	pongWait     time.Duration
	buffer       int

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	conns   sync.WaitGroup
}

// NewHandler constructs one websocket feed over feed.
func NewHandler(feed common.BoardFeed, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = charmLog.New(io.Discard)
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongWait {
		opts.PingInterval = (opts.PongWait * 9) / 10
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Handler{
		feed:         feed,
		upgrader:     websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
		logger:       opts.Logger,
		pingInterval: opts.PingInterval,
		pongWait:     opts.PongWait,
		buffer:       opts.Buffer,
		closing:      make(chan struct{}),
	}
}

// Close asks every open connection to finish and waits for them. Hijacked
// connections are not tracked by http.Server.Shutdown, so callers run this
// alongside it.
func (h *Handler) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.closing)
	}
	h.mu.Unlock()
	h.conns.Wait()
}

// ServeHTTP upgrades one request, sends the current board, then streams events.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feed == nil {
		http.Error(w, "board feed unavailable", http.StatusServiceUnavailable)
		return
	}
	if !h.track() {
		http.Error(w, "board feed shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.conns.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// Subscribe before the snapshot so no change between the two is lost.
	events, cancel := h.feed.Subscribe(h.buffer)
	defer cancel()

	snapshot, err := h.feed.SnapshotEvent(r.Context())
	if err != nil {
		h.logger.Error("build board snapshot failed", "err", err)
		h.writeClose(conn, websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	if err := h.writeJSON(conn, snapshot); err != nil {
		h.logger.Debug("write board snapshot failed", "err", err)
		return
	}
	h.logger.Debug("board feed client connected", "remote", r.RemoteAddr)

	gone := h.readLoop(conn)
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.closing:
			h.writeClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case <-gone:
			h.logger.Debug("board feed client disconnected", "remote", r.RemoteAddr)
			return
		case event, ok := <-events:
			if !ok {
				h.writeClose(conn, websocket.CloseNormalClosure, "")
				return
			}
			if event.Seq <= snapshot.Seq {
				// Already reflected in the snapshot.
				continue
			}
			if err := h.writeJSON(conn, event); err != nil {
				h.logger.Debug("write board event failed", "err", err, "event_id", event.EventID)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteWait)); err != nil {
				h.logger.Debug("websocket ping failed", "err", err)
				return
			}
		}
	}
}

// track registers one connection unless the handler is closed.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns.Add(1)
	return true
}

// readLoop drains client frames so control messages are processed. The
// returned channel closes when the client goes away. The feed is push-only;
// client data frames are ignored.
func (h *Handler) readLoop(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return gone
}

// writeJSON writes one JSON message under the write deadline.
func (h *Handler) writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// writeClose sends a best-effort close frame.
func (h *Handler) writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(defaultWriteWait))
}
