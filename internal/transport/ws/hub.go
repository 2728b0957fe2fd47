// Package ws streams live collection snapshots to WebSocket clients.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mindlab/cardshop/internal/logging"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Frame is one snapshot sent to a client.
type Frame struct {
	State string `json:"state"`
	Items any    `json:"items"`
	Error string `json:"error,omitempty"`
}

type Source interface {
	Subscribe(fn func(Frame)) (cancel func())
}

type viewSource[T store.Entity] struct {
	view *syncer.LiveView[T]
}

// FromView adapts a live view into a frame source.
func FromView[T store.Entity](v *syncer.LiveView[T]) Source {
	return viewSource[T]{view: v}
}

func (s viewSource[T]) Subscribe(fn func(Frame)) func() {
	return s.view.Subscribe(func(v syncer.View[T]) {
		fn(Frame{State: string(v.State), Items: v.Items, Error: v.Message()})
	})
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	sources map[string]Source
	clients int
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sources: make(map[string]Source),
	}
}

func (h *Hub) Add(name string, src Source) {
	h.mu.Lock()
	h.sources[name] = src
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

func (h *Hub) track(delta int) {
	h.mu.Lock()
	h.clients += delta
	h.mu.Unlock()
}

// Handle upgrades GET /api/live/:collection and streams frames until the
// client goes away.
func (h *Hub) Handle(c echo.Context) error {
	name := c.Param("collection")
	l := logging.FromContext(c.Request().Context()).With("handler", "live", "collection", name)

	h.mu.RLock()
	src, ok := h.sources[name]
	h.mu.RUnlock()
	if !ok {
		l.Warn("live_error", "status", 404, "reason", "unknown collection")
		return echo.NewHTTPError(http.StatusNotFound, "unknown collection")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		l.Warn("live_error", "status", 400, "reason", "upgrade failed", "error", err)
		return nil
	}
	h.track(1)
	defer h.track(-1)
	l.Info("live_connected")

	serve(conn, src, l)
	l.Info("live_disconnected")
	return nil
}

func serve(conn *websocket.Conn, src Source, l *slog.Logger) {
	defer conn.Close()

	// newest frame wins; a slow client never blocks the view
	frames := make(chan Frame, 1)
	var sendMu sync.Mutex
	cancel := src.Subscribe(func(f Frame) {
		sendMu.Lock()
		defer sendMu.Unlock()
		select {
		case <-frames:
		default:
		}
		frames <- f
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case f := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				l.Debug("live_write_error", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
