// Package ws pushes scan reports to connected dashboard clients.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"OptionWatch/internal/domain/models"
	xlogger "OptionWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard is served from arbitrary origins in dev setups.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts each completed scan report to every connected client.
// Slow clients are disconnected rather than allowed to stall the broadcast.
type Hub struct {
	logger *xlogger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes attaches the stream endpoint.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream", h.Stream)
}

// Stream upgrades the connection and replays the latest report immediately.
func (h *Hub) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	if h.last != nil {
		cl.send <- h.last
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("stream client connected", xlogger.Int("clients", n))

	go h.writeLoop(cl)
	go h.readLoop(cl)
	return nil
}

// Broadcast fans a report out to all clients.
func (h *Hub) Broadcast(report *models.ScanReport) {
	b, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("broadcast marshal failed", xlogger.Error(err))
		return
	}

	h.mu.Lock()
	h.last = b
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			// client too slow; drop it
			delete(h.clients, cl)
			close(cl.send)
		}
	}
	h.mu.Unlock()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains and discards client frames so pings/pongs and close frames
// are processed.
func (h *Hub) readLoop(cl *client) {
	defer h.drop(cl)
	cl.conn.SetReadLimit(512)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
	_ = cl.conn.Close()
}
