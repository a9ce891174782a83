// Package server broadcasts probe samples to websocket observers.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/swell/probes"
)

const writeWait = 2 * time.Second

// Frame is one broadcast message.
type Frame struct {
	Tick      int32           `json:"tick"`
	Time      float32         `json:"time"`
	SeaLevel  float32         `json:"sea_level"`
	Waves     int             `json:"waves"`
	Submerged int             `json:"submerged"`
	Probes    []probes.Sample `json:"probes"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage sends a websocket message guarded by the subscriber's mutex and write deadline.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	if s == nil || s.conn == nil {
		return errors.New("subscriber closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// Hub tracks connected observers. It implements http.Handler; each request
// is upgraded to a websocket that receives every broadcast frame.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*subscriber
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*subscriber),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and holds it until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &subscriber{conn: conn}
	h.mu.Unlock()
	defer h.remove(conn)

	slog.Info("observer connected", "remote", r.RemoteAddr)

	// Observers only listen; reading drives close and ping handling
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Debug("observer disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Broadcast sends frame to every client and drops the ones that fail.
// It returns the number of clients reached.
func (h *Hub) Broadcast(frame Frame) (int, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	var failed []*websocket.Conn
	sent := 0
	for conn, sub := range h.clients {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("websocket write failed", "error", err)
			conn.Close()
			failed = append(failed, conn)
			continue
		}
		sent++
	}
	h.mu.RUnlock()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	}
	return sent, nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Serve starts an HTTP server with the hub on /ws. It returns once the server
// is listening in the background; shut it down with the returned server.
func Serve(addr string, hub *Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observer server stopped", "addr", addr, "error", err)
		}
	}()
	slog.Info("observer server listening", "addr", addr, "path", "/ws")
	return srv
}
