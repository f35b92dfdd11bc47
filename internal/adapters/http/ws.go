package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/issacompass/promptloop/internal/ports"
)

// wsEnvelope is the binary frame pushed to dashboard clients. msgpack keeps
// high-frequency iteration events compact.
type wsEnvelope struct {
	Type  string              `msgpack:"type" json:"type"`
	RunID string              `msgpack:"runId" json:"runId"`
	Event ports.ProgressEvent `msgpack:"event" json:"event"`
}

// Hub broadcasts run progress to connected WebSocket clients. It implements
// ports.ProgressBroadcaster; the progress publisher feeds it every event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	upgrader websocket.Upgrader
}

var _ ports.ProgressBroadcaster = (*Hub)(nil)

// NewHub creates a broadcast hub. allowedOrigins behaves like the CORS
// middleware: empty or "*" allows everything.
func NewHub(allowedOrigins []string) *Hub {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	h := &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// HandleWS handles GET /ws. Clients receive every run's progress events;
// inbound messages are ignored.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
	slog.Info("websocket client connected", "remote", conn.RemoteAddr())

	defer func() {
		h.remove(conn)
		conn.Close()
		slog.Info("websocket client disconnected", "remote", conn.RemoteAddr())
	}()

	// Read loop exists only to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastRunProgress pushes one progress event to every connected client.
// A client that fails its write is dropped.
func (h *Hub) BroadcastRunProgress(runID string, event ports.ProgressEvent) {
	data, err := msgpack.Marshal(wsEnvelope{
		Type:  "run_progress",
		RunID: runID,
		Event: event,
	})
	if err != nil {
		slog.Error("websocket encode failed", "error", err)
		return
	}

	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteMessage(websocket.BinaryMessage, data)
		mu.Unlock()
		if err != nil {
			h.remove(conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
