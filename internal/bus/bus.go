package bus

import (
	"encoding/json"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Event is one pipeline notification pushed to every connected client.
type Event struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Hub broadcasts pipeline events over websocket to overlay UIs and other
// listeners. Slow or dead clients are dropped, never waited on.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish broadcasts one event. Never blocks on a client.
func (h *Hub) Publish(kind string, payload map[string]any) {
	data, err := json.Marshal(Event{Kind: kind, Payload: payload, At: time.Now()})
	if err != nil {
		log.Warn("marshal event", "kind", kind, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug("dropping bus client", "err", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Info("bus client connected", "clients", n)

	// drain and discard client frames; the bus is one-way
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				if h.clients[conn] {
					conn.Close()
					delete(h.clients, conn)
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ListenAndServe exposes the hub at /ws on addr. Blocks.
func (h *Hub) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	log.Info("event bus listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
