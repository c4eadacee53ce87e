package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"mamarr/internal/models"
	"mamarr/internal/utils"
)

// EventHub fans job updates out to websocket subscribers. Slow or dead
// connections are dropped rather than allowed to block the broadcast.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *utils.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API key middleware already gates this endpoint
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewEventHub(logger *utils.Logger) *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Broadcast pushes one job snapshot to every subscriber.
func (h *EventHub) Broadcast(job models.DownloadJob) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(map[string]interface{}{
			"type": "job_update",
			"job":  job,
		}); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleWS upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Events: websocket upgrade failed:", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("Events: websocket client connected")

	go func() {
		// drain until the client disconnects
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		h.logger.Debug("Events: websocket client disconnected")
	}()
}

// ClientCount reports the number of live subscribers.
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
