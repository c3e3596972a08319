package surface

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fieldops/fleettrack/position"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// writeWait bounds a single client write; a client that cannot take a
// snapshot within it is dropped.
var writeWait = 5 * time.Second

// Hub fans render snapshots out to connected browser map clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	lastSent []byte
}

// NewHub creates an empty client hub.
func NewHub() *Hub {
	return &Hub{clients: map[*websocket.Conn]struct{}{}}
}

// HandleClient upgrades a browser connection and registers it for snapshot
// pushes. The latest snapshot is sent immediately so the map renders without
// waiting for the next state change.
func (h *Hub) HandleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	last := h.lastSent
	h.mu.Unlock()

	if last != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, last)
	}
	go h.readPump(conn)
}

// Broadcast marshals the snapshot and pushes it to every client. Write
// failures drop the client.
func (h *Hub) Broadcast(snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("snapshot marshal error: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSent = data
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) readPump(c *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		_ = c.Close()
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleGeolocation accepts the browser page's geolocation stream and routes
// decoded messages into the position bridge.
func HandleGeolocation(bridge *position.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("geolocation ws upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg position.BridgeMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("geolocation message decode error: %v", err)
				continue
			}
			bridge.Apply(msg)
		}
	}
}
