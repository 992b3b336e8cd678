package notifiers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"weather-telemetry-service/internal/logging"
	"weather-telemetry-service/internal/models"
)

// Hub broadcasts finalized alerts to connected dashboard clients. It is both
// a Notifier and the handler behind GET /ws.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]bool
	logger  *logging.Logger
	upgrade websocket.Upgrader
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
		upgrade: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards connect from other origins; auth is handled upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Name() string { return "websocket" }

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Infof("Websocket client connected (%d total)", n)

	// Drain reads to detect disconnects; clients never send payloads we use.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// Notify broadcasts the alert to every connected client. Dead connections
// are dropped; an empty room is a successful no-op.
func (h *Hub) Notify(ctx context.Context, alert models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warnf("Dropping websocket client: %v", err)
			h.drop(c)
		}
	}
	return nil
}

// Close disconnects all clients, for shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
	h.conns = make(map[*websocket.Conn]bool)
}
