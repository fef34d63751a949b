package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"photosync-backend/internal/operations"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 45 * time.Second
)

// OperationsHandler serves the operation registry: point-in-time snapshots
// over plain JSON and live updates over a websocket.
type OperationsHandler struct {
	hub      *operations.Hub
	upgrader websocket.Upgrader
}

func NewOperationsHandler(hub *operations.Hub, allowedOrigins []string) *OperationsHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &OperationsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

// List returns a snapshot of every live operation.
// GET /api/operations
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ops := h.hub.GetAll()
	if ops == nil {
		ops = []operations.Operation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
}

// Get returns a single operation by id.
// GET /api/operations/{id}
func (h *OperationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	op, ok := h.hub.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation not found"})
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// Remove drops a terminal operation from the registry.
// DELETE /api/operations/{id}
func (h *OperationsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.hub.Remove(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// Stream upgrades to a websocket, sends the current snapshot, then relays
// hub events until the client goes away.
// GET /api/operations/stream
func (h *OperationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Operations] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, events, cancel := h.hub.Subscribe()
	defer cancel()

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(map[string]interface{}{"type": "snapshot", "operations": snapshot}); err != nil {
		return
	}

	// Reader goroutine exists only to surface close frames and pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
