// Package ws fans committed update events out to viewers connected per
// project. The ingestion path hands events to a buffered queue and moves
// on; a dedicated goroutine drains the queue and writes to sockets, so a
// slow viewer never blocks message processing.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

const eventQueueSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}

	events chan domain.UpdateEvent
	done   chan struct{}
}

func NewHub() *Hub {
	h := &Hub{
		conns:  make(map[string]map[*websocket.Conn]struct{}),
		events: make(chan domain.UpdateEvent, eventQueueSize),
		done:   make(chan struct{}),
	}
	go h.run()
	return h
}

// Notify queues an event for broadcast. When the queue is full the event
// is dropped with a warning: delivery is best-effort and must never block
// or fail the committed write that produced it.
func (h *Hub) Notify(event domain.UpdateEvent) {
	select {
	case h.events <- event:
	default:
		log.WithField("project_id", event.ProjectID).Warn("event queue full, dropping update event")
	}
}

func (h *Hub) run() {
	for {
		select {
		case event := <-h.events:
			h.broadcast(event)
		case <-h.done:
			return
		}
	}
}

// Serve upgrades an HTTP request and keeps the connection registered until
// the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.register(projectID, conn)

	go func() {
		defer func() {
			h.unregister(projectID, conn)
			conn.Close()
		}()
		for {
			// Viewers only listen; reads just detect disconnects.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) register(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[projectID] == nil {
		h.conns[projectID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[projectID][conn] = struct{}{}
	log.WithField("project_id", projectID).Infof("viewer connected, total: %d", len(h.conns[projectID]))
}

func (h *Hub) unregister(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[projectID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, projectID)
		}
	}
	log.WithField("project_id", projectID).Info("viewer disconnected")
}

func (h *Hub) broadcast(event domain.UpdateEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns[event.ProjectID]))
	for conn := range h.conns[event.ProjectID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			log.Warnf("broadcast to viewer failed, dropping connection: %v", err)
			h.unregister(event.ProjectID, conn)
			conn.Close()
		}
	}
}

func (h *Hub) Close() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.conns {
		for conn := range set {
			conn.Close()
		}
	}
	h.conns = make(map[string]map[*websocket.Conn]struct{})
}
