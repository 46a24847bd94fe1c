package channel

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/Gulshan36/QuickRides/internal/observability"
)

// Frame is the JSON envelope every published event is wrapped in.
type Frame struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Hub is the in-process Registry implementation. It is constructed once at
// service start, injected where needed, and closed at shutdown.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[Party]map[Endpoint]bool
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[Party]map[Endpoint]bool)}
}

var _ Registry = (*Hub)(nil)

// Bind makes e the only endpoint of the party, replacing any previous ones.
func (h *Hub) Bind(p Party, e Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.rooms[p] = map[Endpoint]bool{e: true}
}

// Join adds e to the party without displacing others.
func (h *Hub) Join(p Party, e Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.rooms[p] == nil {
		h.rooms[p] = make(map[Endpoint]bool)
	}
	h.rooms[p][e] = true
}

// Leave removes e from the party.
func (h *Hub) Leave(p Party, e Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[p]; ok {
		delete(room, e)
		if len(room) == 0 {
			delete(h.rooms, p)
		}
	}
}

// Drop removes e from every party. Called when an endpoint disconnects;
// ride state is never touched here, the party simply stops receiving until
// a new endpoint binds.
func (h *Hub) Drop(e Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p, room := range h.rooms {
		if room[e] {
			delete(room, e)
			if len(room) == 0 {
				delete(h.rooms, p)
			}
		}
	}
}

// Publish delivers the event to every endpoint of the party, best effort.
// Endpoints whose buffers are full have the frame dropped; that is counted,
// not raised.
func (h *Hub) Publish(p Party, event string, data any) int {
	frame, err := json.Marshal(Frame{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Printf("channel: marshal %s for %s: %v", event, p, err)
		return 0
	}

	h.mu.RLock()
	endpoints := make([]Endpoint, 0, len(h.rooms[p]))
	for e := range h.rooms[p] {
		endpoints = append(endpoints, e)
	}
	h.mu.RUnlock()

	if len(endpoints) == 0 {
		observability.UndeliveredPublishes.WithLabelValues(event).Inc()
		return 0
	}

	delivered := 0
	for _, e := range endpoints {
		if e.Queue(frame) {
			delivered++
		} else {
			observability.UndeliveredPublishes.WithLabelValues(event).Inc()
		}
	}
	return delivered
}

// Close detaches every endpoint. Further binds are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.rooms = make(map[Party]map[Endpoint]bool)
}
