package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/observability"
)

// Hub groups live connections into per-case rooms plus a global staff
// feed. Staff dashboards receive unscoped broadcasts so unopened cases
// still update their lists; case rooms scope conversation traffic.
//
// Delivery is at-least-once per connection-session and fire-and-forget: a
// slow subscriber is evicted rather than allowed to stall the fan-out,
// and recovers via REST resync on its next connection.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]map[*Client]bool
	staff   map[*Client]bool
	clients map[*Client]bool
	metrics *observability.Metrics
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		staff:   make(map[*Client]bool),
		clients: make(map[*Client]bool),
		metrics: metrics,
		log:     log,
	}
}

// Register adds a connection. Staff connections implicitly subscribe to
// the global feed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	if c.actor.IsStaff() {
		h.staff[c] = true
	}
}

// Unregister removes a connection from every room and the global feed.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// Join subscribes the connection to a case room.
func (h *Hub) Join(caseID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	room, ok := h.rooms[caseID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[caseID] = room
	}
	room[c] = true
	c.rooms[caseID] = true
}

// Leave unsubscribes the connection from a case room.
func (h *Hub) Leave(caseID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[caseID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, caseID)
		}
	}
	delete(c.rooms, caseID)
}

// BroadcastRoom fans an event out to every connection in the case room.
func (h *Hub) BroadcastRoom(caseID string, event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("marshal server event", zap.String("event", event.Event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(h.rooms[caseID], event.Event, data)
}

// BroadcastStaff fans an event out to every staff connection.
func (h *Hub) BroadcastStaff(event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("marshal server event", zap.String("event", event.Event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(h.staff, event.Event, data)
}

// SendTo delivers an event to one connection. Used for error frames that
// must reach only the offending sender.
func (h *Hub) SendTo(c *Client, event ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		h.dropLocked(c)
	}
}

// RoomSize reports current subscribers of a case room.
func (h *Hub) RoomSize(caseID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[caseID])
}

func (h *Hub) deliverLocked(targets map[*Client]bool, event string, data []byte) {
	var evicted []*Client
	delivered := 0
	for c := range targets {
		select {
		case c.send <- data:
			delivered++
		default:
			// Full buffer means a stalled connection; drop it so the
			// remaining subscribers are not held back.
			evicted = append(evicted, c)
		}
	}
	for _, c := range evicted {
		h.log.Warn("evicting slow subscriber", zap.String("event", event))
		h.dropLocked(c)
	}
	h.metrics.RecordBroadcast(event, delivered)
}

func (h *Hub) dropLocked(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	delete(h.staff, c)
	for caseID := range c.rooms {
		if room, ok := h.rooms[caseID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, caseID)
			}
		}
	}
	c.rooms = make(map[string]bool)
	close(c.send)
}
