package realtime

import "context"

// Broadcaster is the single publish surface for services: every event
// goes to the local hub and, when a bridge is configured, to peers.
type Broadcaster struct {
	hub    *Hub
	bridge *Bridge
}

// NewBroadcaster combines hub and optional bridge. A nil bridge keeps the
// service fully functional on a single instance.
func NewBroadcaster(hub *Hub, bridge *Bridge) *Broadcaster {
	return &Broadcaster{hub: hub, bridge: bridge}
}

// Room publishes into a case room.
func (b *Broadcaster) Room(ctx context.Context, caseID string, event ServerEvent) {
	b.hub.BroadcastRoom(caseID, event)
	if b.bridge != nil {
		b.bridge.PublishRoom(ctx, caseID, event)
	}
}

// Staff publishes to the global staff feed.
func (b *Broadcaster) Staff(ctx context.Context, event ServerEvent) {
	b.hub.BroadcastStaff(event)
	if b.bridge != nil {
		b.bridge.PublishStaff(ctx, event)
	}
}
