package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bridge replays broadcasts across service instances through Redis
// pub/sub, so a staff console connected to one instance observes cases
// mutated through another. Envelopes are tagged with the emitting
// instance so an instance never re-delivers its own broadcasts.
type Bridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	log     *zap.Logger
}

type bridgeEnvelope struct {
	Origin string      `json:"origin"`
	CaseID string      `json:"case_id,omitempty"`
	Staff  bool        `json:"staff,omitempty"`
	Event  ServerEvent `json:"event"`
}

// NewBridge wires the bridge to a Redis client and the local hub.
func NewBridge(client *redis.Client, channel string, hub *Hub, log *zap.Logger) *Bridge {
	return &Bridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		log:     log,
	}
}

// PublishRoom forwards a room broadcast to peer instances. Fire and
// forget: a publish failure only degrades cross-instance delivery, which
// clients recover from via REST resync.
func (b *Bridge) PublishRoom(ctx context.Context, caseID string, event ServerEvent) {
	b.publish(ctx, bridgeEnvelope{Origin: b.origin, CaseID: caseID, Event: event})
}

// PublishStaff forwards a staff-feed broadcast to peer instances.
func (b *Bridge) PublishStaff(ctx context.Context, event ServerEvent) {
	b.publish(ctx, bridgeEnvelope{Origin: b.origin, Staff: true, Event: event})
}

func (b *Bridge) publish(ctx context.Context, env bridgeEnvelope) {
	if b == nil || b.client == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Warn("bridge publish failed", zap.Error(err))
	}
}

// Run subscribes to the bridge channel and replays peer broadcasts into
// the local hub until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("bridge envelope decode failed", zap.Error(err))
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			if env.Staff {
				b.hub.BroadcastStaff(env.Event)
			}
			if env.CaseID != "" {
				b.hub.BroadcastRoom(env.CaseID, env.Event)
			}
		}
	}
}
