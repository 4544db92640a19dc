package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/observability"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), observability.NewMetrics())
}

func newTestClient(hub *Hub, actor Actor, bufferSize int) *Client {
	return NewClient(hub, nil, actor, nil, bufferSize, zap.NewNop())
}

func staffActor(name string) Actor {
	return Actor{Class: domain.ActorClassStaff, Name: name, StaffID: "staff-" + name}
}

func customerActor(name, caseID string) Actor {
	return Actor{Class: domain.ActorClassCustomer, Name: name, CaseID: caseID}
}

func receiveEvent(t *testing.T, c *Client) ServerEvent {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var event ServerEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return ServerEvent{}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected event delivered: %s", data)
		}
	default:
	}
}

func TestHubRoomScoping(t *testing.T) {
	hub := newTestHub()

	inRoom := newTestClient(hub, customerActor("Jane", "case-1"), 4)
	outside := newTestClient(hub, customerActor("Bob", "case-2"), 4)
	hub.Register(inRoom)
	hub.Register(outside)
	hub.Join("case-1", inRoom)
	hub.Join("case-2", outside)

	hub.BroadcastRoom("case-1", ServerEvent{Event: EventReceiveMessage, Data: "hello"})

	event := receiveEvent(t, inRoom)
	if event.Event != EventReceiveMessage {
		t.Fatalf("expected %s, got %s", EventReceiveMessage, event.Event)
	}
	assertNoEvent(t, outside)

	hub.Leave("case-1", inRoom)
	hub.BroadcastRoom("case-1", ServerEvent{Event: EventReceiveMessage, Data: "again"})
	assertNoEvent(t, inRoom)
}

func TestHubStaffFeed(t *testing.T) {
	hub := newTestHub()

	agent := newTestClient(hub, staffActor("agent"), 4)
	customer := newTestClient(hub, customerActor("Jane", "case-1"), 4)
	hub.Register(agent)
	hub.Register(customer)

	// Staff subscribe to the global feed on registration; no join needed.
	hub.BroadcastStaff(ServerEvent{Event: EventNewChat, Data: "case"})

	event := receiveEvent(t, agent)
	if event.Event != EventNewChat {
		t.Fatalf("expected %s, got %s", EventNewChat, event.Event)
	}
	assertNoEvent(t, customer)
}

func TestHubJoinRequiresRegistration(t *testing.T) {
	hub := newTestHub()

	ghost := newTestClient(hub, customerActor("Ghost", "case-1"), 4)
	hub.Join("case-1", ghost)
	if size := hub.RoomSize("case-1"); size != 0 {
		t.Fatalf("unregistered client joined a room, size=%d", size)
	}
}

func TestHubEvictsSlowSubscriber(t *testing.T) {
	hub := newTestHub()

	slow := newTestClient(hub, customerActor("Slow", "case-1"), 1)
	healthy := newTestClient(hub, customerActor("Fast", "case-1"), 4)
	hub.Register(slow)
	hub.Register(healthy)
	hub.Join("case-1", slow)
	hub.Join("case-1", healthy)

	// First broadcast fills the slow client's buffer; the second finds it
	// full and evicts the connection.
	hub.BroadcastRoom("case-1", ServerEvent{Event: EventTyping, Data: 1})
	hub.BroadcastRoom("case-1", ServerEvent{Event: EventTyping, Data: 2})

	if size := hub.RoomSize("case-1"); size != 1 {
		t.Fatalf("expected slow client evicted, room size=%d", size)
	}
	receiveEvent(t, healthy)
	receiveEvent(t, healthy)

	// Drain the buffered frame; the channel must then report closed.
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Fatal("expected evicted client's channel to be closed")
	}
}

func TestHubSendTo(t *testing.T) {
	hub := newTestHub()

	target := newTestClient(hub, customerActor("Jane", "case-1"), 4)
	other := newTestClient(hub, customerActor("Bob", "case-1"), 4)
	hub.Register(target)
	hub.Register(other)
	hub.Join("case-1", target)
	hub.Join("case-1", other)

	hub.SendTo(target, ServerEvent{Event: EventError, Data: ErrorData{Message: "bad frame"}})

	event := receiveEvent(t, target)
	if event.Event != EventError {
		t.Fatalf("expected %s, got %s", EventError, event.Event)
	}
	assertNoEvent(t, other)

	hub.Unregister(target)
	// Must not panic or resurrect the dropped client.
	hub.SendTo(target, ServerEvent{Event: EventError, Data: ErrorData{Message: "late"}})
}

func TestHubUnregisterCleansRooms(t *testing.T) {
	hub := newTestHub()

	c := newTestClient(hub, staffActor("agent"), 4)
	hub.Register(c)
	hub.Join("case-1", c)
	hub.Unregister(c)

	if size := hub.RoomSize("case-1"); size != 0 {
		t.Fatalf("expected empty room after unregister, size=%d", size)
	}
	if _, ok := <-c.send; ok {
		t.Fatal("expected closed send channel after unregister")
	}

	// Double unregister is a no-op.
	hub.Unregister(c)
}
