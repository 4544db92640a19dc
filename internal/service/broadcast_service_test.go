package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/realtime"
)

// ============================================================================
// Recording broadcaster
// ============================================================================

type sentEvent struct {
	caseID string
	event  realtime.ServerEvent
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	room  []sentEvent
	staff []realtime.ServerEvent
}

func (r *recordingBroadcaster) Room(_ context.Context, caseID string, event realtime.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = append(r.room, sentEvent{caseID: caseID, event: event})
}

func (r *recordingBroadcaster) Staff(_ context.Context, event realtime.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff = append(r.staff, event)
}

func (r *recordingBroadcaster) roomEvents(caseID string) []realtime.ServerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []realtime.ServerEvent
	for _, sent := range r.room {
		if sent.caseID == caseID {
			result = append(result, sent.event)
		}
	}
	return result
}

func (r *recordingBroadcaster) staffEvents() []realtime.ServerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]realtime.ServerEvent, len(r.staff))
	copy(result, r.staff)
	return result
}

func newBroadcastFixture() (events.Dispatcher, *recordingBroadcaster) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingBroadcaster{}
	NewBroadcastService(dispatcher, sink, zap.NewNop()).RegisterHandlers()
	return dispatcher, sink
}

// ============================================================================
// Fan-out targets
// ============================================================================

func TestBroadcastSeenReachesRoomAndStaff(t *testing.T) {
	dispatcher, sink := newBroadcastFixture()
	ctx := context.Background()

	err := dispatcher.Publish(ctx, events.Event{
		Type:   events.EventCaseSeen,
		CaseID: "case-1",
		Payload: events.CaseSeenPayload{
			Viewer:  domain.ActorClassStaff,
			Flipped: 2,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	room := sink.roomEvents("case-1")
	if len(room) != 1 || room[0].Event != realtime.EventSeen {
		t.Fatalf("expected one seen event in the case room, got %v", room)
	}

	// Staff consoles without the case open still track unseen badges, so
	// the decrement must ride the global feed too.
	staff := sink.staffEvents()
	if len(staff) != 1 || staff[0].Event != realtime.EventSeen {
		t.Fatalf("expected the seen event on the staff feed, got %v", staff)
	}
}

func TestBroadcastCaseCreatedStaffOnly(t *testing.T) {
	dispatcher, sink := newBroadcastFixture()
	ctx := context.Background()

	err := dispatcher.Publish(ctx, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: "case-1",
		Payload: events.CaseCreatedPayload{
			Case: domain.SupportCase{ID: "case-1", Status: domain.CaseStatusOpen},
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if room := sink.roomEvents("case-1"); len(room) != 0 {
		t.Fatalf("nobody can be in the room of a brand new case, got %v", room)
	}
	staff := sink.staffEvents()
	if len(staff) != 1 || staff[0].Event != realtime.EventNewChat {
		t.Fatalf("expected newChat on the staff feed, got %v", staff)
	}
}

func TestBroadcastMessageAppendedReachesRoomAndStaff(t *testing.T) {
	dispatcher, sink := newBroadcastFixture()
	ctx := context.Background()

	msg := domain.CaseMessage{ID: "msg-1", CaseID: "case-1", Position: 1, Body: "hello"}
	err := dispatcher.Publish(ctx, events.Event{
		Type:   events.EventMessageAppended,
		CaseID: "case-1",
		Payload: events.MessageAppendedPayload{
			Detail: domain.CaseDetail{
				Case:         domain.SupportCase{ID: "case-1", Status: domain.CaseStatusOpen},
				Conversation: []domain.CaseMessage{msg},
			},
			Message: msg,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	room := sink.roomEvents("case-1")
	if len(room) != 1 || room[0].Event != realtime.EventReceiveMessage {
		t.Fatalf("expected receiveMessage in the case room, got %v", room)
	}
	staff := sink.staffEvents()
	if len(staff) != 1 || staff[0].Event != realtime.EventReceiveMessage {
		t.Fatalf("expected receiveMessage on the staff feed, got %v", staff)
	}
}

func TestBroadcastIgnoresMismatchedPayload(t *testing.T) {
	dispatcher, sink := newBroadcastFixture()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventCaseSeen,
		CaseID:  "case-1",
		Payload: "not a seen payload",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(sink.roomEvents("case-1")) != 0 || len(sink.staffEvents()) != 0 {
		t.Fatal("mismatched payload must not fan out")
	}
}
