package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/api/dto"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/presence"
	"github.com/spec-kit/support-chat-service/internal/realtime"
)

// SocketGateway adapts inbound socket frames to case operations. It is
// the realtime.Handler given to every connection, so the socket path and
// the REST path converge on the same CaseService semantics.
type SocketGateway struct {
	cases       *CaseService
	typing      *presence.TypingTracker
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewSocketGateway constructs the gateway.
func NewSocketGateway(cases *CaseService, typing *presence.TypingTracker, broadcaster Broadcaster, logger *zap.Logger) *SocketGateway {
	return &SocketGateway{
		cases:       cases,
		typing:      typing,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// OnSendMessage appends a message on behalf of the connection owner.
func (g *SocketGateway) OnSendMessage(ctx context.Context, actor realtime.Actor, frame realtime.SendMessageFrame) error {
	input := MessageInput{
		CaseID:      frame.CaseID,
		AuthorClass: actor.Class,
		AuthorName:  actor.Name,
		Body:        frame.Body,
		SentAt:      frame.SentAt,
	}
	if _, _, err := g.cases.AppendMessage(ctx, input); err != nil {
		return err
	}
	// Sending a message ends the sender's typing signal.
	if g.typing.Stop(frame.CaseID, actor.Name) {
		g.broadcastTyping(ctx, realtime.EventStopTyping, frame.CaseID, actor.Name)
	}
	return nil
}

// OnCloseCase closes a case from the socket path.
func (g *SocketGateway) OnCloseCase(ctx context.Context, actor realtime.Actor, frame realtime.CloseCaseFrame) error {
	eventActor := events.Actor{Class: actor.Class, Name: actor.Name}
	if actor.StaffID != "" {
		staffID := actor.StaffID
		eventActor.StaffID = &staffID
	}
	_, err := g.cases.CloseCase(ctx, CloseInput{
		CaseID:   frame.CaseID,
		ClosedBy: actor.Name,
		Actor:    eventActor,
		Rating:   frame.Rating,
	})
	return err
}

// OnMarkSeen acknowledges counterpart messages for the viewer's class.
// Called when a client selects a case, and automatically by clients for
// the conversation they have open.
func (g *SocketGateway) OnMarkSeen(ctx context.Context, actor realtime.Actor, frame realtime.RoomFrame) error {
	_, err := g.cases.MarkSeen(ctx, frame.CaseID, actor.Class, actor.Name)
	return err
}

// OnTyping records a typing signal and relays it to the case room.
func (g *SocketGateway) OnTyping(actor realtime.Actor, frame realtime.TypingFrame) {
	name := frame.ActorName
	if name == "" {
		name = actor.Name
	}
	g.typing.Start(domain.TypingSignal{
		CaseID:     frame.CaseID,
		ActorName:  name,
		ActorClass: actor.Class,
	})
	g.broadcastTyping(context.Background(), realtime.EventTyping, frame.CaseID, name)
}

// OnStopTyping clears a typing signal. Redundant stops are swallowed.
func (g *SocketGateway) OnStopTyping(actor realtime.Actor, frame realtime.TypingFrame) {
	name := frame.ActorName
	if name == "" {
		name = actor.Name
	}
	if g.typing.Stop(frame.CaseID, name) {
		g.broadcastTyping(context.Background(), realtime.EventStopTyping, frame.CaseID, name)
	}
}

// OnTypingExpired is wired as the tracker's expiry callback so a crashed
// client cannot leave a permanent typing indicator.
func (g *SocketGateway) OnTypingExpired(signal domain.TypingSignal) {
	g.logger.Debug("typing signal expired",
		zap.String("case_id", signal.CaseID),
		zap.String("actor", signal.ActorName))
	g.broadcastTyping(context.Background(), realtime.EventStopTyping, signal.CaseID, signal.ActorName)
}

func (g *SocketGateway) broadcastTyping(ctx context.Context, event, caseID, actorName string) {
	g.broadcaster.Room(ctx, caseID, realtime.ServerEvent{
		Event: event,
		Data:  dto.TypingPayload{CaseID: caseID, ActorName: actorName},
	})
}
