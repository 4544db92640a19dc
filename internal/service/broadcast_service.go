package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/api/dto"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/realtime"
)

// Broadcaster is the socket fan-out surface the services publish through.
type Broadcaster interface {
	Room(ctx context.Context, caseID string, event realtime.ServerEvent)
	Staff(ctx context.Context, event realtime.ServerEvent)
}

// BroadcastService translates domain events into socket events and fans
// them out. Conversation traffic goes to the case room; list-level
// changes additionally hit the global staff feed so dashboards update
// cases nobody has opened yet.
type BroadcastService struct {
	dispatcher  events.Dispatcher
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewBroadcastService creates the service.
func NewBroadcastService(dispatcher events.Dispatcher, broadcaster Broadcaster, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to events.
func (b *BroadcastService) RegisterHandlers() {
	if b.dispatcher == nil {
		return
	}
	b.dispatcher.Subscribe(events.EventCaseCreated, b.handleCaseCreated)
	b.dispatcher.Subscribe(events.EventMessageAppended, b.handleMessageAppended)
	b.dispatcher.Subscribe(events.EventCaseClaimed, b.handleCaseClaimed)
	b.dispatcher.Subscribe(events.EventCaseClosed, b.handleCaseClosed)
	b.dispatcher.Subscribe(events.EventCaseSeen, b.handleCaseSeen)
}

func (b *BroadcastService) handleCaseCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseCreatedPayload)
	if !ok {
		return nil
	}
	c := payload.Case
	evt := realtime.ServerEvent{
		Event: realtime.EventNewChat,
		Data: dto.NewChatPayload{
			Case: dto.CaseDetailResponse{CaseResponse: dto.FromCase(&c)},
		},
	}
	b.broadcaster.Staff(ctx, evt)
	return nil
}

func (b *BroadcastService) handleMessageAppended(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageAppendedPayload)
	if !ok {
		return nil
	}
	evt := realtime.ServerEvent{
		Event: realtime.EventReceiveMessage,
		Data: dto.ReceiveMessagePayload{
			Case:    dto.FromDetail(&payload.Detail),
			Message: dto.FromMessage(&payload.Message),
		},
	}
	b.broadcaster.Room(ctx, event.CaseID, evt)
	b.broadcaster.Staff(ctx, evt)
	return nil
}

func (b *BroadcastService) handleCaseClaimed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseClaimedPayload)
	if !ok {
		return nil
	}
	evt := realtime.ServerEvent{
		Event: realtime.EventCaseClaimed,
		Data: dto.CaseClaimedPayload{
			CaseID:        event.CaseID,
			SupporterID:   payload.SupporterID,
			SupporterName: payload.SupporterName,
		},
	}
	b.broadcaster.Room(ctx, event.CaseID, evt)
	b.broadcaster.Staff(ctx, evt)
	return nil
}

func (b *BroadcastService) handleCaseClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseClosedPayload)
	if !ok {
		return nil
	}
	c := payload.Case
	evt := realtime.ServerEvent{
		Event: realtime.EventCloseCase,
		Data: dto.CloseCasePayload{
			Case:     dto.FromCase(&c),
			ClosedBy: payload.ClosedBy,
			Rating:   payload.Rating,
		},
	}
	b.broadcaster.Room(ctx, event.CaseID, evt)
	b.broadcaster.Staff(ctx, evt)
	return nil
}

func (b *BroadcastService) handleCaseSeen(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseSeenPayload)
	if !ok {
		return nil
	}
	evt := realtime.ServerEvent{
		Event: realtime.EventSeen,
		Data: dto.SeenPayload{
			CaseID:  event.CaseID,
			Viewer:  payload.Viewer,
			Flipped: payload.Flipped,
		},
	}
	b.broadcaster.Room(ctx, event.CaseID, evt)
	// Unseen badges move on staff dashboards that do not have the case
	// open, so decrements go to the global feed like increments do.
	b.broadcaster.Staff(ctx, evt)
	return nil
}
