package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/repository"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

// CaseService coordinates the support case lifecycle: creation, message
// appends, claiming, closing and seen tracking. Every event it publishes
// is emitted only after the corresponding write is durable, so
// subscribers never observe state that could disappear on a write
// failure.
type CaseService struct {
	cases      repository.CaseRepository
	messages   repository.CaseMessageRepository
	dispatcher events.Dispatcher
}

// CaseDependencies bundles repositories for the case service.
type CaseDependencies struct {
	CaseRepo    repository.CaseRepository
	MessageRepo repository.CaseMessageRepository
	Dispatcher  events.Dispatcher
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	return &CaseService{
		cases:      deps.CaseRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CaseCreateInput describes case creation payload.
type CaseCreateInput struct {
	CustomerName   string
	CustomerEmail  string
	InquiryAbout   string
	InquiryDetails string
	OpenedBy       domain.OpenedBy
}

// MessageInput describes a message append.
type MessageInput struct {
	CaseID      string
	AuthorClass domain.ActorClass
	AuthorName  string
	AuthorEmail *string
	Body        string
	SentAt      *time.Time
}

// CloseInput describes a close request.
type CloseInput struct {
	CaseID   string
	ClosedBy string
	Actor    events.Actor
	Rating   *int
}

// CreateCase opens a new case with an empty conversation.
func (s *CaseService) CreateCase(ctx context.Context, input CaseCreateInput) (*domain.SupportCase, error) {
	missing := map[string]any{}
	if strings.TrimSpace(input.CustomerName) == "" {
		missing["customerName"] = "required"
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		missing["customerEmail"] = "required"
	}
	if strings.TrimSpace(input.InquiryAbout) == "" {
		missing["inquiryAbout"] = "required"
	}
	if strings.TrimSpace(input.InquiryDetails) == "" {
		missing["inquiryDetails"] = "required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	opener := input.OpenedBy
	switch opener {
	case "":
		opener = domain.OpenedByClient
	case domain.OpenedByClient, domain.OpenedBySeller, domain.OpenedBySuperAdmin:
	default:
		return nil, apperrors.NewValidationError("invalid openedBy", map[string]any{"openedBy": opener})
	}

	c := &domain.SupportCase{
		OpenedBy:       opener,
		Status:         domain.CaseStatusOpen,
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerEmail:  strings.TrimSpace(input.CustomerEmail),
		InquiryAbout:   strings.TrimSpace(input.InquiryAbout),
		InquiryDetails: strings.TrimSpace(input.InquiryDetails),
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: c.ID,
		Actor:  events.Actor{Class: domain.ActorClassCustomer, Name: c.CustomerName},
		Payload: events.CaseCreatedPayload{
			Case: *c,
		},
	})
	return c, nil
}

// GetDetail returns the authoritative case snapshot with its ordered
// conversation. This is the resync path for reconnecting clients.
func (s *CaseService) GetDetail(ctx context.Context, caseID string) (*domain.CaseDetail, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, mapCaseError(err, caseID)
	}
	msgs, err := s.messages.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return &domain.CaseDetail{Case: *c, Conversation: msgs}, nil
}

// ListCases returns cases filtered by status and channel for dashboards.
func (s *CaseService) ListCases(ctx context.Context, status *domain.CaseStatus, channel *domain.Channel, limit, offset int) ([]domain.SupportCase, error) {
	return s.cases.List(ctx, repository.CaseFilter{
		Status:  status,
		Channel: channel,
		Limit:   limit,
		Offset:  offset,
	})
}

// AppendMessage appends to the conversation log and returns the refreshed
// case detail along with the appended message.
func (s *CaseService) AppendMessage(ctx context.Context, input MessageInput) (*domain.CaseDetail, *domain.CaseMessage, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, nil, apperrors.NewValidationError("message body required", nil)
	}
	if strings.TrimSpace(input.AuthorName) == "" {
		return nil, nil, apperrors.NewValidationError("author name required", nil)
	}

	sentAt := time.Now()
	if input.SentAt != nil {
		sentAt = *input.SentAt
	}
	msg := &domain.CaseMessage{
		CaseID:         input.CaseID,
		AuthorClass:    input.AuthorClass,
		AuthorName:     strings.TrimSpace(input.AuthorName),
		AuthorEmail:    input.AuthorEmail,
		Body:           input.Body,
		SentAt:         sentAt,
		SeenByStaff:    input.AuthorClass == domain.ActorClassStaff,
		SeenByCustomer: input.AuthorClass == domain.ActorClassCustomer,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, nil, mapCaseError(err, input.CaseID)
	}

	detail, err := s.GetDetail(ctx, input.CaseID)
	if err != nil {
		return nil, nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventMessageAppended,
		CaseID: input.CaseID,
		Actor:  events.Actor{Class: input.AuthorClass, Name: msg.AuthorName},
		Payload: events.MessageAppendedPayload{
			Detail:  *detail,
			Message: *msg,
		},
	})
	return detail, msg, nil
}

// ClaimCase atomically assigns the supporter when the case is open and
// unassigned. A lost race is not an error: the current case is returned
// with claimed=false so the console can show who got there first.
func (s *CaseService) ClaimCase(ctx context.Context, staff *domain.StaffMember, caseID string) (*domain.SupportCase, bool, error) {
	if staff == nil {
		return nil, false, apperrors.NewForbidden("staff required")
	}
	won, err := s.cases.Claim(ctx, caseID, staff.ID, staff.Name)
	if err != nil {
		return nil, false, err
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, false, mapCaseError(err, caseID)
	}
	if !won {
		if c.Status == domain.CaseStatusClosed {
			return nil, false, apperrors.NewConflict("case is closed", map[string]any{"caseId": caseID})
		}
		return c, false, nil
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseClaimed,
		CaseID: c.ID,
		Actor:  events.Actor{Class: domain.ActorClassStaff, Name: staff.Name, StaffID: &staff.ID},
		Payload: events.CaseClaimedPayload{
			SupporterID:   staff.ID,
			SupporterName: staff.Name,
		},
	})
	return c, true, nil
}

// SetSupporterName updates the display name shown to the customer.
func (s *CaseService) SetSupporterName(ctx context.Context, staff *domain.StaffMember, caseID, name string) (*domain.SupportCase, error) {
	if staff == nil {
		return nil, apperrors.NewForbidden("staff required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("supporterName required", nil)
	}
	if err := s.cases.SetSupporterName(ctx, caseID, strings.TrimSpace(name)); err != nil {
		return nil, mapCaseError(err, caseID)
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, mapCaseError(err, caseID)
	}

	supporterID := staff.ID
	if c.SupporterID != nil {
		supporterID = *c.SupporterID
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseClaimed,
		CaseID: c.ID,
		Actor:  events.Actor{Class: domain.ActorClassStaff, Name: staff.Name, StaffID: &staff.ID},
		Payload: events.CaseClaimedPayload{
			SupporterID:   supporterID,
			SupporterName: strings.TrimSpace(name),
		},
	})
	return c, nil
}

// CloseCase transitions OPEN -> CLOSED. The transition is terminal:
// closing an already-closed case is a conflict, and there is no reopen.
func (s *CaseService) CloseCase(ctx context.Context, input CloseInput) (*domain.SupportCase, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": *input.Rating})
	}
	if strings.TrimSpace(input.ClosedBy) == "" {
		return nil, apperrors.NewValidationError("closedBy required", nil)
	}

	closed, err := s.cases.Close(ctx, input.CaseID, input.ClosedBy, input.Rating)
	if err != nil {
		return nil, err
	}
	c, err := s.cases.GetByID(ctx, input.CaseID)
	if err != nil {
		return nil, mapCaseError(err, input.CaseID)
	}
	if !closed {
		return nil, apperrors.NewConflict("case already closed", map[string]any{"caseId": input.CaseID})
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseClosed,
		CaseID: c.ID,
		Actor:  input.Actor,
		Payload: events.CaseClosedPayload{
			Case:     *c,
			ClosedBy: input.ClosedBy,
			Rating:   input.Rating,
		},
	})
	return c, nil
}

// MarkSeen flips the viewer-class seen flag on all unseen counterpart
// messages. Idempotent: repeating it flips nothing and publishes nothing.
func (s *CaseService) MarkSeen(ctx context.Context, caseID string, viewer domain.ActorClass, viewerName string) (int, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return 0, mapCaseError(err, caseID)
	}
	flipped, err := s.messages.MarkSeen(ctx, caseID, viewer)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.publishEvent(ctx, events.Event{
			Type:   events.EventCaseSeen,
			CaseID: caseID,
			Actor:  events.Actor{Class: viewer, Name: viewerName},
			Payload: events.CaseSeenPayload{
				Viewer:  viewer,
				Flipped: flipped,
			},
		})
	}
	return flipped, nil
}

// UnseenCounts returns per-case unseen badge data for the viewer class,
// derived from the message log on every call.
func (s *CaseService) UnseenCounts(ctx context.Context, viewer domain.ActorClass) ([]repository.CaseUnseen, error) {
	return s.messages.UnseenCounts(ctx, viewer)
}

// UnseenTotal returns the aggregate badge count for the viewer class.
func (s *CaseService) UnseenTotal(ctx context.Context, viewer domain.ActorClass) (int, error) {
	counts, err := s.messages.UnseenCounts(ctx, viewer)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, entry := range counts {
		total += entry.Count
	}
	return total, nil
}

// UnseenByCase returns the unseen count for one case and viewer class.
func (s *CaseService) UnseenByCase(ctx context.Context, caseID string, viewer domain.ActorClass) (int, error) {
	return s.messages.UnseenByCase(ctx, caseID, viewer)
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapCaseError(err error, caseID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("support case", map[string]any{"caseId": caseID})
	}
	if errors.Is(err, repository.ErrCaseClosed) {
		return apperrors.NewConflict("case is closed", map[string]any{"caseId": caseID})
	}
	return err
}
