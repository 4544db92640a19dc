package events

import (
	"time"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated     EventType = "case.created"
	EventMessageAppended EventType = "message.appended"
	EventCaseClaimed     EventType = "case.claimed"
	EventCaseClosed      EventType = "case.closed"
	EventCaseSeen        EventType = "case.seen"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Class   domain.ActorClass `json:"class"`
	Name    string            `json:"name"`
	StaffID *string           `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services. Events are emitted
// only after the corresponding write is durable.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	Case domain.SupportCase `json:"case"`
}

// MessageAppendedPayload carries the full refreshed case so subscribers
// can merge idempotently even if they missed earlier events.
type MessageAppendedPayload struct {
	Detail  domain.CaseDetail  `json:"detail"`
	Message domain.CaseMessage `json:"message"`
}

// CaseClaimedPayload payload.
type CaseClaimedPayload struct {
	SupporterID   string `json:"supporter_id"`
	SupporterName string `json:"supporter_name"`
}

// CaseClosedPayload payload.
type CaseClosedPayload struct {
	Case     domain.SupportCase `json:"case"`
	ClosedBy string             `json:"closed_by"`
	Rating   *int               `json:"rating,omitempty"`
}

// CaseSeenPayload payload.
type CaseSeenPayload struct {
	Viewer  domain.ActorClass `json:"viewer"`
	Flipped int               `json:"flipped"`
}
