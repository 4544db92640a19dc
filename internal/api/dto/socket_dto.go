package dto

import "github.com/spec-kit/support-chat-service/internal/domain"

// Socket event payloads. These are the closed set of tagged variants
// emitted to live clients, one shape per event name.

// NewChatPayload accompanies the newChat event.
type NewChatPayload struct {
	Case CaseDetailResponse `json:"case"`
}

// ReceiveMessagePayload accompanies receiveMessage. The full refreshed
// case rides along so a client that missed events can still converge.
type ReceiveMessagePayload struct {
	Case    CaseDetailResponse `json:"case"`
	Message MessageResponse    `json:"message"`
}

// CaseClaimedPayload accompanies caseClaimed.
type CaseClaimedPayload struct {
	CaseID        string `json:"caseId"`
	SupporterID   string `json:"supporterId"`
	SupporterName string `json:"supporterName"`
}

// CloseCasePayload accompanies closeCase.
type CloseCasePayload struct {
	Case     CaseResponse `json:"case"`
	ClosedBy string       `json:"closedBy"`
	Rating   *int         `json:"rating,omitempty"`
}

// TypingPayload accompanies typing and stopTyping.
type TypingPayload struct {
	CaseID    string `json:"caseId"`
	ActorName string `json:"actorName"`
}

// SeenPayload accompanies seen.
type SeenPayload struct {
	CaseID  string            `json:"caseId"`
	Viewer  domain.ActorClass `json:"viewer"`
	Flipped int               `json:"flipped"`
}
