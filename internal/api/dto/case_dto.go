package dto

import (
	"time"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	CustomerName   string          `json:"customerName"`
	CustomerEmail  string          `json:"customerEmail"`
	InquiryAbout   string          `json:"inquiryAbout"`
	InquiryDetails string          `json:"inquiryDetails"`
	OpenedBy       domain.OpenedBy `json:"openedBy,omitempty"`
}

// AppendMessageRequest payload.
type AppendMessageRequest struct {
	Body   string     `json:"message"`
	SentAt *time.Time `json:"date,omitempty"`
}

// CloseCaseRequest payload.
type CloseCaseRequest struct {
	Rating *int `json:"rating,omitempty"`
}

// SupporterNameRequest payload.
type SupporterNameRequest struct {
	SupporterName string `json:"supporterName"`
}

// CaseResponse is the wire form of a support case.
type CaseResponse struct {
	ID             string            `json:"id"`
	OpenedBy       domain.OpenedBy   `json:"openedBy"`
	Channel        domain.Channel    `json:"channel"`
	CaseStatus     domain.CaseStatus `json:"caseStatus"`
	CustomerName   string            `json:"customerName"`
	CustomerEmail  string            `json:"customerEmail"`
	InquiryAbout   string            `json:"inquiryAbout"`
	InquiryDetails string            `json:"inquiryDetails"`
	SupporterID    *string           `json:"supporterId,omitempty"`
	SupporterName  *string           `json:"supporterName,omitempty"`
	Rating         *int              `json:"rating,omitempty"`
	ClosedBy       *string           `json:"closedBy,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	ClosedAt       *time.Time        `json:"closedAt,omitempty"`
}

// MessageResponse is the wire form of one conversation entry.
type MessageResponse struct {
	ID             string            `json:"id"`
	CaseID         string            `json:"caseId"`
	Position       int               `json:"position"`
	AuthorClass    domain.ActorClass `json:"authorClass"`
	AuthorName     string            `json:"authorName"`
	AuthorEmail    *string           `json:"authorEmail,omitempty"`
	Body           string            `json:"message"`
	SentAt         time.Time         `json:"date"`
	SeenByStaff    bool              `json:"seenByStaff"`
	SeenByCustomer bool              `json:"seenByCustomer"`
}

// CaseDetailResponse is a case with its ordered conversation. Both the
// REST snapshot endpoint and socket events use this shape so client
// merges stay idempotent.
type CaseDetailResponse struct {
	CaseResponse
	Conversation []MessageResponse `json:"conversation"`
}

// UnseenCaseResponse is one row of badge data.
type UnseenCaseResponse struct {
	CaseID string `json:"caseId"`
	Count  int    `json:"count"`
}

// UnseenSummaryResponse aggregates badge data.
type UnseenSummaryResponse struct {
	Total int                  `json:"total"`
	Cases []UnseenCaseResponse `json:"cases"`
}

// FromCase converts a domain case.
func FromCase(c *domain.SupportCase) CaseResponse {
	return CaseResponse{
		ID:             c.ID,
		OpenedBy:       c.OpenedBy,
		Channel:        c.Channel(),
		CaseStatus:     c.Status,
		CustomerName:   c.CustomerName,
		CustomerEmail:  c.CustomerEmail,
		InquiryAbout:   c.InquiryAbout,
		InquiryDetails: c.InquiryDetails,
		SupporterID:    c.SupporterID,
		SupporterName:  c.SupporterName,
		Rating:         c.Rating,
		ClosedBy:       c.ClosedBy,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		ClosedAt:       c.ClosedAt,
	}
}

// FromMessage converts a domain message.
func FromMessage(m *domain.CaseMessage) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		CaseID:         m.CaseID,
		Position:       m.Position,
		AuthorClass:    m.AuthorClass,
		AuthorName:     m.AuthorName,
		AuthorEmail:    m.AuthorEmail,
		Body:           m.Body,
		SentAt:         m.SentAt,
		SeenByStaff:    m.SeenByStaff,
		SeenByCustomer: m.SeenByCustomer,
	}
}

// FromDetail converts a domain case detail.
func FromDetail(detail *domain.CaseDetail) CaseDetailResponse {
	conversation := make([]MessageResponse, 0, len(detail.Conversation))
	for i := range detail.Conversation {
		conversation = append(conversation, FromMessage(&detail.Conversation[i]))
	}
	return CaseDetailResponse{
		CaseResponse: FromCase(&detail.Case),
		Conversation: conversation,
	}
}
