package domain

import "time"

// ActorClass separates the two sides of a conversation.
type ActorClass string

const (
	ActorClassCustomer ActorClass = "CUSTOMER"
	ActorClassStaff    ActorClass = "STAFF"
)

// Opposite returns the counterpart class.
func (a ActorClass) Opposite() ActorClass {
	if a == ActorClassCustomer {
		return ActorClassStaff
	}
	return ActorClassCustomer
}

// CaseMessage is one entry in a case's append-only conversation log.
// Ordering is by Position as assigned at append time; SentAt is the
// client-supplied clock kept for display only.
type CaseMessage struct {
	ID             string
	CaseID         string
	Position       int
	AuthorClass    ActorClass
	AuthorName     string
	AuthorEmail    *string
	Body           string
	SentAt         time.Time
	SeenByStaff    bool
	SeenByCustomer bool
	CreatedAt      time.Time
}

// SeenBy reports whether the given class has seen the message. A message
// counts as seen by its own author class from birth.
func (m *CaseMessage) SeenBy(class ActorClass) bool {
	if class == ActorClassStaff {
		return m.SeenByStaff
	}
	return m.SeenByCustomer
}
