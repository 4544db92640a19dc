package domain

import "time"

// CaseStatus enumerates lifecycle states for support cases.
type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "OPEN"
	CaseStatusClosed CaseStatus = "CLOSED"
)

// OpenedBy tags who opened a case. The tag is set once at creation and
// deterministically routes the case into a channel.
type OpenedBy string

const (
	OpenedByClient     OpenedBy = "CLIENT"
	OpenedBySeller     OpenedBy = "SELLER"
	OpenedBySuperAdmin OpenedBy = "SUPER_ADMIN"
)

// Channel splits case lists between consumer and business traffic.
type Channel string

const (
	ChannelB2C Channel = "B2C"
	ChannelB2B Channel = "B2B"
)

// ChannelFor maps an opener tag to its routing channel.
func ChannelFor(opener OpenedBy) Channel {
	if opener == OpenedByClient {
		return ChannelB2C
	}
	return ChannelB2B
}

// SupportCase is the aggregate for one support conversation.
type SupportCase struct {
	ID             string
	OpenedBy       OpenedBy
	Status         CaseStatus
	CustomerName   string
	CustomerEmail  string
	InquiryAbout   string
	InquiryDetails string
	SupporterID    *string
	SupporterName  *string
	Rating         *int
	ClosedBy       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// Channel derives the routing channel from the opener tag.
func (c *SupportCase) Channel() Channel {
	return ChannelFor(c.OpenedBy)
}

// Assigned reports whether a supporter has claimed the case.
func (c *SupportCase) Assigned() bool {
	return c.SupporterID != nil
}

// CaseDetail bundles a case with its ordered conversation log. Socket
// events and REST snapshots carry the same shape so client merges stay
// idempotent.
type CaseDetail struct {
	Case         SupportCase
	Conversation []CaseMessage
}
