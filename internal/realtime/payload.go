package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outbound socket event names.
const (
	EventNewChat        = "newChat"
	EventReceiveMessage = "receiveMessage"
	EventCaseClaimed    = "caseClaimed"
	EventCloseCase      = "closeCase"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventSeen           = "seen"
	EventError          = "error"
)

// Inbound socket event names.
const (
	FrameJoinRoom    = "joinRoom"
	FrameLeaveRoom   = "leaveRoom"
	FrameSendMessage = "sendMessage"
	FrameTyping      = "typing"
	FrameStopTyping  = "stopTyping"
	FrameCloseCase   = "closeCase"
	FrameMarkSeen    = "markSeen"
)

// ServerEvent is the envelope written to clients.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientFrame is the envelope read from clients. Data is decoded into the
// typed frame matching Event; unknown events and malformed data are
// rejected at this boundary.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomFrame addresses a case room (joinRoom, leaveRoom, markSeen).
type RoomFrame struct {
	CaseID string `json:"caseId"`
}

// SendMessageFrame carries a new conversation message. SentAt is the
// client clock, kept for display only.
type SendMessageFrame struct {
	CaseID string     `json:"caseId"`
	Body   string     `json:"message"`
	SentAt *time.Time `json:"date,omitempty"`
}

// TypingFrame carries a typing presence signal.
type TypingFrame struct {
	CaseID    string `json:"caseId"`
	ActorName string `json:"actorName"`
}

// CloseCaseFrame requests closing a case, optionally with a rating.
type CloseCaseFrame struct {
	CaseID string `json:"caseId"`
	Rating *int   `json:"rating,omitempty"`
}

// ErrorData is the payload of an error event sent back to the offending
// connection only.
type ErrorData struct {
	Message string `json:"message"`
}

var (
	errUnknownFrame  = errors.New("unknown frame event")
	errCaseForbidden = errors.New("case not accessible from this connection")
)

func decodeFrame[T any](raw json.RawMessage) (T, error) {
	var frame T
	if len(raw) == 0 {
		return frame, errors.New("missing frame data")
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return frame, fmt.Errorf("malformed frame data: %w", err)
	}
	return frame, nil
}

func validateCaseID(caseID string) error {
	if strings.TrimSpace(caseID) == "" {
		return errors.New("caseId required")
	}
	return nil
}
