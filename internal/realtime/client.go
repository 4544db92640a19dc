package realtime

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	handlerTimeout = 10 * time.Second
)

// Actor identifies the authenticated owner of a connection.
type Actor struct {
	Class   domain.ActorClass
	Name    string
	StaffID string
	// CaseID scopes customer connections to their own case; empty for staff.
	CaseID string
}

// IsStaff reports whether the connection belongs to the staff console.
func (a Actor) IsStaff() bool {
	return a.Class == domain.ActorClassStaff
}

// Handler reacts to operational frames a connection sends. Join/leave are
// resolved inside the hub; everything that touches case state goes
// through here.
type Handler interface {
	OnSendMessage(ctx context.Context, actor Actor, frame SendMessageFrame) error
	OnCloseCase(ctx context.Context, actor Actor, frame CloseCaseFrame) error
	OnMarkSeen(ctx context.Context, actor Actor, frame RoomFrame) error
	OnTyping(actor Actor, frame TypingFrame)
	OnStopTyping(actor Actor, frame TypingFrame)
}

// Client represents a single live connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	actor   Actor
	handler Handler
	rooms   map[string]bool
	log     *zap.Logger
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, actor Actor, handler Handler, bufferSize int, log *zap.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, bufferSize),
		actor:   actor,
		handler: handler,
		rooms:   make(map[string]bool),
		log:     log,
	}
}

// Actor returns the connection's identity.
func (c *Client) Actor() Actor {
	return c.actor
}

// Run registers the client and pumps frames until the connection drops.
// It blocks for the lifetime of the connection.
func (c *Client) Run() {
	c.hub.Register(c)
	if c.actor.CaseID != "" {
		// Customer widgets are always interested in their own case.
		c.hub.Join(c.actor.CaseID, c)
	}

	go c.writePump()
	c.readPump()
}

// readPump pumps frames from the connection into the frame dispatcher.
// It handles pong keepalive and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame ClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			break
		}
		c.dispatch(frame)
	}
}

// writePump pumps hub broadcasts to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(frame ClientFrame) {
	if err := c.handleFrame(frame); err != nil {
		c.hub.SendTo(c, ServerEvent{Event: EventError, Data: ErrorData{Message: err.Error()}})
	}
}

func (c *Client) handleFrame(frame ClientFrame) error {
	switch frame.Event {
	case FrameJoinRoom:
		room, err := decodeFrame[RoomFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(room.CaseID); err != nil {
			return err
		}
		c.hub.Join(room.CaseID, c)
		return nil

	case FrameLeaveRoom:
		room, err := decodeFrame[RoomFrame](frame.Data)
		if err != nil {
			return err
		}
		c.hub.Leave(room.CaseID, c)
		return nil

	case FrameSendMessage:
		msg, err := decodeFrame[SendMessageFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(msg.CaseID); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		return c.handler.OnSendMessage(ctx, c.actor, msg)

	case FrameTyping:
		typing, err := decodeFrame[TypingFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(typing.CaseID); err != nil {
			return err
		}
		c.handler.OnTyping(c.actor, typing)
		return nil

	case FrameStopTyping:
		typing, err := decodeFrame[TypingFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(typing.CaseID); err != nil {
			return err
		}
		c.handler.OnStopTyping(c.actor, typing)
		return nil

	case FrameCloseCase:
		cls, err := decodeFrame[CloseCaseFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(cls.CaseID); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		return c.handler.OnCloseCase(ctx, c.actor, cls)

	case FrameMarkSeen:
		room, err := decodeFrame[RoomFrame](frame.Data)
		if err != nil {
			return err
		}
		if err := c.allowCase(room.CaseID); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		return c.handler.OnMarkSeen(ctx, c.actor, room)

	default:
		return errUnknownFrame
	}
}

// allowCase restricts customer connections to their own case. Staff may
// address any case.
func (c *Client) allowCase(caseID string) error {
	if err := validateCaseID(caseID); err != nil {
		return err
	}
	if !c.actor.IsStaff() && caseID != c.actor.CaseID {
		return errCaseForbidden
	}
	return nil
}
