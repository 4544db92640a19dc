package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/auth"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/realtime"
	"github.com/spec-kit/support-chat-service/internal/repository"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

const wsActorKey = "ws_actor"

// WSHandler upgrades authenticated connections into hub clients. Browsers
// cannot set headers on the upgrade request, so the token travels in the
// query string.
type WSHandler struct {
	hub        *realtime.Hub
	gateway    realtime.Handler
	tokens     *auth.TokenManager
	staff      repository.StaffRepository
	bufferSize int
	log        *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(hub *realtime.Hub, gateway realtime.Handler, tokens *auth.TokenManager, staff repository.StaffRepository, bufferSize int, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		gateway:    gateway,
		tokens:     tokens,
		staff:      staff,
		bufferSize: bufferSize,
		log:        log,
	}
}

// Upgrade authenticates the request and admits it to the websocket
// endpoint. Runs as middleware ahead of Serve.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return apperrors.NewUnauthorized("token required")
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	actor, err := h.actorFromClaims(c, claims)
	if err != nil {
		return err
	}
	c.Locals(wsActorKey, actor)
	return c.Next()
}

// Serve returns the upgraded connection handler. It blocks per connection
// until the socket drops.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals(wsActorKey).(realtime.Actor)
		if !ok {
			_ = conn.Close()
			return
		}
		client := realtime.NewClient(h.hub, conn, actor, h.gateway, h.bufferSize, h.log)
		client.Run()
	})
}

func (h *WSHandler) actorFromClaims(c *fiber.Ctx, claims *auth.Claims) (realtime.Actor, error) {
	switch claims.Subject {
	case domain.SubjectTypeCustomer:
		return realtime.Actor{
			Class:  domain.ActorClassCustomer,
			Name:   claims.Name,
			CaseID: claims.CaseID,
		}, nil
	case domain.SubjectTypeStaff:
		staff, err := h.staff.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return realtime.Actor{}, apperrors.NewUnauthorized("staff not found")
			}
			return realtime.Actor{}, apperrors.MapError(err)
		}
		if !staff.Active {
			return realtime.Actor{}, apperrors.NewUnauthorized("staff account disabled")
		}
		return realtime.Actor{
			Class:   domain.ActorClassStaff,
			Name:    staff.Name,
			StaffID: staff.ID,
		}, nil
	default:
		return realtime.Actor{}, apperrors.NewUnauthorized("unknown subject")
	}
}
