package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat-service/internal/api/dto"
	"github.com/spec-kit/support-chat-service/internal/service"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

// AuthHandler exposes staff login. Customers never log in; their token is
// minted when they open a case.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// StaffLogin POST /auth/staff/login.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	session, err := h.auth.StaffLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffLoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		StaffID:   session.Staff.ID,
		Name:      session.Staff.Name,
		Role:      string(session.Staff.Role),
	}})
}
