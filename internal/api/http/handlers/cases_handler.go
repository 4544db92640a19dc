package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat-service/internal/api/dto"
	"github.com/spec-kit/support-chat-service/internal/auth"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/service"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

// CasesHandler manages the case endpoints shared by the customer widget
// and the staff console.
type CasesHandler struct {
	cases *service.CaseService
	auth  *service.AuthService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService, authService *service.AuthService) *CasesHandler {
	return &CasesHandler{cases: caseService, auth: authService}
}

// CreateCase POST /support-cases. Public: customers open cases without an
// account, so the response carries the guest token scoped to the new case.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	created, err := h.cases.CreateCase(c.UserContext(), service.CaseCreateInput{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		InquiryAbout:   req.InquiryAbout,
		InquiryDetails: req.InquiryDetails,
		OpenedBy:       req.OpenedBy,
	})
	if err != nil {
		return err
	}

	token, expiresAt, err := h.auth.CustomerToken(created)
	if err != nil {
		return err
	}
	detail := domain.CaseDetail{Case: *created, Conversation: nil}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CreatedCaseResponse{
		Case:           dto.FromDetail(&detail),
		Token:          token,
		TokenExpiresAt: expiresAt,
	}})
}

// GetCase GET /support-cases/:id. The snapshot endpoint clients resync
// from after a reconnect.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	caseID := c.Params("id")
	if err := allowCaseAccess(principal, caseID); err != nil {
		return err
	}

	detail, err := h.cases.GetDetail(c.UserContext(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDetail(detail)})
}

// AppendMessage PUT /support-cases/:id/messages.
func (h *CasesHandler) AppendMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	caseID := c.Params("id")
	if err := allowCaseAccess(principal, caseID); err != nil {
		return err
	}

	var req dto.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.MessageInput{
		CaseID:      caseID,
		AuthorClass: principal.ActorClass(),
		AuthorName:  principal.DisplayName(),
		Body:        req.Body,
		SentAt:      req.SentAt,
	}
	if principal.SubjectType == domain.SubjectTypeCustomer && principal.CustomerEmail != "" {
		email := principal.CustomerEmail
		input.AuthorEmail = &email
	}

	detail, msg, err := h.cases.AppendMessage(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"case":    dto.FromDetail(detail),
		"message": dto.FromMessage(msg),
	}})
}

// MarkSeen PUT /support-cases/:id/seen. Idempotent: repeating it reports
// zero flipped messages.
func (h *CasesHandler) MarkSeen(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	caseID := c.Params("id")
	if err := allowCaseAccess(principal, caseID); err != nil {
		return err
	}

	flipped, err := h.cases.MarkSeen(c.UserContext(), caseID, principal.ActorClass(), principal.DisplayName())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"caseId":  caseID,
		"flipped": flipped,
	}})
}

// CloseCase PUT /support-cases/:id/close. Both sides may close; the
// transition is terminal.
func (h *CasesHandler) CloseCase(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	caseID := c.Params("id")
	if err := allowCaseAccess(principal, caseID); err != nil {
		return err
	}

	var req dto.CloseCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	actor := events.Actor{Class: principal.ActorClass(), Name: principal.DisplayName()}
	if principal.Staff != nil {
		actor.StaffID = &principal.Staff.ID
	}
	closed, err := h.cases.CloseCase(c.UserContext(), service.CloseInput{
		CaseID:   caseID,
		ClosedBy: principal.DisplayName(),
		Actor:    actor,
		Rating:   req.Rating,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromCase(closed)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// allowCaseAccess restricts customer tokens to the single case they were
// minted for. Staff may access any case.
func allowCaseAccess(principal *auth.Principal, caseID string) error {
	if principal.SubjectType == domain.SubjectTypeStaff {
		return nil
	}
	if principal.CaseID == "" || principal.CaseID != caseID {
		return apperrors.NewForbidden("case access denied")
	}
	return nil
}
