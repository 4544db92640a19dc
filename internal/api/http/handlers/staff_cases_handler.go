package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat-service/internal/api/dto"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/service"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

// StaffCasesHandler manages the dashboard endpoints only staff can reach.
type StaffCasesHandler struct {
	cases *service.CaseService
}

// NewStaffCasesHandler constructs handler.
func NewStaffCasesHandler(caseService *service.CaseService) *StaffCasesHandler {
	return &StaffCasesHandler{cases: caseService}
}

// ListCases GET /support-cases?status=&channel=.
func (h *StaffCasesHandler) ListCases(c *fiber.Ctx) error {
	var status *domain.CaseStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed := domain.CaseStatus(strings.ToUpper(raw))
		if parsed != domain.CaseStatusOpen && parsed != domain.CaseStatusClosed {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		status = &parsed
	}
	var channel *domain.Channel
	if raw := strings.TrimSpace(c.Query("channel")); raw != "" {
		parsed := domain.Channel(strings.ToUpper(raw))
		if parsed != domain.ChannelB2C && parsed != domain.ChannelB2B {
			return apperrors.NewValidationError("invalid channel filter", map[string]any{"channel": raw})
		}
		channel = &parsed
	}

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	cases, err := h.cases.ListCases(c.UserContext(), status, channel, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, dto.FromCase(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ClaimCase PUT /support-cases/:id/claim. First claimer wins; a lost race
// still returns the current case so the console can show the assignee.
func (h *StaffCasesHandler) ClaimCase(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	claimed, won, err := h.cases.ClaimCase(c.UserContext(), principal.Staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"case":    dto.FromCase(claimed),
		"claimed": won,
	}})
}

// SetSupporterName PUT /support-cases/:id/supporter-name.
func (h *StaffCasesHandler) SetSupporterName(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SupporterNameRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.cases.SetSupporterName(c.UserContext(), principal.Staff, c.Params("id"), req.SupporterName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromCase(updated)})
}

// UnseenCount GET /support-cases/unseen/count. The badge total, derived
// from the message log on every call.
func (h *StaffCasesHandler) UnseenCount(c *fiber.Ctx) error {
	total, err := h.cases.UnseenTotal(c.UserContext(), domain.ActorClassStaff)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"total": total}})
}

// UnseenDetails GET /support-cases/unseen/details.
func (h *StaffCasesHandler) UnseenDetails(c *fiber.Ctx) error {
	counts, err := h.cases.UnseenCounts(c.UserContext(), domain.ActorClassStaff)
	if err != nil {
		return err
	}
	summary := dto.UnseenSummaryResponse{Cases: make([]dto.UnseenCaseResponse, 0, len(counts))}
	for _, entry := range counts {
		summary.Total += entry.Count
		summary.Cases = append(summary.Cases, dto.UnseenCaseResponse{CaseID: entry.CaseID, Count: entry.Count})
	}
	return c.JSON(fiber.Map{"data": summary})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
