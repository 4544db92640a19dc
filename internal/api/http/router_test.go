package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat-service/internal/api/http/handlers"
	"github.com/spec-kit/support-chat-service/internal/auth"
	"github.com/spec-kit/support-chat-service/internal/config"
	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/events"
	"github.com/spec-kit/support-chat-service/internal/observability"
	"github.com/spec-kit/support-chat-service/internal/realtime"
	"github.com/spec-kit/support-chat-service/internal/repository"
	"github.com/spec-kit/support-chat-service/internal/service"
)

// ============================================================================
// In-memory fakes
// ============================================================================

type memCaseRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.SupportCase
	seq   int
}

func newMemCaseRepo() *memCaseRepo {
	return &memCaseRepo{cases: make(map[string]*domain.SupportCase)}
}

func (r *memCaseRepo) Create(_ context.Context, c *domain.SupportCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("case-%d", r.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.cases[c.ID] = &stored
	return nil
}

func (r *memCaseRepo) GetByID(_ context.Context, id string) (*domain.SupportCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *memCaseRepo) List(_ context.Context, filter repository.CaseFilter) ([]domain.SupportCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SupportCase
	for _, stored := range r.cases {
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		if filter.Channel != nil && stored.Channel() != *filter.Channel {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

func (r *memCaseRepo) Claim(_ context.Context, caseID, supporterID, supporterName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[caseID]
	if !ok || stored.Status != domain.CaseStatusOpen || stored.SupporterID != nil {
		return false, nil
	}
	stored.SupporterID = &supporterID
	stored.SupporterName = &supporterName
	return true, nil
}

func (r *memCaseRepo) SetSupporterName(_ context.Context, caseID, supporterName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[caseID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.SupporterName = &supporterName
	return nil
}

func (r *memCaseRepo) Close(_ context.Context, caseID, closedBy string, rating *int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[caseID]
	if !ok || stored.Status != domain.CaseStatusOpen {
		return false, nil
	}
	now := time.Now()
	stored.Status = domain.CaseStatusClosed
	stored.ClosedBy = &closedBy
	stored.Rating = rating
	stored.ClosedAt = &now
	return true, nil
}

type memMessageRepo struct {
	mu    sync.Mutex
	byID  map[string][]domain.CaseMessage
	cases *memCaseRepo
	seq   int
}

func newMemMessageRepo(cases *memCaseRepo) *memMessageRepo {
	return &memMessageRepo{byID: make(map[string][]domain.CaseMessage), cases: cases}
}

func (r *memMessageRepo) Append(ctx context.Context, msg *domain.CaseMessage) error {
	if c, err := r.cases.GetByID(ctx, msg.CaseID); err != nil {
		return err
	} else if c.Status != domain.CaseStatusOpen {
		return repository.ErrCaseClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	msg.Position = len(r.byID[msg.CaseID]) + 1
	msg.CreatedAt = time.Now()
	r.byID[msg.CaseID] = append(r.byID[msg.CaseID], *msg)
	return nil
}

func (r *memMessageRepo) ListByCase(_ context.Context, caseID string) ([]domain.CaseMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.CaseMessage, len(r.byID[caseID]))
	copy(result, r.byID[caseID])
	return result, nil
}

func (r *memMessageRepo) MarkSeen(_ context.Context, caseID string, viewer domain.ActorClass) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flipped := 0
	msgs := r.byID[caseID]
	for i := range msgs {
		if msgs[i].AuthorClass != viewer.Opposite() || msgs[i].SeenBy(viewer) {
			continue
		}
		if viewer == domain.ActorClassStaff {
			msgs[i].SeenByStaff = true
		} else {
			msgs[i].SeenByCustomer = true
		}
		flipped++
	}
	return flipped, nil
}

func (r *memMessageRepo) UnseenCounts(_ context.Context, viewer domain.ActorClass) ([]repository.CaseUnseen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []repository.CaseUnseen
	for caseID, msgs := range r.byID {
		count := 0
		for i := range msgs {
			if msgs[i].AuthorClass == viewer.Opposite() && !msgs[i].SeenBy(viewer) {
				count++
			}
		}
		if count > 0 {
			result = append(result, repository.CaseUnseen{CaseID: caseID, Count: count})
		}
	}
	return result, nil
}

func (r *memMessageRepo) UnseenByCase(_ context.Context, caseID string, viewer domain.ActorClass) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, msg := range r.byID[caseID] {
		if msg.AuthorClass == viewer.Opposite() && !msg.SeenBy(viewer) {
			count++
		}
	}
	return count, nil
}

type memStaffRepo struct {
	byID    map[string]*domain.StaffMember
	byEmail map[string]*domain.StaffMember
}

func newMemStaffRepo(members ...*domain.StaffMember) *memStaffRepo {
	r := &memStaffRepo{
		byID:    make(map[string]*domain.StaffMember),
		byEmail: make(map[string]*domain.StaffMember),
	}
	for _, m := range members {
		r.byID[m.ID] = m
		r.byEmail[m.Email] = m
	}
	return r
}

func (r *memStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if m, ok := r.byID[id]; ok {
		out := *m
		return &out, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	if m, ok := r.byEmail[email]; ok {
		out := *m
		return &out, nil
	}
	return nil, pgx.ErrNoRows
}

// ============================================================================
// App wiring
// ============================================================================

const staffPassword = "agent-password"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	hash, err := auth.HashPassword(staffPassword, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	staffRepo := newMemStaffRepo(&domain.StaffMember{
		ID:           "staff-1",
		Name:         "Sam Support",
		Email:        "sam@example.com",
		PasswordHash: hash,
		Role:         domain.StaffRoleAgent,
		Active:       true,
	})

	caseRepo := newMemCaseRepo()
	messageRepo := newMemMessageRepo(caseRepo)
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:    caseRepo,
		MessageRepo: messageRepo,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:               "test-secret",
		StaffTokenTTLMinutes:    60,
		CustomerTokenTTLMinutes: 60,
	}, staffRepo)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	hub := realtime.NewHub(logger, metrics)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Cases:          handlers.NewCasesHandler(caseService, authService),
		StaffCases:     handlers.NewStaffCasesHandler(caseService),
		WS:             handlers.NewWSHandler(hub, nil, authService.TokenManager(), staffRepo, 4, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staffRepo),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	} else {
		buf = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp.StatusCode, decoded
}

func openCase(t *testing.T, app *fiber.App) (caseID, token string) {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/support-cases", "", map[string]any{
		"customerName":   "Jane Doe",
		"customerEmail":  "jane@example.com",
		"inquiryAbout":   "Order delay",
		"inquiryDetails": "My order has not arrived yet.",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create case: expected 201, got %d (%v)", status, body)
	}
	data := body["data"].(map[string]any)
	caseID = data["case"].(map[string]any)["id"].(string)
	token = data["token"].(string)
	return caseID, token
}

func staffLogin(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/auth/staff/login", "", map[string]any{
		"email":    "sam@example.com",
		"password": staffPassword,
	})
	if status != fiber.StatusOK {
		t.Fatalf("staff login: expected 200, got %d (%v)", status, body)
	}
	return body["data"].(map[string]any)["token"].(string)
}

// ============================================================================
// Authorization matrix
// ============================================================================

func TestCustomerRoutes(t *testing.T) {
	app := newTestApp(t)
	caseID, token := openCase(t, app)

	t.Run("snapshot of own case", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/support-cases/"+caseID, token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
		if got := body["data"].(map[string]any)["id"]; got != caseID {
			t.Fatalf("expected case %s, got %v", caseID, got)
		}
	})

	t.Run("append message to own case", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodPut, "/support-cases/"+caseID+"/messages", token, map[string]any{
			"message": "Where is my order?",
		})
		if status != fiber.StatusCreated {
			t.Fatalf("expected 201, got %d (%v)", status, body)
		}
	})

	t.Run("mark own case seen", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodPut, "/support-cases/"+caseID+"/seen", token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
	})

	t.Run("other case forbidden", func(t *testing.T) {
		otherID, _ := openCase(t, app)
		status, _ := doJSON(t, app, fiber.MethodGet, "/support-cases/"+otherID, token, nil)
		if status != fiber.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("staff endpoints forbidden", func(t *testing.T) {
		for _, target := range []struct{ method, path string }{
			{fiber.MethodGet, "/support-cases"},
			{fiber.MethodGet, "/support-cases/unseen/count"},
			{fiber.MethodGet, "/support-cases/unseen/details"},
			{fiber.MethodPut, "/support-cases/" + caseID + "/claim"},
			{fiber.MethodPut, "/support-cases/" + caseID + "/supporter-name"},
		} {
			status, _ := doJSON(t, app, target.method, target.path, token, map[string]any{"supporterName": "x"})
			if status != fiber.StatusForbidden {
				t.Fatalf("%s %s: expected 403, got %d", target.method, target.path, status)
			}
		}
	})

	t.Run("close own case with rating", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodPut, "/support-cases/"+caseID+"/close", token, map[string]any{
			"rating": 4,
		})
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
		if got := body["data"].(map[string]any)["caseStatus"]; got != string(domain.CaseStatusClosed) {
			t.Fatalf("expected CLOSED, got %v", got)
		}
	})

	t.Run("no token is unauthorized", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodGet, "/support-cases/"+caseID, "", nil)
		if status != fiber.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
	})
}

func TestStaffRoutes(t *testing.T) {
	app := newTestApp(t)
	caseID, _ := openCase(t, app)
	token := staffLogin(t, app)

	t.Run("list cases", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/support-cases?status=OPEN", token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
		if items := body["data"].([]any); len(items) != 1 {
			t.Fatalf("expected 1 open case, got %d", len(items))
		}
	})

	t.Run("snapshot of any case", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodGet, "/support-cases/"+caseID, token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
	})

	t.Run("claim", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodPut, "/support-cases/"+caseID+"/claim", token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
		if won := body["data"].(map[string]any)["claimed"]; won != true {
			t.Fatalf("expected claimed=true, got %v", won)
		}
	})

	t.Run("supporter name", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPut, "/support-cases/"+caseID+"/supporter-name", token, map[string]any{
			"supporterName": "Sam",
		})
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
	})

	t.Run("unseen badges", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/support-cases/unseen/count", token, nil)
		if status != fiber.StatusOK {
			t.Fatalf("expected 200, got %d (%v)", status, body)
		}
	})
}

func TestRequestDeadlinePropagates(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Second)
	app.Get("/deadline-check", func(c *fiber.Ctx) error {
		if _, ok := c.UserContext().Deadline(); !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "no deadline on request context")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/deadline-check", nil), 5000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}
