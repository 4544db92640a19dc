package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-chat-service/internal/domain"
	"github.com/spec-kit/support-chat-service/internal/repository"
	apperrors "github.com/spec-kit/support-chat-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Customers are token-only
// identities scoped to one case; staff are loaded from the database.
type Principal struct {
	SubjectType   domain.SubjectType
	Staff         *domain.StaffMember
	CustomerName  string
	CustomerEmail string
	CaseID        string
}

// ActorClass returns the caller's conversation side.
func (p *Principal) ActorClass() domain.ActorClass {
	return p.SubjectType.Class()
}

// DisplayName returns the name shown in conversation payloads.
func (p *Principal) DisplayName() string {
	if p.Staff != nil {
		return p.Staff.Name
	}
	return p.CustomerName
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal, err := m.principalFromClaims(c, claims)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) principalFromClaims(c *fiber.Ctx, claims *Claims) (*Principal, error) {
	switch claims.Subject {
	case domain.SubjectTypeCustomer:
		return &Principal{
			SubjectType:   domain.SubjectTypeCustomer,
			CustomerName:  claims.Name,
			CustomerEmail: claims.Email,
			CaseID:        claims.CaseID,
		}, nil
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewUnauthorized("staff not found")
			}
			return nil, apperrors.MapError(err)
		}
		if !staff.Active {
			return nil, apperrors.NewUnauthorized("staff account disabled")
		}
		return &Principal{SubjectType: domain.SubjectTypeStaff, Staff: staff}, nil
	default:
		return nil, apperrors.NewUnauthorized("unknown subject")
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
