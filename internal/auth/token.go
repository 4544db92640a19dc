package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens for both staff
// consoles and guest customer widgets.
type TokenManager struct {
	secret      []byte
	staffTTL    time.Duration
	customerTTL time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, staffTTLMinutes, customerTTLMinutes int) *TokenManager {
	if staffTTLMinutes <= 0 {
		staffTTLMinutes = 480
	}
	if customerTTLMinutes <= 0 {
		customerTTLMinutes = 1440
	}
	return &TokenManager{
		secret:      []byte(secret),
		staffTTL:    time.Duration(staffTTLMinutes) * time.Minute,
		customerTTL: time.Duration(customerTTLMinutes) * time.Minute,
	}
}

// Claims describes JWT payload.
type Claims struct {
	SubjectID string             `json:"sub"`
	Subject   domain.SubjectType `json:"subject"`
	Name      string             `json:"name"`
	Email     string             `json:"email,omitempty"`
	CaseID    string             `json:"case_id,omitempty"`
	Role      *domain.StaffRole  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateStaffToken signs a token for a staff member.
func (tm *TokenManager) GenerateStaffToken(staff *domain.StaffMember) (string, time.Time, error) {
	return tm.sign(&Claims{
		SubjectID: staff.ID,
		Subject:   domain.SubjectTypeStaff,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      &staff.Role,
	}, tm.staffTTL)
}

// GenerateCustomerToken signs a token for a guest customer, scoped to the
// case created for them. Customers are not persisted accounts; identity
// lives entirely in the token.
func (tm *TokenManager) GenerateCustomerToken(c *domain.SupportCase) (string, time.Time, error) {
	return tm.sign(&Claims{
		SubjectID: c.ID,
		Subject:   domain.SubjectTypeCustomer,
		Name:      c.CustomerName,
		Email:     c.CustomerEmail,
		CaseID:    c.ID,
	}, tm.customerTTL)
}

func (tm *TokenManager) sign(claims *Claims, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.SubjectID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
