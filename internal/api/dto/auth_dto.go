package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffLoginResponse payload.
type StaffLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	StaffID   string    `json:"staffId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

// CreatedCaseResponse bundles a fresh case with the guest token the
// customer widget uses for subsequent REST and socket calls.
type CreatedCaseResponse struct {
	Case           CaseDetailResponse `json:"case"`
	Token          string             `json:"token"`
	TokenExpiresAt time.Time          `json:"tokenExpiresAt"`
}
