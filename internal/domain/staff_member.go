package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent      StaffRole = "AGENT"
	StaffRoleSuperAdmin StaffRole = "SUPER_ADMIN"
)

// StaffMember models a support agent or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OpenerTag maps a staff role to the case opener tag used when staff open
// a case on a customer's behalf.
func (s *StaffMember) OpenerTag() OpenedBy {
	if s.Role == StaffRoleSuperAdmin {
		return OpenedBySuperAdmin
	}
	return OpenedBySeller
}
