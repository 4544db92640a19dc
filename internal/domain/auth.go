package domain

// SubjectType differentiates customer vs staff tokens.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeStaff    SubjectType = "STAFF"
)

// Class maps a token subject to its conversation actor class.
func (s SubjectType) Class() ActorClass {
	if s == SubjectTypeStaff {
		return ActorClassStaff
	}
	return ActorClassCustomer
}
