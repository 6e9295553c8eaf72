package auth

import "strings"

type Role string

const (
	RoleGuest    Role = "guest"
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// ParseRole is case-insensitive. Anything it does not recognise is a guest.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleLecturer:
		return RoleLecturer
	case RoleStudent:
		return RoleStudent
	default:
		return RoleGuest
	}
}

// Status is the per-request view of the caller. Exactly one of the Is*
// predicates holds, and Email is set whenever the caller is not a guest.
type Status struct {
	Role  Role
	Email string
	Name  string
}

func Guest() Status {
	return Status{Role: RoleGuest}
}

// NewStatus normalises extracted claims. A caller without a recognised role
// or without an email is a guest, whatever else the token says.
func NewStatus(role Role, email, name string) Status {
	email = strings.TrimSpace(email)
	if role == RoleGuest || email == "" {
		return Guest()
	}
	switch role {
	case RoleAdmin, RoleLecturer, RoleStudent:
	default:
		return Guest()
	}
	return Status{Role: role, Email: email, Name: strings.TrimSpace(name)}
}

func (s Status) IsAdmin() bool    { return s.Role == RoleAdmin }
func (s Status) IsLecturer() bool { return s.Role == RoleLecturer }
func (s Status) IsStudent() bool  { return s.Role == RoleStudent }
func (s Status) IsGuest() bool    { return !s.IsAdmin() && !s.IsLecturer() && !s.IsStudent() }

// Owns reports whether email identifies the caller, ignoring case. Guests
// own nothing.
func (s Status) Owns(email string) bool {
	return !s.IsGuest() && strings.EqualFold(s.Email, strings.TrimSpace(email))
}
