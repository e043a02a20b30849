package shared

import "github.com/google/uuid"

// Role is the coarse authorization role of a user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUnitLeader Role = "unit_leader"
	RoleMember     Role = "member"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUnitLeader, RoleMember:
		return true
	}
	return false
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsAuthenticated reports whether the actor carries a user id
func (a Actor) IsAuthenticated() bool {
	return a.UserID != uuid.Nil
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is used for scheduler-driven operations.
var SystemActor = Actor{Role: RoleAdmin}
