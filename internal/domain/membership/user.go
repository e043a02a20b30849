package membership

import (
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserStatus represents the lifecycle status of a cooperative user
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// IsValid checks if the status is known
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// User is a cooperative participant. Identity and profile management live
// elsewhere; fee logic only reads users.
type User struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Role           shared.Role
	Status         UserStatus
	UnitID         *uuid.UUID
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive reports whether the user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// InUnit reports whether the user belongs to the given unit
func (u *User) InUnit(unitID uuid.UUID) bool {
	return u.UnitID != nil && *u.UnitID == unitID
}

// Unit is an organizational subgroup of members
type Unit struct {
	ID        uuid.UUID
	Name      string
	ZoneName  string
	LeaderID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
