package models

import (
	"time"

	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel is the persistence model for cooperative users
type UserModel struct {
	BaseModel
	Name           string                `gorm:"type:varchar(200);not null"`
	Phone          string                `gorm:"type:varchar(30)"`
	Role           string                `gorm:"type:varchar(20);not null;index:idx_users_role_status,priority:1"`
	Status         membership.UserStatus `gorm:"type:varchar(20);not null;index:idx_users_role_status,priority:2"`
	UnitID         *uuid.UUID            `gorm:"type:uuid;index"`
	LastActivityAt *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain user
func (m *UserModel) ToDomain() *membership.User {
	return &membership.User{
		ID:             m.ID,
		Name:           m.Name,
		Phone:          m.Phone,
		Role:           shared.Role(m.Role),
		Status:         m.Status,
		UnitID:         m.UnitID,
		LastActivityAt: m.LastActivityAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// UserModelFromDomain creates a model from a domain user
func UserModelFromDomain(u *membership.User) *UserModel {
	return &UserModel{
		BaseModel: BaseModel{ID: u.ID, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt},
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role.String(),
		Status:    u.Status,
		UnitID:    u.UnitID,

		LastActivityAt: u.LastActivityAt,
	}
}

// UnitModel is the persistence model for units
type UnitModel struct {
	BaseModel
	Name     string     `gorm:"type:varchar(200);not null"`
	ZoneName string     `gorm:"type:varchar(200)"`
	LeaderID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// ToDomain converts the model to a domain unit
func (m *UnitModel) ToDomain() *membership.Unit {
	return &membership.Unit{
		ID:        m.ID,
		Name:      m.Name,
		ZoneName:  m.ZoneName,
		LeaderID:  m.LeaderID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
