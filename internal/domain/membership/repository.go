package membership

import (
	"context"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository reads cooperative users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindActiveByRole returns active users holding role.
	FindActiveByRole(ctx context.Context, role shared.Role) ([]User, error)
	// FindActiveByRoleCreatedSince returns active users holding role created at or after since.
	FindActiveByRoleCreatedSince(ctx context.Context, role shared.Role, since time.Time) ([]User, error)
	// FindActiveByRoleActiveSince returns active users holding role whose last activity is at or after since.
	FindActiveByRoleActiveSince(ctx context.Context, role shared.Role, since time.Time) ([]User, error)
	// FindActiveByRoleInUnits returns active users holding role that belong to one of unitIDs.
	FindActiveByRoleInUnits(ctx context.Context, role shared.Role, unitIDs []uuid.UUID) ([]User, error)
}

// UnitRepository reads units
type UnitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	// FindExistingIDs returns the subset of ids that exist.
	FindExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}
