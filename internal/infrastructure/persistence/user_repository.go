package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements membership.UserRepository using GORM.
// The users table is owned by the membership module; this side only reads it.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*membership.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByRole returns active users holding role
func (r *GormUserRepository) FindActiveByRole(ctx context.Context, role shared.Role) ([]membership.User, error) {
	return r.find(r.activeByRole(ctx, role))
}

// FindActiveByRoleCreatedSince returns active users holding role who joined on or after since
func (r *GormUserRepository) FindActiveByRoleCreatedSince(ctx context.Context, role shared.Role, since time.Time) ([]membership.User, error) {
	return r.find(r.activeByRole(ctx, role).Where("created_at >= ?", since))
}

// FindActiveByRoleActiveSince returns active users holding role seen on or after since
func (r *GormUserRepository) FindActiveByRoleActiveSince(ctx context.Context, role shared.Role, since time.Time) ([]membership.User, error) {
	return r.find(r.activeByRole(ctx, role).Where("last_activity_at >= ?", since))
}

// FindActiveByRoleInUnits returns active users holding role in any of unitIDs
func (r *GormUserRepository) FindActiveByRoleInUnits(ctx context.Context, role shared.Role, unitIDs []uuid.UUID) ([]membership.User, error) {
	if len(unitIDs) == 0 {
		return []membership.User{}, nil
	}
	return r.find(r.activeByRole(ctx, role).Where("unit_id IN ?", unitIDs))
}

func (r *GormUserRepository) activeByRole(ctx context.Context, role shared.Role) *gorm.DB {
	return r.db.WithContext(ctx).Where("role = ? AND status = ?", role.String(), membership.UserStatusActive)
}

func (r *GormUserRepository) find(query *gorm.DB) ([]membership.User, error) {
	var rows []models.UserModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]membership.User, len(rows))
	for i := range rows {
		users[i] = *rows[i].ToDomain()
	}
	return users, nil
}

// GormUnitRepository implements membership.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*membership.Unit, error) {
	var model models.UnitModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindExistingIDs returns the subset of ids that name existing units
func (r *GormUnitRepository) FindExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.UnitModel{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

var (
	_ membership.UserRepository = (*GormUserRepository)(nil)
	_ membership.UnitRepository = (*GormUnitRepository)(nil)
)
