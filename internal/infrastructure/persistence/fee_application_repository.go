package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeeApplicationRepository implements fee.FeeApplicationRepository using GORM
type GormFeeApplicationRepository struct {
	db *gorm.DB
}

// NewGormFeeApplicationRepository creates a new GormFeeApplicationRepository
func NewGormFeeApplicationRepository(db *gorm.DB) *GormFeeApplicationRepository {
	return &GormFeeApplicationRepository{db: db}
}

// FindByID finds a fee application by its ID
func (r *GormFeeApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*fee.FeeApplication, error) {
	var model models.FeeApplicationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fee.ErrFeeApplicationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUser returns the applications among ids that belong to userID.
// Missing or foreign ids are silently absent from the result.
func (r *GormFeeApplicationRepository) FindByIDsForUser(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]fee.FeeApplication, error) {
	if len(ids) == 0 {
		return []fee.FeeApplication{}, nil
	}
	return r.find(r.db.WithContext(ctx).Where("id IN ? AND user_id = ?", ids, userID))
}

// FindByIDs returns the applications among ids
func (r *GormFeeApplicationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]fee.FeeApplication, error) {
	if len(ids) == 0 {
		return []fee.FeeApplication{}, nil
	}
	return r.find(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindByUser returns one page of a user's applications. Supported filters:
// status, fee_rule_id.
func (r *GormFeeApplicationRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]fee.FeeApplication, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.FeeApplicationModel{}).Where("user_id = ?", userID)
	if v, ok := filter.Filters["status"]; ok && v != "" {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["fee_rule_id"]; ok && v != "" {
		query = query.Where("fee_rule_id = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items, err := r.find(query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, FeeApplicationSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindPendingDueBefore returns pending applications with a due date before
// day's calendar date in day's location
func (r *GormFeeApplicationRepository) FindPendingDueBefore(ctx context.Context, day time.Time) ([]fee.FeeApplication, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", fee.ApplicationStatusPending, shared.DateString(day)).
		Order("due_date ASC"))
}

// ExistsOpen reports whether the user has an unpaid application under the rule
func (r *GormFeeApplicationRepository) ExistsOpen(ctx context.Context, ruleID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FeeApplicationModel{}).
		Where("fee_rule_id = ? AND user_id = ? AND status IN ?", ruleID, userID, fee.OpenApplicationStatuses()).
		Count(&count).Error
	return count > 0, err
}

// OpenUserIDs lists users holding an unpaid application under the rule
func (r *GormFeeApplicationRepository) OpenUserIDs(ctx context.Context, ruleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.FeeApplicationModel{}).
		Where("fee_rule_id = ? AND status IN ?", ruleID, fee.OpenApplicationStatuses()).
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}

// Create inserts a new application inside a savepoint, so a unique violation
// leaves an enclosing transaction usable. The violation is reported as
// fee.ErrDuplicateOpenApplication.
func (r *GormFeeApplicationRepository) Create(ctx context.Context, app *fee.FeeApplication) error {
	model := models.FeeApplicationModelFromDomain(app)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if isUniqueViolation(err) {
		return fee.ErrDuplicateOpenApplication
	}
	return err
}

// Save persists a state change with optimistic locking. The domain object
// must already carry the incremented version.
func (r *GormFeeApplicationRepository) Save(ctx context.Context, app *fee.FeeApplication) error {
	model := models.FeeApplicationModelFromDomain(app)
	result := r.db.WithContext(ctx).
		Model(&models.FeeApplicationModel{}).
		Where("id = ? AND version = ?", app.ID, app.Version-1).
		Select("status", "paid_date", "updated_at", "version").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormFeeApplicationRepository) find(query *gorm.DB) ([]fee.FeeApplication, error) {
	var rows []models.FeeApplicationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]fee.FeeApplication, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormFeeApplicationRepository implements fee.FeeApplicationRepository
var _ fee.FeeApplicationRepository = (*GormFeeApplicationRepository)(nil)
