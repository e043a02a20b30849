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
	"gorm.io/gorm/clause"
)

// GormFeeRuleRepository implements fee.FeeRuleRepository using GORM.
// Soft-deleted rules are invisible to every query.
type GormFeeRuleRepository struct {
	db *gorm.DB
}

// NewGormFeeRuleRepository creates a new GormFeeRuleRepository
func NewGormFeeRuleRepository(db *gorm.DB) *GormFeeRuleRepository {
	return &GormFeeRuleRepository{db: db}
}

// FindByID finds a fee rule by its ID
func (r *GormFeeRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fee.FeeRule, error) {
	var model models.FeeRuleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fee.ErrFeeRuleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of fee rules and the total match count.
// Supported filters: status, type, applicable_to, search.
func (r *GormFeeRuleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fee.FeeRule, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.FeeRuleModel{})
	for _, key := range []string{"status", "type", "applicable_to"} {
		if v, ok := filter.Filters[key]; ok && v != "" {
			query = query.Where(key+" = ?", v)
		}
	}
	if search, ok := filter.Filters["search"].(string); ok && search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FeeRuleModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, FeeRuleSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return feeRulesToDomain(rows), total, nil
}

// FindApplicable returns active rules whose effective date is on or before day
func (r *GormFeeRuleRepository) FindApplicable(ctx context.Context, day time.Time) ([]fee.FeeRule, error) {
	return r.findByStatusEffectiveBy(ctx, fee.RuleStatusActive, day)
}

// FindScheduledDue returns scheduled rules whose effective date has arrived.
// The bound is the calendar date after day, so the comparison holds for DATE
// columns whatever the session time zone.
func (r *GormFeeRuleRepository) FindScheduledDue(ctx context.Context, day time.Time) ([]fee.FeeRule, error) {
	return r.findByStatusEffectiveBy(ctx, fee.RuleStatusScheduled, day)
}

func (r *GormFeeRuleRepository) findByStatusEffectiveBy(ctx context.Context, status fee.RuleStatus, day time.Time) ([]fee.FeeRule, error) {
	var rows []models.FeeRuleModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND effective_date < ?", status, shared.DateString(day.AddDate(0, 0, 1))).
		Order("effective_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return feeRulesToDomain(rows), nil
}

// Save creates or updates a fee rule
func (r *GormFeeRuleRepository) Save(ctx context.Context, rule *fee.FeeRule) error {
	model := models.FeeRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Unscoped().Save(model).Error
}

func feeRulesToDomain(rows []models.FeeRuleModel) []fee.FeeRule {
	rules := make([]fee.FeeRule, len(rows))
	for i := range rows {
		rules[i] = *rows[i].ToDomain()
	}
	return rules
}

// GormUnitAssignmentRepository implements fee.UnitAssignmentRepository using GORM
type GormUnitAssignmentRepository struct {
	db *gorm.DB
}

// NewGormUnitAssignmentRepository creates a new GormUnitAssignmentRepository
func NewGormUnitAssignmentRepository(db *gorm.DB) *GormUnitAssignmentRepository {
	return &GormUnitAssignmentRepository{db: db}
}

// Upsert inserts the assignment or refreshes the existing (rule, unit) row
func (r *GormUnitAssignmentRepository) Upsert(ctx context.Context, assignment *fee.UnitAssignment) error {
	model := models.FeeRuleUnitModelFromDomain(assignment)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fee_rule_id"}, {Name: "unit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "custom_amount", "updated_at"}),
	}).Create(model).Error
}

// FindByRule returns every assignment of a rule
func (r *GormUnitAssignmentRepository) FindByRule(ctx context.Context, ruleID uuid.UUID) ([]fee.UnitAssignment, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("fee_rule_id = ?", ruleID))
}

// FindActiveByRule returns the active assignments of a rule
func (r *GormUnitAssignmentRepository) FindActiveByRule(ctx context.Context, ruleID uuid.UUID) ([]fee.UnitAssignment, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("fee_rule_id = ? AND is_active = ?", ruleID, true))
}

func (r *GormUnitAssignmentRepository) find(_ context.Context, query *gorm.DB) ([]fee.UnitAssignment, error) {
	var rows []models.FeeRuleUnitModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]fee.UnitAssignment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Ensure interfaces are satisfied
var (
	_ fee.FeeRuleRepository        = (*GormFeeRuleRepository)(nil)
	_ fee.UnitAssignmentRepository = (*GormUnitAssignmentRepository)(nil)
)
