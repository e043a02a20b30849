package persistence

import (
	"context"

	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// CreateBatch inserts the payments of one charge in a single statement
func (r *GormPaymentRepository) CreateBatch(ctx context.Context, payments []*payment.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	rows := make([]*models.PaymentModel, len(payments))
	for i, p := range payments {
		rows[i] = models.PaymentModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Save updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Save(models.PaymentModelFromDomain(p)).Error
}

// FindByReference returns every payment sharing a gateway reference
func (r *GormPaymentRepository) FindByReference(ctx context.Context, referenceID string) ([]payment.Payment, error) {
	return r.find(r.db.WithContext(ctx).Where("reference_id = ?", referenceID))
}

// FindByReferenceForUpdate is FindByReference with row locks held until the
// enclosing transaction ends. Concurrent reconciliations of one reference
// are serialized by it.
func (r *GormPaymentRepository) FindByReferenceForUpdate(ctx context.Context, referenceID string) ([]payment.Payment, error) {
	return r.find(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_id = ?", referenceID))
}

// FindByReferenceForUser returns payments of a reference owned by userID
func (r *GormPaymentRepository) FindByReferenceForUser(ctx context.Context, referenceID string, userID uuid.UUID) ([]payment.Payment, error) {
	return r.find(r.db.WithContext(ctx).Where("reference_id = ? AND user_id = ?", referenceID, userID))
}

// PendingFeeApplicationIDs returns the subset of feeIDs that already have a
// pending payment
func (r *GormPaymentRepository) PendingFeeApplicationIDs(ctx context.Context, feeIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(feeIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("fee_application_id IN ? AND status = ?", feeIDs, payment.StatusPending).
		Distinct().
		Pluck("fee_application_id", &ids).Error
	return ids, err
}

// FindByUser returns one page of a user's payments, newest first by default.
// Supported filters: status.
func (r *GormPaymentRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]payment.Payment, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("user_id = ?", userID)
	if v, ok := filter.Filters["status"]; ok && v != "" {
		query = query.Where("status = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items, err := r.find(query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, PaymentSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormPaymentRepository) find(query *gorm.DB) ([]payment.Payment, error) {
	var rows []models.PaymentModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]payment.Payment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormPaymentRepository implements payment.Repository
var _ payment.Repository = (*GormPaymentRepository)(nil)
