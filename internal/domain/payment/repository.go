package payment

import (
	"context"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists payments
type Repository interface {
	CreateBatch(ctx context.Context, payments []*Payment) error
	Save(ctx context.Context, p *Payment) error
	// FindByReference returns every row sharing referenceID.
	FindByReference(ctx context.Context, referenceID string) ([]Payment, error)
	// FindByReferenceForUpdate is FindByReference with row locks, for use inside a transaction.
	FindByReferenceForUpdate(ctx context.Context, referenceID string) ([]Payment, error)
	// FindByReferenceForUser returns rows sharing referenceID owned by userID.
	FindByReferenceForUser(ctx context.Context, referenceID string, userID uuid.UUID) ([]Payment, error)
	// PendingFeeApplicationIDs returns which of feeIDs already have a pending payment.
	PendingFeeApplicationIDs(ctx context.Context, feeIDs []uuid.UUID) ([]uuid.UUID, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Payment, int64, error)
}
