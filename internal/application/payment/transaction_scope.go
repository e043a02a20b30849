package payment

import (
	"context"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/payment"
)

// TransactionScope runs reconciliation and payment recording atomically.
type TransactionScope interface {
	// Execute runs fn within a transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction
type TransactionalRepositories interface {
	PaymentRepo() payment.Repository
	FeeApplicationRepo() fee.FeeApplicationRepository
}
