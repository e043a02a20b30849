package persistence

import (
	"context"

	appfee "github.com/agricoop/backend/internal/application/fee"
	apppayment "github.com/agricoop/backend/internal/application/payment"
	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/payment"
	"gorm.io/gorm"
)

// GormFeeTransactionScope implements the fee TransactionScope using GORM transactions.
type GormFeeTransactionScope struct {
	db *gorm.DB
}

// NewGormFeeTransactionScope creates a new GormFeeTransactionScope.
func NewGormFeeTransactionScope(db *gorm.DB) *GormFeeTransactionScope {
	return &GormFeeTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormFeeTransactionScope) Execute(ctx context.Context, fn func(repos appfee.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormPaymentTransactionScope implements the payment TransactionScope using GORM transactions.
type GormPaymentTransactionScope struct {
	db *gorm.DB
}

// NewGormPaymentTransactionScope creates a new GormPaymentTransactionScope.
func NewGormPaymentTransactionScope(db *gorm.DB) *GormPaymentTransactionScope {
	return &GormPaymentTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormPaymentTransactionScope) Execute(ctx context.Context, fn func(repos apppayment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// UserRepo returns the user repository scoped to the current transaction.
func (r *gormTransactionalRepositories) UserRepo() membership.UserRepository {
	return NewGormUserRepository(r.tx)
}

// AssignmentRepo returns the unit assignment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AssignmentRepo() fee.UnitAssignmentRepository {
	return NewGormUnitAssignmentRepository(r.tx)
}

// FeeRuleRepo returns the fee rule repository scoped to the current transaction.
func (r *gormTransactionalRepositories) FeeRuleRepo() fee.FeeRuleRepository {
	return NewGormFeeRuleRepository(r.tx)
}

// FeeApplicationRepo returns the fee application repository scoped to the current transaction.
func (r *gormTransactionalRepositories) FeeApplicationRepo() fee.FeeApplicationRepository {
	return NewGormFeeApplicationRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() payment.Repository {
	return NewGormPaymentRepository(r.tx)
}

// Nested runs fn inside a savepoint. GORM turns a Transaction call on a
// transaction handle into SAVEPOINT / ROLLBACK TO.
func (r *gormTransactionalRepositories) Nested(ctx context.Context, fn func(repos appfee.TransactionalRepositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

var (
	_ appfee.TransactionScope              = (*GormFeeTransactionScope)(nil)
	_ apppayment.TransactionScope          = (*GormPaymentTransactionScope)(nil)
	_ appfee.TransactionalRepositories     = (*gormTransactionalRepositories)(nil)
	_ apppayment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
