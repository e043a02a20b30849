package fee

import (
	"context"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/membership"
)

// TransactionScope provides transactional access to the fee repositories.
// All repository operations inside Execute share one database transaction
// and are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// ResolverRepositories is the read side the applicability resolver needs
type ResolverRepositories interface {
	UserRepo() membership.UserRepository
	AssignmentRepo() fee.UnitAssignmentRepository
}

// TransactionalRepositories provides access to the fee repositories within a transaction.
type TransactionalRepositories interface {
	ResolverRepositories
	FeeRuleRepo() fee.FeeRuleRepository
	FeeApplicationRepo() fee.FeeApplicationRepository
	// Nested runs fn inside a savepoint of the current transaction. A failure
	// inside fn rolls back to the savepoint and leaves the outer transaction usable.
	Nested(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
