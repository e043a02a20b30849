package fee

import (
	"context"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FeeRuleRepository persists fee rules. Soft-deleted rules are invisible to
// every finder except FindByIDIncludingDeleted.
type FeeRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FeeRule, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]FeeRule, int64, error)
	// FindApplicable returns active rules with effective_date on or before day.
	FindApplicable(ctx context.Context, day time.Time) ([]FeeRule, error)
	// FindScheduledDue returns scheduled rules with effective_date on or before day.
	FindScheduledDue(ctx context.Context, day time.Time) ([]FeeRule, error)
	Save(ctx context.Context, rule *FeeRule) error
}

// UnitAssignmentRepository persists fee rule unit assignments
type UnitAssignmentRepository interface {
	// Upsert inserts or overwrites the assignment for (rule, unit).
	Upsert(ctx context.Context, assignment *UnitAssignment) error
	FindByRule(ctx context.Context, ruleID uuid.UUID) ([]UnitAssignment, error)
	FindActiveByRule(ctx context.Context, ruleID uuid.UUID) ([]UnitAssignment, error)
}

// FeeApplicationRepository persists fee applications
type FeeApplicationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FeeApplication, error)
	// FindByIDsForUser returns the applications among ids that belong to userID.
	FindByIDsForUser(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]FeeApplication, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]FeeApplication, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]FeeApplication, int64, error)
	// FindPendingDueBefore returns pending applications whose due date is before day.
	FindPendingDueBefore(ctx context.Context, day time.Time) ([]FeeApplication, error)
	// ExistsOpen reports whether an open application exists for (rule, user).
	ExistsOpen(ctx context.Context, ruleID, userID uuid.UUID) (bool, error)
	// OpenUserIDs returns the users that already hold an open application under ruleID.
	OpenUserIDs(ctx context.Context, ruleID uuid.UUID) ([]uuid.UUID, error)
	// Create inserts a new application. It returns ErrDuplicateOpenApplication
	// when the open-application uniqueness constraint rejects the row.
	Create(ctx context.Context, app *FeeApplication) error
	Save(ctx context.Context, app *FeeApplication) error
}
