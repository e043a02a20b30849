package fee

import (
	"context"
	"fmt"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolution is the set of users a rule applies to plus the per-unit amount
// overrides of the rule's active assignments.
type Resolution struct {
	Users     []membership.User
	Overrides fee.UnitOverrides
}

// ResolverConfig holds the look-back windows for the time-based classes
type ResolverConfig struct {
	NewMemberMonths    int
	ActiveMemberMonths int
	Clock              shared.Clock
	Logger             *zap.Logger
}

// ApplicabilityResolver maps a fee rule to the users it applies to. It only reads.
type ApplicabilityResolver struct {
	newMemberMonths    int
	activeMemberMonths int
	clock              shared.Clock
	logger             *zap.Logger
}

// NewApplicabilityResolver creates an ApplicabilityResolver
func NewApplicabilityResolver(cfg ResolverConfig) *ApplicabilityResolver {
	r := &ApplicabilityResolver{
		newMemberMonths:    cfg.NewMemberMonths,
		activeMemberMonths: cfg.ActiveMemberMonths,
		clock:              cfg.Clock,
		logger:             cfg.Logger,
	}
	if r.newMemberMonths <= 0 {
		r.newMemberMonths = 3
	}
	if r.activeMemberMonths <= 0 {
		r.activeMemberMonths = 6
	}
	if r.clock == nil {
		r.clock = shared.NewSystemClock(nil)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Resolve returns the users rule applies to. An unknown applicability value
// yields an empty set and a data-quality warning, never an error.
func (r *ApplicabilityResolver) Resolve(ctx context.Context, repos ResolverRepositories, rule *fee.FeeRule) (*Resolution, error) {
	assignments, err := repos.AssignmentRepo().FindActiveByRule(ctx, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("load unit assignments: %w", err)
	}
	res := &Resolution{Overrides: fee.NewUnitOverrides(assignments)}

	users := repos.UserRepo()
	now := r.clock.Now()
	switch rule.ApplicableTo {
	case fee.ApplicableAllMembers:
		res.Users, err = users.FindActiveByRole(ctx, shared.RoleMember)
	case fee.ApplicableUnitLeaders:
		res.Users, err = users.FindActiveByRole(ctx, shared.RoleUnitLeader)
	case fee.ApplicableNewMembers:
		res.Users, err = users.FindActiveByRoleCreatedSince(ctx, shared.RoleMember, now.AddDate(0, -r.newMemberMonths, 0))
	case fee.ApplicableActiveMembers:
		res.Users, err = users.FindActiveByRoleActiveSince(ctx, shared.RoleMember, now.AddDate(0, -r.activeMemberMonths, 0))
	case fee.ApplicableSpecificUnits:
		res.Users, err = users.FindActiveByRoleInUnits(ctx, shared.RoleMember, activeUnitIDs(assignments))
	default:
		r.logger.Warn("Fee rule has unknown applicability, no users resolved",
			zap.String("fee_rule_id", rule.ID.String()),
			zap.String("applicable_to", string(rule.ApplicableTo)))
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s users: %w", rule.ApplicableTo, err)
	}
	return res, nil
}

// activeUnitIDs lists the units of active assignments. An active assignment
// without a custom amount still targets its unit.
func activeUnitIDs(assignments []fee.UnitAssignment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		if a.IsActive {
			ids = append(ids, a.UnitID)
		}
	}
	return ids
}
