package fee

import (
	"context"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RuleService handles fee rule maintenance and fee application queries
type RuleService struct {
	ruleRepo        fee.FeeRuleRepository
	assignmentRepo  fee.UnitAssignmentRepository
	applicationRepo fee.FeeApplicationRepository
	eventPublisher  shared.EventPublisher
	clock           shared.Clock
	logger          *zap.Logger
}

// RuleServiceConfig holds the dependencies of RuleService
type RuleServiceConfig struct {
	RuleRepo        fee.FeeRuleRepository
	AssignmentRepo  fee.UnitAssignmentRepository
	ApplicationRepo fee.FeeApplicationRepository
	EventPublisher  shared.EventPublisher
	Clock           shared.Clock
	Logger          *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(cfg RuleServiceConfig) *RuleService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.NewSystemClock(nil)
	}
	return &RuleService{
		ruleRepo:        cfg.RuleRepo,
		assignmentRepo:  cfg.AssignmentRepo,
		applicationRepo: cfg.ApplicationRepo,
		eventPublisher:  cfg.EventPublisher,
		clock:           clock,
		logger:          logger,
	}
}

// Create creates a fee rule. A future effective date forces scheduled
// unless the rule is created as a draft.
func (s *RuleService) Create(ctx context.Context, actor shared.Actor, in fee.RuleInput) (*FeeRuleResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := fee.NewFeeRule(in, actor.UserID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Fee rule created",
		zap.String("fee_rule_id", rule.ID.String()),
		zap.String("status", rule.Status.String()),
		zap.String("actor_id", actor.UserID.String()))
	resp := ToFeeRuleResponse(rule)
	return &resp, nil
}

// Get returns a fee rule by ID
func (s *RuleService) Get(ctx context.Context, id uuid.UUID) (*FeeRuleResponse, error) {
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToFeeRuleResponse(rule)
	return &resp, nil
}

// List returns one page of fee rules
func (s *RuleService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[FeeRuleResponse], error) {
	filter = filter.Normalize()
	rules, total, err := s.ruleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToFeeRuleResponses(rules), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update replaces the attributes of a fee rule. Existing fee applications
// keep the amount they were created with.
func (s *RuleService) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, in fee.RuleInput) (*FeeRuleResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Update(in, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	s.publish(ctx, rule)

	resp := ToFeeRuleResponse(rule)
	return &resp, nil
}

// Deactivate stops a rule from producing new applications
func (s *RuleService) Deactivate(ctx context.Context, actor shared.Actor, id uuid.UUID) (*FeeRuleResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Deactivate(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	resp := ToFeeRuleResponse(rule)
	return &resp, nil
}

// Delete soft-deletes a fee rule. Its applications are kept.
func (s *RuleService) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	rule.SoftDelete(s.clock.Now())
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return err
	}
	s.logger.Info("Fee rule deleted",
		zap.String("fee_rule_id", id.String()),
		zap.String("actor_id", actor.UserID.String()))
	return nil
}

// UnitAssignments lists the unit assignments of a rule
func (s *RuleService) UnitAssignments(ctx context.Context, id uuid.UUID) ([]fee.UnitAssignment, error) {
	if _, err := s.ruleRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.assignmentRepo.FindByRule(ctx, id)
}

// ListApplications returns one page of a user's fee applications. Members
// see their own; an admin may name any user.
func (s *RuleService) ListApplications(ctx context.Context, actor shared.Actor, userID *uuid.UUID, filter shared.Filter) (*shared.Paginated[FeeApplicationResponse], error) {
	if !actor.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	target := actor.UserID
	if userID != nil && *userID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, shared.ErrForbidden
		}
		target = *userID
	}

	filter = filter.Normalize()
	apps, total, err := s.applicationRepo.FindByUser(ctx, target, filter)
	if err != nil {
		return nil, err
	}
	items := make([]FeeApplicationResponse, len(apps))
	for i := range apps {
		items[i] = ToFeeApplicationResponse(&apps[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *RuleService) publish(ctx context.Context, rule *fee.FeeRule) {
	events := rule.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish fee rule events",
			zap.String("fee_rule_id", rule.ID.String()),
			zap.Error(err))
	}
	rule.ClearDomainEvents()
}
