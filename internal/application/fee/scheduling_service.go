package fee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/membership"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SchedulingService turns fee rules into fee applications and drives the
// time-based status sweeps.
//
// Batch operations isolate failures at two levels. Per-user and per-rule
// failures are recorded in the result and never abort the batch. Only
// infrastructure failures (loading the work list, begin, commit) abort, and
// for ApplyActiveFeeRules they roll back the whole sweep.
type SchedulingService struct {
	txScope         TransactionScope
	ruleRepo        fee.FeeRuleRepository
	assignmentRepo  fee.UnitAssignmentRepository
	applicationRepo fee.FeeApplicationRepository
	unitRepo        membership.UnitRepository
	resolver        *ApplicabilityResolver
	eventPublisher  shared.EventPublisher
	clock           shared.Clock
	logger          *zap.Logger
}

// SchedulingServiceConfig holds the dependencies of SchedulingService
type SchedulingServiceConfig struct {
	TxScope         TransactionScope
	RuleRepo        fee.FeeRuleRepository
	AssignmentRepo  fee.UnitAssignmentRepository
	ApplicationRepo fee.FeeApplicationRepository
	UnitRepo        membership.UnitRepository
	Resolver        *ApplicabilityResolver
	EventPublisher  shared.EventPublisher
	Clock           shared.Clock
	Logger          *zap.Logger
}

// NewSchedulingService creates a new SchedulingService
func NewSchedulingService(cfg SchedulingServiceConfig) *SchedulingService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.NewSystemClock(nil)
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewApplicabilityResolver(ResolverConfig{Clock: clock, Logger: logger})
	}
	return &SchedulingService{
		txScope:         cfg.TxScope,
		ruleRepo:        cfg.RuleRepo,
		assignmentRepo:  cfg.AssignmentRepo,
		applicationRepo: cfg.ApplicationRepo,
		unitRepo:        cfg.UnitRepo,
		resolver:        resolver,
		eventPublisher:  cfg.EventPublisher,
		clock:           clock,
		logger:          logger,
	}
}

// ApplyFeeRule creates fee applications for every user the rule applies to.
// The rule must be active and already effective.
func (s *SchedulingService) ApplyFeeRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID) (*ApplyResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if err := rule.CheckApplicable(s.clock.Now()); err != nil {
		return nil, err
	}

	var result *ApplyResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var applyErr error
		result, applyErr = s.applyRule(ctx, repos, rule)
		return applyErr
	})
	if err != nil {
		s.logger.Error("Failed to apply fee rule",
			zap.String("fee_rule_id", ruleID.String()),
			zap.String("actor_id", actor.UserID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Fee rule applied",
		zap.String("fee_rule_id", ruleID.String()),
		zap.Int("applied_count", result.AppliedCount),
		zap.Int("skipped_count", result.SkippedCount),
		zap.Int("error_count", len(result.Errors)))
	return result, nil
}

// applyRule creates the missing open applications of one rule. It returns an
// error only when the applicable users cannot be resolved; per-user failures
// are collected in the result.
func (s *SchedulingService) applyRule(ctx context.Context, repos TransactionalRepositories, rule *fee.FeeRule) (*ApplyResult, error) {
	result := &ApplyResult{RuleID: rule.ID, Errors: []ItemError{}}

	resolution, err := s.resolver.Resolve(ctx, repos, rule)
	if err != nil {
		return nil, err
	}

	apps := repos.FeeApplicationRepo()
	now := s.clock.Now()
	for _, user := range resolution.Users {
		exists, err := apps.ExistsOpen(ctx, rule.ID, user.ID)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: user.ID.String(), Error: err.Error()})
			continue
		}
		if exists {
			result.SkippedCount++
			continue
		}

		var override *decimal.Decimal
		if amt, ok := resolution.Overrides.For(user.UnitID); ok {
			override = &amt
		}
		app, err := fee.NewFeeApplication(rule, user.ID, user.UnitID, override, now)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{ID: user.ID.String(), Error: err.Error()})
			continue
		}
		if err := apps.Create(ctx, app); err != nil {
			// A concurrent sweep got there first.
			if errors.Is(err, fee.ErrDuplicateOpenApplication) {
				result.SkippedCount++
				continue
			}
			s.logger.Warn("Failed to create fee application",
				zap.String("fee_rule_id", rule.ID.String()),
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, ItemError{ID: user.ID.String(), Error: err.Error()})
			continue
		}
		result.AppliedCount++
	}
	return result, nil
}

// ApplyActiveFeeRules applies every active, effective rule inside one
// transaction. A failing rule is recorded and the sweep continues; a failure
// of the transaction itself rolls everything back and is returned.
func (s *SchedulingService) ApplyActiveFeeRules(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	today := shared.Today(s.clock)
	result := &SweepResult{Rules: []ApplyResult{}, Errors: []ItemError{}}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rules, err := repos.FeeRuleRepo().FindApplicable(ctx, today)
		if err != nil {
			return fmt.Errorf("load applicable fee rules: %w", err)
		}
		for i := range rules {
			rule := &rules[i]
			result.RulesChecked++

			var ruleResult *ApplyResult
			err := repos.Nested(ctx, func(inner TransactionalRepositories) error {
				var applyErr error
				ruleResult, applyErr = s.applyRule(ctx, inner, rule)
				return applyErr
			})
			if err != nil {
				s.logger.Warn("Fee rule skipped during sweep",
					zap.String("fee_rule_id", rule.ID.String()),
					zap.Error(err))
				result.Errors = append(result.Errors, ItemError{ID: rule.ID.String(), Error: err.Error()})
				continue
			}
			result.AppliedCount += ruleResult.AppliedCount
			result.Rules = append(result.Rules, *ruleResult)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Fee sweep rolled back",
			zap.Int("rules_checked", result.RulesChecked),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return &SweepResult{Success: false, Rules: []ApplyResult{}, Errors: []ItemError{{ID: "sweep", Error: err.Error()}}}, err
	}

	result.Success = true
	s.logger.Info("Fee sweep completed",
		zap.Int("rules_checked", result.RulesChecked),
		zap.Int("applied_count", result.AppliedCount),
		zap.Int("error_count", len(result.Errors)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// ScheduleFeeRule sets the rule to scheduled with the given effective date.
// It reports failure as false; the cause is logged.
func (s *SchedulingService) ScheduleFeeRule(ctx context.Context, ruleID uuid.UUID, effectiveDate time.Time) bool {
	if _, err := s.schedule(ctx, ruleID, effectiveDate); err != nil {
		s.logger.Warn("Failed to schedule fee rule",
			zap.String("fee_rule_id", ruleID.String()),
			zap.Time("effective_date", effectiveDate),
			zap.Error(err))
		return false
	}
	return true
}

// Schedule is the typed-error form of ScheduleFeeRule used by the API.
func (s *SchedulingService) Schedule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, effectiveDate time.Time) (*fee.FeeRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.schedule(ctx, ruleID, effectiveDate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fee rule scheduled",
		zap.String("fee_rule_id", ruleID.String()),
		zap.String("effective_date", rule.EffectiveDate.Format(DateLayout)),
		zap.String("actor_id", actor.UserID.String()))
	return rule, nil
}

func (s *SchedulingService) schedule(ctx context.Context, ruleID uuid.UUID, effectiveDate time.Time) (*fee.FeeRule, error) {
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if err := rule.Schedule(effectiveDate, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ActivateScheduledRules flips scheduled rules whose effective date has
// arrived to active. Each rule is handled independently.
func (s *SchedulingService) ActivateScheduledRules(ctx context.Context) (*BatchResult, error) {
	now := s.clock.Now()
	rules, err := s.ruleRepo.FindScheduledDue(ctx, shared.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("load scheduled fee rules: %w", err)
	}

	result := &BatchResult{Errors: []ItemError{}}
	for i := range rules {
		rule := &rules[i]
		result.Processed++
		if err := rule.Activate(now); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: rule.ID.String(), Error: err.Error()})
			continue
		}
		if err := s.ruleRepo.Save(ctx, rule); err != nil {
			s.logger.Warn("Failed to activate fee rule",
				zap.String("fee_rule_id", rule.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, ItemError{ID: rule.ID.String(), Error: err.Error()})
			continue
		}
		s.publish(ctx, rule.GetDomainEvents()...)
		rule.ClearDomainEvents()
		result.Updated++
	}

	s.logger.Info("Scheduled fee rules activated",
		zap.Int("processed", result.Processed),
		zap.Int("activated", result.Updated),
		zap.Int("error_count", len(result.Errors)))
	return result, nil
}

// MarkOverdueFees moves pending applications past their due date to overdue.
// Each application is handled independently.
func (s *SchedulingService) MarkOverdueFees(ctx context.Context) (*BatchResult, error) {
	now := s.clock.Now()
	apps, err := s.applicationRepo.FindPendingDueBefore(ctx, shared.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("load pending fee applications: %w", err)
	}

	result := &BatchResult{Errors: []ItemError{}}
	for i := range apps {
		app := &apps[i]
		result.Processed++
		if !app.MarkOverdue(now) {
			continue
		}
		if err := s.applicationRepo.Save(ctx, app); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: app.ID.String(), Error: err.Error()})
			continue
		}
		result.Updated++
	}

	s.logger.Info("Overdue fee applications marked",
		zap.Int("processed", result.Processed),
		zap.Int("marked_overdue", result.Updated),
		zap.Int("error_count", len(result.Errors)))
	return result, nil
}

// RunDailySweep activates due rules, applies every active rule and marks
// overdue applications, in that order. A failing step does not stop the
// later ones; step failures are returned joined.
func (s *SchedulingService) RunDailySweep(ctx context.Context) (*DailySweepResult, error) {
	result := &DailySweepResult{}
	var errs []error

	activated, err := s.ActivateScheduledRules(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("activate scheduled rules: %w", err))
	}
	result.Activated = activated

	applied, err := s.ApplyActiveFeeRules(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("apply active rules: %w", err))
	}
	result.Applied = applied

	overdue, err := s.MarkOverdueFees(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("mark overdue fees: %w", err))
	}
	result.Overdue = overdue

	return result, errors.Join(errs...)
}

// Sweep runs the daily sweep on demand for an admin.
func (s *SchedulingService) Sweep(ctx context.Context, actor shared.Actor) (*DailySweepResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	s.logger.Info("Manual fee sweep requested", zap.String("actor_id", actor.UserID.String()))
	return s.RunDailySweep(ctx)
}

// AssignFeeRuleToUnits upserts one assignment per unit. Unknown units and
// failed upserts are recorded per unit without stopping the rest.
func (s *SchedulingService) AssignFeeRuleToUnits(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, unitIDs []uuid.UUID, customAmounts map[uuid.UUID]decimal.Decimal) (*AssignResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	existing, err := s.unitRepo.FindExistingIDs(ctx, unitIDs)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	result := &AssignResult{RuleID: rule.ID, Errors: []ItemError{}}
	now := s.clock.Now()
	for _, unitID := range unitIDs {
		if !known[unitID] {
			result.Errors = append(result.Errors, ItemError{ID: unitID.String(), Error: shared.ErrNotFound.Error()})
			continue
		}
		var custom *decimal.Decimal
		if amt, ok := customAmounts[unitID]; ok {
			if amt.IsNegative() {
				result.Errors = append(result.Errors, ItemError{ID: unitID.String(), Error: "custom amount cannot be negative"})
				continue
			}
			custom = &amt
		}
		if err := s.assignmentRepo.Upsert(ctx, fee.NewUnitAssignment(rule.ID, unitID, custom, now)); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: unitID.String(), Error: err.Error()})
			continue
		}
		result.AssignedCount++
	}

	s.logger.Info("Fee rule assigned to units",
		zap.String("fee_rule_id", rule.ID.String()),
		zap.Int("assigned_count", result.AssignedCount),
		zap.Int("error_count", len(result.Errors)))
	return result, nil
}

func (s *SchedulingService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
}

func requireAdmin(actor shared.Actor) error {
	if !actor.IsAuthenticated() {
		return shared.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return shared.ErrForbidden
	}
	return nil
}
