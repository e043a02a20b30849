package fee

import (
	"fmt"
	"strings"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeRule is the policy describing what is charged, to whom, how often and from when.
type FeeRule struct {
	shared.BaseAggregateRoot
	Name          string
	Type          RuleType
	Amount        decimal.Decimal
	Frequency     Frequency
	UnitLabel     string
	Status        RuleStatus
	ApplicableTo  Applicability
	Description   string
	EffectiveDate time.Time
	CreatedBy     uuid.UUID
	DeletedAt     *time.Time
}

// RuleInput carries the mutable attributes of a fee rule
type RuleInput struct {
	Name          string
	Type          RuleType
	Amount        decimal.Decimal
	Frequency     Frequency
	UnitLabel     string
	Status        RuleStatus
	ApplicableTo  Applicability
	Description   string
	EffectiveDate time.Time
}

func (in RuleInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Fee rule name cannot be empty")
	}
	if len(in.Name) > 255 {
		return shared.NewDomainError("INVALID_NAME", "Fee rule name cannot exceed 255 characters")
	}
	if !in.Type.IsValid() {
		return shared.NewDomainError("INVALID_FEE_TYPE", fmt.Sprintf("Unknown fee type %q", in.Type))
	}
	if in.Amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Fee amount cannot be negative")
	}
	if !in.Frequency.IsValid() {
		return shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Unknown frequency %q", in.Frequency))
	}
	if !in.ApplicableTo.IsValid() {
		return shared.NewDomainError("INVALID_APPLICABILITY", fmt.Sprintf("Unknown applicability %q", in.ApplicableTo))
	}
	if in.Status != "" && !in.Status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown fee rule status %q", in.Status))
	}
	if in.EffectiveDate.IsZero() {
		return shared.NewDomainError("INVALID_EFFECTIVE_DATE", "Effective date is required")
	}
	return nil
}

// resolveStatus applies the future-date rule: a rule whose effective date is
// after today can only be draft or scheduled.
func resolveStatus(requested RuleStatus, effective, today time.Time) RuleStatus {
	if requested == "" {
		requested = RuleStatusDraft
	}
	if shared.CompareDates(effective, today) > 0 && requested != RuleStatusDraft {
		return RuleStatusScheduled
	}
	return requested
}

// NewFeeRule creates a fee rule
func NewFeeRule(in RuleInput, createdBy uuid.UUID, now time.Time) (*FeeRule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	today := shared.StartOfDay(now)
	effective := shared.StartOfDay(in.EffectiveDate)
	status := resolveStatus(in.Status, effective, today)

	r := &FeeRule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Name:              strings.TrimSpace(in.Name),
		Type:              in.Type,
		Amount:            in.Amount,
		Frequency:         in.Frequency,
		UnitLabel:         in.UnitLabel,
		Status:            status,
		ApplicableTo:      in.ApplicableTo,
		Description:       in.Description,
		EffectiveDate:     effective,
		CreatedBy:         createdBy,
	}
	return r, nil
}

// Update replaces the mutable attributes. Existing fee applications keep
// their frozen amounts.
func (r *FeeRule) Update(in RuleInput, now time.Time) error {
	if r.IsDeleted() {
		return ErrRuleDeleted
	}
	if err := in.validate(); err != nil {
		return err
	}
	today := shared.StartOfDay(now)
	effective := shared.StartOfDay(in.EffectiveDate)
	requested := in.Status
	if requested == "" {
		requested = r.Status
	}
	status := resolveStatus(requested, effective, today)

	r.Name = strings.TrimSpace(in.Name)
	r.Type = in.Type
	r.Amount = in.Amount
	r.Frequency = in.Frequency
	r.UnitLabel = in.UnitLabel
	r.ApplicableTo = in.ApplicableTo
	r.Description = in.Description
	r.EffectiveDate = effective
	if status == RuleStatusActive && r.Status != RuleStatusActive {
		r.AddDomainEvent(NewFeeRuleActivatedEvent(r, now))
	}
	r.Status = status
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

// Schedule sets the rule to take effect on effectiveDate, which must be after today.
func (r *FeeRule) Schedule(effectiveDate, now time.Time) error {
	if r.IsDeleted() {
		return ErrRuleDeleted
	}
	if !r.Status.CanSchedule() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot schedule fee rule in %s status", r.Status))
	}
	effective := shared.StartOfDay(effectiveDate)
	if shared.CompareDates(effective, now) <= 0 {
		return ErrEffectiveDateNotFuture
	}
	r.Status = RuleStatusScheduled
	r.EffectiveDate = effective
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

// Activate flips a scheduled rule to active once its effective date is reached.
func (r *FeeRule) Activate(now time.Time) error {
	if r.IsDeleted() {
		return ErrRuleDeleted
	}
	if r.Status == RuleStatusActive {
		return nil
	}
	if r.Status != RuleStatusScheduled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot activate fee rule in %s status", r.Status))
	}
	if shared.CompareDates(r.EffectiveDate, now) > 0 {
		return ErrRuleNotEffective
	}
	r.Status = RuleStatusActive
	r.Touch(now)
	r.IncrementVersion()
	r.AddDomainEvent(NewFeeRuleActivatedEvent(r, now))
	return nil
}

// Deactivate stops a rule from producing new fee applications
func (r *FeeRule) Deactivate(now time.Time) error {
	if r.IsDeleted() {
		return ErrRuleDeleted
	}
	r.Status = RuleStatusInactive
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

// SoftDelete marks the rule deleted. Rules are never removed.
func (r *FeeRule) SoftDelete(now time.Time) {
	if r.DeletedAt != nil {
		return
	}
	r.DeletedAt = &now
	r.Touch(now)
	r.IncrementVersion()
}

// IsDeleted reports whether the rule was soft-deleted
func (r *FeeRule) IsDeleted() bool {
	return r.DeletedAt != nil
}

// CheckApplicable returns nil when the rule may produce fee applications today.
func (r *FeeRule) CheckApplicable(now time.Time) error {
	if r.IsDeleted() {
		return ErrRuleDeleted
	}
	if r.Status != RuleStatusActive {
		return ErrRuleNotActive
	}
	if shared.CompareDates(r.EffectiveDate, now) > 0 {
		return ErrRuleNotEffective
	}
	return nil
}

// DueDate returns the due date for applications created under this rule
func (r *FeeRule) DueDate() time.Time {
	return r.Frequency.DueDate(r.EffectiveDate)
}
