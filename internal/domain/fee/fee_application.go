package fee

import (
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculationData is the snapshot of how an application's amount was derived.
type CalculationData struct {
	BaseAmount    decimal.Decimal  `json:"base_amount"`
	UnitOverride  *decimal.Decimal `json:"unit_override,omitempty"`
	FinalAmount   decimal.Decimal  `json:"final_amount"`
	Frequency     Frequency        `json:"frequency,omitempty"`
	EffectiveDate *time.Time       `json:"effective_date,omitempty"`
	AppliedAt     time.Time        `json:"applied_at"`
}

// FeeApplication is one obligation of one user under one fee rule.
// Amount is frozen at creation.
type FeeApplication struct {
	shared.BaseAggregateRoot
	FeeRuleID       uuid.UUID
	UserID          uuid.UUID
	UnitID          *uuid.UUID
	Amount          decimal.Decimal
	Status          ApplicationStatus
	DueDate         time.Time
	PaidDate        *time.Time
	CalculationData CalculationData
}

// NewFeeApplication creates a pending application of rule to a user. When
// override is present it replaces the rule amount.
func NewFeeApplication(rule *FeeRule, userID uuid.UUID, unitID *uuid.UUID, override *decimal.Decimal, now time.Time) (*FeeApplication, error) {
	if rule == nil {
		return nil, shared.NewDomainError("INVALID_FEE_RULE", "Fee rule is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}

	amount := rule.Amount
	if override != nil {
		amount = *override
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Fee amount cannot be negative")
	}

	effective := rule.EffectiveDate
	app := &FeeApplication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		FeeRuleID:         rule.ID,
		UserID:            userID,
		UnitID:            unitID,
		Amount:            amount,
		Status:            ApplicationStatusPending,
		DueDate:           rule.DueDate(),
		CalculationData: CalculationData{
			BaseAmount:    rule.Amount,
			UnitOverride:  override,
			FinalAmount:   amount,
			Frequency:     rule.Frequency,
			EffectiveDate: &effective,
			AppliedAt:     now,
		},
	}
	return app, nil
}

// IsOpen reports whether the application is still unpaid
func (a *FeeApplication) IsOpen() bool {
	return a.Status.IsOpen()
}

// IsPaid reports whether the application is paid
func (a *FeeApplication) IsPaid() bool {
	return a.Status == ApplicationStatusPaid
}

// IsPastDue reports whether the due date is strictly before today
func (a *FeeApplication) IsPastDue(now time.Time) bool {
	return shared.CompareDates(a.DueDate, now) < 0
}

// MarkOverdue moves a pending application past its due date to overdue.
// It returns false when nothing changed.
func (a *FeeApplication) MarkOverdue(now time.Time) bool {
	if a.Status != ApplicationStatusPending || !a.IsPastDue(now) {
		return false
	}
	a.Status = ApplicationStatusOverdue
	a.Touch(now)
	a.IncrementVersion()
	return true
}

// MarkPaid settles the application. Paying an already paid application is a
// no-op and returns false.
func (a *FeeApplication) MarkPaid(paidAt time.Time) bool {
	if a.Status == ApplicationStatusPaid {
		return false
	}
	a.Status = ApplicationStatusPaid
	a.PaidDate = &paidAt
	a.Touch(paidAt)
	a.IncrementVersion()
	a.AddDomainEvent(NewFeeApplicationPaidEvent(a))
	return true
}
