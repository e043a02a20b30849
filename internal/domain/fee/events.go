package fee

import (
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeFeeRuleActivated   = "FeeRuleActivated"
	EventTypeFeeApplicationPaid = "FeeApplicationPaid"
)

// FeeRuleActivatedEvent is raised when a rule becomes active
type FeeRuleActivatedEvent struct {
	shared.BaseDomainEvent
	RuleID        uuid.UUID `json:"rule_id"`
	Name          string    `json:"name"`
	EffectiveDate time.Time `json:"effective_date"`
}

// NewFeeRuleActivatedEvent creates a FeeRuleActivatedEvent
func NewFeeRuleActivatedEvent(r *FeeRule, at time.Time) *FeeRuleActivatedEvent {
	return &FeeRuleActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeRuleActivated, "FeeRule", r.ID, at),
		RuleID:          r.ID,
		Name:            r.Name,
		EffectiveDate:   r.EffectiveDate,
	}
}

// FeeApplicationPaidEvent is raised when an application is settled
type FeeApplicationPaidEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID       `json:"application_id"`
	FeeRuleID     uuid.UUID       `json:"fee_rule_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewFeeApplicationPaidEvent creates a FeeApplicationPaidEvent
func NewFeeApplicationPaidEvent(a *FeeApplication) *FeeApplicationPaidEvent {
	paidAt := a.UpdatedAt
	if a.PaidDate != nil {
		paidAt = *a.PaidDate
	}
	return &FeeApplicationPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeApplicationPaid, "FeeApplication", a.ID, paidAt),
		ApplicationID:   a.ID,
		FeeRuleID:       a.FeeRuleID,
		UserID:          a.UserID,
		Amount:          a.Amount,
		PaidAt:          paidAt,
	}
}
