package fee

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitAssignment links a fee rule to a unit, optionally overriding the amount
// charged to that unit's members.
type UnitAssignment struct {
	FeeRuleID    uuid.UUID
	UnitID       uuid.UUID
	IsActive     bool
	CustomAmount *decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUnitAssignment creates an active assignment
func NewUnitAssignment(ruleID, unitID uuid.UUID, customAmount *decimal.Decimal, now time.Time) *UnitAssignment {
	return &UnitAssignment{
		FeeRuleID:    ruleID,
		UnitID:       unitID,
		IsActive:     true,
		CustomAmount: customAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UnitOverrides maps unit id to the custom amount of an active assignment.
type UnitOverrides map[uuid.UUID]decimal.Decimal

// NewUnitOverrides builds the override map from assignments, ignoring
// inactive ones and those without a custom amount.
func NewUnitOverrides(assignments []UnitAssignment) UnitOverrides {
	out := make(UnitOverrides, len(assignments))
	for _, a := range assignments {
		if !a.IsActive || a.CustomAmount == nil {
			continue
		}
		out[a.UnitID] = *a.CustomAmount
	}
	return out
}

// For returns the override for unitID, if any
func (o UnitOverrides) For(unitID *uuid.UUID) (decimal.Decimal, bool) {
	if unitID == nil {
		return decimal.Zero, false
	}
	amt, ok := o[*unitID]
	return amt, ok
}
