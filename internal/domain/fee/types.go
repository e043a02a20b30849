package fee

import "time"

// RuleType classifies what a fee rule charges for
type RuleType string

const (
	RuleTypeLand       RuleType = "land"
	RuleTypeEquipment  RuleType = "equipment"
	RuleTypeProcessing RuleType = "processing"
	RuleTypeStorage    RuleType = "storage"
	RuleTypeTraining   RuleType = "training"
	RuleTypeOther      RuleType = "other"
)

// IsValid checks if the rule type is known
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeLand, RuleTypeEquipment, RuleTypeProcessing, RuleTypeStorage, RuleTypeTraining, RuleTypeOther:
		return true
	}
	return false
}

// Frequency is how often a fee recurs. It also drives the due date offset.
type Frequency string

const (
	FrequencyDaily          Frequency = "daily"
	FrequencyWeekly         Frequency = "weekly"
	FrequencyMonthly        Frequency = "monthly"
	FrequencyQuarterly      Frequency = "quarterly"
	FrequencyYearly         Frequency = "yearly"
	FrequencyPerTransaction Frequency = "per_transaction"
	FrequencyOneTime        Frequency = "one_time"
)

// IsValid checks if the frequency is known
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyYearly, FrequencyPerTransaction, FrequencyOneTime:
		return true
	}
	return false
}

// DueDate returns the due date for a fee that takes effect on effective.
// Month arithmetic follows time.AddDate, so Jan 31 + 1 month lands on Mar 2 or 3.
func (f Frequency) DueDate(effective time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return effective.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return effective.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return effective.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return effective.AddDate(0, 3, 0)
	case FrequencyYearly:
		return effective.AddDate(1, 0, 0)
	default:
		return effective
	}
}

// RuleStatus is the lifecycle status of a fee rule
type RuleStatus string

const (
	RuleStatusDraft     RuleStatus = "draft"
	RuleStatusScheduled RuleStatus = "scheduled"
	RuleStatusActive    RuleStatus = "active"
	RuleStatusInactive  RuleStatus = "inactive"
)

// IsValid checks if the status is known
func (s RuleStatus) IsValid() bool {
	switch s {
	case RuleStatusDraft, RuleStatusScheduled, RuleStatusActive, RuleStatusInactive:
		return true
	}
	return false
}

// String returns the string representation
func (s RuleStatus) String() string {
	return string(s)
}

// CanSchedule returns true if a rule in this status may be scheduled
func (s RuleStatus) CanSchedule() bool {
	return s == RuleStatusDraft || s == RuleStatusInactive || s == RuleStatusScheduled
}

// Applicability is the class of users a fee rule targets
type Applicability string

const (
	ApplicableAllMembers    Applicability = "all_members"
	ApplicableUnitLeaders   Applicability = "unit_leaders"
	ApplicableNewMembers    Applicability = "new_members"
	ApplicableActiveMembers Applicability = "active_members"
	ApplicableSpecificUnits Applicability = "specific_units"
)

// IsValid checks if the applicability is known
func (a Applicability) IsValid() bool {
	switch a {
	case ApplicableAllMembers, ApplicableUnitLeaders, ApplicableNewMembers,
		ApplicableActiveMembers, ApplicableSpecificUnits:
		return true
	}
	return false
}

// ApplicationStatus is the status of a fee application
type ApplicationStatus string

const (
	ApplicationStatusPending ApplicationStatus = "pending"
	ApplicationStatusOverdue ApplicationStatus = "overdue"
	ApplicationStatusPaid    ApplicationStatus = "paid"
)

// IsValid checks if the status is known
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusOverdue, ApplicationStatusPaid:
		return true
	}
	return false
}

// IsOpen returns true while the obligation is unpaid
func (s ApplicationStatus) IsOpen() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusOverdue
}

// OpenApplicationStatuses lists the statuses that count as open
func OpenApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{ApplicationStatusPending, ApplicationStatusOverdue}
}
