package fee

import (
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// CreateFeeRuleRequest represents a request to create a fee rule
type CreateFeeRuleRequest struct {
	Name          string          `json:"name" binding:"required,min=1,max=255"`
	Type          string          `json:"type" binding:"required,oneof=land equipment processing storage training other"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Frequency     string          `json:"frequency" binding:"required,oneof=daily weekly monthly quarterly yearly per_transaction one_time"`
	UnitLabel     string          `json:"unit" binding:"max=50"`
	Status        string          `json:"status" binding:"omitempty,oneof=draft scheduled active inactive"`
	ApplicableTo  string          `json:"applicable_to" binding:"required,oneof=all_members unit_leaders new_members active_members specific_units"`
	Description   string          `json:"description" binding:"max=2000"`
	EffectiveDate string          `json:"effective_date" binding:"required,datetime=2006-01-02"`
}

// UpdateFeeRuleRequest represents a request to replace a fee rule's attributes
type UpdateFeeRuleRequest = CreateFeeRuleRequest

// ToInput converts the request to a domain RuleInput
func (r CreateFeeRuleRequest) ToInput(loc *time.Location) (fee.RuleInput, error) {
	effective, err := time.ParseInLocation(DateLayout, r.EffectiveDate, loc)
	if err != nil {
		return fee.RuleInput{}, err
	}
	return fee.RuleInput{
		Name:          r.Name,
		Type:          fee.RuleType(r.Type),
		Amount:        r.Amount,
		Frequency:     fee.Frequency(r.Frequency),
		UnitLabel:     r.UnitLabel,
		Status:        fee.RuleStatus(r.Status),
		ApplicableTo:  fee.Applicability(r.ApplicableTo),
		Description:   r.Description,
		EffectiveDate: effective,
	}, nil
}

// ScheduleFeeRuleRequest represents a request to schedule a fee rule
type ScheduleFeeRuleRequest struct {
	EffectiveDate string `json:"effective_date" binding:"required,datetime=2006-01-02"`
}

// AssignUnitsRequest represents a request to assign a fee rule to units
type AssignUnitsRequest struct {
	UnitIDs       []uuid.UUID                   `json:"unit_ids" binding:"required,min=1,dive,required"`
	CustomAmounts map[uuid.UUID]decimal.Decimal `json:"custom_amounts"`
}

// FeeRuleResponse represents a fee rule in API responses
type FeeRuleResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Frequency     string          `json:"frequency"`
	UnitLabel     string          `json:"unit"`
	Status        string          `json:"status"`
	ApplicableTo  string          `json:"applicable_to"`
	Description   string          `json:"description"`
	EffectiveDate string          `json:"effective_date"`
	DueDate       string          `json:"due_date"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// ToFeeRuleResponse converts a domain FeeRule to FeeRuleResponse
func ToFeeRuleResponse(r *fee.FeeRule) FeeRuleResponse {
	return FeeRuleResponse{
		ID:            r.ID,
		Name:          r.Name,
		Type:          string(r.Type),
		Amount:        r.Amount,
		Frequency:     string(r.Frequency),
		UnitLabel:     r.UnitLabel,
		Status:        r.Status.String(),
		ApplicableTo:  string(r.ApplicableTo),
		Description:   r.Description,
		EffectiveDate: r.EffectiveDate.Format(DateLayout),
		DueDate:       r.DueDate().Format(DateLayout),
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

// ToFeeRuleResponses converts a slice of domain FeeRules
func ToFeeRuleResponses(rules []fee.FeeRule) []FeeRuleResponse {
	out := make([]FeeRuleResponse, len(rules))
	for i := range rules {
		out[i] = ToFeeRuleResponse(&rules[i])
	}
	return out
}

// FeeApplicationResponse represents a fee application in API responses
type FeeApplicationResponse struct {
	ID              uuid.UUID           `json:"id"`
	FeeRuleID       uuid.UUID           `json:"fee_rule_id"`
	UserID          uuid.UUID           `json:"user_id"`
	UnitID          *uuid.UUID          `json:"unit_id,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	Status          string              `json:"status"`
	DueDate         string              `json:"due_date"`
	PaidDate        *time.Time          `json:"paid_date,omitempty"`
	CalculationData fee.CalculationData `json:"calculation_data"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ToFeeApplicationResponse converts a domain FeeApplication
func ToFeeApplicationResponse(a *fee.FeeApplication) FeeApplicationResponse {
	return FeeApplicationResponse{
		ID:              a.ID,
		FeeRuleID:       a.FeeRuleID,
		UserID:          a.UserID,
		UnitID:          a.UnitID,
		Amount:          a.Amount,
		Status:          string(a.Status),
		DueDate:         a.DueDate.Format(DateLayout),
		PaidDate:        a.PaidDate,
		CalculationData: a.CalculationData,
		CreatedAt:       a.CreatedAt,
	}
}

// ItemError records why one item of a batch was not processed
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ApplyResult is the outcome of applying one rule
type ApplyResult struct {
	RuleID       uuid.UUID   `json:"fee_rule_id"`
	AppliedCount int         `json:"applied_count"`
	SkippedCount int         `json:"skipped_count"`
	Errors       []ItemError `json:"errors"`
}

// SweepResult is the outcome of applying every active rule in one transaction
type SweepResult struct {
	Success      bool          `json:"success"`
	RulesChecked int           `json:"rules_checked"`
	AppliedCount int           `json:"applied_count"`
	Rules        []ApplyResult `json:"rules"`
	Errors       []ItemError   `json:"errors"`
}

// BatchResult is the outcome of a best-effort status sweep
type BatchResult struct {
	Processed int         `json:"processed"`
	Updated   int         `json:"updated"`
	Errors    []ItemError `json:"errors"`
}

// AssignResult is the outcome of assigning a rule to units
type AssignResult struct {
	RuleID        uuid.UUID   `json:"fee_rule_id"`
	AssignedCount int         `json:"assigned_count"`
	Errors        []ItemError `json:"errors"`
}

// DailySweepResult is the outcome of one full daily fee sweep
type DailySweepResult struct {
	Activated *BatchResult `json:"activated"`
	Applied   *SweepResult `json:"applied"`
	Overdue   *BatchResult `json:"overdue"`
}

// UnitAssignmentResponse represents a rule-to-unit assignment in API responses
type UnitAssignmentResponse struct {
	FeeRuleID    uuid.UUID        `json:"fee_rule_id"`
	UnitID       uuid.UUID        `json:"unit_id"`
	IsActive     bool             `json:"is_active"`
	CustomAmount *decimal.Decimal `json:"custom_amount,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ToUnitAssignmentResponses converts domain assignments
func ToUnitAssignmentResponses(assignments []fee.UnitAssignment) []UnitAssignmentResponse {
	out := make([]UnitAssignmentResponse, len(assignments))
	for i, a := range assignments {
		out[i] = UnitAssignmentResponse{
			FeeRuleID:    a.FeeRuleID,
			UnitID:       a.UnitID,
			IsActive:     a.IsActive,
			CustomAmount: a.CustomAmount,
			UpdatedAt:    a.UpdatedAt,
		}
	}
	return out
}
