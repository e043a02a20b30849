package models

import (
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeeRuleModel is the persistence model for the FeeRule aggregate root.
// DeletedAt makes GORM skip soft-deleted rules in every default query.
type FeeRuleModel struct {
	AggregateModel
	Name          string            `gorm:"type:varchar(255);not null"`
	Type          fee.RuleType      `gorm:"type:varchar(30);not null"`
	Amount        decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	Frequency     fee.Frequency     `gorm:"type:varchar(30);not null"`
	UnitLabel     string            `gorm:"type:varchar(50)"`
	Status        fee.RuleStatus    `gorm:"type:varchar(20);not null;index:idx_fee_rules_status_effective,priority:1"`
	ApplicableTo  fee.Applicability `gorm:"type:varchar(30);not null"`
	Description   string            `gorm:"type:text"`
	EffectiveDate time.Time         `gorm:"type:date;not null;index:idx_fee_rules_status_effective,priority:2"`
	CreatedBy     uuid.UUID         `gorm:"type:uuid;not null"`
	DeletedAt     gorm.DeletedAt    `gorm:"index"`
}

// TableName returns the table name for GORM
func (FeeRuleModel) TableName() string {
	return "fee_rules"
}

// ToDomain converts the persistence model to a domain FeeRule
func (m *FeeRuleModel) ToDomain() *fee.FeeRule {
	r := &fee.FeeRule{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Type:              m.Type,
		Amount:            m.Amount,
		Frequency:         m.Frequency,
		UnitLabel:         m.UnitLabel,
		Status:            m.Status,
		ApplicableTo:      m.ApplicableTo,
		Description:       m.Description,
		EffectiveDate:     m.EffectiveDate,
		CreatedBy:         m.CreatedBy,
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		r.DeletedAt = &deletedAt
	}
	return r
}

// FeeRuleModelFromDomain creates a persistence model from a domain FeeRule
func FeeRuleModelFromDomain(r *fee.FeeRule) *FeeRuleModel {
	m := &FeeRuleModel{
		Name:          r.Name,
		Type:          r.Type,
		Amount:        r.Amount,
		Frequency:     r.Frequency,
		UnitLabel:     r.UnitLabel,
		Status:        r.Status,
		ApplicableTo:  r.ApplicableTo,
		Description:   r.Description,
		EffectiveDate: r.EffectiveDate,
		CreatedBy:     r.CreatedBy,
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	if r.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return m
}

// FeeRuleUnitModel is the persistence model for fee rule unit assignments.
// The composite primary key makes (fee_rule_id, unit_id) unique.
type FeeRuleUnitModel struct {
	FeeRuleID    uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UnitID       uuid.UUID        `gorm:"type:uuid;primaryKey"`
	IsActive     bool             `gorm:"not null"`
	CustomAmount *decimal.Decimal `gorm:"type:decimal(18,2)"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeeRuleUnitModel) TableName() string {
	return "fee_rule_units"
}

// ToDomain converts the model to a domain UnitAssignment
func (m *FeeRuleUnitModel) ToDomain() *fee.UnitAssignment {
	return &fee.UnitAssignment{
		FeeRuleID:    m.FeeRuleID,
		UnitID:       m.UnitID,
		IsActive:     m.IsActive,
		CustomAmount: m.CustomAmount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FeeRuleUnitModelFromDomain creates a model from a domain UnitAssignment
func FeeRuleUnitModelFromDomain(a *fee.UnitAssignment) *FeeRuleUnitModel {
	return &FeeRuleUnitModel{
		FeeRuleID:    a.FeeRuleID,
		UnitID:       a.UnitID,
		IsActive:     a.IsActive,
		CustomAmount: a.CustomAmount,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// FeeApplicationModel is the persistence model for fee applications.
// ux_fee_applications_open allows at most one unpaid row per (rule, user).
type FeeApplicationModel struct {
	AggregateModel
	FeeRuleID       uuid.UUID                                `gorm:"type:uuid;not null;uniqueIndex:ux_fee_applications_open,priority:1,where:status <> 'paid'"`
	UserID          uuid.UUID                                `gorm:"type:uuid;not null;uniqueIndex:ux_fee_applications_open,priority:2;index"`
	UnitID          *uuid.UUID                               `gorm:"type:uuid"`
	Amount          decimal.Decimal                          `gorm:"type:decimal(18,2);not null"`
	Status          fee.ApplicationStatus                    `gorm:"type:varchar(20);not null;index:idx_fee_applications_status_due,priority:1"`
	DueDate         time.Time                                `gorm:"type:date;not null;index:idx_fee_applications_status_due,priority:2"`
	PaidDate        *time.Time                               `gorm:""`
	CalculationData datatypes.JSONType[fee.CalculationData] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeeApplicationModel) TableName() string {
	return "fee_applications"
}

// ToDomain converts the model to a domain FeeApplication
func (m *FeeApplicationModel) ToDomain() *fee.FeeApplication {
	return &fee.FeeApplication{
		BaseAggregateRoot: m.ToAggregateRoot(),
		FeeRuleID:         m.FeeRuleID,
		UserID:            m.UserID,
		UnitID:            m.UnitID,
		Amount:            m.Amount,
		Status:            m.Status,
		DueDate:           m.DueDate,
		PaidDate:          m.PaidDate,
		CalculationData:   m.CalculationData.Data(),
	}
}

// FeeApplicationModelFromDomain creates a model from a domain FeeApplication
func FeeApplicationModelFromDomain(a *fee.FeeApplication) *FeeApplicationModel {
	m := &FeeApplicationModel{
		FeeRuleID:       a.FeeRuleID,
		UserID:          a.UserID,
		UnitID:          a.UnitID,
		Amount:          a.Amount,
		Status:          a.Status,
		DueDate:         a.DueDate,
		PaidDate:        a.PaidDate,
		CalculationData: datatypes.NewJSONType(a.CalculationData),
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}
