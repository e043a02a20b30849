package models

import (
	"time"

	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentModel is the persistence model for payments.
// CallbackData stores JSON null until a provider notification arrives.
type PaymentModel struct {
	BaseModel
	UserID                 uuid.UUID                                `gorm:"type:uuid;not null;index"`
	FeeApplicationID       *uuid.UUID                               `gorm:"type:uuid;index"`
	ReferenceID            string                                   `gorm:"type:varchar(64);not null;index"`
	ExternalID             string                                   `gorm:"type:varchar(64);not null"`
	Amount                 decimal.Decimal                          `gorm:"type:decimal(18,2);not null"`
	Currency               string                                   `gorm:"type:varchar(3);not null"`
	PhoneNumber            string                                   `gorm:"type:varchar(30);not null"`
	Description            string                                   `gorm:"type:varchar(255)"`
	Status                 payment.Status                           `gorm:"type:varchar(20);not null;index"`
	PaymentType            payment.Type                             `gorm:"type:varchar(10);not null"`
	PaymentMethod          string                                   `gorm:"type:varchar(30);not null"`
	FinancialTransactionID string                                   `gorm:"type:varchar(64)"`
	PayerMessage           string                                   `gorm:"type:varchar(255)"`
	PayeeNote              string                                   `gorm:"type:varchar(255)"`
	Reason                 string                                   `gorm:"type:varchar(255)"`
	PaidAt                 *time.Time                               `gorm:""`
	CallbackData           datatypes.JSONType[*payment.CallbackData] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *payment.Payment {
	return &payment.Payment{
		BaseEntity:             m.BaseModel.ToDomain(),
		UserID:                 m.UserID,
		FeeApplicationID:       m.FeeApplicationID,
		ReferenceID:            m.ReferenceID,
		ExternalID:             m.ExternalID,
		Amount:                 m.Amount,
		Currency:               m.Currency,
		PhoneNumber:            m.PhoneNumber,
		Description:            m.Description,
		Status:                 m.Status,
		PaymentType:            m.PaymentType,
		PaymentMethod:          m.PaymentMethod,
		FinancialTransactionID: m.FinancialTransactionID,
		PayerMessage:           m.PayerMessage,
		PayeeNote:              m.PayeeNote,
		Reason:                 m.Reason,
		PaidAt:                 m.PaidAt,
		CallbackData:           m.CallbackData.Data(),
	}
}

// PaymentModelFromDomain creates a model from a domain Payment
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{
		UserID:                 p.UserID,
		FeeApplicationID:       p.FeeApplicationID,
		ReferenceID:            p.ReferenceID,
		ExternalID:             p.ExternalID,
		Amount:                 p.Amount,
		Currency:               p.Currency,
		PhoneNumber:            p.PhoneNumber,
		Description:            p.Description,
		Status:                 p.Status,
		PaymentType:            p.PaymentType,
		PaymentMethod:          p.PaymentMethod,
		FinancialTransactionID: p.FinancialTransactionID,
		PayerMessage:           p.PayerMessage,
		PayeeNote:              p.PayeeNote,
		Reason:                 p.Reason,
		PaidAt:                 p.PaidAt,
		CallbackData:           datatypes.NewJSONType(p.CallbackData),
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
