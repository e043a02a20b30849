package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the payment status. Terminal values use the gateway's spelling.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

// NormalizeStatus maps a gateway status string onto Status. Pending is
// folded to lower case so polling a fresh charge does not look like a change.
func NormalizeStatus(raw string) Status {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "", "PENDING", "CREATED", "ONGOING":
		return StatusPending
	case "SUCCESSFUL", "SUCCESS":
		return StatusSuccessful
	case "FAILED", "REJECTED", "TIMEOUT", "EXPIRED":
		return StatusFailed
	}
	return Status(strings.ToUpper(s))
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsSuccess returns true if the charge completed
func (s Status) IsSuccess() bool {
	return s == StatusSuccessful
}

// IsFinal returns true once the gateway will not change the status again
func (s Status) IsFinal() bool {
	return s != StatusPending
}

// Type distinguishes a payment covering one fee from one covering several
type Type string

const (
	TypeSingle Type = "single"
	TypeBulk   Type = "bulk"
)

// IsValid checks if the type is known
func (t Type) IsValid() bool {
	return t == TypeSingle || t == TypeBulk
}

// MethodMobileMoney is the only payment method currently wired.
const MethodMobileMoney = "mtn_momo"

// CallbackData is the provider notification stored with a payment. Known
// fields are typed; the full body is kept in Raw so new provider fields are
// not lost.
type CallbackData struct {
	ReferenceID            string          `json:"referenceId,omitempty"`
	ExternalID             string          `json:"externalId,omitempty"`
	Status                 string          `json:"status,omitempty"`
	Amount                 string          `json:"amount,omitempty"`
	Currency               string          `json:"currency,omitempty"`
	FinancialTransactionID string          `json:"financialTransactionId,omitempty"`
	PayerMessage           string          `json:"payerMessage,omitempty"`
	PayeeNote              string          `json:"payeeNote,omitempty"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
	Raw                    json.RawMessage `json:"raw,omitempty"`
	ReceivedAt             time.Time       `json:"receivedAt"`
}

// Payment is one settlement attempt for at most one fee application. Several
// payments may share a ReferenceID when one charge covers several fees.
type Payment struct {
	shared.BaseEntity
	UserID                 uuid.UUID
	FeeApplicationID       *uuid.UUID
	ReferenceID            string
	ExternalID             string
	Amount                 decimal.Decimal
	Currency               string
	PhoneNumber            string
	Description            string
	Status                 Status
	PaymentType            Type
	PaymentMethod          string
	FinancialTransactionID string
	PayerMessage           string
	PayeeNote              string
	Reason                 string
	PaidAt                 *time.Time
	CallbackData           *CallbackData
}

// NewPendingPayment records a charge the gateway accepted.
func NewPendingPayment(userID uuid.UUID, feeApplicationID *uuid.UUID, amount decimal.Decimal, charge *ChargeResult, currency, description string, paymentType Type, now time.Time) *Payment {
	return &Payment{
		BaseEntity:       shared.NewBaseEntity(now),
		UserID:           userID,
		FeeApplicationID: feeApplicationID,
		ReferenceID:      charge.ReferenceID,
		ExternalID:       charge.ExternalID,
		Amount:           amount,
		Currency:         currency,
		PhoneNumber:      charge.PhoneNumber,
		Description:      description,
		Status:           StatusPending,
		PaymentType:      paymentType,
		PaymentMethod:    MethodMobileMoney,
	}
}

// ApplyStatus brings the payment in line with the gateway. It returns false
// and leaves the payment untouched when the status is unchanged, when a late
// pending report arrives for a payment that already reached a final state, or
// when the payment already succeeded. A successful payment has settled its
// fee application, so it never moves again.
func (p *Payment) ApplyStatus(res *StatusResult, now time.Time) bool {
	if res == nil || res.Status == "" || res.Status == p.Status {
		return false
	}
	if p.Status.IsSuccess() {
		return false
	}
	if p.Status.IsFinal() && !res.Status.IsFinal() {
		return false
	}
	p.Status = res.Status
	if res.FinancialTransactionID != "" {
		p.FinancialTransactionID = res.FinancialTransactionID
	}
	if res.PayerMessage != "" {
		p.PayerMessage = res.PayerMessage
	}
	if res.PayeeNote != "" {
		p.PayeeNote = res.PayeeNote
	}
	if res.Reason != "" {
		p.Reason = res.Reason
	}
	if res.Status.IsSuccess() && p.PaidAt == nil {
		p.PaidAt = &now
	}
	if res.Raw != nil {
		p.CallbackData = res.Raw
	}
	p.Touch(now)
	return true
}

// IsPending reports whether the charge is still in flight
func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}
