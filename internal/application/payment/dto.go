package payment

import (
	"time"

	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest represents a request to charge a member's wallet
type InitiatePaymentRequest struct {
	PhoneNumber       string          `json:"phone_number" binding:"required,max=20,msisdn"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
	Description       string          `json:"description" binding:"max=255"`
	FeeApplicationIDs []uuid.UUID     `json:"fee_application_ids" binding:"omitempty,dive,required"`
	FeeApplicationID  *uuid.UUID      `json:"fee_application_id"`
	PaymentType       string          `json:"payment_type" binding:"omitempty,oneof=single bulk"`
}

// FeeIDs returns the distinct fee application ids of the request, folding in
// the single-id form.
func (r InitiatePaymentRequest) FeeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.FeeApplicationIDs)+1)
	seen := make(map[uuid.UUID]struct{}, len(r.FeeApplicationIDs)+1)
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range r.FeeApplicationIDs {
		add(id)
	}
	if r.FeeApplicationID != nil {
		add(*r.FeeApplicationID)
	}
	return ids
}

// StatusRequest carries the reference to check, from the query or the body
type StatusRequest struct {
	ReferenceID string `json:"reference_id" form:"reference_id" binding:"required,max=64"`
}

// InitiatePaymentResult summarises an accepted charge
type InitiatePaymentResult struct {
	ReferenceID       string          `json:"reference_id"`
	ExternalID        string          `json:"external_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PhoneNumber       string          `json:"phone_number"`
	PaymentType       string          `json:"payment_type"`
	PaymentIDs        []uuid.UUID     `json:"payment_ids"`
	FeeApplicationIDs []uuid.UUID     `json:"fee_application_ids"`
	Message           string          `json:"message"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                     uuid.UUID       `json:"id"`
	FeeApplicationID       *uuid.UUID      `json:"fee_application_id,omitempty"`
	ReferenceID            string          `json:"reference_id"`
	ExternalID             string          `json:"external_id"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	PhoneNumber            string          `json:"phone_number"`
	Description            string          `json:"description,omitempty"`
	Status                 string          `json:"status"`
	PaymentType            string          `json:"payment_type"`
	PaymentMethod          string          `json:"payment_method"`
	FinancialTransactionID string          `json:"financial_transaction_id,omitempty"`
	Reason                 string          `json:"reason,omitempty"`
	PaidAt                 *time.Time      `json:"paid_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                     p.ID,
		FeeApplicationID:       p.FeeApplicationID,
		ReferenceID:            p.ReferenceID,
		ExternalID:             p.ExternalID,
		Amount:                 p.Amount,
		Currency:               p.Currency,
		PhoneNumber:            p.PhoneNumber,
		Description:            p.Description,
		Status:                 p.Status.String(),
		PaymentType:            string(p.PaymentType),
		PaymentMethod:          p.PaymentMethod,
		FinancialTransactionID: p.FinancialTransactionID,
		Reason:                 p.Reason,
		PaidAt:                 p.PaidAt,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []payment.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// StatusResponse is the consolidated view of every row sharing a reference
type StatusResponse struct {
	ReferenceID            string            `json:"reference_id"`
	Status                 string            `json:"status"`
	TotalAmount            decimal.Decimal   `json:"total_amount"`
	Currency               string            `json:"currency"`
	FinancialTransactionID string            `json:"financial_transaction_id,omitempty"`
	Reason                 string            `json:"reason,omitempty"`
	Updated                bool              `json:"updated"`
	PaidFeeApplicationIDs  []uuid.UUID       `json:"paid_fee_application_ids"`
	Payments               []PaymentResponse `json:"payments"`
}

// CallbackResult is what the webhook reports back to the provider. It is
// always rendered with HTTP 200.
type CallbackResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ReferenceID string `json:"reference_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Updated     bool   `json:"updated"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

// ReconcileResult describes what one reconciliation changed
type ReconcileResult struct {
	ReferenceID           string
	Status                payment.Status
	Changed               bool
	UpdatedPayments       int
	PaidFeeApplicationIDs []uuid.UUID
	// Payments holds every row of the reference after reconciliation.
	Payments []payment.Payment
}

// Reconciliation sources recorded on PaymentReconciled events
const (
	ViaStatusCheck = "status_check"
	ViaCallback    = "callback"
)
