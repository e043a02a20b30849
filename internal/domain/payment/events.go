package payment

import (
	"time"

	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypePaymentReconciled is raised when a reference's status changes.
const EventTypePaymentReconciled = "PaymentReconciled"

// ReconciledEvent is raised once per reference when local rows change status
type ReconciledEvent struct {
	shared.BaseDomainEvent
	ReferenceID   string      `json:"reference_id"`
	Status        Status      `json:"status"`
	PaymentIDs    []uuid.UUID `json:"payment_ids"`
	PaidFeeIDs    []uuid.UUID `json:"paid_fee_application_ids,omitempty"`
	ReconciledVia string      `json:"reconciled_via"`
}

// NewReconciledEvent creates a ReconciledEvent. The first payment id is used as aggregate id.
func NewReconciledEvent(referenceID string, status Status, paymentIDs, paidFeeIDs []uuid.UUID, via string, at time.Time) *ReconciledEvent {
	aggID := uuid.Nil
	if len(paymentIDs) > 0 {
		aggID = paymentIDs[0]
	}
	return &ReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReconciled, "Payment", aggID, at),
		ReferenceID:     referenceID,
		Status:          status,
		PaymentIDs:      paymentIDs,
		PaidFeeIDs:      paidFeeIDs,
		ReconciledVia:   via,
	}
}
