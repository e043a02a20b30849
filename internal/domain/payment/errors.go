package payment

import "github.com/agricoop/backend/internal/domain/shared"

var (
	ErrPaymentNotFound      = shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	ErrFeeAlreadyPaid       = shared.NewDomainError("FEE_ALREADY_PAID", "One or more fee applications are already paid")
	ErrPaymentInProgress    = shared.NewDomainError("PAYMENT_IN_PROGRESS", "A payment is already pending for one or more fee applications")
	ErrAmountMismatch       = shared.NewDomainError("AMOUNT_MISMATCH", "Payment amount does not match the selected fees")
	ErrInvalidPaymentAmount = shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	ErrNothingDue           = shared.NewDomainError("NOTHING_DUE", "One or more fee applications have no amount due")
)
